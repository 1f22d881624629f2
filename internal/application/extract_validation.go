package application

import (
	"fmt"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

// ExtractValidationRefs collects property references from a validation rule
// set: cross-field comparisons, conditional branches, embedded formulas and
// lookup targets. Deduplicated by name.
func ExtractValidationRefs(rules []domain.ValidationRule) []Reference {
	seen := make(map[string]struct{})
	var out []Reference
	add := func(refs ...Reference) {
		for _, r := range refs {
			if r.PropertyName == "" {
				continue
			}
			if _, ok := seen[r.PropertyName]; ok {
				continue
			}
			seen[r.PropertyName] = struct{}{}
			out = append(out, r)
		}
	}

	for _, rule := range rules {
		switch rule.Type {
		case domain.RuleCrossField:
			add(Reference{
				PropertyName: rule.CompareField,
				Context:      fmt.Sprintf("cross_field %s %s", rule.Operator, rule.CompareField),
			})
		case domain.RuleConditional:
			add(conditionRefs(rule.Condition)...)
			add(ExtractFormulaRefs(rule.Formula)...)
		case domain.RuleFormula:
			add(ExtractFormulaRefs(rule.Formula)...)
		case domain.RuleLookup:
			add(Reference{
				PropertyName: rule.LookupField,
				Context:      "lookup " + rule.LookupField,
			})
		}
		add(ExtractFormulaRefs(rule.Expression)...)
	}

	return out
}

func conditionRefs(cond *domain.Condition) []Reference {
	if cond == nil {
		return nil
	}
	var out []Reference
	if cond.Field != "" {
		out = append(out, Reference{
			PropertyName: cond.Field,
			Context:      fmt.Sprintf("condition %s %s %s", cond.Field, cond.Operator, cond.Value),
		})
	}
	out = append(out, ExtractFormulaRefs(cond.Formula)...)
	for i := range cond.Conditions {
		out = append(out, conditionRefs(&cond.Conditions[i])...)
	}
	return out
}

// ValidateRules reports structural problems with a rule set without
// evaluating it: unknown rule types, missing operands, empty branches.
func ValidateRules(rules []domain.ValidationRule) []string {
	var problems []string
	for i, rule := range rules {
		switch rule.Type {
		case domain.RuleRequired:
		case domain.RuleRange:
			if rule.Min == nil && rule.Max == nil {
				problems = append(problems, fmt.Sprintf("rule %d: range rule without min or max", i))
			}
			if rule.Min != nil && rule.Max != nil && *rule.Min > *rule.Max {
				problems = append(problems, fmt.Sprintf("rule %d: range min exceeds max", i))
			}
		case domain.RuleCrossField:
			if rule.CompareField == "" {
				problems = append(problems, fmt.Sprintf("rule %d: cross_field rule without compare_field", i))
			}
			if rule.Operator == "" {
				problems = append(problems, fmt.Sprintf("rule %d: cross_field rule without operator", i))
			}
		case domain.RuleConditional:
			if rule.Condition == nil {
				problems = append(problems, fmt.Sprintf("rule %d: conditional rule without condition", i))
			} else {
				problems = append(problems, conditionProblems(i, rule.Condition)...)
			}
		case domain.RuleFormula:
			if rule.Formula == "" {
				problems = append(problems, fmt.Sprintf("rule %d: formula rule without formula", i))
			}
		case domain.RuleLookup:
			if rule.LookupField == "" {
				problems = append(problems, fmt.Sprintf("rule %d: lookup rule without lookup_field", i))
			}
		default:
			problems = append(problems, fmt.Sprintf("rule %d: unknown rule type %q", i, rule.Type))
		}
	}
	return problems
}

func conditionProblems(ruleIdx int, cond *domain.Condition) []string {
	var problems []string
	if cond.Field == "" && cond.Formula == "" && len(cond.Conditions) == 0 {
		problems = append(problems, fmt.Sprintf("rule %d: empty condition branch", ruleIdx))
	}
	if len(cond.Conditions) > 0 && cond.Operator != "and" && cond.Operator != "or" {
		problems = append(problems, fmt.Sprintf("rule %d: condition group without and/or operator", ruleIdx))
	}
	for i := range cond.Conditions {
		problems = append(problems, conditionProblems(ruleIdx, &cond.Conditions[i])...)
	}
	return problems
}

var ruleTypeWeights = map[string]int{
	domain.RuleFormula:     15,
	domain.RuleConditional: 12,
	domain.RuleCrossField:  8,
	domain.RuleLookup:      6,
	domain.RuleRange:       4,
	domain.RuleRequired:    2,
}

// ValidationComplexity scores a rule set 0..100 from rule count, rule type
// weights, condition nesting depth and embedded formula complexity.
func ValidationComplexity(rules []domain.ValidationRule) int {
	score := 0
	for _, rule := range rules {
		score += 3
		score += ruleTypeWeights[rule.Type]
		score += 4 * conditionDepth(rule.Condition)
		score += formulaComplexity(rule.Formula)
		score += formulaComplexity(rule.Expression)
	}
	if score > 100 {
		score = 100
	}
	return score
}

func conditionDepth(cond *domain.Condition) int {
	if cond == nil {
		return 0
	}
	deepest := 0
	for i := range cond.Conditions {
		if d := conditionDepth(&cond.Conditions[i]); d > deepest {
			deepest = d
		}
	}
	return 1 + deepest
}
