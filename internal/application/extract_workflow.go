package application

import (
	"fmt"
	"regexp"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

var mergeFieldPattern = regexp.MustCompile(`\{\{?\s*([A-Za-z_][A-Za-z0-9_.]*)\s*\}?\}`)

// WorkflowReference ties an extracted reference to the part of the workflow
// config it came from, so discovery can pick the right edge type.
type WorkflowReference struct {
	Reference
	Part domain.DependencyType // workflow_trigger, workflow_condition, workflow_action, email_template
}

// ExtractWorkflowRefs collects property references from a workflow config:
// the trigger field, condition branches, action field targets and sources,
// formulas embedded in action values, and merge fields in email templates.
func ExtractWorkflowRefs(cfg domain.WorkflowConfig) []WorkflowReference {
	seen := make(map[string]struct{})
	var out []WorkflowReference
	add := func(part domain.DependencyType, refs ...Reference) {
		for _, r := range refs {
			if r.PropertyName == "" {
				continue
			}
			key := string(part) + ":" + r.PropertyName
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, WorkflowReference{Reference: r, Part: part})
		}
	}

	if t := cfg.Trigger; t != nil && t.Field != "" {
		add(domain.DepWorkflowTrigger, Reference{
			PropertyName: t.Field,
			Context:      fmt.Sprintf("trigger %s %s", t.Type, t.Field),
		})
	}

	for i := range cfg.Conditions {
		add(domain.DepWorkflowCondition, conditionRefs(&cfg.Conditions[i])...)
	}

	for _, a := range cfg.Actions {
		switch a.Type {
		case "update_field":
			add(domain.DepWorkflowAction, Reference{
				PropertyName: a.Field,
				Context:      "update_field " + a.Field,
			})
			add(domain.DepWorkflowAction, ExtractFormulaRefs(a.Value)...)
		case "copy_field":
			add(domain.DepWorkflowAction, Reference{
				PropertyName: a.SourceField,
				Context:      fmt.Sprintf("copy_field %s -> %s", a.SourceField, a.TargetField),
			}, Reference{
				PropertyName: a.TargetField,
				Context:      fmt.Sprintf("copy_field %s -> %s", a.SourceField, a.TargetField),
			})
		case "send_email":
			for _, m := range mergeFieldPattern.FindAllStringSubmatch(a.Template, -1) {
				add(domain.DepEmailTemplate, Reference{
					PropertyName: m[1],
					Context:      "email merge field " + m[0],
				})
				if head, _, found := cutHead(m[1]); found {
					add(domain.DepEmailTemplate, Reference{
						PropertyName: head,
						Context:      "email merge field " + m[0],
					})
				}
			}
		case "create_record":
			for _, value := range a.RecordFields {
				add(domain.DepWorkflowAction, ExtractFormulaRefs(value)...)
			}
		}
	}

	return out
}

func cutHead(name string) (string, string, bool) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:], true
		}
	}
	return name, "", false
}

var actionTypeWeights = map[string]int{
	"create_record": 12,
	"update_field":  10,
	"copy_field":    8,
	"send_email":    5,
}

// WorkflowImpactScore estimates 0..100 how disruptive a workflow config is:
// triggers, condition count, action types and overall reference fan-out.
func WorkflowImpactScore(cfg domain.WorkflowConfig) int {
	score := 0
	if cfg.Trigger != nil {
		score += 10
	}

	cond := 5 * len(cfg.Conditions)
	if cond > 25 {
		cond = 25
	}
	score += cond

	actions := 0
	for _, a := range cfg.Actions {
		actions += actionTypeWeights[a.Type]
	}
	if actions > 40 {
		actions = 40
	}
	score += actions

	refs := 3 * len(ExtractWorkflowRefs(cfg))
	if refs > 25 {
		refs = 25
	}
	score += refs

	if score > 100 {
		score = 100
	}
	return score
}
