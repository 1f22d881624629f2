package application

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

func TestExtractValidationRefsPerRuleType(t *testing.T) {
	rules := []domain.ValidationRule{
		{Type: domain.RuleCrossField, Operator: "lte", CompareField: "MaxWeight"},
		{Type: domain.RuleLookup, LookupField: "BreedStandard"},
		{Type: domain.RuleFormula, Formula: "{Weight} > 0"},
		{Type: domain.RuleConditional, Condition: &domain.Condition{
			Operator: "and",
			Conditions: []domain.Condition{
				{Field: "Species", Operator: "eq", Value: "dog"},
				{Formula: "{Age} > 1"},
			},
		}},
	}

	names := refNames(ExtractValidationRefs(rules))
	assert.ElementsMatch(t, []string{"MaxWeight", "BreedStandard", "Weight", "Species", "Age"}, names)
}

func TestValidateRulesReportsStructuralProblems(t *testing.T) {
	lo, hi := 10.0, 5.0
	rules := []domain.ValidationRule{
		{Type: domain.RuleRange},
		{Type: domain.RuleRange, Min: &lo, Max: &hi},
		{Type: domain.RuleCrossField},
		{Type: domain.RuleConditional},
		{Type: domain.RuleFormula},
		{Type: domain.RuleLookup},
		{Type: "telepathy"},
		{Type: domain.RuleRequired},
	}

	problems := ValidateRules(rules)
	assert.Len(t, problems, 8) // cross_field is missing both compare_field and operator
}

func TestValidationComplexityGrowsWithRuleWeight(t *testing.T) {
	simple := ValidationComplexity([]domain.ValidationRule{{Type: domain.RuleRequired}})
	nested := ValidationComplexity([]domain.ValidationRule{{
		Type: domain.RuleConditional,
		Condition: &domain.Condition{
			Operator: "or",
			Conditions: []domain.Condition{
				{Field: "A", Operator: "eq"},
				{Operator: "and", Conditions: []domain.Condition{{Formula: "{B} + {C}"}}},
			},
		},
	}})

	assert.Greater(t, nested, simple)
	assert.LessOrEqual(t, nested, 100)
	assert.GreaterOrEqual(t, simple, 0)
}
