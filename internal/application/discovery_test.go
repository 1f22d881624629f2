package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

func TestDiscoverDependenciesBuildsEdges(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant := uuid.New()

	weight := seedProperty(t, e, tenant, propertySpec{name: "Weight"})
	ideal := seedProperty(t, e, tenant, propertySpec{
		name: "IdealWeightRange", propertyType: domain.PropertyStandard, formula: "{Weight} * 1.1",
	})
	fee := seedProperty(t, e, tenant, propertySpec{
		name: "BookingFeeCalc", propertyType: domain.PropertyStandard,
		rules: []domain.ValidationRule{{Type: domain.RuleFormula, Formula: "{Weight} > 0"}},
	})

	count, err := e.DiscoverDependencies(ctx, tenant, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	edges, err := e.repo.ListEdgesFrom(ctx, []uuid.UUID{weight.ID}, true)
	require.NoError(t, err)
	require.Len(t, edges, 2)

	byDependent := map[uuid.UUID]domain.DependencyEdge{}
	for _, de := range edges {
		byDependent[de.DependentPropertyID] = de
	}
	assert.Equal(t, domain.DepFormula, byDependent[ideal.ID].Type)
	assert.Equal(t, domain.DepValidation, byDependent[fee.ID].Type)
	assert.True(t, byDependent[ideal.ID].IsCritical)
	assert.True(t, byDependent[ideal.ID].IsSystemDiscovered)
	assert.Equal(t, "{Weight} * 1.1", byDependent[ideal.ID].Context.Expression)
}

func TestDiscoverDependenciesSkipsUnresolvableNames(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant := uuid.New()

	orphan := seedProperty(t, e, tenant, propertySpec{name: "Orphan", formula: "{NoSuchProperty} + 1"})

	count, err := e.DiscoverDependencies(ctx, tenant, &orphan.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	edges, err := e.repo.ListEdgesTo(ctx, []uuid.UUID{orphan.ID}, false)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestDiscoverDependenciesReactivatesEdges(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant := uuid.New()

	base := seedProperty(t, e, tenant, propertySpec{name: "Base"})
	derived := seedProperty(t, e, tenant, propertySpec{name: "Derived", formula: "{Base} * 2"})

	_, err := e.DiscoverDependencies(ctx, tenant, &derived.ID)
	require.NoError(t, err)

	edges, err := e.repo.ListEdgesFrom(ctx, []uuid.UUID{base.ID}, true)
	require.NoError(t, err)
	require.Len(t, edges, 1)

	deactivated := edges[0]
	deactivated.IsActive = false
	_, err = e.repo.UpdateEdge(ctx, deactivated)
	require.NoError(t, err)

	_, err = e.DiscoverDependencies(ctx, tenant, &derived.ID)
	require.NoError(t, err)

	edges, err = e.repo.ListEdgesFrom(ctx, []uuid.UUID{base.ID}, true)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, deactivated.ID, edges[0].ID)
}

func TestRegisterWorkflowDependencies(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant := uuid.New()

	weight := seedProperty(t, e, tenant, propertySpec{name: "Weight"})
	tier := seedProperty(t, e, tenant, propertySpec{name: "FeeTier", propertyType: domain.PropertyStandard})

	count, err := e.RegisterWorkflowDependencies(ctx, tenant, tier.ID, domain.WorkflowConfig{
		Trigger: &domain.WorkflowTrigger{Type: "field_update", Field: "Weight"},
		Actions: []domain.WorkflowAction{{Type: "update_field", Field: "FeeTier", Value: "{Weight} * 2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count) // the FeeTier self reference is dropped

	edges, err := e.repo.ListEdgesFrom(ctx, []uuid.UUID{weight.ID}, true)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	types := map[domain.DependencyType]bool{}
	for _, de := range edges {
		types[de.Type] = true
	}
	assert.True(t, types[domain.DepWorkflowTrigger])
	assert.True(t, types[domain.DepWorkflowAction])
}
