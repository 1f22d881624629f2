package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

// DiscoverDependencies scans formulas, default values and validation rules
// and upserts the system-discovered edges they imply. With a property id it
// scans that property only; with nil it rescans every live property the
// tenant can see. Returns the number of edges written.
func (e *Engine) DiscoverDependencies(ctx context.Context, tenantID uuid.UUID, propertyID *uuid.UUID) (int, error) {
	props, err := e.repo.ListProperties(ctx, tenantID, false)
	if err != nil {
		return 0, err
	}
	index := nameIndex(props)

	targets := props
	if propertyID != nil {
		prop, err := e.repo.GetProperty(ctx, tenantID, *propertyID)
		if err != nil {
			return 0, err
		}
		targets = []domain.Property{prop}
	}

	written := 0
	err = e.repo.InTx(ctx, func(tx domain.PropertyRepository) error {
		for _, prop := range targets {
			if prop.IsDeleted {
				continue
			}
			n, err := discoverPropertyDependencies(ctx, tx, prop, index)
			if err != nil {
				return err
			}
			written += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// nameIndex maps object type + property name to the property. Dot-path
// candidates resolve against the same index by their literal name.
func nameIndex(props []domain.Property) map[ObjectTypeName]domain.Property {
	index := make(map[ObjectTypeName]domain.Property, len(props))
	for _, p := range props {
		if p.IsDeleted {
			continue
		}
		index[ObjectTypeName{p.ObjectType, p.Name}] = p
	}
	return index
}

type ObjectTypeName struct {
	ObjectType domain.ObjectType
	Name       string
}

func discoverPropertyDependencies(ctx context.Context, repo domain.PropertyRepository, prop domain.Property, index map[ObjectTypeName]domain.Property) (int, error) {
	type typedRef struct {
		ref      Reference
		edgeType domain.DependencyType
	}
	var refs []typedRef
	for _, r := range ExtractFormulaRefs(prop.Formula) {
		refs = append(refs, typedRef{r, domain.DepFormula})
	}
	for _, r := range ExtractFormulaRefs(prop.DefaultValue) {
		refs = append(refs, typedRef{r, domain.DepDefaultValue})
	}
	for _, r := range ExtractValidationRefs(prop.ValidationRules) {
		refs = append(refs, typedRef{r, domain.DepValidation})
	}

	written := 0
	for _, tr := range refs {
		source, ok := index[ObjectTypeName{prop.ObjectType, tr.ref.PropertyName}]
		if !ok || source.ID == prop.ID {
			// unresolvable names and self references are skipped
			continue
		}
		_, err := repo.UpsertEdge(ctx, domain.DependencyEdge{
			SourcePropertyID:    source.ID,
			DependentPropertyID: prop.ID,
			Type:                tr.edgeType,
			Context:             domain.EdgeContext{Expression: tr.ref.Context},
			IsActive:            true,
			IsCritical:          tr.edgeType == domain.DepFormula || tr.edgeType == domain.DepValidation,
			IsSystemDiscovered:  true,
		})
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// RegisterWorkflowDependencies records the edges implied by a workflow
// config owned by the given property: trigger, condition, action and email
// template references. Action edges carry break_on_delete because a broken
// action makes the workflow misfire rather than merely miscompute.
func (e *Engine) RegisterWorkflowDependencies(ctx context.Context, tenantID, ownerPropertyID uuid.UUID, cfg domain.WorkflowConfig) (int, error) {
	owner, err := e.repo.GetProperty(ctx, tenantID, ownerPropertyID)
	if err != nil {
		return 0, err
	}
	props, err := e.repo.ListProperties(ctx, tenantID, false)
	if err != nil {
		return 0, err
	}
	index := nameIndex(props)

	written := 0
	err = e.repo.InTx(ctx, func(tx domain.PropertyRepository) error {
		for _, wr := range ExtractWorkflowRefs(cfg) {
			source, ok := index[ObjectTypeName{owner.ObjectType, wr.PropertyName}]
			if !ok || source.ID == owner.ID {
				continue
			}
			_, err := tx.UpsertEdge(ctx, domain.DependencyEdge{
				SourcePropertyID:    source.ID,
				DependentPropertyID: owner.ID,
				Type:                wr.Part,
				Context:             domain.EdgeContext{Expression: wr.Context},
				IsActive:            true,
				BreakOnDelete:       wr.Part == domain.DepWorkflowAction,
				IsSystemDiscovered:  true,
			})
			if err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
