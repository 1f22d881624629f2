package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

// ExecuteCascade applies one of the four strategies to a property and its
// downstream graph. Cancel only returns the analysis. The mutating
// strategies run inside a single transaction, serialized per root property.
func (e *Engine) ExecuteCascade(ctx context.Context, tenantID, actor, propertyID uuid.UUID, strategy domain.CascadeStrategy, op domain.CascadeOperation, opts domain.CascadeOptions) (domain.CascadeResult, error) {
	switch op {
	case domain.OpArchive, domain.OpDelete:
	default:
		return domain.CascadeResult{}, domain.NewValidationError("unknown cascade operation %q", op)
	}

	prop, err := e.repo.GetProperty(ctx, tenantID, propertyID)
	if err != nil {
		return domain.CascadeResult{}, err
	}

	mod := domain.ModArchive
	if op == domain.OpDelete {
		mod = domain.ModDelete
	}
	imp, err := e.AnalyzeImpact(ctx, tenantID, propertyID, mod)
	if err != nil {
		return domain.CascadeResult{}, err
	}

	if strategy == domain.StrategyCancel {
		return domain.CascadeResult{Strategy: strategy, Impact: &imp}, nil
	}
	if prop.PropertyType == domain.PropertySystem {
		return domain.CascadeResult{}, domain.ErrForbidden
	}
	if blockers := imp.Blockers(); len(blockers) > 0 {
		return domain.CascadeResult{}, &domain.BlockedError{Blockers: blockers}
	}

	unlock := e.locks.lock(propertyID)
	defer unlock()

	result := domain.CascadeResult{Strategy: strategy, Impact: &imp}
	switch strategy {
	case domain.StrategyCascade:
		err = e.repo.InTx(ctx, func(tx domain.PropertyRepository) error {
			return e.cascadeAll(ctx, tx, tenantID, actor, prop, imp, op, opts, &result)
		})
	case domain.StrategySubstitute:
		err = e.substitute(ctx, tenantID, actor, prop, opts, &result)
	case domain.StrategyForce:
		err = e.repo.InTx(ctx, func(tx domain.PropertyRepository) error {
			return e.forceDelete(ctx, tx, tenantID, actor, prop, imp, opts, &result)
		})
	default:
		return domain.CascadeResult{}, domain.NewValidationError("unknown cascade strategy %q", strategy)
	}
	if err != nil {
		return domain.CascadeResult{}, err
	}

	e.log.WithFields(logrus.Fields{
		"property": propertyID,
		"strategy": strategy,
		"op":       op,
		"affected": len(result.ProcessedOrder),
	}).Info("cascade executed")
	return result, nil
}

// cascadeAll applies the operation to every downstream dependent first,
// deepest level inward, and to the root last. Dependents that cannot be
// touched (system properties, globals owned by no one tenant) are skipped
// with a recorded error rather than failing the transaction.
func (e *Engine) cascadeAll(ctx context.Context, tx domain.PropertyRepository, tenantID, actor uuid.UUID, root domain.Property, imp domain.Impact, op domain.CascadeOperation, opts domain.CascadeOptions, result *domain.CascadeResult) error {
	var dependents []domain.GraphNode
	for _, n := range imp.Graph.Nodes {
		if n.Role != domain.RoleRoot {
			dependents = append(dependents, n)
		}
	}
	sort.Slice(dependents, func(i, j int) bool {
		if dependents[i].Depth != dependents[j].Depth {
			return dependents[i].Depth > dependents[j].Depth
		}
		return dependents[i].Name < dependents[j].Name
	})

	for _, n := range dependents {
		p, err := tx.GetProperty(ctx, tenantID, n.PropertyID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", n.Name, err))
			continue
		}
		if p.PropertyType == domain.PropertySystem {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: system property, skipped", p.Name))
			continue
		}
		if p.IsGlobal() {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: global property, skipped", p.Name))
			continue
		}
		if err := e.applyCascadeOp(ctx, tx, p, actor, op, opts.Reason); err != nil {
			return err
		}
		result.ProcessedOrder = append(result.ProcessedOrder, p.ID)
	}

	if err := e.applyCascadeOp(ctx, tx, root, actor, op, opts.Reason); err != nil {
		return err
	}
	result.ProcessedOrder = append(result.ProcessedOrder, root.ID)
	return nil
}

func (e *Engine) applyCascadeOp(ctx context.Context, tx domain.PropertyRepository, p domain.Property, actor uuid.UUID, op domain.CascadeOperation, reason string) error {
	if op == domain.OpDelete {
		return e.hardDelete(ctx, tx, p, actor, reason)
	}
	_, _, err := e.archiveTx(ctx, tx, p, actor, reason, domain.ChangeArchive, domain.RiskMedium)
	return err
}

func (e *Engine) hardDelete(ctx context.Context, tx domain.PropertyRepository, p domain.Property, actor uuid.UUID, reason string) error {
	if _, err := tx.DeleteEdgesTouching(ctx, p.ID); err != nil {
		return err
	}
	if err := tx.DeleteProperty(ctx, p.ID); err != nil {
		return err
	}
	_, err := tx.AppendAudit(ctx, domain.ChangeAudit{
		PropertyID: p.ID,
		TenantID:   p.TenantID,
		ChangeType: domain.ChangeDelete,
		Before:     &p,
		Actor:      actor,
		Reason:     reason,
		RiskLevel:  domain.RiskHigh,
	})
	return err
}

// substitute repoints every dependent of the source onto the replacement,
// migrates custom record values, unions usedIn, then archives the source
// with a migration path back to the replacement.
func (e *Engine) substitute(ctx context.Context, tenantID, actor uuid.UUID, source domain.Property, opts domain.CascadeOptions, result *domain.CascadeResult) error {
	if opts.ReplacementPropertyID == nil {
		return domain.NewValidationError("substitute strategy requires replacement_property_id")
	}
	repl, err := e.repo.GetProperty(ctx, tenantID, *opts.ReplacementPropertyID)
	if err != nil {
		return err
	}
	switch {
	case repl.ID == source.ID:
		return domain.NewValidationError("replacement must differ from the source property")
	case repl.IsDeleted:
		return domain.NewValidationError("replacement property %q is deleted", repl.Name)
	case repl.ObjectType != source.ObjectType:
		return domain.NewValidationError("replacement object type %s does not match %s", repl.ObjectType, source.ObjectType)
	case repl.DataType != source.DataType:
		return domain.NewValidationError("replacement data type %s does not match %s", repl.DataType, source.DataType)
	}

	now := e.now()
	return e.repo.InTx(ctx, func(tx domain.PropertyRepository) error {
		edges, err := tx.ListEdgesTouching(ctx, source.ID)
		if err != nil {
			return err
		}
		marker := &domain.SubstitutionMarker{OriginalID: source.ID, Actor: actor, At: now}
		for _, de := range edges {
			if !de.IsActive {
				continue
			}
			repointed := de
			repointed.ID = 0
			repointed.IsActive = true
			repointed.Context = domain.EdgeContext{Expression: de.Context.Expression, Substitution: marker}
			repoint := false
			switch {
			case de.SourcePropertyID == source.ID && de.DependentPropertyID != repl.ID:
				// dependents of the source now depend on the replacement
				repointed.SourcePropertyID = repl.ID
				repoint = true
			case de.DependentPropertyID == source.ID && de.SourcePropertyID != repl.ID:
				// upstream inputs of the source now feed the replacement
				repointed.DependentPropertyID = repl.ID
				repoint = true
			}
			if repoint {
				if _, err := tx.UpsertEdge(ctx, repointed); err != nil {
					return err
				}
				result.RepointedEdges++
			}
			de.IsActive = false
			de.Context.Substitution = marker
			if _, err := tx.UpdateEdge(ctx, de); err != nil {
				return err
			}
			result.DeactivatedEdges++
		}

		step := domain.StepResult{Name: "migrate_record_values", OK: true}
		if source.PropertyType == domain.PropertyCustom && repl.PropertyType == domain.PropertyCustom {
			n, err := tx.RenameCustomField(ctx, source.ObjectType, source.Name, repl.Name)
			if err != nil {
				step.OK = false
				step.Err = err.Error()
				e.log.WithError(err).Warn("record value migration failed")
			} else {
				result.MigratedRecords = n
			}
		} else {
			step.Err = "skipped: both properties must be custom"
		}
		result.Steps = append(result.Steps, step)

		repl.UsedIn = repl.UsedIn.Union(source.UsedIn)
		if repl, err = tx.UpdateProperty(ctx, repl); err != nil {
			return err
		}

		before := source
		source.MigrationPath = &repl.ID
		archived, _, err := e.archiveTx(ctx, tx, source, actor, opts.Reason, domain.ChangeSubstitute, domain.RiskMedium)
		if err != nil {
			return err
		}
		result.ProcessedOrder = append(result.ProcessedOrder, archived.ID)

		_, err = tx.AppendAudit(ctx, domain.ChangeAudit{
			PropertyID: repl.ID,
			TenantID:   repl.TenantID,
			ChangeType: domain.ChangeModify,
			Before:     &before,
			After:      &repl,
			Actor:      actor,
			Reason:     fmt.Sprintf("substituted for %s", source.Name),
			RiskLevel:  domain.RiskLow,
		})
		return err
	})
}

// forceDelete archives the root anyway, marking every downstream dependent
// broken and embedding broken markers on the deactivated edges.
func (e *Engine) forceDelete(ctx context.Context, tx domain.PropertyRepository, tenantID, actor uuid.UUID, root domain.Property, imp domain.Impact, opts domain.CascadeOptions, result *domain.CascadeResult) error {
	now := e.now()
	reason := opts.Reason
	if reason == "" {
		reason = "force deleted"
	}

	for _, n := range imp.Graph.Nodes {
		if n.Role == domain.RoleRoot {
			continue
		}
		p, err := tx.GetProperty(ctx, tenantID, n.PropertyID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", n.Name, err))
			continue
		}
		if p.IsGlobal() {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: global property, skipped", p.Name))
			continue
		}
		p.BrokenDependencies = append(p.BrokenDependencies, domain.BrokenDependency{
			PropertyID: root.ID,
			Reason:     fmt.Sprintf("dependency %s was force deleted", root.Name),
			BrokenAt:   now,
		})
		if _, err := tx.UpdateProperty(ctx, p); err != nil {
			return err
		}
		result.ProcessedOrder = append(result.ProcessedOrder, p.ID)
	}

	edges, err := tx.ListEdgesTouching(ctx, root.ID)
	if err != nil {
		return err
	}
	for _, de := range edges {
		if !de.IsActive {
			continue
		}
		de.IsActive = false
		de.Context.Broken = &domain.BrokenMarker{Actor: actor, At: now, Reason: reason}
		if _, err := tx.UpdateEdge(ctx, de); err != nil {
			return err
		}
		result.DeactivatedEdges++
	}

	if opts.ClearRecordValues {
		step := domain.StepResult{Name: "clear_record_values", OK: true}
		if root.PropertyType == domain.PropertyCustom {
			if _, err := tx.ClearCustomField(ctx, root.ObjectType, root.Name); err != nil {
				step.OK = false
				step.Err = err.Error()
				e.log.WithError(err).Warn("record value clear failed")
			}
		} else {
			step.Err = "skipped: only custom property values are cleared"
		}
		result.Steps = append(result.Steps, step)
	}

	if _, _, err := e.archiveTx(ctx, tx, root, actor, reason, domain.ChangeForceDelete, domain.RiskHigh); err != nil {
		return err
	}
	result.ProcessedOrder = append(result.ProcessedOrder, root.ID)

	if imp.CriticalDependentCount > 0 {
		result.Warning = fmt.Sprintf("%d critical dependents were left with broken dependencies", imp.CriticalDependentCount)
	}
	return nil
}
