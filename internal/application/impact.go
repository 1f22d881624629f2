package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

// AnalyzeImpact scores a proposed modification of a property: downstream
// blast radius, live record count, external usage, and an additive 0..100
// risk score banded into low/medium/high/critical. It never mutates.
func (e *Engine) AnalyzeImpact(ctx context.Context, tenantID, propertyID uuid.UUID, mod domain.ModificationType) (domain.Impact, error) {
	prop, err := e.repo.GetProperty(ctx, tenantID, propertyID)
	if err != nil {
		return domain.Impact{}, err
	}

	graph, err := e.BuildGraph(ctx, tenantID, propertyID, domain.DirectionDownstream, DefaultMaxDepth)
	if err != nil {
		return domain.Impact{}, err
	}

	recordCount, err := e.repo.CountRecordsWithValue(ctx, prop)
	if err != nil {
		return domain.Impact{}, err
	}

	affected := 0
	for _, n := range graph.Nodes {
		if n.Role != domain.RoleRoot {
			affected++
		}
	}
	criticalDependents := map[uuid.UUID]struct{}{}
	for _, ge := range graph.Edges {
		if ge.IsCritical {
			criticalDependents[ge.DependentPropertyID] = struct{}{}
		}
	}
	delete(criticalDependents, propertyID)

	imp := domain.Impact{
		PropertyID:              propertyID,
		ModificationType:        mod,
		Graph:                   graph,
		AffectedPropertiesCount: affected,
		CriticalDependentCount:  len(criticalDependents),
		RecordCount:             recordCount,
		UsageCount:              prop.UsedIn.Total(),
	}

	imp.RiskScore = e.riskScore(prop, mod, imp)
	level, bypass := e.weights.Band(imp.RiskScore)
	imp.RiskLevel = level
	imp.BypassAllowed = bypass
	imp.Recommendations = e.recommendations(prop, mod, imp)
	imp.CanProceed = !(level == domain.RiskCritical && !bypass)
	imp.RequiresApproval = level == domain.RiskHigh || level == domain.RiskCritical
	return imp, nil
}

func (e *Engine) riskScore(prop domain.Property, mod domain.ModificationType, imp domain.Impact) int {
	w := e.weights
	score := 0

	switch prop.PropertyType {
	case domain.PropertySystem:
		score += w.SystemProperty
	case domain.PropertyProtected:
		score += w.ProtectedProperty
	case domain.PropertyStandard:
		score += w.StandardProperty
	case domain.PropertyCustom:
		score += w.CustomProperty
	}

	switch mod {
	case domain.ModDelete:
		score += w.Delete
	case domain.ModTypeChange:
		score += w.TypeChange
	case domain.ModArchive:
		score += w.Archive
	}

	switch {
	case imp.AffectedPropertiesCount > 10:
		score += w.GraphOver10
	case imp.AffectedPropertiesCount > 5:
		score += w.GraphOver5
	}
	if imp.CriticalDependentCount > 0 {
		score += w.CriticalEdges
	}

	switch {
	case imp.RecordCount > 10000:
		score += w.RecordsOver10000
	case imp.RecordCount > 1000:
		score += w.RecordsOver1000
	case imp.RecordCount > 100:
		score += w.RecordsOver100
	}

	switch {
	case imp.UsageCount > 20:
		score += w.UsageOver20
	case imp.UsageCount > 10:
		score += w.UsageOver10
	case imp.UsageCount > 0:
		score += w.UsageAny
	}

	if score > 100 {
		score = 100
	}
	return score
}

func (e *Engine) recommendations(prop domain.Property, mod domain.ModificationType, imp domain.Impact) []domain.Recommendation {
	var recs []domain.Recommendation
	blocker := func(format string, args ...any) {
		recs = append(recs, domain.Recommendation{Severity: domain.SeverityBlocker, Message: fmt.Sprintf(format, args...)})
	}
	warning := func(format string, args ...any) {
		recs = append(recs, domain.Recommendation{Severity: domain.SeverityWarning, Message: fmt.Sprintf(format, args...)})
	}
	info := func(format string, args ...any) {
		recs = append(recs, domain.Recommendation{Severity: domain.SeverityInfo, Message: fmt.Sprintf(format, args...)})
	}

	if prop.PropertyType == domain.PropertySystem {
		blocker("%q is a system property and cannot be modified or removed", prop.Name)
	}
	if mod == domain.ModTypeChange && imp.RecordCount > 0 {
		blocker("type change with %d populated records requires export, clear and reimport", imp.RecordCount)
	}
	if imp.RiskLevel == domain.RiskHigh || imp.RiskLevel == domain.RiskCritical {
		warning("risk is %s (score %d); reconsider or schedule a maintenance window", imp.RiskLevel, imp.RiskScore)
	}
	if imp.CriticalDependentCount > 0 {
		warning("%d dependents rely on this property through critical edges; prefer the substitute strategy", imp.CriticalDependentCount)
	}
	if imp.AffectedPropertiesCount > 0 {
		info("%d dependent properties will be affected; run a cascade strategy", imp.AffectedPropertiesCount)
	}
	if mod == domain.ModDelete {
		info("consider archiving instead of deleting to keep the property restorable")
	}
	return recs
}
