package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

// ChangeHistory returns the property's audit trail, newest first. The
// property must be visible to the tenant; purged properties have no history
// a tenant can reach.
func (e *Engine) ChangeHistory(ctx context.Context, tenantID, propertyID uuid.UUID, limit int) ([]domain.ChangeAudit, error) {
	if _, err := e.repo.GetProperty(ctx, tenantID, propertyID); err != nil {
		return nil, err
	}
	return e.repo.ListAudits(ctx, propertyID, limit)
}
