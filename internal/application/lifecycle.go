package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

// archiveTx marks the property soft deleted and deactivates every active
// edge touching it with a soft-delete marker. The audit entry carries a
// restore payload so the restore path is a literal replay.
func (e *Engine) archiveTx(ctx context.Context, tx domain.PropertyRepository, p domain.Property, actor uuid.UUID, reason string, change domain.ChangeType, risk domain.RiskLevel) (domain.Property, []uint, error) {
	now := e.now()
	before := p

	p.IsDeleted = true
	p.DeletionStage = domain.StageSoftDelete
	p.DeletedAt = &now
	p.DeletionReason = reason
	p, err := tx.UpdateProperty(ctx, p)
	if err != nil {
		return domain.Property{}, nil, err
	}

	edges, err := tx.ListEdgesTouching(ctx, p.ID)
	if err != nil {
		return domain.Property{}, nil, err
	}
	var deactivated []uint
	for _, de := range edges {
		if !de.IsActive {
			continue
		}
		de.IsActive = false
		de.Context.SoftDelete = &domain.SoftDeleteMarker{Actor: actor, At: now}
		if _, err := tx.UpdateEdge(ctx, de); err != nil {
			return domain.Property{}, nil, err
		}
		deactivated = append(deactivated, de.ID)
	}

	_, err = tx.AppendAudit(ctx, domain.ChangeAudit{
		PropertyID:     p.ID,
		TenantID:       p.TenantID,
		ChangeType:     change,
		Before:         &before,
		After:          &p,
		Actor:          actor,
		Reason:         reason,
		RiskLevel:      risk,
		RestorePayload: &domain.RestorePayload{Property: before, DeactivatedEdgeIDs: deactivated},
	})
	if err != nil {
		return domain.Property{}, nil, err
	}
	return p, deactivated, nil
}

// SoftDelete runs impact analysis, then marks the property deleted and
// deactivates its edges. Blockers abort; warnings require confirmed=true.
func (e *Engine) SoftDelete(ctx context.Context, tenantID, actor, propertyID uuid.UUID, reason string, confirmed bool) (domain.SoftDeleteResult, error) {
	unlock := e.locks.lock(propertyID)
	defer unlock()

	prop, err := e.repo.GetProperty(ctx, tenantID, propertyID)
	if err != nil {
		return domain.SoftDeleteResult{}, err
	}
	if prop.PropertyType == domain.PropertySystem {
		return domain.SoftDeleteResult{}, domain.ErrForbidden
	}
	if prop.IsDeleted {
		return domain.SoftDeleteResult{}, domain.NewValidationError("property %q is already deleted", prop.Name)
	}

	imp, err := e.AnalyzeImpact(ctx, tenantID, propertyID, domain.ModArchive)
	if err != nil {
		return domain.SoftDeleteResult{}, err
	}
	if blockers := imp.Blockers(); len(blockers) > 0 {
		return domain.SoftDeleteResult{}, &domain.BlockedError{Blockers: blockers}
	}
	if !confirmed {
		return domain.SoftDeleteResult{}, &domain.ConfirmationRequiredError{Warnings: imp.Warnings()}
	}

	risk := domain.RiskLow
	switch {
	case imp.CriticalDependentCount > 0:
		risk = domain.RiskHigh
	case len(imp.Warnings()) > 3:
		risk = domain.RiskMedium
	}

	var result domain.SoftDeleteResult
	err = e.repo.InTx(ctx, func(tx domain.PropertyRepository) error {
		_, deactivated, err := e.archiveTx(ctx, tx, prop, actor, reason, domain.ChangeArchive, risk)
		if err != nil {
			return err
		}
		result = domain.SoftDeleteResult{
			PropertyID:       prop.ID,
			DeactivatedEdges: len(deactivated),
			RiskLevel:        risk,
		}
		return nil
	})
	if err != nil {
		return domain.SoftDeleteResult{}, err
	}
	e.log.WithFields(logrus.Fields{"property": prop.ID, "risk": risk}).Info("property soft deleted")
	return result, nil
}

// RestoreSoftDeleted reverses a soft delete inside the 90 day window,
// reactivating exactly the edges the delete deactivated.
func (e *Engine) RestoreSoftDeleted(ctx context.Context, tenantID, actor, propertyID uuid.UUID) (domain.RestoreResult, error) {
	unlock := e.locks.lock(propertyID)
	defer unlock()

	prop, err := e.repo.GetProperty(ctx, tenantID, propertyID)
	if err != nil {
		return domain.RestoreResult{}, err
	}
	if prop.DeletionStage != domain.StageSoftDelete {
		return domain.RestoreResult{}, domain.NewValidationError("property %q is not soft deleted", prop.Name)
	}
	if prop.DeletedAt != nil && e.now().Sub(*prop.DeletedAt) > SoftDeleteWindow {
		return domain.RestoreResult{}, domain.NewValidationError("soft delete window has passed; request an archive restoration instead")
	}

	var result domain.RestoreResult
	err = e.repo.InTx(ctx, func(tx domain.PropertyRepository) error {
		reactivated, err := e.restoreTx(ctx, tx, prop, actor)
		if err != nil {
			return err
		}
		result = domain.RestoreResult{PropertyID: prop.ID, ReactivatedEdges: reactivated}
		return nil
	})
	if err != nil {
		return domain.RestoreResult{}, err
	}
	return result, nil
}

func (e *Engine) restoreTx(ctx context.Context, tx domain.PropertyRepository, p domain.Property, actor uuid.UUID) (int, error) {
	before := p
	p.IsDeleted = false
	p.DeletionStage = domain.StageNone
	p.DeletedAt = nil
	p.DeletionReason = ""
	p, err := tx.UpdateProperty(ctx, p)
	if err != nil {
		return 0, err
	}

	edges, err := restorableEdges(ctx, tx, p.ID)
	if err != nil {
		return 0, err
	}
	reactivated := 0
	for _, de := range edges {
		if de.IsActive || de.Context.SoftDelete == nil {
			continue
		}
		de.IsActive = true
		de.Context.SoftDelete = nil
		if _, err := tx.UpdateEdge(ctx, de); err != nil {
			return 0, err
		}
		reactivated++
	}

	_, err = tx.AppendAudit(ctx, domain.ChangeAudit{
		PropertyID: p.ID,
		TenantID:   p.TenantID,
		ChangeType: domain.ChangeRestore,
		Before:     &before,
		After:      &p,
		Actor:      actor,
		RiskLevel:  domain.RiskLow,
	})
	if err != nil {
		return 0, err
	}
	return reactivated, nil
}

// restorableEdges replays the restore payload from the archival audit when
// one exists; otherwise it falls back to scanning the property's edges for
// soft-delete markers.
func restorableEdges(ctx context.Context, tx domain.PropertyRepository, propertyID uuid.UUID) ([]domain.DependencyEdge, error) {
	audits, err := tx.ListAudits(ctx, propertyID, 1)
	if err != nil {
		return nil, err
	}
	if len(audits) == 1 && audits[0].RestorePayload != nil && len(audits[0].RestorePayload.DeactivatedEdgeIDs) > 0 {
		return tx.ListEdgesByIDs(ctx, audits[0].RestorePayload.DeactivatedEdgeIDs)
	}
	return tx.ListEdgesTouching(ctx, propertyID)
}

// ArchiveSweep moves every property whose soft-delete window has lapsed to
// the archived stage, snapshotting it under the retention hold. Tenants are
// processed independently; one tenant's failure never stops another's.
func (e *Engine) ArchiveSweep(ctx context.Context) (domain.SweepReport, error) {
	cutoff := e.now().Add(-SoftDeleteWindow)
	expired, err := e.repo.ListSoftDeletedBefore(ctx, cutoff)
	if err != nil {
		return domain.SweepReport{}, err
	}

	byTenant := make(map[uuid.UUID][]domain.Property)
	var tenantOrder []uuid.UUID
	for _, p := range expired {
		tid := uuid.Nil
		if p.TenantID != nil {
			tid = *p.TenantID
		}
		if _, ok := byTenant[tid]; !ok {
			tenantOrder = append(tenantOrder, tid)
		}
		byTenant[tid] = append(byTenant[tid], p)
	}

	report := domain.SweepReport{Processed: len(expired)}
	for _, tid := range tenantOrder {
		tr := domain.TenantSweepReport{TenantID: tid}
		for _, p := range byTenant[tid] {
			if err := e.archiveOne(ctx, p); err != nil {
				tr.Failed++
				tr.Errors = append(tr.Errors, fmt.Sprintf("%s: %v", p.Name, err))
				e.log.WithError(err).WithField("property", p.ID).Error("archive sweep failed for property")
				continue
			}
			tr.Archived++
		}
		report.Archived += tr.Archived
		report.Failed += tr.Failed
		report.Errors = append(report.Errors, tr.Errors...)
		report.Tenants = append(report.Tenants, tr)
	}
	return report, nil
}

func (e *Engine) archiveOne(ctx context.Context, p domain.Property) error {
	now := e.now()
	err := e.repo.InTx(ctx, func(tx domain.PropertyRepository) error {
		snapshot := p
		p.DeletionStage = domain.StageArchived
		updated, err := tx.UpdateProperty(ctx, p)
		if err != nil {
			return err
		}
		_, err = tx.CreateArchiveSnapshot(ctx, domain.ArchivedProperty{
			PropertyID:  updated.ID,
			TenantID:    updated.TenantID,
			Snapshot:    snapshot,
			ArchivedAt:  now,
			RetainUntil: now.Add(ArchiveRetention),
		})
		if err != nil {
			return err
		}
		// carry the soft-delete restore payload forward so the restore
		// path still replays the exact edge set
		var payload *domain.RestorePayload
		if prior, err := tx.ListAudits(ctx, updated.ID, 1); err == nil && len(prior) == 1 {
			payload = prior[0].RestorePayload
		}
		_, err = tx.AppendAudit(ctx, domain.ChangeAudit{
			PropertyID:     updated.ID,
			TenantID:       updated.TenantID,
			ChangeType:     domain.ChangeArchive,
			Before:         &snapshot,
			After:          &updated,
			Actor:          SweepActor,
			Reason:         "soft delete window lapsed",
			RiskLevel:      domain.RiskLow,
			RestorePayload: payload,
		})
		return err
	})
	if err != nil {
		return err
	}

	if e.notifier != nil && p.TenantID != nil {
		if err := e.notifier.ArchivedNotice(ctx, *p.TenantID, p); err != nil {
			e.log.WithError(err).WithField("property", p.ID).Warn("archive notice not delivered")
		}
	}
	return nil
}

// PurgeExpired hard deletes every archived property whose retention hold
// has lapsed. This is the only path that removes rows outright; the
// property is terminal afterwards. A snapshot whose property is no longer
// in the archived stage is stale and is dropped without touching the
// property.
func (e *Engine) PurgeExpired(ctx context.Context, actor uuid.UUID) (int, error) {
	expired, err := e.repo.ListExpiredArchives(ctx, e.now())
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, arch := range expired {
		tenant := uuid.Nil
		if arch.TenantID != nil {
			tenant = *arch.TenantID
		}
		cur, err := e.repo.GetProperty(ctx, tenant, arch.PropertyID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// property row already gone, only the snapshot remains
			if err := e.repo.DeleteArchiveSnapshot(ctx, arch.ID); err != nil {
				e.log.WithError(err).WithField("property", arch.PropertyID).Error("orphaned snapshot not removed")
			}
			continue
		case err != nil:
			e.log.WithError(err).WithField("property", arch.PropertyID).Error("purge lookup failed for property")
			continue
		case cur.DeletionStage != domain.StageArchived:
			if err := e.repo.DeleteArchiveSnapshot(ctx, arch.ID); err != nil {
				e.log.WithError(err).WithField("property", arch.PropertyID).Error("stale snapshot not removed")
			}
			continue
		}

		err = e.repo.InTx(ctx, func(tx domain.PropertyRepository) error {
			if err := e.hardDelete(ctx, tx, cur, actor, "purged after retention"); err != nil {
				return err
			}
			return tx.DeleteArchiveSnapshot(ctx, arch.ID)
		})
		if err != nil {
			e.log.WithError(err).WithField("property", arch.PropertyID).Error("purge failed for property")
			continue
		}
		purged++
	}
	return purged, nil
}

// RequestArchiveRestoration opens an admin approval request for an archived
// property. One pending request per property at a time.
func (e *Engine) RequestArchiveRestoration(ctx context.Context, tenantID, requestedBy, propertyID uuid.UUID, reason string) (domain.RestorationRequest, error) {
	prop, err := e.repo.GetProperty(ctx, tenantID, propertyID)
	if err != nil {
		return domain.RestorationRequest{}, err
	}
	if prop.DeletionStage != domain.StageArchived {
		return domain.RestorationRequest{}, domain.NewValidationError("property %q is not archived", prop.Name)
	}
	snap, err := e.repo.GetArchiveSnapshot(ctx, propertyID)
	if err != nil {
		return domain.RestorationRequest{}, err
	}
	if e.now().After(snap.RetainUntil) {
		return domain.RestorationRequest{}, domain.NewValidationError("retention period for %q has expired", prop.Name)
	}
	if _, err := e.repo.GetPendingRestorationRequest(ctx, propertyID); err == nil {
		return domain.RestorationRequest{}, domain.NewValidationError("a restoration request for %q is already pending", prop.Name)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.RestorationRequest{}, err
	}

	return e.repo.CreateRestorationRequest(ctx, domain.RestorationRequest{
		PropertyID:  propertyID,
		TenantID:    tenantID,
		RequestedBy: requestedBy,
		Reason:      reason,
		Status:      domain.RequestPending,
	})
}

// ApproveArchiveRestoration restores the archived property from its
// snapshot and closes the request.
func (e *Engine) ApproveArchiveRestoration(ctx context.Context, tenantID, approvedBy uuid.UUID, requestID uint) (domain.RestoreResult, error) {
	req, err := e.repo.GetRestorationRequest(ctx, requestID)
	if err != nil {
		return domain.RestoreResult{}, err
	}
	if req.TenantID != tenantID {
		return domain.RestoreResult{}, domain.ErrForbidden
	}
	if req.Status != domain.RequestPending {
		return domain.RestoreResult{}, domain.NewValidationError("restoration request %d is already %s", req.ID, req.Status)
	}

	unlock := e.locks.lock(req.PropertyID)
	defer unlock()

	prop, err := e.repo.GetProperty(ctx, tenantID, req.PropertyID)
	if err != nil {
		return domain.RestoreResult{}, err
	}
	if prop.DeletionStage != domain.StageArchived {
		return domain.RestoreResult{}, domain.NewValidationError("property %q is not archived", prop.Name)
	}

	now := e.now()
	var result domain.RestoreResult
	err = e.repo.InTx(ctx, func(tx domain.PropertyRepository) error {
		reactivated, err := e.restoreTx(ctx, tx, prop, approvedBy)
		if err != nil {
			return err
		}
		snap, err := tx.GetArchiveSnapshot(ctx, prop.ID)
		if err != nil {
			return err
		}
		if err := tx.DeleteArchiveSnapshot(ctx, snap.ID); err != nil {
			return err
		}
		req.Status = domain.RequestApproved
		req.DecidedBy = &approvedBy
		req.DecidedAt = &now
		if _, err := tx.UpdateRestorationRequest(ctx, req); err != nil {
			return err
		}
		result = domain.RestoreResult{PropertyID: prop.ID, ReactivatedEdges: reactivated}
		return nil
	})
	if err != nil {
		return domain.RestoreResult{}, err
	}
	return result, nil
}

// RejectArchiveRestoration closes a pending request without restoring.
func (e *Engine) RejectArchiveRestoration(ctx context.Context, tenantID, decidedBy uuid.UUID, requestID uint, reason string) (domain.RestorationRequest, error) {
	req, err := e.repo.GetRestorationRequest(ctx, requestID)
	if err != nil {
		return domain.RestorationRequest{}, err
	}
	if req.TenantID != tenantID {
		return domain.RestorationRequest{}, domain.ErrForbidden
	}
	if req.Status != domain.RequestPending {
		return domain.RestorationRequest{}, domain.NewValidationError("restoration request %d is already %s", req.ID, req.Status)
	}
	now := e.now()
	req.Status = domain.RequestRejected
	req.DecidedBy = &decidedBy
	req.DecidedAt = &now
	if reason != "" {
		req.Reason = req.Reason + "; rejected: " + reason
	}
	return e.repo.UpdateRestorationRequest(ctx, req)
}
