package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

type captureNotifier struct {
	notices []uuid.UUID
	fail    bool
}

func (n *captureNotifier) ArchivedNotice(_ context.Context, _ uuid.UUID, p domain.Property) error {
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.notices = append(n.notices, p.ID)
	return nil
}

func TestSoftDeleteRequiresConfirmation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor := uuid.New(), uuid.New()

	root := seedProperty(t, e, tenant, propertySpec{name: "Weight"})
	dep := seedProperty(t, e, tenant, propertySpec{name: "IdealWeightRange"})
	seedEdge(t, e, root.ID, dep.ID, domain.DepFormula, true)

	var confirm *domain.ConfirmationRequiredError
	_, err := e.SoftDelete(ctx, tenant, actor, root.ID, "", false)
	require.ErrorAs(t, err, &confirm)
	assert.NotEmpty(t, confirm.Warnings)

	got, err := e.repo.GetProperty(ctx, tenant, root.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted)
}

func TestSoftDeleteDeactivatesEdges(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor := uuid.New(), uuid.New()

	root := seedProperty(t, e, tenant, propertySpec{name: "Weight"})
	dep := seedProperty(t, e, tenant, propertySpec{name: "IdealWeightRange"})
	seedEdge(t, e, root.ID, dep.ID, domain.DepFormula, true)

	res, err := e.SoftDelete(ctx, tenant, actor, root.ID, "unused", true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeactivatedEdges)
	assert.Equal(t, domain.RiskHigh, res.RiskLevel)

	got, err := e.repo.GetProperty(ctx, tenant, root.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.Equal(t, domain.StageSoftDelete, got.DeletionStage)
	assert.Equal(t, "unused", got.DeletionReason)

	edges, err := e.repo.ListEdgesTouching(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.False(t, edges[0].IsActive)
	assert.NotNil(t, edges[0].Context.SoftDelete)

	var verr *domain.ValidationError
	_, err = e.SoftDelete(ctx, tenant, actor, root.ID, "", true)
	assert.ErrorAs(t, err, &verr)
}

func TestSoftDeleteSystemForbidden(t *testing.T) {
	e, _ := newTestEngine(t)
	tenant, actor := uuid.New(), uuid.New()
	system := seedProperty(t, e, tenant, propertySpec{name: "CreatedDate", propertyType: domain.PropertySystem, dataType: "date"})

	_, err := e.SoftDelete(context.Background(), tenant, actor, system.ID, "", true)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRestoreSoftDeletedWithinWindow(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor := uuid.New(), uuid.New()

	root := seedProperty(t, e, tenant, propertySpec{name: "Weight"})
	dep := seedProperty(t, e, tenant, propertySpec{name: "IdealWeightRange"})
	seedEdge(t, e, root.ID, dep.ID, domain.DepFormula, false)

	_, err := e.SoftDelete(ctx, tenant, actor, root.ID, "", true)
	require.NoError(t, err)

	res, err := e.RestoreSoftDeleted(ctx, tenant, actor, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ReactivatedEdges)

	got, err := e.repo.GetProperty(ctx, tenant, root.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted)
	assert.Equal(t, domain.StageNone, got.DeletionStage)
	assert.Nil(t, got.DeletedAt)

	edges, err := e.repo.ListEdgesFrom(ctx, []uuid.UUID{root.ID}, true)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestRestoreSoftDeletedAfterWindow(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor := uuid.New(), uuid.New()

	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	pinClock(e, start)

	root := seedProperty(t, e, tenant, propertySpec{name: "Weight"})
	_, err := e.SoftDelete(ctx, tenant, actor, root.ID, "", true)
	require.NoError(t, err)

	pinClock(e, start.Add(91*24*time.Hour))
	var verr *domain.ValidationError
	_, err = e.RestoreSoftDeleted(ctx, tenant, actor, root.ID)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "archive restoration")
}

func TestArchiveSweepMovesExpiredToArchived(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	actor := uuid.New()
	tenantA, tenantB := uuid.New(), uuid.New()

	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	pinClock(e, start)
	notifier := &captureNotifier{}
	e.notifier = notifier

	oldA := seedProperty(t, e, tenantA, propertySpec{name: "OldA"})
	oldB := seedProperty(t, e, tenantB, propertySpec{name: "OldB"})
	fresh := seedProperty(t, e, tenantA, propertySpec{name: "Fresh"})

	_, err := e.SoftDelete(ctx, tenantA, actor, oldA.ID, "", true)
	require.NoError(t, err)
	_, err = e.SoftDelete(ctx, tenantB, actor, oldB.ID, "", true)
	require.NoError(t, err)

	sweepAt := start.Add(91 * 24 * time.Hour)
	pinClock(e, sweepAt)
	_, err = e.SoftDelete(ctx, tenantA, actor, fresh.ID, "", true)
	require.NoError(t, err)

	report, err := e.ArchiveSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Archived)
	assert.Equal(t, 0, report.Failed)
	assert.Len(t, report.Tenants, 2)
	assert.ElementsMatch(t, []uuid.UUID{oldA.ID, oldB.ID}, notifier.notices)

	for tenant, id := range map[uuid.UUID]uuid.UUID{tenantA: oldA.ID, tenantB: oldB.ID} {
		got, err := e.repo.GetProperty(ctx, tenant, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StageArchived, got.DeletionStage)

		snap, err := e.repo.GetArchiveSnapshot(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, sweepAt.Add(ArchiveRetention).Unix(), snap.RetainUntil.Unix())
		assert.Equal(t, domain.StageSoftDelete, snap.Snapshot.DeletionStage)
	}

	got, err := e.repo.GetProperty(ctx, tenantA, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageSoftDelete, got.DeletionStage)
}

func TestArchiveSweepSurvivesNotifierFailure(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor := uuid.New(), uuid.New()

	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	pinClock(e, start)
	e.notifier = &captureNotifier{fail: true}

	old := seedProperty(t, e, tenant, propertySpec{name: "Old"})
	_, err := e.SoftDelete(ctx, tenant, actor, old.ID, "", true)
	require.NoError(t, err)

	pinClock(e, start.Add(91*24*time.Hour))
	report, err := e.ArchiveSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Archived)
	assert.Equal(t, 0, report.Failed)

	got, err := e.repo.GetProperty(ctx, tenant, old.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageArchived, got.DeletionStage)
}

func TestPurgeExpiredRemovesPropertyAndSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor := uuid.New(), uuid.New()

	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	pinClock(e, start)

	old := seedProperty(t, e, tenant, propertySpec{name: "Old"})
	_, err := e.SoftDelete(ctx, tenant, actor, old.ID, "", true)
	require.NoError(t, err)

	pinClock(e, start.Add(91*24*time.Hour))
	_, err = e.ArchiveSweep(ctx)
	require.NoError(t, err)

	// retention not lapsed yet, nothing to purge
	purged, err := e.PurgeExpired(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 0, purged)

	pinClock(e, start.Add(91*24*time.Hour).Add(ArchiveRetention).Add(24*time.Hour))
	purged, err = e.PurgeExpired(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = e.repo.GetProperty(ctx, tenant, old.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.repo.GetArchiveSnapshot(ctx, old.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func archiveProperty(t *testing.T, e *Engine, tenant, actor uuid.UUID, name string) domain.Property {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	pinClock(e, start)

	p := seedProperty(t, e, tenant, propertySpec{name: name})
	_, err := e.SoftDelete(ctx, tenant, actor, p.ID, "", true)
	require.NoError(t, err)

	pinClock(e, start.Add(91*24*time.Hour))
	report, err := e.ArchiveSweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Archived)
	return p
}

func TestRestorationRequestFlow(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor, admin := uuid.New(), uuid.New(), uuid.New()

	p := archiveProperty(t, e, tenant, actor, "Old")

	req, err := e.RequestArchiveRestoration(ctx, tenant, actor, p.ID, "needed for audit")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, req.Status)
	assert.Equal(t, actor, req.RequestedBy)

	var verr *domain.ValidationError
	_, err = e.RequestArchiveRestoration(ctx, tenant, actor, p.ID, "again")
	require.ErrorAs(t, err, &verr)

	_, err = e.ApproveArchiveRestoration(ctx, uuid.New(), admin, req.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	res, err := e.ApproveArchiveRestoration(ctx, tenant, admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, res.PropertyID)

	got, err := e.repo.GetProperty(ctx, tenant, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted)
	assert.Equal(t, domain.StageNone, got.DeletionStage)

	closed, err := e.repo.GetRestorationRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestApproved, closed.Status)
	require.NotNil(t, closed.DecidedBy)
	assert.Equal(t, admin, *closed.DecidedBy)

	_, err = e.ApproveArchiveRestoration(ctx, tenant, admin, req.ID)
	assert.ErrorAs(t, err, &verr)
}

func TestRejectArchiveRestoration(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor, admin := uuid.New(), uuid.New(), uuid.New()

	p := archiveProperty(t, e, tenant, actor, "Old")

	req, err := e.RequestArchiveRestoration(ctx, tenant, actor, p.ID, "please")
	require.NoError(t, err)

	rejected, err := e.RejectArchiveRestoration(ctx, tenant, admin, req.ID, "no longer used")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestRejected, rejected.Status)
	assert.Contains(t, rejected.Reason, "rejected: no longer used")

	got, err := e.repo.GetProperty(ctx, tenant, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageArchived, got.DeletionStage)

	// a fresh request may follow a rejection
	_, err = e.RequestArchiveRestoration(ctx, tenant, actor, p.ID, "second try")
	require.NoError(t, err)
}

func TestSoftDeleteSingleWarningRecordsLowRisk(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor := uuid.New(), uuid.New()

	w := domain.DefaultRiskWeights()
	w.Archive = 50
	e.SetRiskWeights(w)

	p := seedProperty(t, e, tenant, propertySpec{name: "Weight"})

	imp, err := e.AnalyzeImpact(ctx, tenant, p.ID, domain.ModArchive)
	require.NoError(t, err)
	require.Equal(t, domain.RiskHigh, imp.RiskLevel)
	require.Len(t, imp.Warnings(), 1)

	// more than three warnings promote the audit risk; one does not
	res, err := e.SoftDelete(ctx, tenant, actor, p.ID, "", true)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLow, res.RiskLevel)

	audits, err := e.repo.ListAudits(ctx, p.ID, 1)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, domain.RiskLow, audits[0].RiskLevel)
}

func TestArchiveSweepAppendsAudit(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor, admin := uuid.New(), uuid.New(), uuid.New()

	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	pinClock(e, start)

	p := seedProperty(t, e, tenant, propertySpec{name: "Old"})
	dep := seedProperty(t, e, tenant, propertySpec{name: "Downstream"})
	edge := seedEdge(t, e, p.ID, dep.ID, domain.DepFormula, false)

	_, err := e.SoftDelete(ctx, tenant, actor, p.ID, "", true)
	require.NoError(t, err)

	pinClock(e, start.Add(91*24*time.Hour))
	_, err = e.ArchiveSweep(ctx)
	require.NoError(t, err)

	audits, err := e.repo.ListAudits(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, audits, 2)
	assert.Equal(t, domain.ChangeArchive, audits[0].ChangeType)
	assert.Equal(t, SweepActor, audits[0].Actor)
	require.NotNil(t, audits[0].After)
	assert.Equal(t, domain.StageArchived, audits[0].After.DeletionStage)
	require.NotNil(t, audits[0].RestorePayload)
	assert.Equal(t, []uint{edge.ID}, audits[0].RestorePayload.DeactivatedEdgeIDs)

	// the carried payload still drives the edge replay after approval
	req, err := e.RequestArchiveRestoration(ctx, tenant, actor, p.ID, "still needed")
	require.NoError(t, err)
	res, err := e.ApproveArchiveRestoration(ctx, tenant, admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ReactivatedEdges)
}

func TestApprovedRestorationClearsSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor, admin := uuid.New(), uuid.New(), uuid.New()

	p := archiveProperty(t, e, tenant, actor, "Old")

	req, err := e.RequestArchiveRestoration(ctx, tenant, actor, p.ID, "needed again")
	require.NoError(t, err)
	_, err = e.ApproveArchiveRestoration(ctx, tenant, admin, req.ID)
	require.NoError(t, err)

	_, err = e.repo.GetArchiveSnapshot(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// the lapsed retention hold must never purge the restored property
	pinClock(e, time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC).Add(91*24*time.Hour).Add(ArchiveRetention).Add(24*time.Hour))
	purged, err := e.PurgeExpired(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 0, purged)

	got, err := e.repo.GetProperty(ctx, tenant, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted)
}

func TestArchiveSweepAfterRestoration(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor, admin := uuid.New(), uuid.New(), uuid.New()

	p := archiveProperty(t, e, tenant, actor, "Old")
	req, err := e.RequestArchiveRestoration(ctx, tenant, actor, p.ID, "bring back")
	require.NoError(t, err)
	_, err = e.ApproveArchiveRestoration(ctx, tenant, admin, req.ID)
	require.NoError(t, err)

	second := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC).Add(91 * 24 * time.Hour)
	_, err = e.SoftDelete(ctx, tenant, actor, p.ID, "", true)
	require.NoError(t, err)

	pinClock(e, second.Add(91*24*time.Hour))
	report, err := e.ArchiveSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Archived)
	assert.Equal(t, 0, report.Failed)

	got, err := e.repo.GetProperty(ctx, tenant, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageArchived, got.DeletionStage)

	snap, err := e.repo.GetArchiveSnapshot(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Add(91*24*time.Hour).Add(ArchiveRetention).Unix(), snap.RetainUntil.Unix())
}

func TestPurgeSkipsStaleSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor := uuid.New(), uuid.New()

	p := archiveProperty(t, e, tenant, actor, "Old")

	// revive the row directly, leaving the snapshot behind
	got, err := e.repo.GetProperty(ctx, tenant, p.ID)
	require.NoError(t, err)
	got.IsDeleted = false
	got.DeletionStage = domain.StageNone
	got.DeletedAt = nil
	_, err = e.repo.UpdateProperty(ctx, got)
	require.NoError(t, err)

	pinClock(e, time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC).Add(91*24*time.Hour).Add(ArchiveRetention).Add(24*time.Hour))
	purged, err := e.PurgeExpired(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 0, purged)

	alive, err := e.repo.GetProperty(ctx, tenant, p.ID)
	require.NoError(t, err)
	assert.False(t, alive.IsDeleted)
	_, err = e.repo.GetArchiveSnapshot(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRequestArchiveRestorationRequiresArchivedStage(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor := uuid.New(), uuid.New()

	p := seedProperty(t, e, tenant, propertySpec{name: "Live"})
	var verr *domain.ValidationError
	_, err := e.RequestArchiveRestoration(ctx, tenant, actor, p.ID, "")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "not archived")
}
