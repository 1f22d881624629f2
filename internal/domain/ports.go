package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PropertyRepository is the storage port for the dependency graph engine.
// InTx runs fn against a repository bound to one transaction; any error
// rolls the whole transaction back.
type PropertyRepository interface {
	InTx(ctx context.Context, fn func(PropertyRepository) error) error

	CreateProperty(ctx context.Context, value Property) (Property, error)
	GetProperty(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (Property, error)
	GetPropertyByName(ctx context.Context, tenantID uuid.UUID, objectType ObjectType, name string) (Property, error)
	ListProperties(ctx context.Context, tenantID uuid.UUID, includeDeleted bool) ([]Property, error)
	ListPropertiesByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Property, error)
	UpdateProperty(ctx context.Context, value Property) (Property, error)
	// DeleteProperty removes the row outright. Reserved for permanent purge.
	DeleteProperty(ctx context.Context, id uuid.UUID) error

	UpsertEdge(ctx context.Context, value DependencyEdge) (DependencyEdge, error)
	UpdateEdge(ctx context.Context, value DependencyEdge) (DependencyEdge, error)
	ListEdgesFrom(ctx context.Context, sourceIDs []uuid.UUID, activeOnly bool) ([]DependencyEdge, error)
	ListEdgesTo(ctx context.Context, dependentIDs []uuid.UUID, activeOnly bool) ([]DependencyEdge, error)
	ListEdgesTouching(ctx context.Context, propertyID uuid.UUID) ([]DependencyEdge, error)
	ListEdgesByIDs(ctx context.Context, ids []uint) ([]DependencyEdge, error)
	ListTenantEdges(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]DependencyEdge, error)
	DeleteEdgesTouching(ctx context.Context, propertyID uuid.UUID) (int64, error)

	AppendAudit(ctx context.Context, value ChangeAudit) (ChangeAudit, error)
	ListAudits(ctx context.Context, propertyID uuid.UUID, limit int) ([]ChangeAudit, error)

	// CountRecordsWithValue reports live records carrying a non-null value
	// for the property, using the closed object-type-to-table mapping.
	CountRecordsWithValue(ctx context.Context, prop Property) (int64, error)
	RenameCustomField(ctx context.Context, objectType ObjectType, oldName, newName string) (int64, error)
	ClearCustomField(ctx context.Context, objectType ObjectType, name string) (int64, error)

	CreateArchiveSnapshot(ctx context.Context, value ArchivedProperty) (ArchivedProperty, error)
	GetArchiveSnapshot(ctx context.Context, propertyID uuid.UUID) (ArchivedProperty, error)
	DeleteArchiveSnapshot(ctx context.Context, id uint) error
	ListSoftDeletedBefore(ctx context.Context, cutoff time.Time) ([]Property, error)
	ListExpiredArchives(ctx context.Context, cutoff time.Time) ([]ArchivedProperty, error)

	CreateRestorationRequest(ctx context.Context, value RestorationRequest) (RestorationRequest, error)
	GetRestorationRequest(ctx context.Context, id uint) (RestorationRequest, error)
	GetPendingRestorationRequest(ctx context.Context, propertyID uuid.UUID) (RestorationRequest, error)
	UpdateRestorationRequest(ctx context.Context, value RestorationRequest) (RestorationRequest, error)
}

// Notifier delivers archival notices to the tenant's owning administrator.
// Failures are the caller's to tolerate; the sweep treats them best-effort.
type Notifier interface {
	ArchivedNotice(ctx context.Context, tenantID uuid.UUID, property Property) error
}
