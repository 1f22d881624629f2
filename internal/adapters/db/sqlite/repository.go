package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

type Repository struct {
	db *gorm.DB
}

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// recordTables is the closed object-type-to-table mapping. Queries against
// record data are only ever built from this map, never from input strings.
var recordTables = map[domain.ObjectType]string{
	domain.ObjectPet:     PetRecordModel{}.TableName(),
	domain.ObjectOwner:   OwnerRecordModel{}.TableName(),
	domain.ObjectBooking: BookingRecordModel{}.TableName(),
}

var recordModels = map[domain.ObjectType]any{
	domain.ObjectPet:     &PetRecordModel{},
	domain.ObjectOwner:   &OwnerRecordModel{},
	domain.ObjectBooking: &BookingRecordModel{},
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateObjectTables checks at startup that every known object type has
// its record table migrated.
func ValidateObjectTables(db *gorm.DB) error {
	for _, ot := range domain.KnownObjectTypes() {
		table, ok := recordTables[ot]
		if !ok {
			return fmt.Errorf("object type %s has no record table", ot)
		}
		if !db.Migrator().HasTable(table) {
			return fmt.Errorf("record table %s is missing", table)
		}
	}
	return nil
}

func (r *Repository) InTx(ctx context.Context, fn func(domain.PropertyRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func toJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func propertyToModel(p domain.Property) (PropertyModel, error) {
	rules, err := toJSON(p.ValidationRules)
	if err != nil {
		return PropertyModel{}, err
	}
	usedIn, err := toJSON(p.UsedIn)
	if err != nil {
		return PropertyModel{}, err
	}
	broken, err := toJSON(p.BrokenDependencies)
	if err != nil {
		return PropertyModel{}, err
	}
	return PropertyModel{
		ID:                 p.ID,
		TenantID:           p.TenantID,
		ObjectType:         string(p.ObjectType),
		PropertyType:       string(p.PropertyType),
		DataType:           p.DataType,
		Name:               p.Name,
		Label:              p.Label,
		Formula:            p.Formula,
		DefaultValue:       p.DefaultValue,
		ValidationRules:    rules,
		UsedIn:             usedIn,
		IsDeleted:          p.IsDeleted,
		DeletionStage:      string(p.DeletionStage),
		DeletedAt:          p.DeletedAt,
		DeletionReason:     p.DeletionReason,
		MigrationPath:      p.MigrationPath,
		BrokenDependencies: broken,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}, nil
}

func propertyToDomain(m PropertyModel) (domain.Property, error) {
	p := domain.Property{
		ID:             m.ID,
		TenantID:       m.TenantID,
		ObjectType:     domain.ObjectType(m.ObjectType),
		PropertyType:   domain.PropertyType(m.PropertyType),
		DataType:       m.DataType,
		Name:           m.Name,
		Label:          m.Label,
		Formula:        m.Formula,
		DefaultValue:   m.DefaultValue,
		IsDeleted:      m.IsDeleted,
		DeletionStage:  domain.DeletionStage(m.DeletionStage),
		DeletedAt:      m.DeletedAt,
		DeletionReason: m.DeletionReason,
		MigrationPath:  m.MigrationPath,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if len(m.ValidationRules) > 0 {
		if err := json.Unmarshal(m.ValidationRules, &p.ValidationRules); err != nil {
			return domain.Property{}, err
		}
	}
	if len(m.UsedIn) > 0 {
		if err := json.Unmarshal(m.UsedIn, &p.UsedIn); err != nil {
			return domain.Property{}, err
		}
	}
	if len(m.BrokenDependencies) > 0 {
		if err := json.Unmarshal(m.BrokenDependencies, &p.BrokenDependencies); err != nil {
			return domain.Property{}, err
		}
	}
	return p, nil
}

func propertiesToDomain(rows []PropertyModel) ([]domain.Property, error) {
	result := make([]domain.Property, 0, len(rows))
	for _, m := range rows {
		p, err := propertyToDomain(m)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

func (r *Repository) CreateProperty(ctx context.Context, value domain.Property) (domain.Property, error) {
	if _, ok := recordTables[value.ObjectType]; !ok {
		return domain.Property{}, domain.NewValidationError("unknown object type %q", value.ObjectType)
	}
	if value.ID == uuid.Nil {
		value.ID = uuid.New()
	}
	m, err := propertyToModel(value)
	if err != nil {
		return domain.Property{}, err
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Property{}, err
	}
	return propertyToDomain(m)
}

func (r *Repository) GetProperty(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (domain.Property, error) {
	var m PropertyModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND (tenant_id = ? OR tenant_id IS NULL)", id, tenantID).
		First(&m).Error
	if err != nil {
		return domain.Property{}, notFound(err)
	}
	return propertyToDomain(m)
}

func (r *Repository) GetPropertyByName(ctx context.Context, tenantID uuid.UUID, objectType domain.ObjectType, name string) (domain.Property, error) {
	var m PropertyModel
	err := r.db.WithContext(ctx).
		Where("object_type = ? AND name = ? AND (tenant_id = ? OR tenant_id IS NULL)", objectType, name, tenantID).
		Order("tenant_id IS NULL"). // tenant-owned wins over global
		First(&m).Error
	if err != nil {
		return domain.Property{}, notFound(err)
	}
	return propertyToDomain(m)
}

func (r *Repository) ListProperties(ctx context.Context, tenantID uuid.UUID, includeDeleted bool) ([]domain.Property, error) {
	q := r.db.WithContext(ctx).Model(&PropertyModel{}).
		Where("tenant_id = ? OR tenant_id IS NULL", tenantID)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	rows := make([]PropertyModel, 0)
	if err := q.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return propertiesToDomain(rows)
}

func (r *Repository) ListPropertiesByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]domain.Property, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows := make([]PropertyModel, 0, len(ids))
	err := r.db.WithContext(ctx).
		Where("id IN ? AND (tenant_id = ? OR tenant_id IS NULL)", ids, tenantID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return propertiesToDomain(rows)
}

func (r *Repository) UpdateProperty(ctx context.Context, value domain.Property) (domain.Property, error) {
	m, err := propertyToModel(value)
	if err != nil {
		return domain.Property{}, err
	}
	res := r.db.WithContext(ctx).Model(&PropertyModel{}).Where("id = ?", m.ID).
		Select("*").Omit("id", "created_at").Updates(&m)
	if res.Error != nil {
		return domain.Property{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Property{}, domain.ErrNotFound
	}
	var fresh PropertyModel
	if err := r.db.WithContext(ctx).First(&fresh, "id = ?", m.ID).Error; err != nil {
		return domain.Property{}, notFound(err)
	}
	return propertyToDomain(fresh)
}

func (r *Repository) DeleteProperty(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&PropertyModel{}, "id = ?", id).Error
}

func edgeToModel(e domain.DependencyEdge) (DependencyEdgeModel, error) {
	ctxJSON, err := toJSON(e.Context)
	if err != nil {
		return DependencyEdgeModel{}, err
	}
	return DependencyEdgeModel{
		ID:                  e.ID,
		SourcePropertyID:    e.SourcePropertyID,
		DependentPropertyID: e.DependentPropertyID,
		Type:                string(e.Type),
		Context:             ctxJSON,
		IsActive:            e.IsActive,
		IsCritical:          e.IsCritical,
		BreakOnDelete:       e.BreakOnDelete,
		IsSystemDiscovered:  e.IsSystemDiscovered,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}, nil
}

func edgeToDomain(m DependencyEdgeModel) (domain.DependencyEdge, error) {
	e := domain.DependencyEdge{
		ID:                  m.ID,
		SourcePropertyID:    m.SourcePropertyID,
		DependentPropertyID: m.DependentPropertyID,
		Type:                domain.DependencyType(m.Type),
		IsActive:            m.IsActive,
		IsCritical:          m.IsCritical,
		BreakOnDelete:       m.BreakOnDelete,
		IsSystemDiscovered:  m.IsSystemDiscovered,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	if len(m.Context) > 0 {
		if err := json.Unmarshal(m.Context, &e.Context); err != nil {
			return domain.DependencyEdge{}, err
		}
	}
	return e, nil
}

func edgesToDomain(rows []DependencyEdgeModel) ([]domain.DependencyEdge, error) {
	result := make([]domain.DependencyEdge, 0, len(rows))
	for _, m := range rows {
		e, err := edgeToDomain(m)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

// UpsertEdge inserts the (source, dependent, type) triple or refreshes the
// existing row, reactivating it if it had been deactivated.
func (r *Repository) UpsertEdge(ctx context.Context, value domain.DependencyEdge) (domain.DependencyEdge, error) {
	var existing DependencyEdgeModel
	err := r.db.WithContext(ctx).
		Where("source_property_id = ? AND dependent_property_id = ? AND type = ?",
			value.SourcePropertyID, value.DependentPropertyID, value.Type).
		First(&existing).Error
	switch {
	case err == nil:
		value.ID = existing.ID
		value.CreatedAt = existing.CreatedAt
		m, err := edgeToModel(value)
		if err != nil {
			return domain.DependencyEdge{}, err
		}
		if err := r.db.WithContext(ctx).Model(&DependencyEdgeModel{}).Where("id = ?", m.ID).
			Select("*").Omit("id", "created_at").Updates(&m).Error; err != nil {
			return domain.DependencyEdge{}, err
		}
		return edgeToDomain(m)
	case errors.Is(err, gorm.ErrRecordNotFound):
		m, err := edgeToModel(value)
		if err != nil {
			return domain.DependencyEdge{}, err
		}
		if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
			return domain.DependencyEdge{}, err
		}
		return edgeToDomain(m)
	default:
		return domain.DependencyEdge{}, err
	}
}

func (r *Repository) UpdateEdge(ctx context.Context, value domain.DependencyEdge) (domain.DependencyEdge, error) {
	m, err := edgeToModel(value)
	if err != nil {
		return domain.DependencyEdge{}, err
	}
	res := r.db.WithContext(ctx).Model(&DependencyEdgeModel{}).Where("id = ?", m.ID).
		Select("*").Omit("id", "created_at").Updates(&m)
	if res.Error != nil {
		return domain.DependencyEdge{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.DependencyEdge{}, domain.ErrNotFound
	}
	return edgeToDomain(m)
}

func (r *Repository) listEdges(ctx context.Context, column string, ids []uuid.UUID, activeOnly bool) ([]domain.DependencyEdge, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).Model(&DependencyEdgeModel{}).Where(column+" IN ?", ids)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	rows := make([]DependencyEdgeModel, 0)
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return edgesToDomain(rows)
}

func (r *Repository) ListEdgesFrom(ctx context.Context, sourceIDs []uuid.UUID, activeOnly bool) ([]domain.DependencyEdge, error) {
	return r.listEdges(ctx, "source_property_id", sourceIDs, activeOnly)
}

func (r *Repository) ListEdgesTo(ctx context.Context, dependentIDs []uuid.UUID, activeOnly bool) ([]domain.DependencyEdge, error) {
	return r.listEdges(ctx, "dependent_property_id", dependentIDs, activeOnly)
}

func (r *Repository) ListEdgesTouching(ctx context.Context, propertyID uuid.UUID) ([]domain.DependencyEdge, error) {
	rows := make([]DependencyEdgeModel, 0)
	err := r.db.WithContext(ctx).
		Where("source_property_id = ? OR dependent_property_id = ?", propertyID, propertyID).
		Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return edgesToDomain(rows)
}

func (r *Repository) ListEdgesByIDs(ctx context.Context, ids []uint) ([]domain.DependencyEdge, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows := make([]DependencyEdgeModel, 0, len(ids))
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return edgesToDomain(rows)
}

// ListTenantEdges returns edges whose dependent endpoint is visible to the
// tenant; the dependent is the row that carries the reference, so its
// visibility decides the edge's.
func (r *Repository) ListTenantEdges(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]domain.DependencyEdge, error) {
	q := r.db.WithContext(ctx).Model(&DependencyEdgeModel{}).
		Joins("JOIN properties dep ON dep.id = dependency_edges.dependent_property_id").
		Where("dep.tenant_id = ? OR dep.tenant_id IS NULL", tenantID)
	if activeOnly {
		q = q.Where("dependency_edges.is_active = ?", true)
	}
	rows := make([]DependencyEdgeModel, 0)
	if err := q.Order("dependency_edges.id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return edgesToDomain(rows)
}

func (r *Repository) DeleteEdgesTouching(ctx context.Context, propertyID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("source_property_id = ? OR dependent_property_id = ?", propertyID, propertyID).
		Delete(&DependencyEdgeModel{})
	return res.RowsAffected, res.Error
}

func (r *Repository) AppendAudit(ctx context.Context, value domain.ChangeAudit) (domain.ChangeAudit, error) {
	m := ChangeAuditModel{
		PropertyID: value.PropertyID,
		TenantID:   value.TenantID,
		ChangeType: string(value.ChangeType),
		Actor:      value.Actor,
		Reason:     value.Reason,
		RiskLevel:  string(value.RiskLevel),
	}
	var err error
	if value.Before != nil {
		if m.Before, err = toJSON(value.Before); err != nil {
			return domain.ChangeAudit{}, err
		}
	}
	if value.After != nil {
		if m.After, err = toJSON(value.After); err != nil {
			return domain.ChangeAudit{}, err
		}
	}
	if value.RestorePayload != nil {
		if m.RestorePayload, err = toJSON(value.RestorePayload); err != nil {
			return domain.ChangeAudit{}, err
		}
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.ChangeAudit{}, err
	}
	return auditToDomain(m)
}

func auditToDomain(m ChangeAuditModel) (domain.ChangeAudit, error) {
	a := domain.ChangeAudit{
		ID:         m.ID,
		PropertyID: m.PropertyID,
		TenantID:   m.TenantID,
		ChangeType: domain.ChangeType(m.ChangeType),
		Actor:      m.Actor,
		Reason:     m.Reason,
		RiskLevel:  domain.RiskLevel(m.RiskLevel),
		CreatedAt:  m.CreatedAt,
	}
	if len(m.Before) > 0 {
		if err := json.Unmarshal(m.Before, &a.Before); err != nil {
			return domain.ChangeAudit{}, err
		}
	}
	if len(m.After) > 0 {
		if err := json.Unmarshal(m.After, &a.After); err != nil {
			return domain.ChangeAudit{}, err
		}
	}
	if len(m.RestorePayload) > 0 {
		if err := json.Unmarshal(m.RestorePayload, &a.RestorePayload); err != nil {
			return domain.ChangeAudit{}, err
		}
	}
	return a, nil
}

func (r *Repository) ListAudits(ctx context.Context, propertyID uuid.UUID, limit int) ([]domain.ChangeAudit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows := make([]ChangeAuditModel, 0)
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.ChangeAudit, 0, len(rows))
	for _, m := range rows {
		a, err := auditToDomain(m)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

// CountRecordsWithValue counts live records carrying a value for the
// property. Custom property values live in the custom_fields JSON column;
// other property types map to a real column of the record table when one
// with the same name exists.
func (r *Repository) CountRecordsWithValue(ctx context.Context, prop domain.Property) (int64, error) {
	table, ok := recordTables[prop.ObjectType]
	if !ok {
		return 0, domain.NewValidationError("unknown object type %q", prop.ObjectType)
	}
	if !fieldNamePattern.MatchString(prop.Name) {
		return 0, domain.NewValidationError("property name %q is not a valid field name", prop.Name)
	}

	var count int64
	if prop.PropertyType == domain.PropertyCustom {
		err := r.db.WithContext(ctx).Table(table).
			Where("json_extract(custom_fields, ?) IS NOT NULL", "$."+prop.Name).
			Count(&count).Error
		return count, err
	}

	model := recordModels[prop.ObjectType]
	if !r.db.Migrator().HasColumn(model, prop.Name) {
		return 0, nil
	}
	err := r.db.WithContext(ctx).Table(table).
		Where(fmt.Sprintf("%s IS NOT NULL", prop.Name)).
		Count(&count).Error
	return count, err
}

// RenameCustomField moves every record's value from one custom_fields key
// to another in place. json_extract reads the pre-update row value, so the
// move is safe in a single statement.
func (r *Repository) RenameCustomField(ctx context.Context, objectType domain.ObjectType, oldName, newName string) (int64, error) {
	table, ok := recordTables[objectType]
	if !ok {
		return 0, domain.NewValidationError("unknown object type %q", objectType)
	}
	if !fieldNamePattern.MatchString(oldName) || !fieldNamePattern.MatchString(newName) {
		return 0, domain.NewValidationError("invalid custom field name")
	}
	res := r.db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE %s SET custom_fields = json_set(json_remove(custom_fields, ?), ?, json_extract(custom_fields, ?)) WHERE json_extract(custom_fields, ?) IS NOT NULL`, table),
		"$."+oldName, "$."+newName, "$."+oldName, "$."+oldName,
	)
	return res.RowsAffected, res.Error
}

func (r *Repository) ClearCustomField(ctx context.Context, objectType domain.ObjectType, name string) (int64, error) {
	table, ok := recordTables[objectType]
	if !ok {
		return 0, domain.NewValidationError("unknown object type %q", objectType)
	}
	if !fieldNamePattern.MatchString(name) {
		return 0, domain.NewValidationError("invalid custom field name")
	}
	res := r.db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE %s SET custom_fields = json_remove(custom_fields, ?) WHERE json_extract(custom_fields, ?) IS NOT NULL`, table),
		"$."+name, "$."+name,
	)
	return res.RowsAffected, res.Error
}

func (r *Repository) CreateArchiveSnapshot(ctx context.Context, value domain.ArchivedProperty) (domain.ArchivedProperty, error) {
	snapshot, err := toJSON(value.Snapshot)
	if err != nil {
		return domain.ArchivedProperty{}, err
	}
	m := ArchivedPropertyModel{
		PropertyID:  value.PropertyID,
		TenantID:    value.TenantID,
		Snapshot:    snapshot,
		ArchivedAt:  value.ArchivedAt,
		RetainUntil: value.RetainUntil,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.ArchivedProperty{}, err
	}
	return archiveToDomain(m)
}

func archiveToDomain(m ArchivedPropertyModel) (domain.ArchivedProperty, error) {
	a := domain.ArchivedProperty{
		ID:          m.ID,
		PropertyID:  m.PropertyID,
		TenantID:    m.TenantID,
		ArchivedAt:  m.ArchivedAt,
		RetainUntil: m.RetainUntil,
	}
	if len(m.Snapshot) > 0 {
		if err := json.Unmarshal(m.Snapshot, &a.Snapshot); err != nil {
			return domain.ArchivedProperty{}, err
		}
	}
	return a, nil
}

func (r *Repository) GetArchiveSnapshot(ctx context.Context, propertyID uuid.UUID) (domain.ArchivedProperty, error) {
	var m ArchivedPropertyModel
	err := r.db.WithContext(ctx).Where("property_id = ?", propertyID).First(&m).Error
	if err != nil {
		return domain.ArchivedProperty{}, notFound(err)
	}
	return archiveToDomain(m)
}

func (r *Repository) DeleteArchiveSnapshot(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&ArchivedPropertyModel{}, "id = ?", id).Error
}

func (r *Repository) ListSoftDeletedBefore(ctx context.Context, cutoff time.Time) ([]domain.Property, error) {
	rows := make([]PropertyModel, 0)
	err := r.db.WithContext(ctx).
		Where("deletion_stage = ? AND deleted_at < ?", domain.StageSoftDelete, cutoff).
		Order("tenant_id ASC, name ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return propertiesToDomain(rows)
}

func (r *Repository) ListExpiredArchives(ctx context.Context, cutoff time.Time) ([]domain.ArchivedProperty, error) {
	rows := make([]ArchivedPropertyModel, 0)
	err := r.db.WithContext(ctx).
		Where("retain_until < ?", cutoff).
		Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.ArchivedProperty, 0, len(rows))
	for _, m := range rows {
		a, err := archiveToDomain(m)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

func requestToDomain(m RestorationRequestModel) domain.RestorationRequest {
	return domain.RestorationRequest{
		ID:          m.ID,
		PropertyID:  m.PropertyID,
		TenantID:    m.TenantID,
		RequestedBy: m.RequestedBy,
		Reason:      m.Reason,
		Status:      domain.RequestStatus(m.Status),
		DecidedBy:   m.DecidedBy,
		DecidedAt:   m.DecidedAt,
		CreatedAt:   m.CreatedAt,
	}
}

func (r *Repository) CreateRestorationRequest(ctx context.Context, value domain.RestorationRequest) (domain.RestorationRequest, error) {
	m := RestorationRequestModel{
		PropertyID:  value.PropertyID,
		TenantID:    value.TenantID,
		RequestedBy: value.RequestedBy,
		Reason:      value.Reason,
		Status:      string(value.Status),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.RestorationRequest{}, err
	}
	return requestToDomain(m), nil
}

func (r *Repository) GetRestorationRequest(ctx context.Context, id uint) (domain.RestorationRequest, error) {
	var m RestorationRequestModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return domain.RestorationRequest{}, notFound(err)
	}
	return requestToDomain(m), nil
}

func (r *Repository) GetPendingRestorationRequest(ctx context.Context, propertyID uuid.UUID) (domain.RestorationRequest, error) {
	var m RestorationRequestModel
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND status = ?", propertyID, domain.RequestPending).
		First(&m).Error
	if err != nil {
		return domain.RestorationRequest{}, notFound(err)
	}
	return requestToDomain(m), nil
}

func (r *Repository) UpdateRestorationRequest(ctx context.Context, value domain.RestorationRequest) (domain.RestorationRequest, error) {
	m := RestorationRequestModel{
		ID:          value.ID,
		PropertyID:  value.PropertyID,
		TenantID:    value.TenantID,
		RequestedBy: value.RequestedBy,
		Reason:      value.Reason,
		Status:      string(value.Status),
		DecidedBy:   value.DecidedBy,
		DecidedAt:   value.DecidedAt,
		CreatedAt:   value.CreatedAt,
	}
	res := r.db.WithContext(ctx).Model(&RestorationRequestModel{}).Where("id = ?", m.ID).
		Select("*").Omit("id", "created_at").Updates(&m)
	if res.Error != nil {
		return domain.RestorationRequest{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.RestorationRequest{}, domain.ErrNotFound
	}
	return requestToDomain(m), nil
}
