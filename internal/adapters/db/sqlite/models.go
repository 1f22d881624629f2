package sqlite

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PropertyModel struct {
	ID                 uuid.UUID  `gorm:"type:text;primaryKey"`
	TenantID           *uuid.UUID `gorm:"type:text;index:idx_prop_identity,unique"`
	ObjectType         string     `gorm:"not null;index:idx_prop_identity,unique"`
	PropertyType       string     `gorm:"not null"`
	DataType           string     `gorm:"not null"`
	Name               string     `gorm:"not null;index:idx_prop_identity,unique"`
	Label              string
	Formula            string
	DefaultValue       string
	ValidationRules    datatypes.JSON
	UsedIn             datatypes.JSON
	IsDeleted          bool   `gorm:"not null;default:false;index"`
	DeletionStage      string `gorm:"not null;default:''"`
	DeletedAt          *time.Time
	DeletionReason     string
	MigrationPath      *uuid.UUID `gorm:"type:text"`
	BrokenDependencies datatypes.JSON
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (PropertyModel) TableName() string { return "properties" }

type DependencyEdgeModel struct {
	ID                  uint      `gorm:"primaryKey"`
	SourcePropertyID    uuid.UUID `gorm:"type:text;not null;index;index:idx_edge_triple,unique"`
	DependentPropertyID uuid.UUID `gorm:"type:text;not null;index;index:idx_edge_triple,unique"`
	Type                string    `gorm:"not null;index:idx_edge_triple,unique"`
	Context             datatypes.JSON
	IsActive            bool `gorm:"not null;default:true;index"`
	IsCritical          bool `gorm:"not null;default:false"`
	BreakOnDelete       bool `gorm:"not null;default:false"`
	IsSystemDiscovered  bool `gorm:"not null;default:false"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (DependencyEdgeModel) TableName() string { return "dependency_edges" }

type ChangeAuditModel struct {
	ID             uint       `gorm:"primaryKey"`
	PropertyID     uuid.UUID  `gorm:"type:text;not null;index"`
	TenantID       *uuid.UUID `gorm:"type:text"`
	ChangeType     string     `gorm:"not null"`
	Before         datatypes.JSON
	After          datatypes.JSON
	Actor          uuid.UUID `gorm:"type:text;not null"`
	Reason         string
	RiskLevel      string `gorm:"not null;default:'low'"`
	RestorePayload datatypes.JSON
	CreatedAt      time.Time
}

func (ChangeAuditModel) TableName() string { return "change_audits" }

type ArchivedPropertyModel struct {
	ID          uint       `gorm:"primaryKey"`
	PropertyID  uuid.UUID  `gorm:"type:text;not null;uniqueIndex"`
	TenantID    *uuid.UUID `gorm:"type:text;index"`
	Snapshot    datatypes.JSON
	ArchivedAt  time.Time `gorm:"not null"`
	RetainUntil time.Time `gorm:"not null;index"`
}

func (ArchivedPropertyModel) TableName() string { return "archived_properties" }

type RestorationRequestModel struct {
	ID          uint      `gorm:"primaryKey"`
	PropertyID  uuid.UUID `gorm:"type:text;not null;index"`
	TenantID    uuid.UUID `gorm:"type:text;not null;index"`
	RequestedBy uuid.UUID `gorm:"type:text;not null"`
	Reason      string
	Status      string `gorm:"not null;default:'pending';index"`
	DecidedBy   *uuid.UUID `gorm:"type:text"`
	DecidedAt   *time.Time
	CreatedAt   time.Time
}

func (RestorationRequestModel) TableName() string { return "restoration_requests" }

type PetRecordModel struct {
	ID           uint      `gorm:"primaryKey"`
	TenantID     uuid.UUID `gorm:"type:text;not null;index"`
	Name         string    `gorm:"not null"`
	Species      string
	CustomFields datatypes.JSON
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (PetRecordModel) TableName() string { return "pet_records" }

type OwnerRecordModel struct {
	ID           uint      `gorm:"primaryKey"`
	TenantID     uuid.UUID `gorm:"type:text;not null;index"`
	FullName     string    `gorm:"not null"`
	Email        string
	CustomFields datatypes.JSON
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (OwnerRecordModel) TableName() string { return "owner_records" }

type BookingRecordModel struct {
	ID           uint      `gorm:"primaryKey"`
	TenantID     uuid.UUID `gorm:"type:text;not null;index"`
	PetRecordID  uint      `gorm:"index"`
	Status       string    `gorm:"not null;default:'booked'"`
	StartsAt     time.Time
	EndsAt       time.Time
	CustomFields datatypes.JSON
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (BookingRecordModel) TableName() string { return "booking_records" }
