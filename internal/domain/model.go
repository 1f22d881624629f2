package domain

import (
	"time"

	"github.com/google/uuid"
)

type ObjectType string

const (
	ObjectPet     ObjectType = "pet"
	ObjectOwner   ObjectType = "owner"
	ObjectBooking ObjectType = "booking"
)

func KnownObjectTypes() []ObjectType {
	return []ObjectType{ObjectPet, ObjectOwner, ObjectBooking}
}

type PropertyType string

const (
	PropertySystem    PropertyType = "system"
	PropertyStandard  PropertyType = "standard"
	PropertyProtected PropertyType = "protected"
	PropertyCustom    PropertyType = "custom"
)

type DeletionStage string

const (
	StageNone       DeletionStage = ""
	StageSoftDelete DeletionStage = "soft_delete"
	StageArchived   DeletionStage = "archived"
)

type DependencyType string

const (
	DepFormula           DependencyType = "formula"
	DepValidation        DependencyType = "validation"
	DepDefaultValue      DependencyType = "default_value"
	DepWorkflowTrigger   DependencyType = "workflow_trigger"
	DepWorkflowCondition DependencyType = "workflow_condition"
	DepWorkflowAction    DependencyType = "workflow_action"
	DepEmailTemplate     DependencyType = "email_template"
)

// UsageCounts mirrors the usedIn structure on a property: how many assets of
// each kind reference it outside the dependency graph itself.
type UsageCounts struct {
	Workflows    int `json:"workflows"`
	Forms        int `json:"forms"`
	Reports      int `json:"reports"`
	Validations  int `json:"validations"`
	Integrations int `json:"integrations"`
}

func (u UsageCounts) Total() int {
	return u.Workflows + u.Forms + u.Reports + u.Validations + u.Integrations
}

func (u UsageCounts) Union(other UsageCounts) UsageCounts {
	return UsageCounts{
		Workflows:    maxInt(u.Workflows, other.Workflows),
		Forms:        maxInt(u.Forms, other.Forms),
		Reports:      maxInt(u.Reports, other.Reports),
		Validations:  maxInt(u.Validations, other.Validations),
		Integrations: maxInt(u.Integrations, other.Integrations),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

type BrokenDependency struct {
	PropertyID uuid.UUID `json:"property_id"`
	Reason     string    `json:"reason"`
	BrokenAt   time.Time `json:"broken_at"`
}

type Property struct {
	ID           uuid.UUID
	TenantID     *uuid.UUID // nil for global properties shared across tenants
	ObjectType   ObjectType
	PropertyType PropertyType
	DataType     string
	Name         string
	Label        string

	Formula         string
	DefaultValue    string
	ValidationRules []ValidationRule

	UsedIn UsageCounts

	IsDeleted          bool
	DeletionStage      DeletionStage
	DeletedAt          *time.Time
	DeletionReason     string
	MigrationPath      *uuid.UUID
	BrokenDependencies []BrokenDependency

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Property) IsGlobal() bool { return p.TenantID == nil }

// VisibleTo reports whether the property belongs to the tenant or is global.
func (p Property) VisibleTo(tenantID uuid.UUID) bool {
	return p.TenantID == nil || *p.TenantID == tenantID
}

// Condition is a node in an AND/OR condition tree used by validation rules
// and workflow configs. A group node has Operator and Conditions; a leaf has
// Field or Formula.
type Condition struct {
	Operator   string      `json:"operator,omitempty"` // "and" / "or" on group nodes
	Conditions []Condition `json:"conditions,omitempty"`
	Field      string      `json:"field,omitempty"`
	Formula    string      `json:"formula,omitempty"`
	Value      string      `json:"value,omitempty"`
}

type ValidationRule struct {
	Type         string     `json:"type"` // cross_field, conditional, formula, lookup, range, required
	Operator     string     `json:"operator,omitempty"`
	CompareField string     `json:"compare_field,omitempty"`
	Min          *float64   `json:"min,omitempty"`
	Max          *float64   `json:"max,omitempty"`
	Condition    *Condition `json:"condition,omitempty"`
	Formula      string     `json:"formula,omitempty"`
	LookupField  string     `json:"lookup_field,omitempty"`
	Expression   string     `json:"expression,omitempty"`
	Message      string     `json:"message,omitempty"`
}

const (
	RuleRequired    = "required"
	RuleRange       = "range"
	RuleCrossField  = "cross_field"
	RuleConditional = "conditional"
	RuleFormula     = "formula"
	RuleLookup      = "lookup"
)

type WorkflowTrigger struct {
	Type  string `json:"type"` // field_update, field_change, comparison
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

type WorkflowAction struct {
	Type         string            `json:"type"` // update_field, copy_field, send_email, create_record
	Field        string            `json:"field,omitempty"`
	Value        string            `json:"value,omitempty"` // may itself be a formula
	SourceField  string            `json:"source_field,omitempty"`
	TargetField  string            `json:"target_field,omitempty"`
	Template     string            `json:"template,omitempty"` // merge fields: {{path}} or {path}
	RecordFields map[string]string `json:"record_fields,omitempty"`
}

type WorkflowConfig struct {
	Trigger    *WorkflowTrigger `json:"trigger,omitempty"`
	Conditions []Condition      `json:"conditions,omitempty"`
	Actions    []WorkflowAction `json:"actions,omitempty"`
}

// Markers layered onto an edge context. At most one pointer field is set at
// a time; Expression always carries the text the reference came from.
type SoftDeleteMarker struct {
	Actor uuid.UUID `json:"actor"`
	At    time.Time `json:"at"`
}

type BrokenMarker struct {
	Actor  uuid.UUID `json:"actor"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

type SubstitutionMarker struct {
	OriginalID uuid.UUID `json:"original_id"`
	Actor      uuid.UUID `json:"actor"`
	At         time.Time `json:"at"`
}

type EdgeContext struct {
	Expression   string              `json:"expression,omitempty"`
	SoftDelete   *SoftDeleteMarker   `json:"soft_delete,omitempty"`
	Broken       *BrokenMarker       `json:"broken,omitempty"`
	Substitution *SubstitutionMarker `json:"substitution,omitempty"`
}

// DependencyEdge is a directed "dependent references source" relationship.
// Uniqueness is (source, dependent, type); multiple edges of different types
// may connect the same pair.
type DependencyEdge struct {
	ID                  uint
	SourcePropertyID    uuid.UUID
	DependentPropertyID uuid.UUID
	Type                DependencyType
	Context             EdgeContext
	IsActive            bool
	IsCritical          bool
	BreakOnDelete       bool
	IsSystemDiscovered  bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type ChangeType string

const (
	ChangeCreate      ChangeType = "CREATE"
	ChangeModify      ChangeType = "MODIFY"
	ChangeArchive     ChangeType = "ARCHIVE"
	ChangeRestore     ChangeType = "RESTORE"
	ChangeSubstitute  ChangeType = "SUBSTITUTE"
	ChangeForceDelete ChangeType = "FORCE_DELETE"
	ChangeDelete      ChangeType = "DELETE"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RestorePayload is the replay data written with soft-delete audits: the
// property row as it was plus the edges that were deactivated, so a restore
// is a literal replay.
type RestorePayload struct {
	Property           Property `json:"property"`
	DeactivatedEdgeIDs []uint   `json:"deactivated_edge_ids"`
}

type ChangeAudit struct {
	ID             uint
	PropertyID     uuid.UUID
	TenantID       *uuid.UUID
	ChangeType     ChangeType
	Before         *Property
	After          *Property
	Actor          uuid.UUID
	Reason         string
	RiskLevel      RiskLevel
	RestorePayload *RestorePayload
	CreatedAt      time.Time
}

type Direction string

const (
	DirectionUpstream   Direction = "upstream"
	DirectionDownstream Direction = "downstream"
	DirectionBoth       Direction = "both"
)

type NodeRole string

const (
	RoleRoot       NodeRole = "root"
	RoleUpstream   NodeRole = "upstream"
	RoleDownstream NodeRole = "downstream"
)

type GraphNode struct {
	PropertyID   uuid.UUID    `json:"property_id"`
	Name         string       `json:"name"`
	ObjectType   ObjectType   `json:"object_type"`
	PropertyType PropertyType `json:"property_type"`
	DataType     string       `json:"data_type"`
	Role         NodeRole     `json:"role"`
	Depth        int          `json:"depth"`
}

type GraphEdge struct {
	SourcePropertyID    uuid.UUID      `json:"source_property_id"`
	DependentPropertyID uuid.UUID      `json:"dependent_property_id"`
	Type                DependencyType `json:"type"`
	IsCritical          bool           `json:"is_critical"`
	BreakOnDelete       bool           `json:"break_on_delete"`
}

type GraphMetrics struct {
	NodeCount           int                    `json:"node_count"`
	EdgeCount           int                    `json:"edge_count"`
	MaxDepth            int                    `json:"max_depth"`
	PropertyTypes       map[PropertyType]int   `json:"property_types"`
	DependencyTypes     map[DependencyType]int `json:"dependency_types"`
	CriticalEdgePercent float64                `json:"critical_edge_percent"`
}

type Graph struct {
	RootID  uuid.UUID    `json:"root_id"`
	Nodes   []GraphNode  `json:"nodes"`
	Edges   []GraphEdge  `json:"edges"`
	Metrics GraphMetrics `json:"metrics"`
}

// Cycle is a closed path of property ids, as found by the diagnostic cycle
// scan. The first element reappears implicitly after the last.
type Cycle struct {
	Path []uuid.UUID `json:"path"`
}

type ModificationType string

const (
	ModDelete     ModificationType = "delete"
	ModTypeChange ModificationType = "type_change"
	ModArchive    ModificationType = "archive"
)

type RecommendationSeverity string

const (
	SeverityBlocker RecommendationSeverity = "blocker"
	SeverityWarning RecommendationSeverity = "warning"
	SeverityInfo    RecommendationSeverity = "info"
)

type Recommendation struct {
	Severity RecommendationSeverity `json:"severity"`
	Message  string                 `json:"message"`
}

type Impact struct {
	PropertyID              uuid.UUID        `json:"property_id"`
	ModificationType        ModificationType `json:"modification_type"`
	Graph                   Graph            `json:"graph"`
	AffectedPropertiesCount int              `json:"affected_properties_count"`
	CriticalDependentCount  int              `json:"critical_dependent_count"`
	RecordCount             int64            `json:"record_count"`
	UsageCount              int              `json:"usage_count"`
	RiskScore               int              `json:"risk_score"`
	RiskLevel               RiskLevel        `json:"risk_level"`
	BypassAllowed           bool             `json:"bypass_allowed"`
	CanProceed              bool             `json:"can_proceed"`
	RequiresApproval        bool             `json:"requires_approval"`
	Recommendations         []Recommendation `json:"recommendations"`
}

func (i Impact) Blockers() []string {
	var out []string
	for _, r := range i.Recommendations {
		if r.Severity == SeverityBlocker {
			out = append(out, r.Message)
		}
	}
	return out
}

func (i Impact) Warnings() []string {
	var out []string
	for _, r := range i.Recommendations {
		if r.Severity == SeverityWarning {
			out = append(out, r.Message)
		}
	}
	return out
}

type CascadeStrategy string

const (
	StrategyCancel     CascadeStrategy = "cancel"
	StrategyCascade    CascadeStrategy = "cascade"
	StrategySubstitute CascadeStrategy = "substitute"
	StrategyForce      CascadeStrategy = "force"
)

type CascadeOperation string

const (
	OpArchive CascadeOperation = "archive"
	OpDelete  CascadeOperation = "delete"
)

type CascadeOptions struct {
	ReplacementPropertyID *uuid.UUID `json:"replacement_property_id,omitempty"`
	ClearRecordValues     bool       `json:"clear_record_values,omitempty"`
	Reason                string     `json:"reason,omitempty"`
}

// StepResult records the outcome of a best-effort sub-step so callers can
// observe partial failure instead of it vanishing into a log line.
type StepResult struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	Err  string `json:"err,omitempty"`
}

type CascadeResult struct {
	Strategy         CascadeStrategy `json:"strategy"`
	Impact           *Impact         `json:"impact,omitempty"` // cancel returns the analysis untouched
	ProcessedOrder   []uuid.UUID     `json:"processed_order,omitempty"`
	Errors           []string        `json:"errors,omitempty"`
	Steps            []StepResult    `json:"steps,omitempty"`
	Warning          string          `json:"warning,omitempty"`
	RepointedEdges   int             `json:"repointed_edges,omitempty"`
	DeactivatedEdges int             `json:"deactivated_edges,omitempty"`
	MigratedRecords  int64           `json:"migrated_records,omitempty"`
}

type SoftDeleteResult struct {
	PropertyID       uuid.UUID `json:"property_id"`
	DeactivatedEdges int       `json:"deactivated_edges"`
	RiskLevel        RiskLevel `json:"risk_level"`
}

type RestoreResult struct {
	PropertyID       uuid.UUID `json:"property_id"`
	ReactivatedEdges int       `json:"reactivated_edges"`
}

type ArchivedProperty struct {
	ID          uint
	PropertyID  uuid.UUID
	TenantID    *uuid.UUID
	Snapshot    Property
	ArchivedAt  time.Time
	RetainUntil time.Time
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type RestorationRequest struct {
	ID          uint
	PropertyID  uuid.UUID
	TenantID    uuid.UUID
	RequestedBy uuid.UUID
	Reason      string
	Status      RequestStatus
	DecidedBy   *uuid.UUID
	DecidedAt   *time.Time
	CreatedAt   time.Time
}

type TenantSweepReport struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Archived int       `json:"archived"`
	Failed   int       `json:"failed"`
	Errors   []string  `json:"errors,omitempty"`
}

type SweepReport struct {
	Processed int                 `json:"processed"`
	Archived  int                 `json:"archived"`
	Failed    int                 `json:"failed"`
	Tenants   []TenantSweepReport `json:"tenants,omitempty"`
	Errors    []string            `json:"errors,omitempty"`
}
