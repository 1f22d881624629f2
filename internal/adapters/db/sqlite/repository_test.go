package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

func newTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "props_test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if err := ValidateObjectTables(db); err != nil {
		t.Fatalf("validate object tables: %v", err)
	}
	return NewRepository(db), db
}

func mustCreateProperty(t *testing.T, repo *Repository, p domain.Property) domain.Property {
	t.Helper()
	created, err := repo.CreateProperty(context.Background(), p)
	if err != nil {
		t.Fatalf("create property %q: %v", p.Name, err)
	}
	return created
}

func TestUpsertEdgeKeepsTripleUnique(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	tenant := uuid.New()

	weight := mustCreateProperty(t, repo, domain.Property{
		TenantID: &tenant, ObjectType: domain.ObjectPet,
		PropertyType: domain.PropertyCustom, DataType: "number", Name: "Weight", Label: "Weight",
	})
	ideal := mustCreateProperty(t, repo, domain.Property{
		TenantID: &tenant, ObjectType: domain.ObjectPet,
		PropertyType: domain.PropertyCustom, DataType: "number", Name: "IdealWeightRange", Label: "Ideal Weight Range",
	})

	first, err := repo.UpsertEdge(ctx, domain.DependencyEdge{
		SourcePropertyID:    weight.ID,
		DependentPropertyID: ideal.ID,
		Type:                domain.DepFormula,
		Context:             domain.EdgeContext{Expression: "{Weight} * 1.1"},
		IsActive:            true,
		IsCritical:          true,
	})
	if err != nil {
		t.Fatalf("upsert edge: %v", err)
	}

	first.IsActive = false
	if _, err := repo.UpdateEdge(ctx, first); err != nil {
		t.Fatalf("deactivate edge: %v", err)
	}

	second, err := repo.UpsertEdge(ctx, domain.DependencyEdge{
		SourcePropertyID:    weight.ID,
		DependentPropertyID: ideal.ID,
		Type:                domain.DepFormula,
		Context:             domain.EdgeContext{Expression: "{Weight} * 1.2"},
		IsActive:            true,
	})
	if err != nil {
		t.Fatalf("upsert edge again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected upsert to reuse edge %d, got %d", first.ID, second.ID)
	}
	if !second.IsActive {
		t.Fatalf("expected upsert to reactivate the edge")
	}
	if second.Context.Expression != "{Weight} * 1.2" {
		t.Fatalf("expected refreshed expression, got %q", second.Context.Expression)
	}

	// different type on the same pair is a distinct edge
	other, err := repo.UpsertEdge(ctx, domain.DependencyEdge{
		SourcePropertyID:    weight.ID,
		DependentPropertyID: ideal.ID,
		Type:                domain.DepValidation,
		IsActive:            true,
	})
	if err != nil {
		t.Fatalf("upsert validation edge: %v", err)
	}
	if other.ID == first.ID {
		t.Fatalf("expected a new edge for a different type")
	}

	edges, err := repo.ListEdgesTouching(ctx, weight.ID)
	if err != nil {
		t.Fatalf("list edges: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
}

func TestTenantVisibility(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	tenantA := uuid.New()
	tenantB := uuid.New()

	mine := mustCreateProperty(t, repo, domain.Property{
		TenantID: &tenantA, ObjectType: domain.ObjectPet,
		PropertyType: domain.PropertyCustom, DataType: "number", Name: "Weight", Label: "Weight",
	})
	global := mustCreateProperty(t, repo, domain.Property{
		ObjectType:   domain.ObjectPet,
		PropertyType: domain.PropertyStandard, DataType: "string", Name: "Species", Label: "Species",
	})
	foreign := mustCreateProperty(t, repo, domain.Property{
		TenantID: &tenantB, ObjectType: domain.ObjectPet,
		PropertyType: domain.PropertyCustom, DataType: "number", Name: "Height", Label: "Height",
	})

	if _, err := repo.GetProperty(ctx, tenantA, mine.ID); err != nil {
		t.Fatalf("own property should be visible: %v", err)
	}
	if _, err := repo.GetProperty(ctx, tenantA, global.ID); err != nil {
		t.Fatalf("global property should be visible: %v", err)
	}
	if _, err := repo.GetProperty(ctx, tenantA, foreign.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign property should be invisible, got %v", err)
	}

	props, err := repo.ListProperties(ctx, tenantA, false)
	if err != nil {
		t.Fatalf("list properties: %v", err)
	}
	if len(props) != 2 {
		t.Fatalf("expected own plus global, got %d", len(props))
	}
}

func TestGetPropertyByNamePrefersTenantOwned(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	tenant := uuid.New()

	mustCreateProperty(t, repo, domain.Property{
		ObjectType:   domain.ObjectPet,
		PropertyType: domain.PropertyStandard, DataType: "string", Name: "Color", Label: "Color",
	})
	owned := mustCreateProperty(t, repo, domain.Property{
		TenantID: &tenant, ObjectType: domain.ObjectPet,
		PropertyType: domain.PropertyCustom, DataType: "string", Name: "Color", Label: "Color",
	})

	got, err := repo.GetPropertyByName(ctx, tenant, domain.ObjectPet, "Color")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if got.ID != owned.ID {
		t.Fatalf("expected the tenant-owned property, got %s", got.ID)
	}
}

func TestCustomFieldOperations(t *testing.T) {
	ctx := context.Background()
	repo, db := newTestRepo(t)
	tenant := uuid.New()

	prop := mustCreateProperty(t, repo, domain.Property{
		TenantID: &tenant, ObjectType: domain.ObjectPet,
		PropertyType: domain.PropertyCustom, DataType: "number", Name: "Weight", Label: "Weight",
	})

	records := []PetRecordModel{
		{TenantID: tenant, Name: "Rex", Species: "dog", CustomFields: []byte(`{"Weight": 31.5}`)},
		{TenantID: tenant, Name: "Mia", Species: "cat", CustomFields: []byte(`{"Weight": 4.2, "CoatColor": "black"}`)},
		{TenantID: tenant, Name: "Kiwi", Species: "bird", CustomFields: []byte(`{"CoatColor": "green"}`)},
	}
	for i := range records {
		if err := db.Create(&records[i]).Error; err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}

	count, err := repo.CountRecordsWithValue(ctx, prop)
	if err != nil {
		t.Fatalf("count records: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 records with a value, got %d", count)
	}

	moved, err := repo.RenameCustomField(ctx, domain.ObjectPet, "Weight", "WeightKg")
	if err != nil {
		t.Fatalf("rename custom field: %v", err)
	}
	if moved != 2 {
		t.Fatalf("expected 2 moved records, got %d", moved)
	}

	count, err = repo.CountRecordsWithValue(ctx, prop)
	if err != nil {
		t.Fatalf("count after rename: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected old key cleared, got %d", count)
	}

	renamed := prop
	renamed.Name = "WeightKg"
	count, err = repo.CountRecordsWithValue(ctx, renamed)
	if err != nil {
		t.Fatalf("count new key: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 records under the new key, got %d", count)
	}

	cleared, err := repo.ClearCustomField(ctx, domain.ObjectPet, "WeightKg")
	if err != nil {
		t.Fatalf("clear custom field: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("expected 2 cleared records, got %d", cleared)
	}

	count, err = repo.CountRecordsWithValue(ctx, renamed)
	if err != nil {
		t.Fatalf("count after clear: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no records after clear, got %d", count)
	}

	// other keys survive the rename and clear
	other := prop
	other.Name = "CoatColor"
	count, err = repo.CountRecordsWithValue(ctx, other)
	if err != nil {
		t.Fatalf("count untouched key: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected untouched key intact, got %d", count)
	}
}

func TestCountRecordsRejectsBadFieldName(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	tenant := uuid.New()

	prop := domain.Property{
		TenantID: &tenant, ObjectType: domain.ObjectPet,
		PropertyType: domain.PropertyCustom, DataType: "number",
		Name: `Weight"; DROP TABLE pet_records; --`,
	}
	var verr *domain.ValidationError
	if _, err := repo.CountRecordsWithValue(ctx, prop); !errors.As(err, &verr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	tenant := uuid.New()

	boom := errors.New("boom")
	err := repo.InTx(ctx, func(tx domain.PropertyRepository) error {
		_, err := tx.CreateProperty(ctx, domain.Property{
			TenantID: &tenant, ObjectType: domain.ObjectPet,
			PropertyType: domain.PropertyCustom, DataType: "number", Name: "Transient", Label: "Transient",
		})
		if err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the inner error, got %v", err)
	}

	if _, err := repo.GetPropertyByName(ctx, tenant, domain.ObjectPet, "Transient"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected rollback, got %v", err)
	}
}

func TestRestorationRequestQueries(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	tenant := uuid.New()
	propertyID := uuid.New()

	if _, err := repo.GetPendingRestorationRequest(ctx, propertyID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	req, err := repo.CreateRestorationRequest(ctx, domain.RestorationRequest{
		PropertyID:  propertyID,
		TenantID:    tenant,
		RequestedBy: uuid.New(),
		Reason:      "restore after audit",
		Status:      domain.RequestPending,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	pending, err := repo.GetPendingRestorationRequest(ctx, propertyID)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if pending.ID != req.ID {
		t.Fatalf("expected request %d, got %d", req.ID, pending.ID)
	}

	decider := uuid.New()
	now := pending.CreatedAt
	pending.Status = domain.RequestRejected
	pending.DecidedBy = &decider
	pending.DecidedAt = &now
	if _, err := repo.UpdateRestorationRequest(ctx, pending); err != nil {
		t.Fatalf("update request: %v", err)
	}

	if _, err := repo.GetPendingRestorationRequest(ctx, propertyID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected no pending request after rejection, got %v", err)
	}
}
