package application

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	sqliteadapter "github.com/LeviathanIsI/barkbase-sub006/internal/adapters/db/sqlite"
	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "props_test.db")

	db, err := sqliteadapter.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, sqliteadapter.RunMigrations(ctx, db))
	require.NoError(t, sqliteadapter.ValidateObjectTables(db))

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewEngine(sqliteadapter.NewRepository(db), nil, logger), db
}

type propertySpec struct {
	objectType   domain.ObjectType
	propertyType domain.PropertyType
	dataType     string
	name         string
	formula      string
	defaultValue string
	rules        []domain.ValidationRule
	usedIn       domain.UsageCounts
	global       bool
}

func seedProperty(t *testing.T, e *Engine, tenant uuid.UUID, spec propertySpec) domain.Property {
	t.Helper()
	if spec.objectType == "" {
		spec.objectType = domain.ObjectPet
	}
	if spec.propertyType == "" {
		spec.propertyType = domain.PropertyCustom
	}
	if spec.dataType == "" {
		spec.dataType = "number"
	}
	p := domain.Property{
		ObjectType:      spec.objectType,
		PropertyType:    spec.propertyType,
		DataType:        spec.dataType,
		Name:            spec.name,
		Label:           spec.name,
		Formula:         spec.formula,
		DefaultValue:    spec.defaultValue,
		ValidationRules: spec.rules,
		UsedIn:          spec.usedIn,
	}
	if !spec.global {
		p.TenantID = &tenant
	}
	created, err := e.repo.CreateProperty(context.Background(), p)
	require.NoError(t, err)
	return created
}

func seedEdge(t *testing.T, e *Engine, source, dependent uuid.UUID, edgeType domain.DependencyType, critical bool) domain.DependencyEdge {
	t.Helper()
	edge, err := e.repo.UpsertEdge(context.Background(), domain.DependencyEdge{
		SourcePropertyID:    source,
		DependentPropertyID: dependent,
		Type:                edgeType,
		Context:             domain.EdgeContext{Expression: "seeded"},
		IsActive:            true,
		IsCritical:          critical,
		IsSystemDiscovered:  true,
	})
	require.NoError(t, err)
	return edge
}

func pinClock(e *Engine, at time.Time) {
	e.now = func() time.Time { return at }
}
