package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

func TestChangeHistory(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	tenant, actor := uuid.New(), uuid.New()

	root := seedProperty(t, e, tenant, propertySpec{name: "Weight"})
	_, err := e.SoftDelete(ctx, tenant, actor, root.ID, "cleanup", true)
	require.NoError(t, err)
	_, err = e.RestoreSoftDeleted(ctx, tenant, actor, root.ID)
	require.NoError(t, err)

	audits, err := e.ChangeHistory(ctx, tenant, root.ID, 0)
	require.NoError(t, err)
	require.Len(t, audits, 2)
	assert.Equal(t, domain.ChangeRestore, audits[0].ChangeType)
	assert.Equal(t, domain.ChangeArchive, audits[1].ChangeType)
	assert.Equal(t, "cleanup", audits[1].Reason)
	require.NotNil(t, audits[1].RestorePayload)
	assert.Equal(t, root.ID, audits[1].RestorePayload.Property.ID)

	limited, err := e.ChangeHistory(ctx, tenant, root.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = e.ChangeHistory(ctx, uuid.New(), root.ID, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
