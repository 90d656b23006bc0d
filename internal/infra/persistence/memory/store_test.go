package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portflow/pkg/domain"
)

func TestStore_CRUDLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	created, err := store.Insert(ctx, domain.TableContainers, domain.Row{"container_number": "MSCU1234567", "status": "in_storage"})
	require.NoError(t, err)
	assert.Equal(t, "1", created.ID())

	got, err := store.Get(ctx, domain.TableContainers, "1")
	require.NoError(t, err)
	assert.Equal(t, "MSCU1234567", got["container_number"])

	updated, err := store.Update(ctx, domain.TableContainers, "1", domain.Row{"status": "delivered", "id": 99})
	require.NoError(t, err)
	assert.Equal(t, "delivered", updated["status"])
	assert.Equal(t, "1", updated.ID(), "update must not move the row")

	deleted, err := store.Delete(ctx, domain.TableContainers, "1")
	require.NoError(t, err)
	assert.Equal(t, "delivered", deleted["status"])

	_, err = store.Get(ctx, domain.TableContainers, "1")
	assert.True(t, domain.IsNotFound(err))
	_, err = store.Delete(ctx, domain.TableContainers, "1")
	assert.True(t, domain.IsNotFound(err))
	_, err = store.Update(ctx, domain.TableVessels, "1", domain.Row{})
	assert.True(t, domain.IsNotFound(err))
}

func TestStore_ReturnsClones(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	row := domain.Row{"name": "RTG-001", "meta": map[string]any{"zone": "A"}}
	created, err := store.Insert(ctx, domain.TableEquipment, row)
	require.NoError(t, err)

	row["name"] = "mutated"
	created["meta"].(map[string]any)["zone"] = "B"

	got, err := store.Get(ctx, domain.TableEquipment, created.ID())
	require.NoError(t, err)
	assert.Equal(t, "RTG-001", got["name"])
	assert.Equal(t, "A", got["meta"].(map[string]any)["zone"])
}

func TestStore_ExplicitIDsAdvanceSequence(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_, err := store.Insert(ctx, domain.TableMetrics, domain.Row{"id": float64(5), "metric_type": "efficiency"})
	require.NoError(t, err)
	next, err := store.Insert(ctx, domain.TableMetrics, domain.Row{"metric_type": "occupancy"})
	require.NoError(t, err)
	assert.Equal(t, "6", next.ID())

	_, err = store.Insert(ctx, domain.TableMetrics, domain.Row{"id": "6"})
	assert.Error(t, err, "duplicate ids are rejected")

	_, err = store.Insert(ctx, domain.TableUsers, domain.Row{"id": "9b2f7c1e-uuid", "email": "a@port.ma"})
	require.NoError(t, err)
	got, err := store.Get(ctx, domain.TableUsers, "9b2f7c1e-uuid")
	require.NoError(t, err)
	assert.Equal(t, "a@port.ma", got["email"])
}

func TestStore_ListQuery(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for _, status := range []string{"docked", "approaching", "docked", "departing"} {
		_, err := store.Insert(ctx, domain.TableVessels, domain.Row{"name": "v-" + status, "status": status})
		require.NoError(t, err)
	}

	all, err := store.List(ctx, domain.TableVessels, domain.Query{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "1", all[0].ID())
	assert.Equal(t, "4", all[3].ID())

	docked, err := store.List(ctx, domain.TableVessels, domain.Query{Filters: []domain.Filter{domain.Eq("status", "docked")}})
	require.NoError(t, err)
	assert.Len(t, docked, 2)

	latest, err := store.List(ctx, domain.TableVessels, domain.Query{OrderBy: "id", Descending: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "4", latest[0].ID())

	empty, err := store.List(ctx, domain.TableCustoms, domain.Query{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestStore_WhereOperations(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for _, user := range []string{"u1", "u2", "u1"} {
		_, err := store.Insert(ctx, domain.TableTeamAssignments, domain.Row{"user_id": user, "zone_id": 1, "status": "online"})
		require.NoError(t, err)
	}

	n, err := store.UpdateWhere(ctx, domain.TableTeamAssignments, []domain.Filter{domain.Eq("user_id", "u1")}, domain.Row{"zone_id": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	moved, err := store.List(ctx, domain.TableTeamAssignments, domain.Query{Filters: []domain.Filter{domain.Eq("zone_id", "3")}})
	require.NoError(t, err)
	assert.Len(t, moved, 2)

	n, err = store.DeleteWhere(ctx, domain.TableTeamAssignments, []domain.Filter{domain.Eq("user_id", "u1")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rest, err := store.List(ctx, domain.TableTeamAssignments, domain.Query{})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "u2", rest[0]["user_id"])

	n, err = store.DeleteWhere(ctx, domain.TableZones, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.Close())
}
