package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portflow/internal/core"
	"portflow/internal/infra/persistence/memory"
	"portflow/pkg/domain"
)

func TestRunSeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	svc := core.NewService(memory.NewStore())
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	res, err := Run(ctx, svc, Options{Now: now}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, 4, res.Inserted[domain.TableZones])
	assert.Equal(t, 18, res.Inserted[domain.TableResourceUsage])

	cranes, err := svc.EquipmentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EquipmentStats{Total: 3, Active: 2}, cranes)

	customs, err := svc.CustomsStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "open", customs.Status)

	curve, err := svc.ResourceCurve(ctx)
	require.NoError(t, err)
	assert.Len(t, curve, 6)

	latest, err := svc.LatestPortStatus(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "operational", latest[0].String("status"))
}

func TestRunSkipsPopulatedTables(t *testing.T) {
	ctx := context.Background()
	svc := core.NewService(memory.NewStore())
	_, err := svc.Create(ctx, domain.TableVessels, domain.Row{"name": "Existing", "status": "docked"})
	require.NoError(t, err)

	res, err := Run(ctx, svc, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Table{domain.TableVessels}, res.Skipped)
	assert.Zero(t, res.Inserted[domain.TableVessels])

	again, err := Run(ctx, svc, Options{Force: true}, nil)
	require.NoError(t, err)
	assert.Empty(t, again.Skipped)
	vessels, err := svc.List(ctx, domain.TableVessels, domain.Query{})
	require.NoError(t, err)
	assert.Len(t, vessels, 4)
}
