//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/blues/liftoff/internal/event"
	"github.com/blues/liftoff/internal/logic"
	"github.com/blues/liftoff/internal/model"
	"github.com/blues/liftoff/internal/wad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// setupTestDB 启动 PostgreSQL 容器并完成迁移
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("liftoff"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	db, err := Open(dsn)
	require.NoError(t, err)
	return db
}

func TestJournalLifecycle(t *testing.T) {
	db := setupTestDB(t)
	j := NewJournal(db)
	ctx := context.Background()

	launch := event.New(event.RaiseLaunched, 0, dev, wad.Ether("2000"), now).
		With("name", "Lift Token").
		With("symbol", "LIFT").
		With("token", token).
		With("start_time", now).
		With("end_time", now.Add(24*time.Hour)).
		With("soft_cap", wad.Ether("500")).
		With("hard_cap", wad.Ether("2000")).
		With("fixed_rate", wad.Ether("10"))
	require.NoError(t, j.Process(ctx, launch))

	ignite := event.New(event.Ignited, 0, alice, wad.Ether("1000"), now.Add(time.Minute)).
		With("payer", alice).
		With("total_ignited", wad.Ether("1000"))
	require.NoError(t, j.Process(ctx, ignite))

	spark := event.New(event.Sparked, 0, dev, wad.Ether("1000"), now.Add(time.Hour)).
		With("total_supply", wad.Ether("14285.714")).
		With("reward_supply", wad.Ether("10000")).
		With("pair", token)
	require.NoError(t, j.Process(ctx, spark))
	require.NoError(t, j.Process(ctx, event.New(event.InsuranceRegistered, 0, dev, nil, now.Add(time.Hour))))
	require.NoError(t, j.Process(ctx, event.New(event.BaseFeeClaimed, 0, dev, wad.Ether("20"), now.Add(2*time.Hour))))

	// 同一事件重复写入会触发唯一索引
	assert.Error(t, j.Process(ctx, ignite))

	raises := logic.NewRaiseLogic(db)
	raise, err := raises.GetRaise(0)
	require.NoError(t, err)
	assert.Equal(t, model.RaiseStatusSparked, raise.Status)
	assert.Equal(t, "1000", raise.TotalIgnited.String())
	assert.Equal(t, "10000", raise.RewardSupply.String())

	ignitions, total, err := raises.GetUserIgnitions(alice.Hex(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "1000", ignitions[0].Amount.String())

	claims, total, err := logic.NewInsuranceLogic(db).GetClaims(0, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, model.ClaimKindBaseFee, claims[0].Kind)

	raiseId := uint64(0)
	events, total, err := logic.NewEventLogic(db).GetEvents(&raiseId, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, string(event.BaseFeeClaimed), events[0].EventType)
}
