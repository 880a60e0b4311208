//go:build integration

package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/wellness/internal/events"
)

func TestAuditHandlerStoresEvent(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("wellness"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
		postgrescontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	handler := NewAuditHandler(pool)
	require.NoError(t, handler.EnsureSchema(ctx))

	evt, err := events.NewRecordChanged("workouts", "user-1", events.ActionCreated, 99, map[string]string{"titulo": "Yoga"}, time.Now())
	require.NoError(t, err)
	raw, err := events.Encode(evt)
	require.NoError(t, err)
	raw.Topic = events.DefaultTopic
	msg, err := decodeMessage(raw)
	require.NoError(t, err)

	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg), "redelivery is idempotent")

	var (
		count    int
		domain   string
		recordID int64
	)
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM record_event_log`).Scan(&count))
	require.Equal(t, 1, count)
	require.NoError(t, pool.QueryRow(ctx, `SELECT domain, record_id FROM record_event_log WHERE event_id = $1`, evt.EventID).Scan(&domain, &recordID))
	require.Equal(t, "workouts", domain)
	require.Equal(t, int64(99), recordID)
}
