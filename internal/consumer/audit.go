package consumer

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgxpool.Pool and *pgx.Conn.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS record_event_log (
    event_id      UUID PRIMARY KEY,
    event_type    TEXT NOT NULL,
    domain        TEXT NOT NULL,
    user_id       TEXT NOT NULL,
    action        TEXT NOT NULL,
    record_id     BIGINT,
    topic         TEXT NOT NULL,
    partition     INTEGER NOT NULL,
    record_offset BIGINT NOT NULL,
    payload       JSONB NOT NULL,
    occurred_at   TIMESTAMPTZ NOT NULL,
    received_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var auditInsert = sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
	Insert("record_event_log").
	Columns("event_id", "event_type", "domain", "user_id", "action", "record_id",
		"topic", "partition", "record_offset", "payload", "occurred_at").
	Suffix("ON CONFLICT (event_id) DO NOTHING")

// AuditHandler writes consumed events into Postgres.
type AuditHandler struct {
	db Execer
}

// NewAuditHandler constructs a handler backed by db.
func NewAuditHandler(db Execer) *AuditHandler {
	return &AuditHandler{db: db}
}

// EnsureSchema creates the audit table when missing.
func (h *AuditHandler) EnsureSchema(ctx context.Context) error {
	if _, err := h.db.Exec(ctx, auditSchema); err != nil {
		return fmt.Errorf("create record_event_log: %w", err)
	}
	return nil
}

// Handle stores the event in record_event_log. Redelivered events are ignored.
func (h *AuditHandler) Handle(ctx context.Context, msg Message) error {
	var recordID *int64
	if msg.Event.RecordID != 0 {
		id := msg.Event.RecordID
		recordID = &id
	}
	domain := msg.Domain
	if domain == "" {
		domain = msg.Event.Domain
	}
	userID := msg.UserID
	if userID == "" {
		userID = msg.Event.UserID
	}

	query, args, err := auditInsert.
		Values(
			msg.Event.EventID,
			msg.EventType,
			domain,
			userID,
			string(msg.Event.Action),
			recordID,
			msg.Topic,
			msg.Partition,
			msg.Offset,
			[]byte(msg.Payload),
			msg.Event.OccurredAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	_, err = h.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert audit row %s: %w", msg.Event.EventID, err)
	}
	return nil
}
