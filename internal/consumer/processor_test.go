package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"example.com/wellness/internal/events"
)

func recordEventMessage(t *testing.T, offset int64) kafka.Message {
	t.Helper()
	evt, err := events.NewRecordChanged("sleep", "user-1", events.ActionCreated, 1736150400000, map[string]any{"duration": 7.5}, time.Now())
	require.NoError(t, err)
	msg, err := events.Encode(evt)
	require.NoError(t, err)
	msg.Topic = events.DefaultTopic
	msg.Offset = offset
	return msg
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{recordEventMessage(t, 10)},
		after:    contextCanceled,
	}
	handler := &stubHandler{}
	logger, _ := test.NewNullLogger()

	processor := NewProcessor(reader, handler, WithLogger(logger))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "wellness.record.created", handler.last.EventType)
	require.Equal(t, "user-1", handler.last.UserID)
	require.Equal(t, "sleep", handler.last.Domain)
	require.Equal(t, int64(1736150400000), handler.last.Event.RecordID)
	require.JSONEq(t, `{"duration":7.5}`, string(handler.last.Event.Record))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{recordEventMessage(t, 20)},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: errors.New("boom")}
	logger, hook := test.NewNullLogger()

	processor := NewProcessor(reader, handler, WithLogger(logger))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
	require.Equal(t, "handler error", hook.LastEntry().Message)
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mismatched := recordEventMessage(t, 32)
	mismatched.Headers[0].Value = []byte("wellness.record.deleted")

	reader := &stubReader{
		messages: []kafka.Message{
			{Topic: events.DefaultTopic, Offset: 30, Value: []byte(`{"event_id":"x"}`)},
			{Topic: events.DefaultTopic, Offset: 31, Value: []byte(`not json`), Headers: []kafka.Header{{Key: "event_type", Value: []byte("wellness.record.created")}}},
			mismatched,
		},
		after: contextCanceled,
	}
	handler := &stubHandler{}
	logger, _ := test.NewNullLogger()

	err := NewProcessor(reader, handler, WithLogger(logger)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, handler.calls)
	require.Equal(t, 3, reader.commitCalls)
}

func TestAuditHandlerInsertsRow(t *testing.T) {
	db := &stubExecer{}
	handler := NewAuditHandler(db)

	msg, err := decodeMessage(recordEventMessage(t, 5))
	require.NoError(t, err)
	require.NoError(t, handler.Handle(context.Background(), msg))

	require.Len(t, db.calls, 1)
	args := db.calls[0]
	require.Equal(t, msg.Event.EventID, args[0])
	require.Equal(t, "wellness.record.created", args[1])
	require.Equal(t, "sleep", args[2])
	require.Equal(t, "user-1", args[3])
	require.Equal(t, "created", args[4])
	require.Equal(t, int64(5), args[8])

	db.err = errors.New("connection reset")
	require.ErrorIs(t, handler.Handle(context.Background(), msg), db.err)
}

func TestAuditHandlerNullRecordIDOnReset(t *testing.T) {
	db := &stubExecer{}
	evt, err := events.NewRecordChanged("nutrition", "user-2", events.ActionReset, 0, nil, time.Now())
	require.NoError(t, err)
	raw, err := events.Encode(evt)
	require.NoError(t, err)
	msg, err := decodeMessage(raw)
	require.NoError(t, err)

	require.NoError(t, NewAuditHandler(db).Handle(context.Background(), msg))
	require.Nil(t, db.calls[0][5])
}

type stubExecer struct {
	calls [][]any
	err   error
}

func (s *stubExecer) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	if s.err != nil {
		return pgconn.CommandTag{}, s.err
	}
	s.calls = append(s.calls, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}
