package records

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"example.com/wellness/internal/kv"
)

type note struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

func (n note) RecordID() int64 { return n.ID }

func (n note) WithRecordID(id int64) note {
	n.ID = id
	return n
}

const slot = "@notes_list"

func seedNotes() []note {
	return []note{{ID: 1, Text: "first"}, {ID: 2, Text: "second"}}
}

type failingKV struct {
	kv.Store
	getErr error
	setErr error
}

func (f *failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, value)
}

// gatedKV blocks every Set until release is closed.
type gatedKV struct {
	kv.Store
	release chan struct{}
	mu      sync.Mutex
	sets    int
}

func (g *gatedKV) Set(ctx context.Context, key, value string) error {
	<-g.release
	g.mu.Lock()
	g.sets++
	g.mu.Unlock()
	return g.Store.Set(ctx, key, value)
}

func newStore(t *testing.T, backend kv.Store) *Store[note] {
	t.Helper()
	logger, _ := test.NewNullLogger()
	clock := NewIDClockAt(func() time.Time { return time.UnixMilli(1_000) })
	return New(backend, slot, seedNotes, WithLogger(logger), WithClock(clock), WithDomain("notes"))
}

func stored(t *testing.T, backend kv.Store) []note {
	t.Helper()
	raw, found, err := backend.Get(context.Background(), slot)
	require.NoError(t, err)
	require.True(t, found)
	var out []note
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestLoadSeedsAbsentSlot(t *testing.T) {
	backend := kv.NewMemoryStore()
	store := newStore(t, backend)

	list, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, seedNotes(), list)
	require.Equal(t, seedNotes(), stored(t, backend))
}

func TestLoadReturnsStoredList(t *testing.T) {
	backend := kv.NewMemoryStore()
	require.NoError(t, backend.Set(context.Background(), slot, `[{"id":42,"text":"kept"}]`))
	store := newStore(t, backend)

	list, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []note{{ID: 42, Text: "kept"}}, list)
	require.Equal(t, list, store.Snapshot())
}

func TestLoadEmptyListIsNotReseeded(t *testing.T) {
	backend := kv.NewMemoryStore()
	require.NoError(t, backend.Set(context.Background(), slot, `[]`))
	store := newStore(t, backend)

	list, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestLoadCorruptSlotFallsBackToSeed(t *testing.T) {
	backend := kv.NewMemoryStore()
	require.NoError(t, backend.Set(context.Background(), slot, `{not json`))
	logger, hook := test.NewNullLogger()
	store := New(backend, slot, seedNotes, WithLogger(logger))

	list, err := store.Load(context.Background())
	require.ErrorIs(t, err, ErrCorruptState)
	require.Equal(t, seedNotes(), list)
	require.Equal(t, seedNotes(), store.Snapshot())
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	raw, _, err := backend.Get(context.Background(), slot)
	require.NoError(t, err)
	require.Equal(t, `{not json`, raw, "corrupt blob must survive until the next mutation")
}

func TestLoadReadFailureFallsBackToSeed(t *testing.T) {
	backend := &failingKV{Store: kv.NewMemoryStore(), getErr: errors.New("disk gone")}
	store := newStore(t, backend)

	list, err := store.Load(context.Background())
	require.ErrorIs(t, err, ErrStorageRead)
	require.Equal(t, seedNotes(), list)
}

func TestRoundTripAcrossStores(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	first := newStore(t, backend)
	_, err := first.Load(ctx)
	require.NoError(t, err)

	want := []note{{ID: 10, Text: "a"}, {ID: 11, Text: "b"}}
	require.NoError(t, first.ReplaceAndPersist(ctx, want).Wait(ctx))

	second := newStore(t, backend)
	got, err := second.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestAddThenRemoveRestoresList(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	store := newStore(t, backend)
	before, err := store.Load(ctx)
	require.NoError(t, err)

	added, pw := store.Add(ctx, note{Text: "third"})
	require.NoError(t, pw.Wait(ctx))
	require.Greater(t, added.ID, int64(2))
	require.Len(t, store.Snapshot(), 3)
	require.Equal(t, added, store.Snapshot()[2])

	pw, ok := store.Remove(ctx, added.ID)
	require.True(t, ok)
	require.NoError(t, pw.Wait(ctx))
	require.Equal(t, before, store.Snapshot())
	require.Equal(t, before, stored(t, backend))
}

func TestUpdateKeepsIDAndPosition(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, kv.NewMemoryStore())
	_, err := store.Load(ctx)
	require.NoError(t, err)

	pw, ok := store.Update(ctx, 1, func(n note) note {
		n.Text = "edited"
		n.ID = 999
		return n
	})
	require.True(t, ok)
	require.NoError(t, pw.Wait(ctx))
	require.Equal(t, []note{{ID: 1, Text: "edited"}, {ID: 2, Text: "second"}}, store.Snapshot())
}

func TestUpdateAndRemoveUnknownIDAreNoOps(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	store := newStore(t, backend)
	_, err := store.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, backend.Set(ctx, slot, `"sentinel"`))

	pw, ok := store.Update(ctx, 999, func(n note) note { return n })
	require.False(t, ok)
	require.Nil(t, pw)
	require.NoError(t, pw.Wait(ctx))

	pw, ok = store.Remove(ctx, 999)
	require.False(t, ok)
	require.Nil(t, pw)

	store.Flush()
	raw, _, err := backend.Get(ctx, slot)
	require.NoError(t, err)
	require.Equal(t, `"sentinel"`, raw, "no write may be issued")
	require.Equal(t, seedNotes(), store.Snapshot())
}

func TestWriteFailureKeepsOptimisticList(t *testing.T) {
	ctx := context.Background()
	backend := &failingKV{Store: kv.NewMemoryStore()}
	store := newStore(t, backend)
	_, err := store.Load(ctx)
	require.NoError(t, err)

	backend.setErr = errors.New("quota exceeded")
	added, pw := store.Add(ctx, note{Text: "offline"})

	var callbackErr error
	done := make(chan struct{})
	pw.Then(func(err error) {
		callbackErr = err
		close(done)
	})
	<-done

	require.ErrorIs(t, pw.Err(), ErrStorageWrite)
	require.ErrorIs(t, callbackErr, ErrStorageWrite)
	require.Contains(t, store.Snapshot(), added)
	require.Equal(t, seedNotes(), stored(t, backend.Store))
}

func TestLastIssuedWriteWins(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, slot, `[]`))
	backend := &gatedKV{Store: mem, release: make(chan struct{})}
	store := newStore(t, backend)
	_, err := store.Load(ctx)
	require.NoError(t, err)

	var writes []*PendingWrite
	for _, text := range []string{"a", "b", "c"} {
		_, pw := store.Add(ctx, note{Text: text})
		writes = append(writes, pw)
	}
	close(backend.release)
	for _, pw := range writes {
		require.NoError(t, pw.Wait(ctx))
	}

	require.Equal(t, store.Snapshot(), stored(t, mem))
	require.Len(t, store.Snapshot(), 3)
	require.False(t, writes[2].Superseded())
	for i := 1; i < len(writes); i++ {
		require.Greater(t, writes[i].Seq(), writes[i-1].Seq())
	}
}

func TestResetReseeds(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	store := newStore(t, backend)
	_, err := store.Load(ctx)
	require.NoError(t, err)
	_, ok := store.Remove(ctx, 1)
	require.True(t, ok)

	list, err := store.Reset(ctx)
	require.NoError(t, err)
	require.Equal(t, seedNotes(), list)
	require.Equal(t, seedNotes(), stored(t, backend))
}

func TestIDClockIsStrictlyIncreasing(t *testing.T) {
	frozen := time.UnixMilli(5_000)
	clock := NewIDClockAt(func() time.Time { return frozen })

	first := clock.Next()
	second := clock.Next()
	require.Equal(t, int64(5_000), first)
	require.Equal(t, int64(5_001), second)

	clock.Observe(9_000)
	require.Equal(t, int64(9_001), clock.Next())

	clock.Observe(10)
	require.Equal(t, int64(9_002), clock.Next())
}

func TestSeedReturnsFreshCopy(t *testing.T) {
	store := newStore(t, kv.NewMemoryStore())
	seed := store.Seed()
	seed[0].Text = "mutated"
	require.Equal(t, "first", store.Seed()[0].Text)
}
