package records

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/wellness/internal/kv"
	"example.com/wellness/internal/observability"
)

// Option configures optional behaviour for the Store.
type Option func(*options)

type options struct {
	logger logrus.FieldLogger
	clock  *IDClock
	domain string
}

// WithLogger overrides the logger used to report storage failures.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock overrides the id clock. Stores share one process-wide clock by default.
func WithClock(clock *IDClock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithDomain sets the domain label used in logs and metrics. Defaults to the slot key.
func WithDomain(domain string) Option {
	return func(o *options) {
		o.domain = domain
	}
}

// Store owns the persistence round-trip of one record list.
type Store[T Record[T]] struct {
	kv     kv.Store
	key    string
	seed   func() []T
	clock  *IDClock
	domain string
	logger logrus.FieldLogger

	mu     sync.Mutex
	items  []T
	issued uint64

	writeMu   sync.Mutex
	attempted uint64
	inflight  sync.WaitGroup
}

// New builds a Store over slot key of store. seed returns the first-run list.
func New[T Record[T]](store kv.Store, key string, seed func() []T, opts ...Option) *Store[T] {
	o := options{
		logger: logrus.StandardLogger(),
		clock:  processClock,
		domain: key,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		kv:     store,
		key:    key,
		seed:   seed,
		clock:  o.clock,
		domain: o.domain,
		logger: o.logger.WithFields(logrus.Fields{"domain": o.domain, "slot": key}),
	}
}

// Key is the storage slot this store synchronises.
func (s *Store[T]) Key() string {
	return s.key
}

// Seed returns a fresh copy of the first-run list.
func (s *Store[T]) Seed() []T {
	return clone(s.seed())
}

// Snapshot returns a copy of the current in-memory list.
func (s *Store[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.items)
}

// Load reads the slot. An absent slot is seeded and the seed persisted. On read or decode
// failure the seed becomes the in-memory list and is returned together with an error
// wrapping ErrStorageRead or ErrCorruptState; the stored blob is left untouched.
func (s *Store[T]) Load(ctx context.Context) ([]T, error) {
	raw, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		observability.RecordSlotLoad(s.domain, observability.OutcomeFailed)
		s.logger.WithError(err).Warn("slot read failed, falling back to seed data")
		return s.useSeed(), fmt.Errorf("%w: %s: %w", ErrStorageRead, s.key, err)
	}

	if !found {
		observability.RecordSlotLoad(s.domain, observability.OutcomeSeeded)
		seed := s.Seed()
		s.observeIDs(seed)
		if err := s.ReplaceAndPersist(ctx, seed).Wait(ctx); err != nil {
			return clone(seed), err
		}
		s.logger.WithField("records", len(seed)).Info("slot seeded")
		return clone(seed), nil
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		observability.RecordSlotLoad(s.domain, observability.OutcomeCorrupt)
		s.logger.WithError(err).Warn("slot is corrupt, falling back to seed data")
		return s.useSeed(), fmt.Errorf("%w: %s: %w", ErrCorruptState, s.key, err)
	}
	if items == nil {
		items = []T{}
	}

	observability.RecordSlotLoad(s.domain, observability.OutcomeOK)
	s.observeIDs(items)
	s.mu.Lock()
	s.items = clone(items)
	s.mu.Unlock()
	return items, nil
}

// ReplaceAndPersist makes list the current list and overwrites the slot with it.
// The in-memory list changes immediately; the write completes in the background.
func (s *Store[T]) ReplaceAndPersist(ctx context.Context, list []T) *PendingWrite {
	pw, _ := s.mutate(ctx, func([]T) ([]T, bool) {
		return clone(list), true
	})
	return pw
}

// Add appends record under a freshly assigned id.
func (s *Store[T]) Add(ctx context.Context, record T) (T, *PendingWrite) {
	added := record.WithRecordID(s.clock.Next())
	pw, _ := s.mutate(ctx, func(current []T) ([]T, bool) {
		return append(current, added), true
	})
	return added, pw
}

// Update replaces the record with id by patch(record). The id cannot be changed by patch.
// An unknown id is a silent no-op: no write is issued and ok is false.
func (s *Store[T]) Update(ctx context.Context, id int64, patch func(T) T) (pw *PendingWrite, ok bool) {
	return s.mutate(ctx, func(current []T) ([]T, bool) {
		for i, item := range current {
			if item.RecordID() == id {
				current[i] = patch(item).WithRecordID(id)
				return current, true
			}
		}
		return nil, false
	})
}

// Remove drops the record with id. An unknown id is a silent no-op.
func (s *Store[T]) Remove(ctx context.Context, id int64) (pw *PendingWrite, ok bool) {
	return s.mutate(ctx, func(current []T) ([]T, bool) {
		out := make([]T, 0, len(current))
		for _, item := range current {
			if item.RecordID() != id {
				out = append(out, item)
			}
		}
		if len(out) == len(current) {
			return nil, false
		}
		return out, true
	})
}

// Reset deletes the slot and loads again, which re-seeds it.
func (s *Store[T]) Reset(ctx context.Context) ([]T, error) {
	s.Flush()
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return s.Snapshot(), fmt.Errorf("%w: delete %s: %w", ErrStorageWrite, s.key, err)
	}
	return s.Load(ctx)
}

// Flush blocks until every issued write has settled.
func (s *Store[T]) Flush() {
	s.inflight.Wait()
}

func (s *Store[T]) mutate(ctx context.Context, fn func(current []T) ([]T, bool)) (*PendingWrite, bool) {
	s.mu.Lock()
	next, changed := fn(clone(s.items))
	if !changed {
		s.mu.Unlock()
		return nil, false
	}
	s.items = next
	s.issued++
	pw := newPendingWrite(s.issued)
	payload, err := json.Marshal(next)
	s.mu.Unlock()

	if err != nil {
		pw.settle(fmt.Errorf("%w: encode %s: %w", ErrStorageWrite, s.key, err), false)
		return pw, true
	}

	s.inflight.Add(1)
	go s.write(context.WithoutCancel(ctx), pw, string(payload))
	return pw, true
}

// write applies writes in issue order: a write reaching the backend after a later one
// has been attempted is skipped, so the last issued list always wins.
func (s *Store[T]) write(ctx context.Context, pw *PendingWrite, payload string) {
	defer s.inflight.Done()

	s.writeMu.Lock()
	if pw.seq < s.attempted {
		s.writeMu.Unlock()
		observability.RecordSlotWrite(s.domain, observability.OutcomeSuperseded, 0)
		pw.settle(nil, true)
		return
	}
	s.attempted = pw.seq
	start := time.Now()
	err := s.kv.Set(ctx, s.key, payload)
	s.writeMu.Unlock()

	if err != nil {
		observability.RecordSlotWrite(s.domain, observability.OutcomeFailed, time.Since(start))
		s.logger.WithError(err).WithField("seq", pw.seq).Error("slot write failed, in-memory list kept")
		pw.settle(fmt.Errorf("%w: %s: %w", ErrStorageWrite, s.key, err), false)
		return
	}
	observability.RecordSlotWrite(s.domain, observability.OutcomeOK, time.Since(start))
	pw.settle(nil, false)
}

func (s *Store[T]) useSeed() []T {
	seed := s.Seed()
	s.observeIDs(seed)
	s.mu.Lock()
	s.items = clone(seed)
	s.mu.Unlock()
	return seed
}

func (s *Store[T]) observeIDs(items []T) {
	for _, item := range items {
		s.clock.Observe(item.RecordID())
	}
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
