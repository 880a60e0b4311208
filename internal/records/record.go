// Package records synchronises an in-memory ordered record list with one key-value slot.
//
// Every mutation is expressed as "compute the new full list, overwrite the slot": there is
// no partial write, so from the caller's point of view memory and storage always hold
// either the old list or the new one.
package records

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrCorruptState indicates the stored blob could not be decoded; the seed list is used instead.
	ErrCorruptState = errors.New("stored record list is corrupt")
	// ErrStorageRead indicates the slot could not be read.
	ErrStorageRead = errors.New("record storage read failed")
	// ErrStorageWrite indicates the slot could not be written.
	ErrStorageWrite = errors.New("record storage write failed")
	// ErrRecordNotFound is returned by callers that need a record to exist (e.g. opening an edit form).
	// Update and Remove never return it.
	ErrRecordNotFound = errors.New("record not found")
)

// Record is implemented by every persisted entity. WithRecordID returns a copy carrying id.
type Record[T any] interface {
	RecordID() int64
	WithRecordID(id int64) T
}

// IDClock hands out record ids derived from the wall clock in milliseconds.
// Ids are strictly increasing for the lifetime of the clock, even when the wall clock
// stalls or steps backwards.
type IDClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDClock returns a clock reading time.Now.
func NewIDClock() *IDClock {
	return &IDClock{now: time.Now}
}

// NewIDClockAt returns a clock reading now; used by tests.
func NewIDClockAt(now func() time.Time) *IDClock {
	return &IDClock{now: now}
}

var processClock = NewIDClock()

// Next returns a fresh id greater than every id previously returned or observed.
func (c *IDClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.now().UnixMilli()
	if id <= c.last {
		id = c.last + 1
	}
	c.last = id
	return id
}

// Observe raises the floor so ids loaded from storage are never reissued.
func (c *IDClock) Observe(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id > c.last {
		c.last = id
	}
}
