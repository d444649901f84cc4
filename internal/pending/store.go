// Package pending is the single source of truth for outstanding job records.
// Records live here from request until eviction: explicit removal after the
// post-execution grace period, or sweep removal at expiry.
//
// Operations on the same job id are linearized through a per-record mutex;
// operations on different ids do not contend beyond a brief map lookup. Read
// paths other than Peek treat an expired record as absent and evict it lazily,
// so expiry takes effect before the sweeper runs.
package pending

import (
	"errors"
	"sync"
	"time"

	"github.com/x402dev/paygate/internal/catalog"
)

var (
	// ErrNotFound is returned when no record exists for a job id
	ErrNotFound = errors.New("job not found")

	// ErrExpired is returned when a record's payment window has elapsed
	ErrExpired = errors.New("payment window expired")

	// ErrAlreadyPaid is returned by MarkPaid when the record is already paid
	ErrAlreadyPaid = errors.New("job already paid")

	// ErrPaymentRequired is returned by ClaimExecution on an unpaid record
	ErrPaymentRequired = errors.New("payment required")

	// ErrAlreadyExecuted is returned by ClaimExecution when execution has
	// already begun for the record
	ErrAlreadyExecuted = errors.New("job already executed")
)

// Record is one outstanding job request. Price and Expiry are immutable after
// insertion; Paid and Executed transition false→true at most once.
type Record struct {
	JobID    string
	JobType  string
	Params   map[string]any
	Payer    string
	Price    int64
	Expiry   time.Time
	Paid     bool
	TxHash   string
	Executed bool
	Job      catalog.Job
}

type entry struct {
	mu  sync.Mutex
	rec Record
}

// Store is a concurrent map of job id to record
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
	}
}

// Put inserts a record, replacing any existing record for the same job id.
// Replacement is intentional: a client that received a challenge resubmits
// the same job id with an inline payment proof.
func (s *Store) Put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[rec.JobID] = &entry{rec: rec}
}

// View returns a snapshot of the record without mutating lifecycle state.
// An expired record is evicted and reported as ErrExpired.
func (s *Store) View(jobID string, now time.Time) (Record, error) {
	e := s.lookup(jobID)
	if e == nil {
		return Record{}, ErrNotFound
	}

	e.mu.Lock()
	rec := e.rec
	e.mu.Unlock()

	if now.After(rec.Expiry) {
		s.removeEntry(jobID, e)
		return Record{}, ErrExpired
	}

	return rec, nil
}

// Peek returns a snapshot without evicting an expired record. Used by the
// read-only status path; the sweeper remains responsible for removal.
func (s *Store) Peek(jobID string, now time.Time) (Record, error) {
	e := s.lookup(jobID)
	if e == nil {
		return Record{}, ErrNotFound
	}

	e.mu.Lock()
	rec := e.rec
	e.mu.Unlock()

	if now.After(rec.Expiry) {
		return Record{}, ErrExpired
	}

	return rec, nil
}

// MarkPaid transitions a record to paid, recording the settling transaction
// hash. Returns ErrAlreadyPaid with the existing snapshot when the record is
// already paid, so callers can answer idempotently.
func (s *Store) MarkPaid(jobID, txHash string, now time.Time) (Record, error) {
	e := s.lookup(jobID)
	if e == nil {
		return Record{}, ErrNotFound
	}

	e.mu.Lock()
	if now.After(e.rec.Expiry) {
		e.mu.Unlock()
		s.removeEntry(jobID, e)
		return Record{}, ErrExpired
	}

	if e.rec.Paid {
		rec := e.rec
		e.mu.Unlock()
		return rec, ErrAlreadyPaid
	}

	e.rec.Paid = true
	e.rec.TxHash = txHash
	rec := e.rec
	e.mu.Unlock()

	return rec, nil
}

// ClaimExecution marks a paid record as executed and returns it. Exactly one
// concurrent caller succeeds; the expiry check precedes the payment check.
func (s *Store) ClaimExecution(jobID string, now time.Time) (Record, error) {
	e := s.lookup(jobID)
	if e == nil {
		return Record{}, ErrNotFound
	}

	e.mu.Lock()
	if now.After(e.rec.Expiry) {
		e.mu.Unlock()
		s.removeEntry(jobID, e)
		return Record{}, ErrExpired
	}

	if !e.rec.Paid {
		e.mu.Unlock()
		return Record{}, ErrPaymentRequired
	}

	if e.rec.Executed {
		e.mu.Unlock()
		return Record{}, ErrAlreadyExecuted
	}

	e.rec.Executed = true
	rec := e.rec
	e.mu.Unlock()

	return rec, nil
}

// Remove deletes a record. Removing an absent record is a no-op, so deferred
// cleanup and the sweeper may race harmlessly.
func (s *Store) Remove(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, jobID)
}

// SweepExpired removes every record whose expiry has passed and returns the
// evicted job ids.
func (s *Store) SweepExpired(now time.Time) []string {
	type candidate struct {
		jobID string
		e     *entry
	}

	s.mu.RLock()
	candidates := make([]candidate, 0)
	for jobID, e := range s.entries {
		candidates = append(candidates, candidate{jobID: jobID, e: e})
	}
	s.mu.RUnlock()

	var evicted []string
	for _, c := range candidates {
		c.e.mu.Lock()
		expired := now.After(c.e.rec.Expiry)
		c.e.mu.Unlock()

		if expired {
			s.removeEntry(c.jobID, c.e)
			evicted = append(evicted, c.jobID)
		}
	}

	return evicted
}

// Len returns the number of records currently held
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) lookup(jobID string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[jobID]
}

// removeEntry deletes the mapping only if it still points at e, so a lazy
// eviction never removes a record that replaced the expired one.
func (s *Store) removeEntry(jobID string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[jobID] == e {
		delete(s.entries, jobID)
	}
}
