// Package dealstore holds the session's authoritative list of deals and the
// HTTP client that fetches them.
package dealstore

import (
	"context"
	"log/slog"
	"sync"

	"dealsmap/models"
)

// Status distinguishes "still loading" from "loaded, possibly empty".
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Fetcher is the listing endpoint.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]models.Deal, error)
}

// Store owns the raw deal list. A load replaces the list wholesale.
type Store struct {
	fetcher Fetcher

	mu     sync.RWMutex
	deals  []models.Deal
	status Status
	err    error
}

// New returns an idle store that loads through f.
func New(f Fetcher) *Store {
	return &Store{fetcher: f}
}

// Load fetches the full list once. On failure the list becomes empty and the
// status is StatusFailed; the error is also returned to the caller.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.status = StatusLoading
	s.err = nil
	s.mu.Unlock()

	deals, err := s.fetcher.FetchAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		slog.Warn("Error fetching deals", "error", err)
		s.deals = nil
		s.status = StatusFailed
		s.err = err
		return err
	}
	s.deals = deals
	s.status = StatusLoaded
	return nil
}

// Deals returns a copy of the current list.
func (s *Store) Deals() []models.Deal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Deal, len(s.deals))
	copy(out, s.deals)
	return out
}

// Status returns the state of the last load.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the error from the last failed load.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Done reports whether loading has finished, successfully or not.
func (s *Store) Done() bool {
	st := s.Status()
	return st == StatusLoaded || st == StatusFailed
}
