// Package storage owns the process-wide team statistics and the optional
// prediction history.
//
// State publishes immutable stats snapshots through an atomic pointer. Readers
// take the current snapshot once and use it for the whole request, so a reload
// running at the same time can never expose a half-built table. Reloads are
// serialized; a failed reload leaves the previous snapshot in place.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rewired-gh/cricketoracle/internal/logger"
	"github.com/rewired-gh/cricketoracle/internal/models"
	"github.com/rewired-gh/cricketoracle/internal/stats"
)

// ErrNotLoaded is returned before the first successful load.
var ErrNotLoaded = errors.New("team statistics have not been loaded")

// LoadFunc reads the match records from the dataset.
type LoadFunc func(ctx context.Context) ([]models.MatchRecord, error)

// State holds the current stats snapshot.
type State struct {
	source  string
	load    LoadFunc
	current atomic.Pointer[stats.Snapshot]
	mu      sync.Mutex // serializes reloads
}

// NewState creates an empty State. Call Reload to populate it.
func NewState(source string, load LoadFunc) *State {
	return &State{source: source, load: load}
}

// Source returns the dataset location this state loads from.
func (s *State) Source() string {
	return s.source
}

// Current returns the snapshot in effect, or ErrNotLoaded.
func (s *State) Current() (*stats.Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// Reload reads the dataset, builds a new snapshot and publishes it.
// On error the previous snapshot stays current.
func (s *State) Reload(ctx context.Context) (*stats.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload failed: %w", err)
	}

	snap := stats.NewSnapshot(s.source, records)
	if snap.Anomalies > 0 {
		logger.Warn("%d matches in %s name a winner that did not play", snap.Anomalies, s.source)
	}

	prev := s.current.Swap(snap)
	if prev != nil {
		logger.Info("Replaced snapshot %s with %s (%d teams, %d matches)", prev.ID, snap.ID, snap.Len(), snap.Matches)
	} else {
		logger.Info("Loaded snapshot %s (%d teams, %d matches)", snap.ID, snap.Len(), snap.Matches)
	}
	return snap, nil
}
