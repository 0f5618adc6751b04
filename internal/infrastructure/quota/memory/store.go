// Package memory provides the process-scoped quota store. It is the single
// shared mutable resource of the quota core: one mutex guards every
// check-then-act so concurrent requests from the same client can never race
// past the cap.
package memory

import (
	"sync"

	"github.com/rekomendr/rekomendr/internal/domain/quota"
)

// dayRecord is the per (clientID, day) state: the number of counted chains
// and the set of chainIDs already counted, used to keep re-ends idempotent.
// The counted set never shrinks within a day.
type dayRecord struct {
	count         int
	countedChains map[string]struct{}
}

// Store implements outbound.QuotaStore and outbound.ChainStore. It is
// constructed explicitly and injected at the composition root so tests can
// run against isolated instances.
type Store struct {
	mu     sync.Mutex
	byDay  map[string]map[string]*dayRecord // clientID -> day -> record
	chains map[string]*quota.ChainState     // clientID -> active chain
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byDay:  make(map[string]map[string]*dayRecord),
		chains: make(map[string]*quota.ChainState),
	}
}

// ensure returns the record for (clientID, day), creating a zeroed one on
// first access. Callers must hold s.mu.
func (s *Store) ensure(clientID, day string) *dayRecord {
	days, ok := s.byDay[clientID]
	if !ok {
		days = make(map[string]*dayRecord)
		s.byDay[clientID] = days
	}
	rec, ok := days[day]
	if !ok {
		rec = &dayRecord{countedChains: make(map[string]struct{})}
		days[day] = rec
	}
	return rec
}

// GetCount reads the current count for a client and day bucket.
func (s *Store) GetCount(clientID, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure(clientID, day).count, nil
}

// Increment adds one unconditionally and returns the new count.
func (s *Store) Increment(clientID, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.ensure(clientID, day)
	rec.count++
	return rec.count, nil
}

// AllowAndIncrement increments only while under cap, atomically.
func (s *Store) AllowAndIncrement(clientID, day string, cap quota.Cap) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.ensure(clientID, day)
	if !cap.Allows(rec.count) {
		return false, rec.count, nil
	}
	rec.count++
	return true, rec.count, nil
}

// EndChain counts the chain at most once per chainID per day, and only
// while still under cap at the moment of counting.
func (s *Store) EndChain(clientID, day, chainID string, cap quota.Cap) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.ensure(clientID, day)
	if _, seen := rec.countedChains[chainID]; seen {
		return false, rec.count, nil
	}
	if !cap.Allows(rec.count) {
		return false, rec.count, nil
	}
	rec.count++
	rec.countedChains[chainID] = struct{}{}
	return true, rec.count, nil
}

// MarkChainCounted inserts the chainID into the counted set without
// touching the count, reporting whether it was newly marked.
func (s *Store) MarkChainCounted(clientID, day, chainID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.ensure(clientID, day)
	if _, seen := rec.countedChains[chainID]; seen {
		return false, nil
	}
	rec.countedChains[chainID] = struct{}{}
	return true, nil
}

// ResetDay zeroes a single day bucket. Dev/test utility.
func (s *Store) ResetDay(clientID, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if days, ok := s.byDay[clientID]; ok {
		delete(days, day)
	}
	return nil
}

// PutChain records the active chain for a client, superseding any previous
// one.
func (s *Store) PutChain(clientID string, chain *quota.ChainState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains[clientID] = chain
	return nil
}

// GetChain returns the active chain for a client, or nil when none is
// active.
func (s *Store) GetChain(clientID string) (*quota.ChainState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chains[clientID], nil
}

// DeleteChain clears the active chain pointer. Deleting an absent chain is
// a no-op.
func (s *Store) DeleteChain(clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chains, clientID)
	return nil
}
