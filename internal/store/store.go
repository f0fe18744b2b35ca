// Package store holds the transient session state: an insertion-ordered
// collection of notice records plus the single active selection. It is the
// source of truth the renderer and viewport synchronizer derive from; both
// subscribe and re-derive on every mutation.
package store

import (
	"sync"

	"github.com/avgeo/notam-studio/internal/model"
)

// Store is an observable, insertion-ordered record collection.
// All mutations notify subscribers after the store is consistent again, so
// observers never read a mid-mutation snapshot.
type Store struct {
	mu       sync.RWMutex
	records  []model.Record
	selected string
	subs     []func()
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Subscribe registers fn to run after every mutation. Subscribers are
// invoked outside the store lock and may read the store freely.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

// Add appends records in order. No dedup is performed; records sharing
// extracted identifiers stay distinct by internal id.
func (s *Store) Add(records []model.Record) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	s.records = append(s.records, records...)
	s.mu.Unlock()
	s.notify()
}

// Remove deletes the record with the given id, preserving the order of all
// others. Removing an absent id is a no-op. If the removed record was
// selected, the selection is cleared.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	idx := -1
	for i, r := range s.records {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	if s.selected == id {
		s.selected = ""
	}
	s.mu.Unlock()
	s.notify()
}

// ToggleVisibility flips the visible flag of the record with the given id.
// No-op when the id is absent.
func (s *Store) ToggleVisibility(id string) {
	s.mu.Lock()
	found := false
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Visible = !s.records[i].Visible
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.notify()
	}
}

// Select marks the record with the given id as the active selection.
// Re-selecting the current id still notifies so the viewport re-fits.
func (s *Store) Select(id string) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
	s.notify()
}

// Selected returns the active selection id, or "" when nothing is selected.
func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// All returns a copy of the records in insertion order.
func (s *Store) All() []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (model.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return model.Record{}, false
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
