// Package index keeps the in-memory day index and keeps it in step with the
// vault.
//
// Store is the only owner of the day map. Synchronizer is its only writer:
// it applies vault lifecycle events through the per-mode dispatch table and
// notifies listeners when the index actually changed. Watch turns fsnotify
// events into those lifecycle events.
package index

import (
	"sort"
	"sync"

	"github.com/starford/daymark/internal/extract"
	"github.com/starford/daymark/internal/models"
)

// Store maps day keys (YYYY-MM-DD) to the items dated on that day, in
// insertion order. A day key exists only while its list is non-empty.
type Store struct {
	mu   sync.RWMutex
	days map[string][]models.Item
	size int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{days: make(map[string][]models.Item)}
}

// Rebuild replaces the whole index with entries. The new map is built
// before the lock is taken.
func (s *Store) Rebuild(entries []extract.Entry) {
	days := make(map[string][]models.Item)
	for _, e := range entries {
		days[e.Day] = append(days[e.Day], e.Item)
	}
	s.mu.Lock()
	s.days = days
	s.size = len(entries)
	s.mu.Unlock()
}

// Insert appends item to day's list, creating the list if absent. Callers
// are responsible for uniqueness (see Has).
func (s *Store) Insert(day string, item models.Item) {
	s.mu.Lock()
	s.days[day] = append(s.days[day], item)
	s.size++
	s.mu.Unlock()
}

// Has reports whether day already holds an item of the given kind from
// path.
func (s *Store) Has(day string, kind models.ItemKind, path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.days[day] {
		if it.Kind() == kind && it.Source() == path {
			return true
		}
	}
	return false
}

// RemoveByPath removes every item originating from path, on every day.
// It reports whether anything was removed.
func (s *Store) RemoveByPath(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for day, items := range s.days {
		kept := items[:0:0]
		for _, it := range items {
			if it.Source() == path {
				continue
			}
			kept = append(kept, it)
		}
		if len(kept) == len(items) {
			continue
		}
		removed += len(items) - len(kept)
		if len(kept) == 0 {
			delete(s.days, day)
		} else {
			s.days[day] = kept
		}
	}
	s.size -= removed
	return removed > 0
}

// Relocate rewrites NoteItems of oldPath in place to point at doc. Tag
// items are left alone. It reports whether anything was rewritten.
func (s *Store) Relocate(oldPath string, doc models.Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, items := range s.days {
		for i, it := range items {
			if n, ok := it.(models.NoteItem); ok && n.Path == oldPath {
				items[i] = models.NewNoteItem(doc)
				changed = true
			}
		}
	}
	return changed
}

// ItemsForDay returns a copy of the day's items, or nil when the day has
// none.
func (s *Store) ItemsForDay(day string) []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.days[day]
	if len(items) == 0 {
		return nil
	}
	out := make([]models.Item, len(items))
	copy(out, items)
	return out
}

// Days returns every day key in ascending order.
func (s *Store) Days() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.days))
	for day := range s.days {
		out = append(out, day)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Counts returns the number of items per day.
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.days))
	for day, items := range s.days {
		out[day] = len(items)
	}
	return out
}

// Snapshot returns a deep copy of the index.
func (s *Store) Snapshot() map[string][]models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]models.Item, len(s.days))
	for day, items := range s.days {
		cp := make([]models.Item, len(items))
		copy(cp, items)
		out[day] = cp
	}
	return out
}

// Len returns the total number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}
