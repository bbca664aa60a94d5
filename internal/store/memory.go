package store

import (
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/city-weather-search/internal/weather"
)

// SearchHistory holds one visitor's searches in insertion order.
type SearchHistory struct {
	mu      sync.Mutex
	Entries []weather.SearchEntry
}

// MemoryStore is a concurrency-safe in-memory search store: per-visitor
// history plus global per-city counters. State lives until process exit.
type MemoryStore struct {
	clock clockwork.Clock

	// key: visitor id, value: history (each guarded by its own mutex)
	historyMu sync.RWMutex
	histories map[string]*SearchHistory

	// key: lowercase city, value: count; cityOrder keeps first-seen order
	statsMu   sync.Mutex
	cityStats map[string]int
	cityOrder []string

	// retention configuration
	maxHistory int // max entries per visitor (0 = unlimited)
}

// NewMemoryStore creates a new MemoryStore.
// If maxHistory is <= 0, visitor histories grow without bound.
func NewMemoryStore(clock clockwork.Clock, maxHistory int) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		clock:      clock,
		histories:  make(map[string]*SearchHistory),
		cityStats:  make(map[string]int),
		maxHistory: maxHistory,
	}
}

// NormalizeCity is the counter key for a city: lowercase, otherwise as typed.
func NormalizeCity(city string) string {
	return strings.ToLower(city)
}

// Record appends a search to the visitor's history and bumps the city counter.
func (s *MemoryStore) Record(visitorID, city string, days int) {
	entry := weather.SearchEntry{
		City:      city,
		Days:      days,
		Timestamp: s.clock.Now().UTC(),
	}

	history := s.historyFor(visitorID)
	history.mu.Lock()
	history.Entries = append(history.Entries, entry)
	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Entries) > s.maxHistory {
		over := len(history.Entries) - s.maxHistory
		history.Entries = history.Entries[over:]
	}
	history.mu.Unlock()

	key := NormalizeCity(city)
	s.statsMu.Lock()
	if _, ok := s.cityStats[key]; !ok {
		s.cityOrder = append(s.cityOrder, key)
	}
	s.cityStats[key]++
	s.statsMu.Unlock()
}

func (s *MemoryStore) historyFor(visitorID string) *SearchHistory {
	s.historyMu.RLock()
	history, ok := s.histories[visitorID]
	s.historyMu.RUnlock()
	if ok {
		return history
	}

	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	if history, ok = s.histories[visitorID]; !ok {
		history = &SearchHistory{}
		s.histories[visitorID] = history
	}
	return history
}

// HistoryOf returns a copy of the visitor's history, oldest first.
// Unknown visitors get an empty, non-nil slice.
func (s *MemoryStore) HistoryOf(visitorID string) []weather.SearchEntry {
	s.historyMu.RLock()
	history, ok := s.histories[visitorID]
	s.historyMu.RUnlock()
	if !ok {
		return []weather.SearchEntry{}
	}

	history.mu.Lock()
	defer history.mu.Unlock()
	out := make([]weather.SearchEntry, len(history.Entries))
	copy(out, history.Entries)
	return out
}

// StatsSnapshot returns totals and a copy of the per-city counters. Ties for
// most popular go to the city that was searched first.
func (s *MemoryStore) StatsSnapshot() weather.StatsSnapshot {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	snapshot := weather.StatsSnapshot{
		PerCity: make(map[string]int, len(s.cityStats)),
	}
	for _, city := range s.cityOrder {
		count := s.cityStats[city]
		snapshot.PerCity[city] = count
		snapshot.TotalSearches += count
		if snapshot.MostPopular == nil || count > snapshot.MostPopular.Count {
			snapshot.MostPopular = &weather.CityCount{City: city, Count: count}
		}
	}
	return snapshot
}

// VisitorCount reports how many visitors have at least one recorded search.
func (s *MemoryStore) VisitorCount() int {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	return len(s.histories)
}
