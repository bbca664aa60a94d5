package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_CountsCaseInsensitively(t *testing.T) {
	s := NewMemoryStore(nil, 0)

	s.Record("v1", "Paris", 3)
	s.Record("v2", "PARIS", 1)
	s.Record("v1", "paris", 7)
	s.Record("v1", "Berlin", 2)

	stats := s.StatsSnapshot()
	assert.Equal(t, 4, stats.TotalSearches)
	assert.Equal(t, map[string]int{"paris": 3, "berlin": 1}, stats.PerCity)
	require.NotNil(t, stats.MostPopular)
	assert.Equal(t, "paris", stats.MostPopular.City)
	assert.Equal(t, 3, stats.MostPopular.Count)

	// History keeps the city as typed.
	history := s.HistoryOf("v1")
	require.Len(t, history, 3)
	assert.Equal(t, "Paris", history[0].City)
	assert.Equal(t, "paris", history[1].City)
	assert.Equal(t, 7, history[1].Days)
	assert.Equal(t, "Berlin", history[2].City)
}

func TestRecord_ConcurrentWritersLoseNothing(t *testing.T) {
	s := NewMemoryStore(nil, 0)
	spellings := []string{"Paris", "paris", "PARIS", "pArIs"}

	const writers = 50
	const perWriter = 40

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			visitor := fmt.Sprintf("visitor-%d", w%5)
			for i := 0; i < perWriter; i++ {
				s.Record(visitor, spellings[(w+i)%len(spellings)], 1)
				_ = s.StatsSnapshot()
				_ = s.HistoryOf(visitor)
			}
		}(w)
	}
	wg.Wait()

	stats := s.StatsSnapshot()
	assert.Equal(t, writers*perWriter, stats.TotalSearches)
	assert.Equal(t, writers*perWriter, stats.PerCity["paris"])
	assert.Len(t, stats.PerCity, 1)
	assert.Equal(t, 5, s.VisitorCount())

	total := 0
	for v := 0; v < 5; v++ {
		total += len(s.HistoryOf(fmt.Sprintf("visitor-%d", v)))
	}
	assert.Equal(t, writers*perWriter, total)
}

func TestHistoryOf_InterleavedVisitorsKeepOwnOrder(t *testing.T) {
	s := NewMemoryStore(nil, 0)

	s.Record("a", "Lima", 1)
	s.Record("b", "Oslo", 2)
	s.Record("a", "Quito", 3)
	s.Record("b", "Cairo", 4)
	s.Record("a", "Perth", 5)

	var cities []string
	for _, e := range s.HistoryOf("a") {
		cities = append(cities, e.City)
	}
	assert.Equal(t, []string{"Lima", "Quito", "Perth"}, cities)

	cities = nil
	for _, e := range s.HistoryOf("b") {
		cities = append(cities, e.City)
	}
	assert.Equal(t, []string{"Oslo", "Cairo"}, cities)
}

func TestHistoryOf_UnknownVisitor(t *testing.T) {
	s := NewMemoryStore(nil, 0)

	history := s.HistoryOf("nobody")
	assert.NotNil(t, history)
	assert.Empty(t, history)
	assert.Equal(t, 0, s.VisitorCount())
}

func TestSnapshotsAreDetached(t *testing.T) {
	s := NewMemoryStore(nil, 0)
	s.Record("v", "Paris", 3)

	history := s.HistoryOf("v")
	stats := s.StatsSnapshot()

	history[0].City = "tampered"
	stats.PerCity["paris"] = 99
	s.Record("v", "Rome", 1)

	assert.Len(t, history, 1)
	assert.Equal(t, "Paris", s.HistoryOf("v")[0].City)
	assert.Equal(t, 1, s.StatsSnapshot().PerCity["paris"])
	_, seen := stats.PerCity["rome"]
	assert.False(t, seen)
}

func TestStatsSnapshot_Empty(t *testing.T) {
	s := NewMemoryStore(nil, 0)

	stats := s.StatsSnapshot()
	assert.Equal(t, 0, stats.TotalSearches)
	assert.NotNil(t, stats.PerCity)
	assert.Empty(t, stats.PerCity)
	assert.Nil(t, stats.MostPopular)
}

func TestStatsSnapshot_TieGoesToFirstSeen(t *testing.T) {
	s := NewMemoryStore(nil, 0)

	s.Record("v", "Tokyo", 1)
	s.Record("v", "Berlin", 1)
	s.Record("v", "Berlin", 1)
	s.Record("v", "Tokyo", 1)

	for i := 0; i < 10; i++ {
		stats := s.StatsSnapshot()
		require.NotNil(t, stats.MostPopular)
		assert.Equal(t, "tokyo", stats.MostPopular.City)
		assert.Equal(t, 2, stats.MostPopular.Count)
	}
}

func TestRecord_TimestampsFromClock(t *testing.T) {
	start := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	s := NewMemoryStore(clock, 0)

	s.Record("v", "Paris", 3)
	clock.Advance(90 * time.Second)
	s.Record("v", "Paris", 4)

	history := s.HistoryOf("v")
	require.Len(t, history, 2)
	assert.Equal(t, start, history[0].Timestamp)
	assert.Equal(t, start.Add(90*time.Second), history[1].Timestamp)
	assert.Equal(t, time.UTC, history[1].Timestamp.Location())
}

func TestRecord_MaxHistoryDropsOldest(t *testing.T) {
	s := NewMemoryStore(nil, 2)

	s.Record("v", "Lima", 1)
	s.Record("v", "Oslo", 1)
	s.Record("v", "Rome", 1)

	history := s.HistoryOf("v")
	require.Len(t, history, 2)
	assert.Equal(t, "Oslo", history[0].City)
	assert.Equal(t, "Rome", history[1].City)

	// Counters are not subject to history retention.
	assert.Equal(t, 3, s.StatsSnapshot().TotalSearches)
}

func TestNormalizeCity(t *testing.T) {
	assert.Equal(t, "new york", NormalizeCity("New York"))
	assert.Equal(t, " paris ", NormalizeCity(" PARIS "))
}
