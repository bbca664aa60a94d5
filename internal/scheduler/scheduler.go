package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/city-weather-search/internal/observability"
	"github.com/i474232898/city-weather-search/internal/weather"
)

// StatsSource is the read side of the search store the reporter needs.
type StatsSource interface {
	Stats() weather.StatsSnapshot
	Visitors() int
}

// Scheduler periodically publishes search statistics as gauges and logs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	source    StatsSource
	metrics   *observability.Metrics
	logger    *slog.Logger
	interval  time.Duration
}

// New creates a new Scheduler.
func New(interval time.Duration, source StatsSource, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		source:    source,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
	}
}

// Start schedules the report job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.Report)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Report refreshes the aggregator gauges from a fresh snapshot.
func (s *Scheduler) Report() {
	stats := s.source.Stats()
	visitors := s.source.Visitors()

	s.metrics.TotalSearches.Set(float64(stats.TotalSearches))
	s.metrics.TrackedCities.Set(float64(len(stats.PerCity)))
	s.metrics.TrackedVisitors.Set(float64(visitors))

	attrs := []any{
		"total_searches", stats.TotalSearches,
		"cities", len(stats.PerCity),
		"visitors", visitors,
	}
	if stats.MostPopular != nil {
		attrs = append(attrs, "most_popular", stats.MostPopular.City, "most_popular_count", stats.MostPopular.Count)
	}
	s.logger.Info("search stats", attrs...)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
