package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/i474232898/city-weather-search/internal/observability"
)

// Service orchestrates geocoding, forecasting and search bookkeeping.
type Service struct {
	geocoder   Geocoder
	forecaster Forecaster
	store      Store
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewService creates a new Service.
func NewService(geocoder Geocoder, forecaster Forecaster, store Store, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		geocoder:   geocoder,
		forecaster: forecaster,
		store:      store,
		metrics:    metrics,
		logger:     logger,
	}
}

// Search resolves the city, fetches and shapes its forecast, then records the
// search. Nothing is recorded unless every step succeeds and ctx is still live.
func (s *Service) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	l := s.logger.With(slog.String("city", req.CityName), slog.Int("days", req.ForecastDays))

	loc, err := s.geocoder.Resolve(ctx, req.CityName)
	if err != nil {
		s.fail(ctx, l, "geocoding failed", err)
		return SearchResult{}, fmt.Errorf("resolve %q: %w", req.CityName, err)
	}

	series, err := s.forecaster.Fetch(ctx, loc.Latitude, loc.Longitude, req.ForecastDays)
	if err != nil {
		s.fail(ctx, l, "forecast fetch failed", err)
		return SearchResult{}, fmt.Errorf("fetch forecast for %q: %w", req.CityName, err)
	}

	records, err := Shape(series, series.Dates)
	if err != nil {
		s.fail(ctx, l, "forecast shaping failed", err)
		return SearchResult{}, fmt.Errorf("shape forecast for %q: %w", req.CityName, err)
	}

	if err := ctx.Err(); err != nil {
		s.fail(ctx, l, "search aborted before recording", err)
		return SearchResult{}, err
	}

	s.store.Record(req.VisitorID, req.CityName, req.ForecastDays)
	s.metrics.Searches.WithLabelValues("recorded").Inc()
	l.DebugContext(ctx, "search recorded", slog.String("display_name", loc.DisplayName))

	return SearchResult{
		DisplayName:  loc.DisplayName,
		CityName:     req.CityName,
		ForecastDays: req.ForecastDays,
		WeatherData:  records,
		History:      s.store.HistoryOf(req.VisitorID),
	}, nil
}

// History returns the visitor's recorded searches in insertion order.
func (s *Service) History(visitorID string) []SearchEntry {
	return s.store.HistoryOf(visitorID)
}

// Stats returns a snapshot of the global city counters.
func (s *Service) Stats() StatsSnapshot {
	return s.store.StatsSnapshot()
}

// Visitors returns how many visitors have recorded at least one search.
func (s *Service) Visitors() int {
	return s.store.VisitorCount()
}

func (s *Service) fail(ctx context.Context, l *slog.Logger, msg string, err error) {
	outcome := failureOutcome(err)
	s.metrics.Searches.WithLabelValues(outcome).Inc()

	switch outcome {
	case "malformed", "unknown_code":
		l.ErrorContext(ctx, msg, "error", err)
	case "not_found", "aborted":
		l.InfoContext(ctx, msg, "error", err)
	default:
		l.WarnContext(ctx, msg, "error", err)
	}
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "aborted"
	case errors.Is(err, ErrCityNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrMisalignedSeries):
		return "malformed"
	case errors.Is(err, ErrUnknownWeatherCode):
		return "unknown_code"
	default:
		return "upstream_error"
	}
}
