package weather

import (
	"context"
)

// Geocoder resolves a free-text city name to a location (e.g. Nominatim).
type Geocoder interface {
	Resolve(ctx context.Context, cityName string) (GeoLocation, error)
}

// Forecaster fetches a raw daily series for coordinates (e.g. Open-Meteo).
type Forecaster interface {
	Fetch(ctx context.Context, latitude, longitude float64, forecastDays int) (RawDailySeries, error)
}

// Store is the contract the in-memory search store must satisfy.
type Store interface {
	Record(visitorID, city string, days int)
	HistoryOf(visitorID string) []SearchEntry
	StatsSnapshot() StatsSnapshot
	VisitorCount() int
}
