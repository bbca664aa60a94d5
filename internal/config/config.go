package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port      string
	LogLevel  string
	LogFormat string

	// HTTPTimeout bounds each outbound upstream call,
	// RequestTimeout a whole search (geocoding + forecast).
	HTTPTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Nominatim geocoding.
	NominatimURL       string
	NominatimUserAgent string
	NominatimLanguage  string

	// Open-Meteo forecast.
	OpenMeteoURL           string
	ForecastDailyVariables []string
	ForecastMaxDays        int

	// In-memory store retention.
	StoreMaxHistory int // max searches kept per visitor (0 = unlimited)

	// StatsReportInterval controls how often aggregator gauges are refreshed.
	StatsReportInterval time.Duration

	VisitorCookieMaxAge time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{
		Port:               getenvDefault("PORT", "8080"),
		LogLevel:           getenvDefault("LOG_LEVEL", "info"),
		LogFormat:          getenvDefault("LOG_FORMAT", "json"),
		NominatimURL:       strings.TrimRight(getenvDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"), "/"),
		NominatimUserAgent: getenvDefault("NOMINATIM_USER_AGENT", "city-weather-search/1.0"),
		NominatimLanguage:  getenvDefault("NOMINATIM_LANGUAGE", "en"),
		OpenMeteoURL:       getenvDefault("OPEN_METEO_URL", "https://api.open-meteo.com/v1/forecast"),
	}
	cfg.ForecastDailyVariables = splitList(getenvDefault("FORECAST_DAILY_VARIABLES",
		"weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,wind_speed_10m_max"))

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getenvDuration("REQUEST_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.StatsReportInterval, err = getenvDuration("STATS_REPORT_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if cfg.VisitorCookieMaxAge, err = getenvDuration("VISITOR_COOKIE_MAX_AGE", "8760h"); err != nil {
		return nil, err
	}

	if cfg.ForecastMaxDays, err = getenvInt("FORECAST_MAX_DAYS", 16); err != nil {
		return nil, err
	}
	if cfg.ForecastMaxDays < 1 {
		return nil, fmt.Errorf("invalid FORECAST_MAX_DAYS: must be at least 1")
	}
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", 0); err != nil {
		return nil, err
	}
	if cfg.StoreMaxHistory < 0 {
		return nil, fmt.Errorf("invalid STORE_MAX_HISTORY: must not be negative")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
