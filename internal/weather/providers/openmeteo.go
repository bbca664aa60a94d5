package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/city-weather-search/internal/observability"
	"github.com/i474232898/city-weather-search/internal/weather"
)

const (
	openMeteoService = "open-meteo"
	dateLayout       = "2006-01-02"
)

// OpenMeteoClient implements weather.Forecaster for the Open-Meteo daily forecast API.
type OpenMeteoClient struct {
	baseURL   string
	variables []string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewOpenMeteoClient creates a client requesting the given daily variables.
// weather_code is always requested first, whether or not it is listed.
func NewOpenMeteoClient(client *http.Client, baseURL string, variables []string, metrics *observability.Metrics, logger *slog.Logger) *OpenMeteoClient {
	return &OpenMeteoClient{
		baseURL:   baseURL,
		variables: dailyVariables(variables),
		httpCfg:   HTTPClientConfig{
			Client: client,
		},
		circuit: newCircuitBreaker(openMeteoService),
		metrics: metrics,
		logger:  logger,
	}
}

func dailyVariables(requested []string) []string {
	out := []string{weather.WeatherCodeVariable}
	seen := map[string]bool{weather.WeatherCodeVariable: true}
	for _, v := range requested {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Fetch requests forecastDays days of the configured daily variables.
func (c *OpenMeteoClient) Fetch(ctx context.Context, latitude, longitude float64, forecastDays int) (weather.RawDailySeries, error) {
	if forecastDays < 1 {
		return weather.RawDailySeries{}, fmt.Errorf("forecast days must be at least 1, got %d", forecastDays)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{
			"latitude":      {strconv.FormatFloat(latitude, 'f', -1, 64)},
			"longitude":     {strconv.FormatFloat(longitude, 'f', -1, 64)},
			"forecast_days": {strconv.Itoa(forecastDays)},
			"daily":         {strings.Join(c.variables, ",")},
			"timeformat":    {"unixtime"},
			"timezone":      {"GMT"},
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequest(ctx, openMeteoService, c.httpCfg, c.circuit, c.metrics, buildRequest)
	if err != nil {
		return weather.RawDailySeries{}, err
	}
	defer resp.Body.Close()

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.RawDailySeries{}, c.malformed(fmt.Sprintf("decode: %v", err))
	}

	series, err := c.toSeries(payload, forecastDays)
	if err != nil {
		return weather.RawDailySeries{}, err
	}

	c.metrics.UpstreamRequests.WithLabelValues(openMeteoService, "success").Inc()
	c.logger.DebugContext(ctx, "forecast fetched",
		"lat", latitude,
		"lon", longitude,
		"days", forecastDays,
		"start", series.Start,
	)
	return series, nil
}

func (c *OpenMeteoClient) toSeries(payload forecastResponse, forecastDays int) (weather.RawDailySeries, error) {
	rawTime, ok := payload.Daily["time"]
	if !ok {
		return weather.RawDailySeries{}, c.malformed("daily.time missing")
	}
	var times []int64
	if err := json.Unmarshal(rawTime, &times); err != nil {
		return weather.RawDailySeries{}, c.malformed(fmt.Sprintf("daily.time: %v", err))
	}
	if len(times) == 0 {
		return weather.RawDailySeries{}, c.malformed("daily.time is empty")
	}

	start := time.Unix(times[0], 0).UTC()
	interval := 24 * time.Hour
	if len(times) > 1 {
		interval = time.Duration(times[1]-times[0]) * time.Second
	}
	if interval <= 0 {
		return weather.RawDailySeries{}, c.malformed(fmt.Sprintf("non-positive interval %s", interval))
	}
	for i, ts := range times {
		if want := start.Add(time.Duration(i) * interval); !time.Unix(ts, 0).Equal(want) {
			return weather.RawDailySeries{}, c.malformed(fmt.Sprintf("daily.time[%d] is off the %s step", i, interval))
		}
	}
	end := time.Unix(times[len(times)-1], 0).UTC().Add(interval)

	dates := walkDates(start, end, interval)
	if len(dates) != forecastDays {
		return weather.RawDailySeries{}, c.malformed(fmt.Sprintf("got %d days, requested %d", len(dates), forecastDays))
	}

	variables := make([]weather.DailyVariable, 0, len(c.variables))
	for _, name := range c.variables {
		raw, ok := payload.Daily[name]
		if !ok {
			return weather.RawDailySeries{}, c.malformed(fmt.Sprintf("daily.%s missing", name))
		}
		var values []*float64
		if err := json.Unmarshal(raw, &values); err != nil {
			return weather.RawDailySeries{}, c.malformed(fmt.Sprintf("daily.%s: %v", name, err))
		}
		if len(values) != len(dates) {
			return weather.RawDailySeries{}, c.malformed(fmt.Sprintf("daily.%s has %d values for %d days", name, len(values), len(dates)))
		}
		out := make([]float64, len(values))
		for i, v := range values {
			if v == nil {
				return weather.RawDailySeries{}, c.malformed(fmt.Sprintf("daily.%s[%d] is null", name, i))
			}
			out[i] = *v
		}
		variables = append(variables, weather.DailyVariable{Name: name, Values: out})
	}

	return weather.RawDailySeries{
		Start:     start,
		End:       end,
		Interval:  interval,
		Variables: variables,
		Dates:     dates,
	}, nil
}

func (c *OpenMeteoClient) malformed(reason string) error {
	c.metrics.UpstreamRequests.WithLabelValues(openMeteoService, "malformed").Inc()
	return &weather.MalformedResponseError{Service: openMeteoService, Reason: reason}
}

// walkDates lists calendar dates from start up to end (exclusive) in interval steps.
func walkDates(start, end time.Time, interval time.Duration) []string {
	var dates []string
	for t := start; t.Before(end); t = t.Add(interval) {
		dates = append(dates, t.UTC().Format(dateLayout))
	}
	return dates
}

// Open-Meteo API response types. Daily arrays are keyed by variable name.

type forecastResponse struct {
	Latitude  float64                    `json:"latitude"`
	Longitude float64                    `json:"longitude"`
	Daily     map[string]json.RawMessage `json:"daily"`
}
