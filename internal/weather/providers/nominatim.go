package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/i474232898/city-weather-search/internal/observability"
	"github.com/i474232898/city-weather-search/internal/weather"
)

const nominatimService = "nominatim"

// NominatimClient implements weather.Geocoder using the OpenStreetMap Nominatim search API.
type NominatimClient struct {
	baseURL  string
	language string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	metrics  *observability.Metrics
	logger   *slog.Logger
}

func NewNominatimClient(client *http.Client, baseURL, userAgent, language string, metrics *observability.Metrics, logger *slog.Logger) *NominatimClient {
	return &NominatimClient{
		baseURL:  baseURL,
		language: language,
		httpCfg:  HTTPClientConfig{
			Client:    client,
			UserAgent: userAgent,
		},
		circuit: newCircuitBreaker(nominatimService),
		metrics: metrics,
		logger:  logger,
	}
}

// Resolve looks up cityName and returns the first candidate.
func (c *NominatimClient) Resolve(ctx context.Context, cityName string) (weather.GeoLocation, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{
			"q":               {cityName},
			"format":          {"json"},
			"limit":           {"1"},
			"addressdetails":  {"0"},
			"accept-language": {c.language},
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+values.Encode(), nil)
	}

	resp, err := doRequest(ctx, nominatimService, c.httpCfg, c.circuit, c.metrics, buildRequest)
	if err != nil {
		return weather.GeoLocation{}, err
	}
	defer resp.Body.Close()

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(nominatimService, "malformed").Inc()
		return weather.GeoLocation{}, &weather.MalformedResponseError{Service: nominatimService, Reason: fmt.Sprintf("decode: %v", err)}
	}

	if len(places) == 0 {
		c.metrics.UpstreamRequests.WithLabelValues(nominatimService, "empty").Inc()
		return weather.GeoLocation{}, &weather.CityNotFoundError{City: cityName}
	}

	loc, err := places[0].toLocation()
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(nominatimService, "malformed").Inc()
		return weather.GeoLocation{}, err
	}

	c.metrics.UpstreamRequests.WithLabelValues(nominatimService, "success").Inc()
	c.logger.DebugContext(ctx, "city resolved",
		"city", cityName,
		"display_name", loc.DisplayName,
		"lat", loc.Latitude,
		"lon", loc.Longitude,
	)
	return loc, nil
}

// Nominatim API response types. Coordinates arrive as strings.

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p place) toLocation() (weather.GeoLocation, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return weather.GeoLocation{}, &weather.MalformedResponseError{Service: nominatimService, Reason: fmt.Sprintf("latitude %q", p.Lat)}
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return weather.GeoLocation{}, &weather.MalformedResponseError{Service: nominatimService, Reason: fmt.Sprintf("longitude %q", p.Lon)}
	}
	return weather.GeoLocation{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: p.DisplayName,
	}, nil
}
