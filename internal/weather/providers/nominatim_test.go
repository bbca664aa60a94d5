package providers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/city-weather-search/internal/observability"
	"github.com/i474232898/city-weather-search/internal/weather"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestNominatim(t *testing.T, handler http.HandlerFunc) (*NominatimClient, *observability.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	metrics := observability.NewMetricsForTesting()
	client := NewNominatimClient(srv.Client(), srv.URL, "city-weather-search-test/1.0", "en", metrics, discardLogger())
	return client, metrics
}

func TestNominatim_Resolve(t *testing.T) {
	client, metrics := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Paris", q.Get("q"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "en", q.Get("accept-language"))
		assert.Equal(t, "city-weather-search-test/1.0", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"place_id":88066702,"lat":"48.8534951","lon":"2.3483915","display_name":"Paris, Île-de-France, Metropolitan France, France"}]`)
	})

	loc, err := client.Resolve(context.Background(), "Paris")
	require.NoError(t, err)

	assert.InDelta(t, 48.8534951, loc.Latitude, 1e-9)
	assert.InDelta(t, 2.3483915, loc.Longitude, 1e-9)
	assert.Equal(t, "Paris, Île-de-France, Metropolitan France, France", loc.DisplayName)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues(nominatimService, "success")))
}

func TestNominatim_EmptyResultIsCityNotFound(t *testing.T) {
	client, metrics := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	_, err := client.Resolve(context.Background(), "Zzzzznotreal")
	require.Error(t, err)

	var notFound *weather.CityNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Zzzzznotreal", notFound.City)
	assert.ErrorIs(t, err, weather.ErrCityNotFound)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues(nominatimService, "empty")))
}

func TestNominatim_Non200IsUpstreamError(t *testing.T) {
	client, _ := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := client.Resolve(context.Background(), "Paris")
	require.Error(t, err)

	var upErr *weather.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, nominatimService, upErr.Service)
	assert.Equal(t, http.StatusTooManyRequests, upErr.StatusCode)
	assert.NotErrorIs(t, err, weather.ErrCityNotFound)
}

func TestNominatim_UnparseableCoordinates(t *testing.T) {
	client, _ := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"lat":"north-ish","lon":"2.35","display_name":"Paris"}]`)
	})

	_, err := client.Resolve(context.Background(), "Paris")
	assert.ErrorIs(t, err, weather.ErrMalformedResponse)
}

func TestNominatim_InvalidJSON(t *testing.T) {
	client, metrics := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>maintenance</html>`)
	})

	_, err := client.Resolve(context.Background(), "Paris")
	assert.ErrorIs(t, err, weather.ErrMalformedResponse)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues(nominatimService, "malformed")))
}

func TestNominatim_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	httpClient := &http.Client{Timeout: 50 * time.Millisecond}
	client := NewNominatimClient(httpClient, srv.URL, "test", "en", observability.NewMetricsForTesting(), discardLogger())

	_, err := client.Resolve(context.Background(), "Paris")
	require.Error(t, err)

	var upErr *weather.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, 0, upErr.StatusCode)
	assert.NotErrorIs(t, err, weather.ErrCityNotFound)
}

func TestNominatim_ConcurrentLookupsKeepTheirOwnQuery(t *testing.T) {
	client, _ := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		city := r.URL.Query().Get("q")
		fmt.Fprintf(w, `[{"lat":"1.5","lon":"2.5","display_name":%q}]`, city+", Somewhere")
	})

	cities := []string{"Paris", "Berlin", "Tokyo", "Lima", "Oslo", "Cairo", "Quito", "Perth"}
	var wg sync.WaitGroup
	results := make([]weather.GeoLocation, len(cities))
	errs := make([]error, len(cities))
	for i, city := range cities {
		wg.Add(1)
		go func(i int, city string) {
			defer wg.Done()
			results[i], errs[i] = client.Resolve(context.Background(), city)
		}(i, city)
	}
	wg.Wait()

	for i, city := range cities {
		require.NoError(t, errs[i])
		assert.Equal(t, city+", Somewhere", results[i].DisplayName)
	}
}
