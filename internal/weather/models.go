package weather

import (
	"encoding/json"
	"time"
)

// WeatherCodeVariable is the daily variable carrying the WMO interpretation code.
const WeatherCodeVariable = "weather_code"

// GeoLocation is a resolved place: coordinates plus the upstream's canonical name.
type GeoLocation struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"displayName"`
}

// DailyVariable is one requested daily series, positionally aligned with the dates.
type DailyVariable struct {
	Name   string
	Values []float64
}

// RawDailySeries is the forecast upstream's daily payload before shaping.
// Dates is derived by walking Start to End (exclusive) at Interval.
type RawDailySeries struct {
	Start     time.Time
	End       time.Time
	Interval  time.Duration
	Variables []DailyVariable
	Dates     []string
}

// DailyForecastRecord is a single forecast day.
type DailyForecastRecord struct {
	Date             string
	Values           map[string]float64
	WeatherCondition string
}

// MarshalJSON flattens the record into {"date", <variable>..., "weather_condition"}.
func (r DailyForecastRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Values)+2)
	for name, v := range r.Values {
		out[name] = v
	}
	out["date"] = r.Date
	out["weather_condition"] = r.WeatherCondition
	return json.Marshal(out)
}

// SearchEntry is one recorded search as the visitor typed it.
type SearchEntry struct {
	City      string    `json:"city"`
	Days      int       `json:"days"`
	Timestamp time.Time `json:"timestamp"`
}

// CityCount pairs a normalized city with its search count.
type CityCount struct {
	City  string
	Count int
}

// MarshalJSON encodes the pair as a two-element array, e.g. ["paris", 3].
func (c CityCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.City, c.Count})
}

// StatsSnapshot is a point-in-time view of the global city counters.
type StatsSnapshot struct {
	TotalSearches int            `json:"total_searches"`
	PerCity       map[string]int `json:"cities"`
	MostPopular   *CityCount     `json:"most_popular"`
}

// SearchRequest is a single search submission from a visitor.
type SearchRequest struct {
	VisitorID    string
	CityName     string
	ForecastDays int
}

// SearchResult is the payload assembled for a successful search.
type SearchResult struct {
	DisplayName  string                `json:"display_name"`
	CityName     string                `json:"city_name"`
	ForecastDays int                   `json:"forecast_days"`
	WeatherData  []DailyForecastRecord `json:"weather_data"`
	History      []SearchEntry         `json:"history"`
}
