package weather

import (
	"fmt"
	"math"
)

// weatherCodeLabels is the WMO weather interpretation table used by Open-Meteo.
var weatherCodeLabels = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// ConditionLabel maps a WMO weather code to its human-readable label.
func ConditionLabel(code float64) (string, error) {
	if code != math.Trunc(code) {
		return "", &UnknownWeatherCodeError{Code: code}
	}
	label, ok := weatherCodeLabels[int(code)]
	if !ok {
		return "", &UnknownWeatherCodeError{Code: code}
	}
	return label, nil
}

// Shape zips dates with every variable's values into one record per day.
// Index i of each variable belongs to dates[i]; output keeps the input order.
func Shape(series RawDailySeries, dates []string) ([]DailyForecastRecord, error) {
	hasCode := false
	for _, v := range series.Variables {
		if len(v.Values) != len(dates) {
			return nil, fmt.Errorf("%w: %s has %d values for %d dates",
				ErrMisalignedSeries, v.Name, len(v.Values), len(dates))
		}
		if v.Name == WeatherCodeVariable {
			hasCode = true
		}
	}
	if !hasCode {
		return nil, fmt.Errorf("%w: %s column missing", ErrMalformedResponse, WeatherCodeVariable)
	}

	records := make([]DailyForecastRecord, len(dates))
	for i, date := range dates {
		rec := DailyForecastRecord{
			Date:   date,
			Values: make(map[string]float64, len(series.Variables)),
		}
		for _, v := range series.Variables {
			if v.Name == WeatherCodeVariable {
				label, err := ConditionLabel(v.Values[i])
				if err != nil {
					return nil, fmt.Errorf("shape %s: %w", date, err)
				}
				rec.WeatherCondition = label
				continue
			}
			rec.Values[v.Name] = v.Values[i]
		}
		records[i] = rec
	}

	return records, nil
}
