package weather

import (
	"errors"
	"fmt"
)

var (
	ErrCityNotFound       = errors.New("city not found")
	ErrUpstream           = errors.New("upstream unavailable")
	ErrMalformedResponse  = errors.New("malformed upstream response")
	ErrUnknownWeatherCode = errors.New("unknown weather code")
	ErrMisalignedSeries   = errors.New("series length does not match dates")
)

// CityNotFoundError is returned when the geocoder has no candidate for a name.
type CityNotFoundError struct {
	City string
}

func (e *CityNotFoundError) Error() string {
	return fmt.Sprintf("city %q not found", e.City)
}

func (e *CityNotFoundError) Is(target error) bool { return target == ErrCityNotFound }

// UpstreamError covers non-200 answers and transport failures.
// StatusCode is 0 when no HTTP response was received.
type UpstreamError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Service, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: request failed: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s: request failed", e.Service)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// MalformedResponseError means the upstream broke its response contract.
type MalformedResponseError struct {
	Service string
	Reason  string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Service, e.Reason)
}

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// UnknownWeatherCodeError carries a code missing from the interpretation table.
type UnknownWeatherCodeError struct {
	Code float64
}

func (e *UnknownWeatherCodeError) Error() string {
	return fmt.Sprintf("unknown weather code %v", e.Code)
}

func (e *UnknownWeatherCodeError) Is(target error) bool { return target == ErrUnknownWeatherCode }
