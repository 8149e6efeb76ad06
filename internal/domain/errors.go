package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means no snapshot exists for the requested forecast time.
	ErrDataUnavailable = errors.New("no data")

	// ErrMalformedSnapshot marks a payload whose shape disagrees with its header.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// ValidationError reports a request parameter outside its accepted range.
// It is raised before any data is fetched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateForecastTime rejects forecast indices outside [MinForecastTime, MaxForecastTime].
func ValidateForecastTime(t int) error {
	if t < MinForecastTime || t > MaxForecastTime {
		return &ValidationError{Field: "forecastTime", Reason: fmt.Sprintf("%d outside [%d,%d]", t, MinForecastTime, MaxForecastTime)}
	}
	return nil
}

// ValidateZoom rejects zoom levels outside [MinZoom, MaxZoom].
func ValidateZoom(z int) error {
	if z < MinZoom || z > MaxZoom {
		return &ValidationError{Field: "zoom", Reason: fmt.Sprintf("%d outside [%d,%d]", z, MinZoom, MaxZoom)}
	}
	return nil
}
