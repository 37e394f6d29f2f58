package climate

import (
	"context"
)

// Provider abstracts a source of current temperatures (e.g. OpenWeatherMap).
// The API key is supplied per call since each session brings its own.
type Provider interface {
	Name() string
	Current(ctx context.Context, city, apiKey string) (LiveObservation, error)
}
