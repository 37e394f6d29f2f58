package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/i474232898/seasonal-temperature-monitor/internal/climate"
)

// DefaultOpenWeatherURL is the current-weather endpoint of OpenWeatherMap.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherProvider implements the climate.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherProvider creates a provider. An empty baseURL selects DefaultOpenWeatherURL.
func NewOpenWeatherProvider(client *http.Client, baseURL string) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		baseURL: baseURL,
		client:  client,
		circuit: newBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Current fetches the current temperature for a city in metric units.
// The observation time is the sunrise timestamp of the response, falling
// back to its measurement time.
func (p *OpenWeatherProvider) Current(ctx context.Context, city, apiKey string) (climate.LiveObservation, error) {
	if strings.TrimSpace(apiKey) == "" {
		return climate.LiveObservation{}, ErrMissingAPIKey
	}

	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", apiKey)
	values.Set("units", "metric")

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return climate.LiveObservation{}, err
	}

	resp, err := doRequest(ctx, p.client, p.circuit, req)
	if err != nil {
		return climate.LiveObservation{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return climate.LiveObservation{}, &AuthError{Message: readBody(resp.Body)}
	case resp.StatusCode != http.StatusOK:
		return climate.LiveObservation{}, &StatusError{StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
	}

	var payload struct {
		Dt   int64 `json:"dt"`
		Main *struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
		Sys struct {
			Sunrise int64 `json:"sunrise"`
		} `json:"sys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return climate.LiveObservation{}, fmt.Errorf("decode openweather response: %w", err)
	}
	if payload.Main == nil || payload.Main.Temp == nil {
		return climate.LiveObservation{}, fmt.Errorf("openweather response has no main.temp")
	}

	epoch := payload.Sys.Sunrise
	if epoch == 0 {
		epoch = payload.Dt
	}
	ts := time.Unix(epoch, 0).UTC()
	if epoch == 0 {
		ts = time.Now().UTC()
	}

	return climate.LiveObservation{
		City:         city,
		Temperature:  *payload.Main.Temp,
		ObservedAt:   ts,
		ProviderName: p.name,
	}, nil
}
