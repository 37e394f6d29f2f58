package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/seasonal-temperature-monitor/internal/climate"
)

var (
	// ErrNoData is returned for steps that need an uploaded dataset.
	ErrNoData = errors.New("no dataset uploaded")
	// ErrNoCity is returned for steps that need a selected city.
	ErrNoCity = errors.New("no city selected")
	// ErrMissingKey is returned when an empty API key is submitted.
	ErrMissingKey = errors.New("api key is missing")
	// ErrNoKey is returned when a live result arrives before a key was provided.
	ErrNoKey = errors.New("no api key provided")
)

// State is a step of the dashboard flow. States are ordered; each one
// implies all earlier ones.
type State int

const (
	StateNoData State = iota
	StateDataLoaded
	StateCityChosen
	StateStatsComputed
	StateKeyProvided
	StateLiveClassified
)

func (s State) String() string {
	switch s {
	case StateNoData:
		return "no_data"
	case StateDataLoaded:
		return "data_loaded"
	case StateCityChosen:
		return "city_chosen"
	case StateStatsComputed:
		return "stats_computed"
	case StateKeyProvided:
		return "key_provided"
	case StateLiveClassified:
		return "live_classified"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is the private state of one user. It is not safe for concurrent
// use; the store serialises access.
type Session struct {
	ID        string
	CreatedAt time.Time

	state          State
	fileName       string
	dataset        *climate.Dataset
	city           string
	analysis       *climate.CityAnalysis
	apiKey         string
	classification *climate.Classification
	lastErr        error
}

// New creates a session in StateNoData.
func New(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now}
}

func (s *Session) State() State                            { return s.state }
func (s *Session) FileName() string                        { return s.fileName }
func (s *Session) Dataset() *climate.Dataset               { return s.dataset }
func (s *Session) City() string                            { return s.city }
func (s *Session) Analysis() *climate.CityAnalysis         { return s.analysis }
func (s *Session) APIKey() string                          { return s.apiKey }
func (s *Session) Classification() *climate.Classification { return s.classification }

// Err returns the error of the last failed step, if any.
func (s *Session) Err() error { return s.lastErr }

// Fail records err as the outcome of the current step.
func (s *Session) Fail(err error) { s.lastErr = err }

// LoadDataset accepts a new upload from any state and discards everything
// derived from the previous one.
func (s *Session) LoadDataset(fileName string, ds *climate.Dataset) {
	s.fileName = fileName
	s.dataset = ds
	s.city = ""
	s.analysis = nil
	s.apiKey = ""
	s.classification = nil
	s.lastErr = nil
	s.state = StateDataLoaded
}

// ChooseCity selects a city of the loaded dataset.
func (s *Session) ChooseCity(city string) error {
	if s.state < StateDataLoaded {
		return ErrNoData
	}
	city = strings.TrimSpace(city)
	if city == "" {
		s.rewind(StateDataLoaded)
		return ErrNoCity
	}
	if !s.dataset.HasCity(city) {
		return fmt.Errorf("%w: %q", climate.ErrUnknownCity, city)
	}
	s.rewind(StateDataLoaded)
	s.city = city
	s.state = StateCityChosen
	return nil
}

// ComputeStats derives the baseline and anomaly flags for the chosen city.
func (s *Session) ComputeStats(g climate.Granularity) error {
	if s.state < StateDataLoaded {
		return ErrNoData
	}
	if s.state < StateCityChosen {
		return ErrNoCity
	}
	a, err := climate.Analyze(s.dataset, s.city, g)
	if err != nil {
		return err
	}
	s.rewind(StateCityChosen)
	s.analysis = a
	s.state = StateStatsComputed
	return nil
}

// ProvideKey stores the API key used for the live fetch.
func (s *Session) ProvideKey(key string) error {
	if s.state < StateDataLoaded {
		return ErrNoData
	}
	if s.state < StateStatsComputed {
		return ErrNoCity
	}
	key = strings.TrimSpace(key)
	s.rewind(StateStatsComputed)
	if key == "" {
		return ErrMissingKey
	}
	s.apiKey = key
	s.state = StateKeyProvided
	return nil
}

// RecordLive classifies a live observation against the computed baseline.
// On ErrNoBaseline the session stays in StateKeyProvided.
func (s *Session) RecordLive(obs climate.LiveObservation) error {
	if s.state < StateKeyProvided {
		return ErrNoKey
	}
	c, err := climate.Classify(obs, s.analysis)
	if err != nil {
		s.rewind(StateKeyProvided)
		return err
	}
	s.classification = &c
	s.state = StateLiveClassified
	return nil
}

// rewind drops everything derived after state.
func (s *Session) rewind(state State) {
	s.lastErr = nil
	if state < StateLiveClassified {
		s.classification = nil
	}
	if state < StateKeyProvided {
		s.apiKey = ""
	}
	if state < StateStatsComputed {
		s.analysis = nil
	}
	if state < StateCityChosen {
		s.city = ""
	}
	if s.state > state {
		s.state = state
	}
}

// Step prompts returned by Warnings.
const (
	WarnNoData     = "Please upload a CSV file"
	WarnNoCity     = "Select a city from the list"
	WarnMissingKey = "API key is missing"
)

// Warnings explains which step is waiting for input.
func (s *Session) Warnings() []string {
	switch {
	case s.state < StateDataLoaded:
		return []string{WarnNoData}
	case s.state < StateCityChosen:
		return []string{WarnNoCity}
	case s.state < StateKeyProvided:
		return []string{WarnMissingKey}
	default:
		return nil
	}
}
