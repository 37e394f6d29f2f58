package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/seasonal-temperature-monitor/internal/climate"
)

const csvData = `city,timestamp,temperature,season
Berlin,2020-01-10,-2,winter
Berlin,2021-01-10,0,winter
Berlin,2022-01-10,2,winter
Cairo,2020-07-01,35,summer
`

func loadedSession(t *testing.T) *Session {
	t.Helper()
	ds, err := climate.ParseCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	s := New("s1", time.Now())
	s.LoadDataset("temps.csv", ds)
	return s
}

func TestSessionHappyPath(t *testing.T) {
	s := loadedSession(t)
	assert.Equal(t, StateDataLoaded, s.State())

	require.NoError(t, s.ChooseCity("Berlin"))
	assert.Equal(t, StateCityChosen, s.State())

	require.NoError(t, s.ComputeStats(climate.GranularityMonth))
	assert.Equal(t, StateStatsComputed, s.State())
	require.NotNil(t, s.Analysis())

	require.NoError(t, s.ProvideKey("key"))
	assert.Equal(t, StateKeyProvided, s.State())
	assert.Empty(t, s.Warnings())

	obs := climate.LiveObservation{City: "Berlin", Temperature: 3, ObservedAt: time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)}
	require.NoError(t, s.RecordLive(obs))
	assert.Equal(t, StateLiveClassified, s.State())
	require.NotNil(t, s.Classification())
	assert.Equal(t, climate.VerdictNormal, s.Classification().Verdict)
}

func TestSessionGuards(t *testing.T) {
	s := New("s1", time.Now())
	assert.Equal(t, StateNoData, s.State())
	assert.Equal(t, []string{"Please upload a CSV file"}, s.Warnings())

	assert.ErrorIs(t, s.ChooseCity("Berlin"), ErrNoData)
	assert.ErrorIs(t, s.ComputeStats(climate.GranularityMonth), ErrNoData)
	assert.ErrorIs(t, s.ProvideKey("key"), ErrNoData)
	assert.ErrorIs(t, s.RecordLive(climate.LiveObservation{}), ErrNoKey)

	s = loadedSession(t)
	assert.Equal(t, []string{"Select a city from the list"}, s.Warnings())
	assert.ErrorIs(t, s.ComputeStats(climate.GranularityMonth), ErrNoCity)
	assert.ErrorIs(t, s.ProvideKey("key"), ErrNoCity)
	assert.ErrorIs(t, s.ChooseCity(""), ErrNoCity)
	assert.ErrorIs(t, s.ChooseCity("Paris"), climate.ErrUnknownCity)

	require.NoError(t, s.ChooseCity("Berlin"))
	require.NoError(t, s.ComputeStats(climate.GranularityMonth))
	assert.Equal(t, []string{"API key is missing"}, s.Warnings())
	assert.ErrorIs(t, s.ProvideKey("  "), ErrMissingKey)
	assert.Equal(t, StateStatsComputed, s.State())
}

func TestSessionNoBaselineKeepsKey(t *testing.T) {
	s := loadedSession(t)
	require.NoError(t, s.ChooseCity("Berlin"))
	require.NoError(t, s.ComputeStats(climate.GranularityMonth))
	require.NoError(t, s.ProvideKey("key"))

	obs := climate.LiveObservation{City: "Berlin", Temperature: 10, ObservedAt: time.Date(2026, 4, 5, 7, 0, 0, 0, time.UTC)}
	err := s.RecordLive(obs)
	assert.ErrorIs(t, err, climate.ErrNoBaseline)
	assert.Equal(t, StateKeyProvided, s.State())
	assert.Nil(t, s.Classification())
	assert.Equal(t, "key", s.APIKey())
}

func TestSessionTransitionsResetDownstream(t *testing.T) {
	s := loadedSession(t)
	require.NoError(t, s.ChooseCity("Berlin"))
	require.NoError(t, s.ComputeStats(climate.GranularityMonth))
	require.NoError(t, s.ProvideKey("key"))

	require.NoError(t, s.ChooseCity("Cairo"))
	assert.Equal(t, StateCityChosen, s.State())
	assert.Nil(t, s.Analysis())
	assert.Empty(t, s.APIKey())

	s.Fail(assert.AnError)
	ds, err := climate.ParseCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	s.LoadDataset("other.csv", ds)
	assert.Equal(t, StateDataLoaded, s.State())
	assert.Empty(t, s.City())
	assert.NoError(t, s.Err())
	assert.Equal(t, "other.csv", s.FileName())
}
