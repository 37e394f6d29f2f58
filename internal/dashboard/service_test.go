package dashboard

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/seasonal-temperature-monitor/internal/climate"
	"github.com/i474232898/seasonal-temperature-monitor/internal/climate/providers"
	"github.com/i474232898/seasonal-temperature-monitor/internal/session"
)

const csvData = `city,timestamp,temperature,season
Berlin,2020-01-10,-2,winter
Berlin,2021-01-10,0,winter
Berlin,2022-01-10,2,winter
Berlin,2022-07-10,22,summer
Cairo,2020-07-01,35,summer
`

type fakeProvider struct {
	obs   climate.LiveObservation
	err   error
	calls int
	keys  []string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Current(_ context.Context, city, apiKey string) (climate.LiveObservation, error) {
	p.calls++
	p.keys = append(p.keys, apiKey)
	if p.err != nil {
		return climate.LiveObservation{}, p.err
	}
	obs := p.obs
	obs.City = city
	return obs, nil
}

func newService(p *fakeProvider, defaultKey string) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(session.NewMemoryStore(0, 0), p, climate.GranularityMonth, defaultKey, logger)
}

func january(temp float64) climate.LiveObservation {
	return climate.LiveObservation{Temperature: temp, ObservedAt: time.Date(2026, 1, 4, 7, 0, 0, 0, time.UTC)}
}

func TestServiceFullFlow(t *testing.T) {
	p := &fakeProvider{obs: january(5.0)}
	svc := newService(p, "")
	id := svc.NewSession()

	require.NoError(t, svc.Upload(id, "temps.csv", strings.NewReader(csvData)))
	require.NoError(t, svc.SelectCity(context.Background(), id, "Berlin"))
	assert.Equal(t, 0, p.calls)

	require.NoError(t, svc.SubmitKey(context.Background(), id, "secret"))
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, []string{"secret"}, p.keys)

	snap, err := svc.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, session.StateLiveClassified.String(), snap.State)
	assert.Equal(t, []string{"Berlin", "Cairo"}, snap.Cities)
	assert.Equal(t, 5, snap.Rows)
	require.NotNil(t, snap.Summary)
	assert.Equal(t, 4, snap.Summary.Count)
	require.NotNil(t, snap.Live)
	assert.Equal(t, climate.VerdictOutOfRange, snap.Live.Verdict)
	assert.Equal(t, "Temperature is out of the normal range", snap.Live.Message)
	assert.Nil(t, snap.Error)
	assert.Empty(t, snap.Warnings)
}

func TestServiceUnauthorized(t *testing.T) {
	body := `{"cod":401, "message": "Invalid API key."}`
	p := &fakeProvider{err: &providers.AuthError{Message: body}}
	svc := newService(p, "")
	id := svc.NewSession()

	require.NoError(t, svc.Upload(id, "temps.csv", strings.NewReader(csvData)))
	require.NoError(t, svc.SelectCity(context.Background(), id, "Berlin"))
	err := svc.SubmitKey(context.Background(), id, "bad")
	require.Error(t, err)
	assert.Equal(t, KindAuth, KindOf(err))

	snap, err := svc.Snapshot(id)
	require.NoError(t, err)
	require.NotNil(t, snap.Error)
	assert.Equal(t, KindAuth, snap.Error.Kind)
	assert.Equal(t, body, snap.Error.Message)
	assert.Nil(t, snap.Live)
	assert.Equal(t, session.StateKeyProvided.String(), snap.State)
}

func TestServiceMissingKeySkipsNetwork(t *testing.T) {
	p := &fakeProvider{obs: january(1)}
	svc := newService(p, "")
	id := svc.NewSession()

	require.NoError(t, svc.Upload(id, "temps.csv", strings.NewReader(csvData)))
	require.NoError(t, svc.SelectCity(context.Background(), id, "Berlin"))

	err := svc.SubmitKey(context.Background(), id, "")
	assert.ErrorIs(t, err, session.ErrMissingKey)
	assert.Equal(t, 0, p.calls)
}

func TestServiceDefaultKey(t *testing.T) {
	p := &fakeProvider{obs: january(1)}
	svc := newService(p, "configured")
	id := svc.NewSession()

	require.NoError(t, svc.Upload(id, "temps.csv", strings.NewReader(csvData)))
	require.NoError(t, svc.SelectCity(context.Background(), id, "Berlin"))
	require.NoError(t, svc.SubmitKey(context.Background(), id, ""))
	assert.Equal(t, []string{"configured"}, p.keys)
}

func TestServiceReclassifiesOnCityChange(t *testing.T) {
	p := &fakeProvider{obs: climate.LiveObservation{Temperature: 34, ObservedAt: time.Date(2026, 7, 4, 5, 0, 0, 0, time.UTC)}}
	svc := newService(p, "")
	id := svc.NewSession()

	require.NoError(t, svc.Upload(id, "temps.csv", strings.NewReader(csvData)))
	require.NoError(t, svc.SelectCity(context.Background(), id, "Berlin"))
	require.NoError(t, svc.SubmitKey(context.Background(), id, "secret"))
	require.NoError(t, svc.SelectCity(context.Background(), id, "Cairo"))
	assert.Equal(t, 2, p.calls)

	snap, err := svc.Snapshot(id)
	require.NoError(t, err)
	require.NotNil(t, snap.Live)
	assert.Equal(t, "Cairo", snap.Live.City)
	// Cairo has a single July reading.
	assert.Equal(t, climate.VerdictInsufficientData, snap.Live.Verdict)
}

func TestServiceNoUpload(t *testing.T) {
	p := &fakeProvider{}
	svc := newService(p, "")
	id := svc.NewSession()

	assert.ErrorIs(t, svc.SelectCity(context.Background(), id, "Berlin"), session.ErrNoData)
	assert.ErrorIs(t, svc.SubmitKey(context.Background(), id, "k"), session.ErrNoData)
	assert.ErrorIs(t, svc.RenderChart(id, io.Discard), session.ErrNoData)
	assert.Equal(t, 0, p.calls)

	snap, err := svc.Snapshot(id)
	require.NoError(t, err)
	assert.False(t, snap.HasData())
	assert.Equal(t, []string{"Please upload a CSV file"}, snap.Warnings)
}

func TestServiceBadUploadKeepsPreviousDataset(t *testing.T) {
	svc := newService(&fakeProvider{}, "")
	id := svc.NewSession()

	require.NoError(t, svc.Upload(id, "temps.csv", strings.NewReader(csvData)))
	err := svc.Upload(id, "broken.csv", strings.NewReader("town,when\nx,y\n"))
	assert.ErrorIs(t, err, climate.ErrMissingField)

	snap, err := svc.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, "temps.csv", snap.FileName)
	require.NotNil(t, snap.Error)
	assert.Equal(t, KindUpload, snap.Error.Kind)
}

func TestServiceRenderChart(t *testing.T) {
	svc := newService(&fakeProvider{}, "")
	id := svc.NewSession()
	require.NoError(t, svc.Upload(id, "temps.csv", strings.NewReader(csvData)))
	assert.ErrorIs(t, svc.RenderChart(id, io.Discard), session.ErrNoCity)

	require.NoError(t, svc.SelectCity(context.Background(), id, "Berlin"))
	var buf bytes.Buffer
	require.NoError(t, svc.RenderChart(id, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestSnapshotJSONEncodesNaNAsNull(t *testing.T) {
	svc := newService(&fakeProvider{}, "")
	id := svc.NewSession()
	require.NoError(t, svc.Upload(id, "temps.csv", strings.NewReader(csvData)))
	require.NoError(t, svc.SelectCity(context.Background(), id, "Cairo"))

	snap, err := svc.Snapshot(id)
	require.NoError(t, err)
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"stdDev":null`)
	assert.Contains(t, string(raw), `"sufficient":false`)
}

func TestServiceDefaultKeyReplacesMissingKeyWarning(t *testing.T) {
	svc := newService(&fakeProvider{obs: january(1.0)}, "configured")
	id := svc.NewSession()
	require.NoError(t, svc.Upload(id, "temps.csv", strings.NewReader(csvData)))
	require.NoError(t, svc.SelectCity(context.Background(), id, "Berlin"))

	snap, err := svc.Snapshot(id)
	require.NoError(t, err)
	assert.True(t, snap.KeyPrefilled)
	assert.Equal(t, []string{warnDefaultKey}, snap.Warnings)
	assert.NotContains(t, snap.Warnings, session.WarnMissingKey)
}

func TestServiceWithoutDefaultKeyWarnsMissingKey(t *testing.T) {
	svc := newService(&fakeProvider{obs: january(1.0)}, "")
	id := svc.NewSession()
	require.NoError(t, svc.Upload(id, "temps.csv", strings.NewReader(csvData)))
	require.NoError(t, svc.SelectCity(context.Background(), id, "Berlin"))

	snap, err := svc.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, []string{session.WarnMissingKey}, snap.Warnings)
}
