package chart

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/seasonal-temperature-monitor/internal/climate"
)

func TestRenderPNG(t *testing.T) {
	in := "city,timestamp,temperature,season\n"
	for year := 2010; year < 2019; year++ {
		in += fmt.Sprintf("Berlin,%d-01-10,0,1\n", year)
	}
	in += "Berlin,2019-01-10,9,1\n" +
		"Berlin,2019-07-10,20,7\n"
	ds, err := climate.ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	a, err := climate.Analyze(ds, "Berlin", climate.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, a.Anomalies(), 1)

	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, a))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

func TestRenderPNGWithoutReadings(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, RenderPNG(&buf, nil), ErrNoReadings)
	assert.ErrorIs(t, RenderPNG(&buf, &climate.CityAnalysis{City: "Nowhere"}), ErrNoReadings)
}
