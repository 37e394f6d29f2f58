package climate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/seasonal-temperature-monitor/internal/common"
)

var validate = validator.New()

// Required upload columns.
const (
	ColumnCity        = "city"
	ColumnTimestamp   = "timestamp"
	ColumnTemperature = "temperature"
	ColumnSeason      = "season"
)

var requiredColumns = []string{ColumnCity, ColumnTimestamp, ColumnTemperature, ColumnSeason}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Dataset is an immutable set of validated readings.
type Dataset struct {
	readings []Reading
	cities   []string
}

// NewDataset builds a dataset; cities keep their order of first appearance.
func NewDataset(readings []Reading) *Dataset {
	seen := make(map[string]bool)
	var cities []string
	for _, r := range readings {
		if !seen[r.City] {
			seen[r.City] = true
			cities = append(cities, r.City)
		}
	}
	return &Dataset{readings: readings, cities: cities}
}

// Len returns the number of readings.
func (d *Dataset) Len() int { return len(d.readings) }

// Cities returns the distinct cities.
func (d *Dataset) Cities() []string {
	return append([]string(nil), d.cities...)
}

// HasCity reports whether the dataset has readings for city.
func (d *Dataset) HasCity(city string) bool {
	for _, c := range d.cities {
		if c == city {
			return true
		}
	}
	return false
}

// Head returns up to n readings in upload order.
func (d *Dataset) Head(n int) []Reading {
	if n > len(d.readings) {
		n = len(d.readings)
	}
	return append([]Reading(nil), d.readings[:n]...)
}

// ForCity returns a city's readings sorted by timestamp ascending.
func (d *Dataset) ForCity(city string) ([]Reading, error) {
	var out []Reading
	for _, r := range d.readings {
		if r.City == city {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCity, city)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// ParseCSV reads an upload into a Dataset. The header row must contain the
// city, timestamp, temperature and season columns in any order.
func ParseCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[common.NormalizeHeader(h)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &MissingFieldError{Field: col}
		}
	}

	var readings []Reading
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &RowError{Line: pe.Line, Err: pe.Err}
			}
			return nil, fmt.Errorf("read row: %w", err)
		}

		line, _ := cr.FieldPos(0)
		reading, err := parseRecord(record, idx)
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		readings = append(readings, reading)
	}

	if len(readings) == 0 {
		return nil, ErrEmptyDataset
	}
	return NewDataset(readings), nil
}

func parseRecord(record []string, idx map[string]int) (Reading, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[idx[name]])
	}

	ts, err := parseTimestamp(field(ColumnTimestamp))
	if err != nil {
		return Reading{}, err
	}

	temp, err := strconv.ParseFloat(field(ColumnTemperature), 64)
	if err != nil {
		return Reading{}, fmt.Errorf("invalid temperature %q", field(ColumnTemperature))
	}
	if math.IsNaN(temp) || math.IsInf(temp, 0) {
		return Reading{}, fmt.Errorf("temperature must be finite")
	}

	month, season, err := parseSeasonField(field(ColumnSeason), ts)
	if err != nil {
		return Reading{}, err
	}

	reading := Reading{
		City:        field(ColumnCity),
		Timestamp:   ts,
		Temperature: temp,
		Month:       month,
		Season:      season,
	}
	if err := validate.Struct(reading); err != nil {
		return Reading{}, err
	}
	return reading, nil
}

// parseSeasonField accepts either a month number or a season name. Named
// seasons take the month from the timestamp.
func parseSeasonField(v string, ts time.Time) (time.Month, Season, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n < 1 || n > 12 {
			return 0, SeasonUnknown, fmt.Errorf("season month %d out of range 1-12", n)
		}
		m := time.Month(n)
		return m, SeasonOfMonth(m), nil
	}
	season, err := ParseSeason(v)
	if err != nil {
		return 0, SeasonUnknown, err
	}
	return ts.Month(), season, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
