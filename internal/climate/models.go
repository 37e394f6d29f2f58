package climate

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Season is a meteorological season of the northern hemisphere.
type Season int

const (
	SeasonUnknown Season = iota
	SeasonWinter
	SeasonSpring
	SeasonSummer
	SeasonAutumn
)

func (s Season) String() string {
	switch s {
	case SeasonWinter:
		return "winter"
	case SeasonSpring:
		return "spring"
	case SeasonSummer:
		return "summer"
	case SeasonAutumn:
		return "autumn"
	default:
		return "unknown"
	}
}

// SeasonOfMonth maps a calendar month to its meteorological season
// (December-February is winter).
func SeasonOfMonth(m time.Month) Season {
	switch m {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	case time.September, time.October, time.November:
		return SeasonAutumn
	default:
		return SeasonUnknown
	}
}

// ParseSeason recognises a whole season name, ignoring case and surrounding space.
func ParseSeason(s string) (Season, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "":
		return SeasonUnknown, fmt.Errorf("empty season")
	case "winter":
		return SeasonWinter, nil
	case "spring":
		return SeasonSpring, nil
	case "summer":
		return SeasonSummer, nil
	case "autumn", "fall":
		return SeasonAutumn, nil
	default:
		return SeasonUnknown, fmt.Errorf("unknown season %q", s)
	}
}

// Granularity selects how historical readings are bucketed into baselines.
type Granularity string

const (
	GranularityMonth  Granularity = "month"
	GranularitySeason Granularity = "season"
)

// ParseGranularity validates a granularity name. Empty means month.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case "", GranularityMonth:
		return GranularityMonth, nil
	case GranularitySeason:
		return GranularitySeason, nil
	default:
		return "", fmt.Errorf("invalid granularity %q (allowed: month, season)", s)
	}
}

// KeyOf returns the grouping key of a reading.
func (g Granularity) KeyOf(r Reading) int {
	if g == GranularitySeason {
		return int(r.Season)
	}
	return int(r.Month)
}

// KeyForMonth returns the grouping key a live observation taken in month m falls into.
func (g Granularity) KeyForMonth(m time.Month) int {
	if g == GranularitySeason {
		return int(SeasonOfMonth(m))
	}
	return int(m)
}

// Label renders a grouping key for display.
func (g Granularity) Label(key int) string {
	if g == GranularitySeason {
		return Season(key).String()
	}
	if key < 1 || key > 12 {
		return "unknown"
	}
	return time.Month(key).String()
}

// Reading is one historical observation.
type Reading struct {
	City        string     `json:"city" validate:"required"`
	Timestamp   time.Time  `json:"timestamp" validate:"required"`
	Temperature float64    `json:"temperature"`
	Month       time.Month `json:"month" validate:"min=1,max=12"`
	Season      Season     `json:"season" validate:"min=1,max=4"`
}

// SeasonalBand is the baseline of one (city, group) pair.
type SeasonalBand struct {
	Key    int     `json:"key"`
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// Sufficient reports whether the band has a defined standard deviation.
func (b SeasonalBand) Sufficient() bool {
	return b.Count >= 2 && !math.IsNaN(b.StdDev)
}

// Contains reports whether t lies within [Lower, Upper].
func (b SeasonalBand) Contains(t float64) bool {
	return t >= b.Lower && t <= b.Upper
}

// Verdict is the outcome of comparing a temperature with its band.
type Verdict string

const (
	VerdictNormal           Verdict = "normal"
	VerdictAnomaly          Verdict = "anomaly"
	VerdictOutOfRange       Verdict = "out_of_range"
	VerdictInsufficientData Verdict = "insufficient_data"
)

// ClassifiedReading is a historical reading with its band and anomaly verdict.
type ClassifiedReading struct {
	Reading
	Band    SeasonalBand `json:"band"`
	Verdict Verdict      `json:"verdict"`
}

// IsAnomaly is true only for readings with a sufficient band outside of it.
func (c ClassifiedReading) IsAnomaly() bool {
	return c.Verdict == VerdictAnomaly
}

// LiveObservation is the current temperature fetched for a city.
// It never becomes part of the historical dataset.
type LiveObservation struct {
	City         string    `json:"city"`
	Temperature  float64   `json:"temperature"`
	ObservedAt   time.Time `json:"observedAt"` // always UTC
	ProviderName string    `json:"provider"`
}

// Month is the calendar month the observation belongs to.
func (o LiveObservation) Month() time.Month {
	return o.ObservedAt.UTC().Month()
}
