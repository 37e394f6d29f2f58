package climate

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GroupCount is the number of readings in one baseline group.
type GroupCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary is the descriptive statistics table of a city's full history.
type Summary struct {
	City   string       `json:"city"`
	Count  int          `json:"count"`
	Mean   float64      `json:"mean"`
	StdDev float64      `json:"stdDev"`
	Min    float64      `json:"min"`
	Q1     float64      `json:"q1"`
	Median float64      `json:"median"`
	Q3     float64      `json:"q3"`
	Max    float64      `json:"max"`
	From   time.Time    `json:"from"`
	To     time.Time    `json:"to"`
	Groups []GroupCount `json:"groups"`
}

// Describe computes the summary of readings, which must be non-empty and
// sorted by timestamp.
func Describe(city string, readings []Reading, g Granularity) Summary {
	temps := make([]float64, len(readings))
	for i, r := range readings {
		temps[i] = r.Temperature
	}
	sorted := append([]float64(nil), temps...)
	sort.Float64s(sorted)

	s := Summary{
		City:   city,
		Count:  len(readings),
		Mean:   stat.Mean(temps, nil),
		StdDev: stat.StdDev(temps, nil),
		Min:    floats.Min(temps),
		Max:    floats.Max(temps),
		Q1:     stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Q3:     stat.Quantile(0.75, stat.Empirical, sorted, nil),
		From:   readings[0].Timestamp,
		To:     readings[len(readings)-1].Timestamp,
	}

	counts := make(map[int]int)
	for _, r := range readings {
		counts[g.KeyOf(r)]++
	}
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		s.Groups = append(s.Groups, GroupCount{Label: g.Label(k), Count: counts[k]})
	}
	return s
}

// CityAnalysis is everything derived from one city's history.
type CityAnalysis struct {
	City     string
	Baseline Baseline
	Readings []ClassifiedReading
	Summary  Summary
}

// Anomalies returns the readings flagged as anomalous.
func (a *CityAnalysis) Anomalies() []ClassifiedReading {
	var out []ClassifiedReading
	for _, r := range a.Readings {
		if r.IsAnomaly() {
			out = append(out, r)
		}
	}
	return out
}

// Analyze runs the seasonal statistics and anomaly flagging for one city.
func Analyze(ds *Dataset, city string, g Granularity) (*CityAnalysis, error) {
	readings, err := ds.ForCity(city)
	if err != nil {
		return nil, err
	}
	baseline := ComputeBaseline(readings, g)
	return &CityAnalysis{
		City:     city,
		Baseline: baseline,
		Readings: FlagAnomalies(readings, baseline),
		Summary:  Describe(city, readings, g),
	}, nil
}

// Classification is the verdict on a live observation.
type Classification struct {
	Observation LiveObservation `json:"observation"`
	Verdict     Verdict         `json:"verdict"`
	Band        SeasonalBand    `json:"band"`
	HistoryMin  float64         `json:"historyMin"`
	HistoryMax  float64         `json:"historyMax"`
	HistoryMean float64         `json:"historyMean"`
}

// Normal reports whether the live temperature lies inside its band.
func (c Classification) Normal() bool { return c.Verdict == VerdictNormal }

// Classify compares a live observation with the band of the month it was
// taken in. Bounds are inclusive. It fails with ErrNoBaseline when the
// history has no readings for that month.
func Classify(obs LiveObservation, a *CityAnalysis) (Classification, error) {
	g := a.Baseline.Granularity
	key := g.KeyForMonth(obs.Month())
	band, ok := a.Baseline.Band(key)
	if !ok {
		return Classification{}, fmt.Errorf("%w for %s in %s", ErrNoBaseline, a.City, g.Label(key))
	}

	c := Classification{
		Observation: obs,
		Band:        band,
		HistoryMin:  a.Summary.Min,
		HistoryMax:  a.Summary.Max,
		HistoryMean: a.Summary.Mean,
	}
	switch {
	case !band.Sufficient():
		c.Verdict = VerdictInsufficientData
	case band.Contains(obs.Temperature):
		c.Verdict = VerdictNormal
	default:
		c.Verdict = VerdictOutOfRange
	}
	return c, nil
}
