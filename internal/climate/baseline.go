package climate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// boundWidth is the number of standard deviations on either side of the mean
// that still counts as normal.
const boundWidth = 2.0

// Baseline holds the seasonal bands of one city.
type Baseline struct {
	Granularity Granularity
	bands       map[int]SeasonalBand
}

// ComputeBaseline groups readings by the granularity key and derives mean,
// sample standard deviation and the mean ± 2σ band for each group.
// Groups with a single reading get a NaN deviation and NaN bounds.
func ComputeBaseline(readings []Reading, g Granularity) Baseline {
	groups := make(map[int][]float64)
	for _, r := range readings {
		k := g.KeyOf(r)
		groups[k] = append(groups[k], r.Temperature)
	}

	bands := make(map[int]SeasonalBand, len(groups))
	for k, temps := range groups {
		mean := stat.Mean(temps, nil)
		std := math.NaN()
		if len(temps) >= 2 {
			std = stat.StdDev(temps, nil)
		}
		bands[k] = SeasonalBand{
			Key:    k,
			Label:  g.Label(k),
			Count:  len(temps),
			Mean:   mean,
			StdDev: std,
			Lower:  mean - boundWidth*std,
			Upper:  mean + boundWidth*std,
		}
	}
	return Baseline{Granularity: g, bands: bands}
}

// Band returns the band for a grouping key.
func (b Baseline) Band(key int) (SeasonalBand, bool) {
	band, ok := b.bands[key]
	return band, ok
}

// Bands returns all bands ordered by key.
func (b Baseline) Bands() []SeasonalBand {
	out := make([]SeasonalBand, 0, len(b.bands))
	for _, band := range b.bands {
		out = append(out, band)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// FlagAnomalies attaches each reading's band and verdict. Readings keep their order.
func FlagAnomalies(readings []Reading, baseline Baseline) []ClassifiedReading {
	out := make([]ClassifiedReading, 0, len(readings))
	for _, r := range readings {
		band, _ := baseline.Band(baseline.Granularity.KeyOf(r))
		verdict := VerdictNormal
		switch {
		case !band.Sufficient():
			verdict = VerdictInsufficientData
		case IsAnomaly(r.Temperature, band.Lower, band.Upper):
			verdict = VerdictAnomaly
		}
		out = append(out, ClassifiedReading{Reading: r, Band: band, Verdict: verdict})
	}
	return out
}

// IsAnomaly reports whether temp lies strictly outside [lower, upper].
func IsAnomaly(temp, lower, upper float64) bool {
	return temp > upper || temp < lower
}
