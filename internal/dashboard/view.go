package dashboard

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/i474232898/seasonal-temperature-monitor/internal/climate"
	"github.com/i474232898/seasonal-temperature-monitor/internal/climate/providers"
	"github.com/i474232898/seasonal-temperature-monitor/internal/session"
)

// previewRows is how many uploaded rows are echoed back after an upload.
const previewRows = 5

// warnDefaultKey replaces the missing-key prompt when a configured key
// will be used for an empty submission.
const warnDefaultKey = "Submit to check the live temperature with the configured API key"

// Number is a float that renders NaN as "n/a" and encodes it as JSON null.
type Number float64

func (n Number) undefined() bool {
	return math.IsNaN(float64(n)) || math.IsInf(float64(n), 0)
}

func (n Number) String() string {
	if n.undefined() {
		return "n/a"
	}
	return strconv.FormatFloat(float64(n), 'f', 2, 64)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.undefined() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(n), 'f', -1, 64), nil
}

// ErrorKind groups step failures for display.
type ErrorKind string

const (
	KindUpload   ErrorKind = "upload"
	KindCity     ErrorKind = "city"
	KindKey      ErrorKind = "key"
	KindAuth     ErrorKind = "auth"
	KindUpstream ErrorKind = "upstream"
	KindBaseline ErrorKind = "baseline"
	KindInternal ErrorKind = "internal"
)

// KindOf classifies an error returned by a dashboard step.
func KindOf(err error) ErrorKind {
	var (
		authErr   *providers.AuthError
		statusErr *providers.StatusError
	)
	switch {
	case errors.As(err, &authErr):
		return KindAuth
	case errors.As(err, &statusErr), errors.Is(err, providers.ErrCircuitOpen):
		return KindUpstream
	case errors.Is(err, climate.ErrMissingField), errors.Is(err, climate.ErrInvalidRow),
		errors.Is(err, climate.ErrEmptyDataset), errors.Is(err, session.ErrNoData):
		return KindUpload
	case errors.Is(err, session.ErrNoCity), errors.Is(err, climate.ErrUnknownCity):
		return KindCity
	case errors.Is(err, session.ErrMissingKey), errors.Is(err, providers.ErrMissingAPIKey),
		errors.Is(err, session.ErrNoKey):
		return KindKey
	case errors.Is(err, climate.ErrNoBaseline):
		return KindBaseline
	default:
		return KindInternal
	}
}

type ErrorView struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

type ReadingView struct {
	City        string    `json:"city"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature Number    `json:"temperature"`
	Group       string    `json:"group"`
}

type BandView struct {
	Label  string `json:"label"`
	Count  int    `json:"count"`
	Mean   Number `json:"mean"`
	StdDev Number `json:"stdDev"`
	Lower  Number `json:"lower"`
	Upper  Number `json:"upper"`
	// Sufficient is false for single-reading groups.
	Sufficient bool `json:"sufficient"`
}

type SummaryView struct {
	Count  int                  `json:"count"`
	Mean   Number               `json:"mean"`
	StdDev Number               `json:"stdDev"`
	Min    Number               `json:"min"`
	Q1     Number               `json:"q1"`
	Median Number               `json:"median"`
	Q3     Number               `json:"q3"`
	Max    Number               `json:"max"`
	From   time.Time            `json:"from"`
	To     time.Time            `json:"to"`
	Groups []climate.GroupCount `json:"groups"`
}

type LiveView struct {
	City        string          `json:"city"`
	Temperature Number          `json:"temperature"`
	ObservedAt  time.Time       `json:"observedAt"`
	Verdict     climate.Verdict `json:"verdict"`
	Message     string          `json:"message"`
	Band        BandView        `json:"band"`
	HistoryMin  Number          `json:"historyMin"`
	HistoryMax  Number          `json:"historyMax"`
	HistoryMean Number          `json:"historyMean"`
}

// Snapshot is the full view of one session.
type Snapshot struct {
	SessionID    string        `json:"sessionId"`
	State        string        `json:"state"`
	Warnings     []string      `json:"warnings,omitempty"`
	Error        *ErrorView    `json:"error,omitempty"`
	FileName     string        `json:"fileName,omitempty"`
	Rows         int           `json:"rows"`
	Preview      []ReadingView `json:"preview,omitempty"`
	Cities       []string      `json:"cities,omitempty"`
	City         string        `json:"city,omitempty"`
	Granularity  string        `json:"granularity"`
	Summary      *SummaryView  `json:"summary,omitempty"`
	Bands        []BandView    `json:"bands,omitempty"`
	Anomalies    []ReadingView `json:"anomalies,omitempty"`
	HasKey       bool          `json:"hasKey"`
	KeyPrefilled bool          `json:"keyPrefilled"`
	Live         *LiveView     `json:"live,omitempty"`
}

// HasData, HasCity and HasStats gate the dashboard sections.
func (s *Snapshot) HasData() bool  { return s.Rows > 0 }
func (s *Snapshot) HasCity() bool  { return s.City != "" }
func (s *Snapshot) HasStats() bool { return s.Summary != nil }

func newSnapshot(sess *session.Session, g climate.Granularity, keyPrefilled bool) *Snapshot {
	snap := &Snapshot{
		SessionID:    sess.ID,
		State:        sess.State().String(),
		Warnings:     warnings(sess, keyPrefilled),
		Granularity:  string(g),
		City:         sess.City(),
		HasKey:       sess.APIKey() != "",
		KeyPrefilled: keyPrefilled,
	}
	if err := sess.Err(); err != nil {
		snap.Error = &ErrorView{Kind: KindOf(err), Message: err.Error()}
	}

	if ds := sess.Dataset(); ds != nil {
		snap.FileName = sess.FileName()
		snap.Rows = ds.Len()
		snap.Cities = ds.Cities()
		for _, r := range ds.Head(previewRows) {
			snap.Preview = append(snap.Preview, readingView(r, g))
		}
	}

	if a := sess.Analysis(); a != nil {
		snap.Granularity = string(a.Baseline.Granularity)
		snap.Summary = summaryView(a.Summary)
		for _, b := range a.Baseline.Bands() {
			snap.Bands = append(snap.Bands, bandView(b))
		}
		for _, r := range a.Anomalies() {
			snap.Anomalies = append(snap.Anomalies, readingView(r.Reading, a.Baseline.Granularity))
		}
	}

	if c := sess.Classification(); c != nil {
		snap.Live = liveView(*c)
	}
	return snap
}

func warnings(sess *session.Session, keyPrefilled bool) []string {
	ws := sess.Warnings()
	if !keyPrefilled {
		return ws
	}
	for i, w := range ws {
		if w == session.WarnMissingKey {
			ws[i] = warnDefaultKey
		}
	}
	return ws
}

func readingView(r climate.Reading, g climate.Granularity) ReadingView {
	return ReadingView{
		City:        r.City,
		Timestamp:   r.Timestamp,
		Temperature: Number(r.Temperature),
		Group:       g.Label(g.KeyOf(r)),
	}
}

func bandView(b climate.SeasonalBand) BandView {
	return BandView{
		Label:      b.Label,
		Count:      b.Count,
		Mean:       Number(b.Mean),
		StdDev:     Number(b.StdDev),
		Lower:      Number(b.Lower),
		Upper:      Number(b.Upper),
		Sufficient: b.Sufficient(),
	}
}

func summaryView(s climate.Summary) *SummaryView {
	return &SummaryView{
		Count:  s.Count,
		Mean:   Number(s.Mean),
		StdDev: Number(s.StdDev),
		Min:    Number(s.Min),
		Q1:     Number(s.Q1),
		Median: Number(s.Median),
		Q3:     Number(s.Q3),
		Max:    Number(s.Max),
		From:   s.From,
		To:     s.To,
		Groups: s.Groups,
	}
}

func liveView(c climate.Classification) *LiveView {
	v := &LiveView{
		City:        c.Observation.City,
		Temperature: Number(c.Observation.Temperature),
		ObservedAt:  c.Observation.ObservedAt,
		Verdict:     c.Verdict,
		Band:        bandView(c.Band),
		HistoryMin:  Number(c.HistoryMin),
		HistoryMax:  Number(c.HistoryMax),
		HistoryMean: Number(c.HistoryMean),
	}
	switch c.Verdict {
	case climate.VerdictNormal:
		v.Message = "Temperature is normal"
	case climate.VerdictOutOfRange:
		v.Message = "Temperature is out of the normal range"
	default:
		v.Message = "Insufficient data: the " + c.Band.Label + " baseline has a single reading"
	}
	return v
}
