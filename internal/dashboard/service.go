package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/i474232898/seasonal-temperature-monitor/internal/chart"
	"github.com/i474232898/seasonal-temperature-monitor/internal/climate"
	"github.com/i474232898/seasonal-temperature-monitor/internal/session"
)

// SessionStore is the contract the in-memory session store satisfies.
type SessionStore interface {
	Create() string
	Update(id string, fn func(*session.Session) error) error
}

// Service drives a session through upload, city choice, statistics and the
// live classification.
type Service struct {
	sessions    SessionStore
	provider    climate.Provider
	granularity climate.Granularity
	defaultKey  string
	log         *slog.Logger
}

// NewService creates a new Service. defaultKey is used when a user submits
// an empty key; it may be empty.
func NewService(sessions SessionStore, provider climate.Provider, g climate.Granularity, defaultKey string, log *slog.Logger) *Service {
	return &Service{
		sessions:    sessions,
		provider:    provider,
		granularity: g,
		defaultKey:  defaultKey,
		log:         log,
	}
}

// NewSession starts a session and returns its id.
func (s *Service) NewSession() string {
	return s.sessions.Create()
}

// Upload parses a CSV file into the session. A failed upload keeps the
// previous dataset and records the error.
func (s *Service) Upload(id, fileName string, r io.Reader) error {
	return s.sessions.Update(id, func(sess *session.Session) error {
		ds, err := climate.ParseCSV(r)
		if err != nil {
			s.log.Warn("upload rejected", "session", id, "file", fileName, "err", err)
			sess.Fail(err)
			return err
		}
		sess.LoadDataset(fileName, ds)
		s.log.Info("dataset loaded", "session", id, "file", fileName, "rows", ds.Len(), "cities", len(ds.Cities()))
		return nil
	})
}

// SelectCity chooses a city and computes its baseline. A key submitted
// earlier in the session is reused to classify the new city right away.
func (s *Service) SelectCity(ctx context.Context, id, city string) error {
	return s.sessions.Update(id, func(sess *session.Session) error {
		prevKey := sess.APIKey()
		if err := sess.ChooseCity(city); err != nil {
			sess.Fail(err)
			return err
		}
		if err := sess.ComputeStats(s.granularity); err != nil {
			sess.Fail(err)
			return err
		}
		a := sess.Analysis()
		s.log.Info("statistics computed", "session", id, "city", city,
			"readings", len(a.Readings), "anomalies", len(a.Anomalies()))

		if prevKey == "" {
			return nil
		}
		return s.classify(ctx, sess, prevKey)
	})
}

// SubmitKey stores the API key, fetches the live temperature of the chosen
// city and classifies it. Exactly one outbound call is made.
func (s *Service) SubmitKey(ctx context.Context, id, key string) error {
	if key == "" {
		key = s.defaultKey
	}
	return s.sessions.Update(id, func(sess *session.Session) error {
		return s.classify(ctx, sess, key)
	})
}

func (s *Service) classify(ctx context.Context, sess *session.Session, key string) error {
	if err := sess.ProvideKey(key); err != nil {
		sess.Fail(err)
		return err
	}

	obs, err := s.provider.Current(ctx, sess.City(), sess.APIKey())
	if err != nil {
		s.log.Warn("live fetch failed", "session", sess.ID, "provider", s.provider.Name(),
			"city", sess.City(), "err", err)
		sess.Fail(err)
		return err
	}

	if err := sess.RecordLive(obs); err != nil {
		s.log.Warn("live classification failed", "session", sess.ID, "city", sess.City(), "err", err)
		sess.Fail(err)
		return err
	}

	c := sess.Classification()
	s.log.Info("live temperature classified", "session", sess.ID, "city", sess.City(),
		"temperature", obs.Temperature, "month", obs.Month().String(), "verdict", c.Verdict)
	return nil
}

// Snapshot returns the view of a session.
func (s *Service) Snapshot(id string) (*Snapshot, error) {
	var snap *Snapshot
	err := s.sessions.Update(id, func(sess *session.Session) error {
		snap = newSnapshot(sess, s.granularity, s.defaultKey != "")
		return nil
	})
	return snap, err
}

// RenderChart writes the PNG chart of the selected city.
func (s *Service) RenderChart(id string, w io.Writer) error {
	return s.sessions.Update(id, func(sess *session.Session) error {
		a := sess.Analysis()
		if a == nil {
			if sess.State() < session.StateDataLoaded {
				return session.ErrNoData
			}
			return session.ErrNoCity
		}
		if err := chart.RenderPNG(w, a); err != nil {
			if errors.Is(err, chart.ErrNoReadings) {
				return session.ErrNoCity
			}
			return err
		}
		return nil
	})
}
