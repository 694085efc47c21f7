package planner

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/greenroute/greenroute/internal/featureflags"
	"github.com/greenroute/greenroute/internal/mapview"
	"github.com/greenroute/greenroute/internal/routing"
)

// DefaultIdleTTL is how long an untouched session lives.
const DefaultIdleTTL = 30 * time.Minute

// Flags are the runtime switches the planner reads.
type Flags interface {
	CancelSupersededSearches(ctx context.Context) bool
	PredictionTruncateLength(ctx context.Context) int
}

// ServiceConfig holds configuration for the planner service.
type ServiceConfig struct {
	Provider   routing.Provider
	Repository Repository
	Renderer   *mapview.Renderer
	Flags      Flags
	Logger     zerolog.Logger
	IdleTTL    time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Service manages planner sessions.
type Service struct {
	provider routing.Provider
	repo     Repository
	renderer *mapview.Renderer
	flags    Flags
	logger   zerolog.Logger
	idleTTL  time.Duration
	now      func() time.Time
}

// Snapshot is a consistent copy of a session's state for presentation.
type Snapshot struct {
	ID          string
	Origin      string
	Destination string
	Stops       []string
	Loading     bool
	Error       string
	Routes      []ListItem
	Selected    *Details
}

// NewService creates a planner service.
func NewService(cfg ServiceConfig) *Service {
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	repo := cfg.Repository
	if repo == nil {
		repo = NewInMemoryRepository()
	}

	renderer := cfg.Renderer
	if renderer == nil {
		renderer = mapview.NewRenderer(mapview.Config{})
	}

	flags := cfg.Flags
	if flags == nil {
		flags = staticFlags{}
	}

	return &Service{
		provider: cfg.Provider,
		repo:     repo,
		renderer: renderer,
		flags:    flags,
		logger:   cfg.Logger,
		idleTTL:  idleTTL,
		now:      now,
	}
}

// Create starts a new session.
func (s *Service) Create(ctx context.Context) (*Snapshot, error) {
	s.sweep(ctx)

	sess := NewSession(s.now())
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Debug().Str("session_id", sess.ID).Msg("planner session created")
	return s.snapshot(ctx, sess), nil
}

// Get returns the current state of a session.
func (s *Service) Get(ctx context.Context, id string) (*Snapshot, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, sess), nil
}

// Delete destroys a session, cancelling any search in flight.
func (s *Service) Delete(ctx context.Context, id string) error {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	sess.Close()

	s.logger.Debug().Str("session_id", id).Msg("planner session deleted")
	return nil
}

// UpdateOrigin replaces the origin of a session's form.
func (s *Service) UpdateOrigin(ctx context.Context, id, text string) (*Snapshot, error) {
	return s.mutate(ctx, id, func(f *Form) error {
		f.UpdateOrigin(text)
		return nil
	})
}

// UpdateDestination replaces the destination of a session's form.
func (s *Service) UpdateDestination(ctx context.Context, id, text string) (*Snapshot, error) {
	return s.mutate(ctx, id, func(f *Form) error {
		f.UpdateDestination(text)
		return nil
	})
}

// UpdateStop replaces one stop of a session's form.
func (s *Service) UpdateStop(ctx context.Context, id string, index int, text string) (*Snapshot, error) {
	return s.mutate(ctx, id, func(f *Form) error {
		return f.UpdateStop(index, text)
	})
}

// AddStop appends an empty stop to a session's form.
func (s *Service) AddStop(ctx context.Context, id string) (*Snapshot, error) {
	return s.mutate(ctx, id, func(f *Form) error {
		f.AddStop()
		return nil
	})
}

// RemoveStop removes one stop from a session's form.
func (s *Service) RemoveStop(ctx context.Context, id string, index int) (*Snapshot, error) {
	return s.mutate(ctx, id, func(f *Form) error {
		return f.RemoveStop(index)
	})
}

// SwapOriginDestination exchanges origin and destination of a session's form.
func (s *Service) SwapOriginDestination(ctx context.Context, id string) (*Snapshot, error) {
	return s.mutate(ctx, id, func(f *Form) error {
		f.SwapOriginDestination()
		return nil
	})
}

// SelectRoute selects a route of the current list by number.
func (s *Service) SelectRoute(ctx context.Context, id string, routeNumber int) (*Snapshot, error) {
	return s.mutate(ctx, id, func(f *Form) error {
		return f.SelectRoute(routeNumber)
	})
}

// SelectRouteAt selects a route of the current list by position.
func (s *Service) SelectRouteAt(ctx context.Context, id string, index int) (*Snapshot, error) {
	return s.mutate(ctx, id, func(f *Form) error {
		return f.SelectRouteAt(index)
	})
}

// Search submits the form: it issues exactly one backend request and applies
// its outcome unless a newer search of the same session started meanwhile.
// Lookup failures end up in the form's error, not in the returned error.
//
// The backend call is detached from ctx cancellation so a client hanging up
// does not leave the form with a spurious error; the HTTP client timeout
// bounds it instead.
func (s *Service) Search(ctx context.Context, id string) (*Snapshot, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	seq, query, runCtx := sess.Begin(context.WithoutCancel(ctx), s.flags.CancelSupersededSearches(ctx))

	log := s.logger.With().
		Str("session_id", id).
		Uint64("search_seq", seq).
		Logger()
	log.Debug().
		Str("origin", query.Origin).
		Str("destination", query.Destination).
		Str("waypoints", query.Waypoints()).
		Msg("searching routes")

	routes, lookupErr := s.provider.Routes(runCtx, query)

	if !sess.Complete(seq, routes, lookupErr) {
		log.Warn().Err(lookupErr).Msg("discarding result of superseded search")
		return s.snapshot(ctx, sess), nil
	}

	var backendErr *routing.BackendError
	switch {
	case lookupErr == nil:
		log.Debug().Int("routes", len(routes)).Msg("search completed")
	case errors.As(lookupErr, &backendErr), errors.Is(lookupErr, routing.ErrNoRoutes):
		log.Warn().Err(lookupErr).Msg("search returned no routes")
	default:
		log.Error().Err(lookupErr).Str("provider", s.provider.Name()).Msg("route backend request failed")
	}

	return s.snapshot(ctx, sess), nil
}

// Map renders the map scene of a session.
func (s *Service) Map(ctx context.Context, id string) (*mapview.Scene, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	var scene mapview.Scene
	_ = sess.With(func(f *Form) error {
		scene = s.renderer.Render(f.Routes(), f.Selected())
		return nil
	})
	return &scene, nil
}

func (s *Service) mutate(ctx context.Context, id string, fn func(f *Form) error) (*Snapshot, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.With(fn); err != nil {
		return nil, err
	}
	return s.snapshot(ctx, sess), nil
}

// session looks up a live session and records the access.
func (s *Service) session(ctx context.Context, id string) (*Session, error) {
	s.sweep(ctx)

	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.touch(s.now())
	return sess, nil
}

// SweepIdle drops sessions idle longer than the TTL, cancels their searches
// and returns how many were removed.
func (s *Service) SweepIdle(ctx context.Context) (int, error) {
	removed, err := s.repo.DeleteIdle(ctx, s.now().Add(-s.idleTTL))
	if err != nil {
		return 0, err
	}
	for _, sess := range removed {
		sess.Close()
		s.logger.Debug().Str("session_id", sess.ID).Msg("planner session expired")
	}
	return len(removed), nil
}

func (s *Service) sweep(ctx context.Context) {
	if _, err := s.SweepIdle(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to sweep idle sessions")
	}
}

func (s *Service) snapshot(ctx context.Context, sess *Session) *Snapshot {
	predictionLength := s.flags.PredictionTruncateLength(ctx)

	snap := &Snapshot{ID: sess.ID}
	_ = sess.With(func(f *Form) error {
		snap.Origin = f.Origin()
		snap.Destination = f.Destination()
		snap.Stops = f.Stops()
		snap.Loading = f.Loading()
		snap.Error = f.Error()

		selectedIndex := f.SelectedIndex()
		snap.Routes = make([]ListItem, 0, len(f.Routes()))
		for i := range f.Routes() {
			snap.Routes = append(snap.Routes, NewListItem(&f.Routes()[i], predictionLength, i == selectedIndex))
		}
		if selected := f.Selected(); selected != nil {
			details := NewDetails(selected)
			snap.Selected = &details
		}
		return nil
	})
	return snap
}

// staticFlags serves the default flag values.
type staticFlags struct{}

func (staticFlags) CancelSupersededSearches(context.Context) bool { return false }

func (staticFlags) PredictionTruncateLength(context.Context) int {
	return featureflags.DefaultPredictionTruncateLength
}
