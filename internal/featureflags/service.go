package featureflags

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository   Repository
	Logger       zerolog.Logger
	CacheTTL     time.Duration // How long to cache flags in memory
	DefaultFlags map[string]*Flag
}

// Service evaluates feature flags with caching and fallback to defaults.
type Service struct {
	repo         Repository
	logger       zerolog.Logger
	cacheTTL     time.Duration
	defaultFlags map[string]*Flag

	mu          sync.RWMutex
	cache       map[string]*Flag
	cacheExpiry time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Minute
	}

	defaultFlags := cfg.DefaultFlags
	if defaultFlags == nil {
		defaultFlags = DefaultFlags()
	}

	repo := cfg.Repository
	if repo == nil {
		repo = NewInMemoryRepository(nil)
	}

	return &Service{
		repo:         repo,
		logger:       cfg.Logger,
		cacheTTL:     cacheTTL,
		defaultFlags: defaultFlags,
		cache:        make(map[string]*Flag),
	}
}

// GetFlag returns a flag from cache, repository or defaults, in that order.
// It returns nil for an unknown key.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if flag := s.getCached(key); flag != nil {
		return flag
	}

	flag, err := s.repo.GetFlag(ctx, key)
	if err == nil {
		s.setCached(flag)
		return flag
	}

	if !errors.Is(err, ErrFlagNotFound) {
		s.logger.Warn().Err(err).Str("flag", key).Msg("failed to get feature flag from repository")
	}

	return s.defaultFlags[key]
}

// ListFlags returns repository flags merged over the defaults, sorted by key.
func (s *Service) ListFlags(ctx context.Context) []Flag {
	merged := make(map[string]*Flag, len(s.defaultFlags))
	for k, v := range s.defaultFlags {
		merged[k] = v
	}

	flags, err := s.repo.GetAllFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to list feature flags, using defaults")
	}
	for k, v := range flags {
		merged[k] = v
	}

	list := make([]Flag, 0, len(merged))
	for _, f := range merged {
		list = append(list, *f)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list
}

// SetFlags updates flags and refreshes the cache for them.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, flag := range flags {
		delete(s.cache, flag.Key)
	}
	return nil
}

// InvalidateCache clears the cached flags, forcing a refresh on next access.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Flag)
	s.cacheExpiry = time.Time{}
}

// IsEnabled returns true if the flag with the given key is truthy.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	return s.GetFlag(ctx, key).BoolValue(false)
}

// CancelSupersededSearches reports whether a new search cancels the previous one.
func (s *Service) CancelSupersededSearches(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagCancelSupersededSearches)
}

// PredictionTruncateLength returns the list truncation length, never below 1.
func (s *Service) PredictionTruncateLength(ctx context.Context) int {
	n := s.GetFlag(ctx, FlagPredictionTruncateLength).IntValue(DefaultPredictionTruncateLength)
	if n < 1 {
		return DefaultPredictionTruncateLength
	}
	return n
}

// AutocompleteEnabled reports whether place suggestions are served.
func (s *Service) AutocompleteEnabled(ctx context.Context) bool {
	return s.GetFlag(ctx, FlagAutocompleteEnabled).BoolValue(true)
}

func (s *Service) getCached(key string) *Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if time.Now().After(s.cacheExpiry) {
		return nil
	}
	return s.cache[key]
}

func (s *Service) setCached(flag *Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[flag.Key] = flag
	if s.cacheExpiry.Before(time.Now()) {
		s.cacheExpiry = time.Now().Add(s.cacheTTL)
	}
}
