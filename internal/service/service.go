package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/satyamkes/JanSahyog/internal/aiclient"
	"github.com/satyamkes/JanSahyog/internal/cache"
	"github.com/satyamkes/JanSahyog/internal/eligibility"
	"github.com/satyamkes/JanSahyog/internal/events"
	"github.com/satyamkes/JanSahyog/internal/features"
	"github.com/satyamkes/JanSahyog/internal/metrics"
	"github.com/satyamkes/JanSahyog/internal/models"
	"github.com/satyamkes/JanSahyog/internal/tracing"
	"github.com/satyamkes/JanSahyog/internal/validation"
)

const defaultCacheTTL = 5 * time.Minute

var activeSchemesKey = cache.Key("schemes", "active")

// SchemeStore is the persistence the service needs from a catalog backend.
type SchemeStore interface {
	CreateScheme(ctx context.Context, scheme models.Scheme) (models.Scheme, error)
	GetScheme(ctx context.Context, id string) (models.Scheme, error)
	ListActiveSchemes(ctx context.Context) ([]models.Scheme, error)
	Ping(ctx context.Context) error
}

// AIClient forwards eligibility checks to the external AI service.
type AIClient interface {
	Configured() bool
	CheckEligibility(ctx context.Context, profile models.ApplicantProfile) (json.RawMessage, error)
}

// AIResult is the outcome of an ai-check. Exactly one of Body and Local is
// set: Body holds the AI service response to relay as-is, Local the result
// of the in-process matcher.
type AIResult struct {
	Body     json.RawMessage
	Local    *models.EligibilityResult
	Fallback bool
}

// Service provides business logic for the scheme catalog and eligibility API.
type Service struct {
	store    SchemeStore
	cache    cache.Cache
	cacheTTL time.Duration
	matcher  *eligibility.Matcher
	ai       AIClient
	events   *events.Manager
	features *features.Manager
	logger   *zap.Logger
	tracer   *tracing.Tracer

	// cacheMu orders list writes against invalidations. listGen is bumped on
	// every invalidation so a list read that raced a create is not cached.
	cacheMu sync.Mutex
	listGen uint64
}

// Option configures a Service.
type Option func(*Service)

// WithCache serves the active scheme list from c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithMatcher replaces the default matcher.
func WithMatcher(m *eligibility.Matcher) Option {
	return func(s *Service) { s.matcher = m }
}

// WithAIClient enables forwarding of ai-checks.
func WithAIClient(c AIClient) Option {
	return func(s *Service) { s.ai = c }
}

// WithEvents publishes catalog and eligibility events to m.
func WithEvents(m *events.Manager) Option {
	return func(s *Service) { s.events = m }
}

// WithFeatures gates cache, events and AI forwarding on the given flags.
func WithFeatures(m *features.Manager) Option {
	return func(s *Service) { s.features = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new service instance.
func NewService(store SchemeStore, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cacheTTL: defaultCacheTTL,
		matcher:  eligibility.NewMatcher(),
		logger:   zap.NewNop(),
		tracer:   tracing.GetTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// enabled reports a feature flag. Without a feature manager everything that
// was wired in is on.
func (s *Service) enabled(flag string) bool {
	if s.features == nil {
		return true
	}
	return s.features.IsEnabled(flag)
}

// ListSchemes returns the active schemes, newest first.
func (s *Service) ListSchemes(ctx context.Context) ([]models.Scheme, error) {
	ctx, span := s.tracer.StartSpan(ctx, "service.ListSchemes")
	defer span.End()

	useCache := s.cache != nil && s.enabled(features.FeatureCacheEnabled)
	var gen uint64
	if useCache {
		gen = s.listGeneration()
		var cached []models.Scheme
		err := cache.GetJSON(ctx, s.cache, activeSchemesKey, &cached)
		switch {
		case err == nil:
			metrics.CatalogCacheLookups.WithLabelValues("hit").Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		case errors.Is(err, cache.ErrNotFound):
			metrics.CatalogCacheLookups.WithLabelValues("miss").Inc()
		default:
			metrics.CatalogCacheLookups.WithLabelValues("error").Inc()
			s.logger.Warn("scheme cache read failed", zap.Error(err))
		}
	}

	schemes, err := s.store.ListActiveSchemes(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list active schemes: %w", err)
	}
	span.SetAttributes(attribute.Int("schemes.count", len(schemes)))

	if useCache {
		s.storeList(ctx, gen, schemes)
	}

	return schemes, nil
}

func (s *Service) listGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.listGen
}

// storeList caches schemes unless the list was invalidated after gen was
// taken.
func (s *Service) storeList(ctx context.Context, gen uint64, schemes []models.Scheme) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.listGen != gen {
		s.logger.Debug("skipping scheme cache write after invalidation")
		return
	}
	if err := cache.SetJSON(ctx, s.cache, activeSchemesKey, schemes, s.cacheTTL); err != nil {
		s.logger.Warn("scheme cache write failed", zap.Error(err))
	}
}

func (s *Service) invalidateList(ctx context.Context) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.listGen++
	if err := s.cache.Delete(ctx, activeSchemesKey); err != nil {
		s.logger.Warn("scheme cache invalidation failed", zap.Error(err))
	}
}

// GetScheme returns one scheme by id, active or not.
func (s *Service) GetScheme(ctx context.Context, id string) (models.Scheme, error) {
	ctx, span := s.tracer.StartSpan(ctx, "service.GetScheme")
	defer span.End()
	span.SetAttributes(attribute.String("scheme.id", id))

	return s.store.GetScheme(ctx, id)
}

// CreateScheme applies defaults, validates and stores a new scheme.
func (s *Service) CreateScheme(ctx context.Context, req models.CreateSchemeRequest) (models.Scheme, error) {
	ctx, span := s.tracer.StartSpan(ctx, "service.CreateScheme")
	defer span.End()

	scheme := req.ToScheme()
	if err := validation.ValidateScheme(scheme); err != nil {
		return models.Scheme{}, err
	}

	created, err := s.store.CreateScheme(ctx, scheme)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return models.Scheme{}, err
	}

	if s.cache != nil {
		s.invalidateList(ctx)
	}

	metrics.SchemesCreated.Inc()
	s.logger.Info("scheme created", zap.String("id", created.ID), zap.String("name", created.Name))

	if s.events != nil && s.enabled(features.FeatureEventHooksEnabled) {
		s.events.PublishSchemeCreated(ctx, created)
	}

	return created, nil
}

// CheckEligibility matches the profile against the active catalog.
func (s *Service) CheckEligibility(ctx context.Context, profile models.ApplicantProfile) (models.EligibilityResult, error) {
	return s.checkLocal(ctx, profile, metrics.ModeLocal)
}

func (s *Service) checkLocal(ctx context.Context, profile models.ApplicantProfile, mode string) (models.EligibilityResult, error) {
	schemes, err := s.ListSchemes(ctx)
	if err != nil {
		return models.EligibilityResult{}, err
	}

	_, span := s.tracer.StartSpan(ctx, "eligibility.Match")
	matched := s.matcher.Match(profile, schemes)
	span.SetAttributes(
		attribute.Int("schemes.candidates", len(schemes)),
		attribute.Int("schemes.eligible", len(matched)),
	)
	span.End()

	metrics.EligibilityChecks.WithLabelValues(mode).Inc()
	metrics.EligibleSchemes.Observe(float64(len(matched)))

	if s.events != nil && s.enabled(features.FeatureEventHooksEnabled) {
		s.events.PublishEligibilityChecked(ctx, profile, matched)
	}

	return models.EligibilityResult{
		Count:       len(matched),
		Schemes:     matched,
		UserProfile: profile,
	}, nil
}

// CheckEligibilityAI forwards the profile to the AI service and relays its
// answer. When the service refuses the connection, or AI matching is off,
// the check is answered locally.
func (s *Service) CheckEligibilityAI(ctx context.Context, profile models.ApplicantProfile) (AIResult, error) {
	ctx, span := s.tracer.StartSpan(ctx, "service.CheckEligibilityAI")
	defer span.End()

	if s.ai == nil || !s.ai.Configured() || !s.enabled(features.FeatureAIMatching) {
		result, err := s.checkLocal(ctx, profile, metrics.ModeLocal)
		if err != nil {
			return AIResult{}, err
		}
		return AIResult{Local: &result}, nil
	}

	body, err := s.ai.CheckEligibility(ctx, profile)
	if err == nil {
		metrics.EligibilityChecks.WithLabelValues(metrics.ModeAI).Inc()
		return AIResult{Body: body}, nil
	}

	if !errors.Is(err, aiclient.ErrUnavailable) {
		span.SetStatus(codes.Error, err.Error())
		return AIResult{}, fmt.Errorf("ai eligibility check failed: %w", err)
	}

	s.logger.Warn("ai service unavailable, using local matcher", zap.Error(err))
	metrics.AIFallbacks.Inc()
	span.SetAttributes(attribute.Bool("ai.fallback", true))
	if s.events != nil && s.enabled(features.FeatureEventHooksEnabled) {
		s.events.PublishAIFallback(ctx, profile, err.Error())
	}

	result, err := s.checkLocal(ctx, profile, metrics.ModeFallback)
	if err != nil {
		return AIResult{}, err
	}
	return AIResult{Local: &result, Fallback: true}, nil
}

// Features returns the runtime feature flags, or nil when none are wired.
func (s *Service) Features() []features.FeatureFlag {
	if s.features == nil {
		return nil
	}
	return s.features.GetAll()
}

// Health checks that the catalog store is reachable.
func (s *Service) Health(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("catalog store unreachable: %w", err)
	}
	return nil
}
