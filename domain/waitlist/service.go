package waitlist

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/akeren/go-waitlist/internal/log"
	apperrors "github.com/akeren/go-waitlist/pkg/errors"
	"github.com/akeren/go-waitlist/pkg/notify"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	exportCacheKey      = "waitlist:export:csv"
	exportGenerationKey = "waitlist:export:generation"
)

var tracer = otel.Tracer("github.com/akeren/go-waitlist/domain/waitlist")

type WaitlistService interface {
	CreateSignup(ctx context.Context, req *CreateWaitlistSignupRequest) (*WaitlistSignupResponse, error)
	ExportCSV(ctx context.Context) ([]byte, error)
}

// SignupNotifier is satisfied by *notify.Dispatcher.
type SignupNotifier interface {
	Dispatch(ctx context.Context, subscriber notify.Subscriber)
}

// ExportCache is the subset of the application cache used for CSV exports.
type ExportCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type WaitlistServiceConfig struct {
	Notifier       SignupNotifier
	ExportCache    ExportCache
	ExportCacheTTL time.Duration
	Registerer     prometheus.Registerer
}

type waitlistService struct {
	logger     *log.Logger
	repository WaitlistRepository
	notifier   SignupNotifier
	cache      ExportCache
	cacheTTL   time.Duration
	signups    *prometheus.CounterVec
}

func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, cfg WaitlistServiceConfig) WaitlistService {
	return &waitlistService{
		logger:     logger,
		repository: repository,
		notifier:   cfg.Notifier,
		cache:      cfg.ExportCache,
		cacheTTL:   cfg.ExportCacheTTL,
		signups:    registerSignupCounter(cfg.Registerer),
	}
}

func (s *waitlistService) CreateSignup(ctx context.Context, req *CreateWaitlistSignupRequest) (*WaitlistSignupResponse, error) {
	ctx, span := tracer.Start(ctx, "waitlist.CreateSignup")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		logger.Error("CreateSignup received nil request")
		return nil, apperrors.NewInvalidRequestError("request cannot be nil", nil)
	}

	signup := ToWaitlistSignupModel(req)
	if signup.Email == "" || signup.Name == "" || signup.CreatorType == "" {
		s.signups.WithLabelValues("invalid").Inc()
		return nil, apperrors.NewInvalidRequestError("email, name and creator type are required", nil)
	}

	existing, err := s.repository.FindSignupByEmail(ctx, signup.Email)
	if err != nil && !errors.Is(err, ErrSignupNotFound) {
		logger.Error("Failed to look up waitlist signup", "error", err)
		recordSpanError(span, err)
		return nil, err
	}
	if existing != nil {
		logger.Info("Duplicate waitlist signup rejected", "email", signup.Email)
		s.signups.WithLabelValues("duplicate").Inc()
		return nil, apperrors.NewDuplicateEntryError(duplicateEmailMessage, ErrDuplicateEmail)
	}

	created, err := s.repository.CreateSignup(ctx, signup)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			logger.Info("Concurrent duplicate waitlist signup rejected", "email", signup.Email)
			s.signups.WithLabelValues("duplicate").Inc()
			return nil, err
		}
		logger.Error("Failed to create waitlist signup", "error", err)
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("waitlist.signup_id", int64(created.ID)))
	s.signups.WithLabelValues("created").Inc()
	logger.Info("Waitlist signup created", "id", created.ID, "email", created.Email, "creator_type", created.CreatorType)

	s.invalidateExport(ctx, logger)

	if s.notifier != nil {
		s.notifier.Dispatch(ctx, ToSubscriber(created))
	}

	resp := ToWaitlistSignupResponse(created)
	return &resp, nil
}

func (s *waitlistService) ExportCSV(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "waitlist.ExportCSV")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	// The generation is read before listing. A signup committed after this
	// point bumps it, so the CSV built below is never served in its place.
	var cacheKey string
	if s.cacheEnabled() {
		cacheKey = s.exportKey(ctx, logger)
	}
	if cacheKey != "" {
		cached, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err != nil:
			logger.Warn("Export cache read failed", "error", err)
		case cached != "":
			span.SetAttributes(attribute.Bool("waitlist.export_cached", true))
			return []byte(cached), nil
		}
	}

	signups, err := s.repository.ListSignups(ctx)
	if err != nil {
		logger.Error("Failed to list waitlist signups", "error", err)
		recordSpanError(span, err)
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteSignupsCSV(&buf, signups); err != nil {
		logger.Error("Failed to encode waitlist export", "error", err)
		recordSpanError(span, err)
		return nil, apperrors.NewInternalServerError("failed to export waitlist", err)
	}

	span.SetAttributes(attribute.Int("waitlist.export_rows", len(signups)))

	if cacheKey != "" {
		if err := s.cache.Set(ctx, cacheKey, buf.String(), s.cacheTTL); err != nil {
			logger.Warn("Export cache write failed", "error", err)
		}
	}

	return buf.Bytes(), nil
}

func (s *waitlistService) cacheEnabled() bool {
	return s.cache != nil && s.cacheTTL > 0
}

// exportKey names the cached CSV for the current signup generation. An
// unreadable generation yields "", which disables caching for this export.
func (s *waitlistService) exportKey(ctx context.Context, logger *log.Logger) string {
	generation, err := s.cache.Get(ctx, exportGenerationKey)
	if err != nil {
		logger.Warn("Export cache generation read failed", "error", err)
		return ""
	}
	if generation == "" {
		generation = "0"
	}
	return exportCacheKey + ":" + generation
}

// invalidateExport starts a new generation. Exports built from a listing
// taken before the signup committed stay cached under the old key until
// their TTL runs out, but are no longer read.
func (s *waitlistService) invalidateExport(ctx context.Context, logger *log.Logger) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, exportGenerationKey, uuid.NewString(), 0); err != nil {
		logger.Warn("Export cache invalidation failed", "error", err)
	}
}

func registerSignupCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_signups_total",
			Help: "Waitlist signup attempts by outcome.",
		},
		[]string{"outcome"},
	)

	if reg == nil {
		return counter
	}

	if err := reg.Register(counter); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}

	return counter
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
