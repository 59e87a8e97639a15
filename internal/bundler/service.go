package bundler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"bindery/internal/catalog"
	"bindery/internal/config"
	"bindery/internal/jobs"
	"bindery/internal/logging"
	"bindery/internal/sizing"
)

// Service coordinates download jobs: creation, background builds,
// cancellation, streaming, and cache administration.
type Service struct {
	cfg       *config.Config
	store     *jobs.Store
	catalog   catalog.Catalog
	estimator *sizing.Estimator
	logger    *slog.Logger

	mu      sync.Mutex
	started bool
	baseCtx context.Context
	cancel  context.CancelFunc
	builds  sync.WaitGroup
	flags   map[string]*atomic.Bool
}

// NewService constructs a Service. Start must be called before jobs are
// created so builds have a lifecycle context to run under.
func NewService(cfg *config.Config, store *jobs.Store, cat catalog.Catalog, logger *slog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		store:     store,
		catalog:   cat,
		estimator: sizing.New(cat, cfg),
		logger:    logging.NewComponentLogger(logger, "bundler"),
		flags:     make(map[string]*atomic.Bool),
	}
}

// Start prepares the service for background builds. Builds launched after
// Start observe ctx: cancelling it asks in-flight builds to stop at the next
// file boundary.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("bundler already started")
	}
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.started = true
	return nil
}

// Stop cancels in-flight builds and waits for them to exit. Jobs still in
// preparing afterwards are left for the stale sweep.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.started = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.builds.Wait()
}

// buildContext returns the context background builds run under.
func (s *Service) buildContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

// registerCancelFlag installs the cooperative cancellation flag the builder
// polls between files.
func (s *Service) registerCancelFlag(jobID string) *atomic.Bool {
	flag := new(atomic.Bool)
	s.mu.Lock()
	s.flags[jobID] = flag
	s.mu.Unlock()
	return flag
}

func (s *Service) dropCancelFlag(jobID string) {
	s.mu.Lock()
	delete(s.flags, jobID)
	s.mu.Unlock()
}

func (s *Service) cancelFlag(jobID string) *atomic.Bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[jobID]
}

// Store exposes the underlying job store for read-side consumers.
func (s *Service) Store() *jobs.Store {
	return s.store
}

// GetJob fetches a job by ID.
func (s *Service) GetJob(ctx context.Context, jobID string) (*jobs.Job, error) {
	return s.store.GetByID(ctx, jobID)
}

// ListJobs returns jobs filtered by status, newest first.
func (s *Service) ListJobs(ctx context.Context, statuses ...jobs.Status) ([]*jobs.Job, error) {
	return s.store.List(ctx, statuses...)
}
