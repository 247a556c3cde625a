package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/service"
)

// BreachScanner runs one breach detection pass.
type BreachScanner interface {
	ScanBreaches(ctx context.Context) (service.ScanResult, error)
}

type options struct {
	Cron       *cron.Cron
	RunTimeout time.Duration
}

// Option applies configuration to the breach worker.
type Option func(*options)

// WithCron supplies a preconfigured cron scheduler instance.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}

// WithRunTimeout bounds a single scan pass.
func WithRunTimeout(d time.Duration) Option {
	return func(o *options) {
		o.RunTimeout = d
	}
}

// SLABreachWorker runs the breach scan on a fixed delay. Runs never overlap
// and a panicking run does not cancel later ones.
type SLABreachWorker struct {
	scanner BreachScanner
	delay   time.Duration
	logger  *zap.Logger
	cron    *cron.Cron
	timeout time.Duration

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewSLABreachWorker builds the worker. The schedule starts with Start.
func NewSLABreachWorker(scanner BreachScanner, delay time.Duration, logger *zap.Logger, opts ...Option) *SLABreachWorker {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Cron == nil {
		o.Cron = cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger{logger: logger.Sugar()}),
		)
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = delay
	}
	return &SLABreachWorker{
		scanner: scanner,
		delay:   delay,
		logger:  logger,
		cron:    o.Cron,
		timeout: o.RunTimeout,
		ctx:     context.Background(),
	}
}

// Start schedules the scan. Runs stop when ctx is cancelled or Stop is called.
func (w *SLABreachWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return errors.New("sla breach worker already started")
	}
	if w.delay <= 0 {
		return errors.New("sla breach worker delay must be positive")
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.cron.Schedule(cron.Every(w.delay), w.scheduledJob())
	w.cron.Start()
	w.started = true
	w.logger.Info("sla breach worker started", zap.Duration("delay", w.delay))
	return nil
}

// Stop halts the schedule and waits for a running scan to finish or ctx to
// expire.
func (w *SLABreachWorker) Stop(ctx context.Context) {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	cancel := w.cancel
	w.mu.Unlock()

	done := w.cron.Stop()
	cancel()
	select {
	case <-done.Done():
	case <-ctx.Done():
		w.logger.Warn("sla breach worker stop timed out")
	}
	w.logger.Info("sla breach worker stopped")
}

// RunOnce executes a single scan pass.
func (w *SLABreachWorker) RunOnce(ctx context.Context) (service.ScanResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	result, err := w.scanner.ScanBreaches(runCtx)
	if err != nil {
		w.logger.Error("sla breach scan failed", zap.Error(err))
	}
	return result, err
}

func (w *SLABreachWorker) scheduledJob() cron.Job {
	// Recover must run inside SkipIfStillRunning so a panic still releases
	// the running token.
	chain := cron.NewChain(
		cron.SkipIfStillRunning(cronLogger{logger: w.logger.Sugar()}),
		cron.Recover(cronLogger{logger: w.logger.Sugar()}),
	)
	return chain.Then(cron.FuncJob(func() {
		w.mu.Lock()
		ctx := w.ctx
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		_, _ = w.RunOnce(ctx)
	}))
}

// cronLogger bridges cron's logger onto zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
