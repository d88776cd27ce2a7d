package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/logger"
)

// WindowResult is the outcome of extracting one window. A failed window keeps
// its Err and has no accounts.
type WindowResult struct {
	Index    int
	Accounts []domain.CandidateAccount
	Raw      string
	Model    string
	Err      error
	Elapsed  time.Duration
}

// DispatcherConfig bounds outbound extraction traffic.
type DispatcherConfig struct {
	// MaxConcurrency caps in-flight calls for a single document.
	MaxConcurrency int
	// RequestsPerSecond is shared by every document using the dispatcher.
	// Zero or less disables rate limiting.
	RequestsPerSecond float64
	Burst             int
}

// Dispatcher fans windows out to an Extractor. One dispatcher is meant to be
// shared by all requests so the rate limit applies process wide.
type Dispatcher struct {
	extractor      Extractor
	limiter        *rate.Limiter
	maxConcurrency int
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(extractor Extractor, cfg DispatcherConfig) *Dispatcher {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.MaxConcurrency
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Dispatcher{
		extractor:      extractor,
		limiter:        rate.NewLimiter(limit, cfg.Burst),
		maxConcurrency: cfg.MaxConcurrency,
	}
}

// Dispatch extracts every window concurrently and returns the results in
// window order. A window that fails is logged and degrades to an empty
// result; only cancellation of ctx fails the whole call.
func (d *Dispatcher) Dispatch(ctx context.Context, windows []string) ([]WindowResult, error) {
	results := make([]WindowResult, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxConcurrency)

	for i, w := range windows {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = d.extract(gctx, i, w)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("Dispatch: %w", err)
	}
	return results, nil
}

func (d *Dispatcher) extract(ctx context.Context, index int, window string) (res WindowResult) {
	log := logger.FromContext(ctx)
	start := time.Now()
	res.Index = index

	defer func() {
		if r := recover(); r != nil {
			res = WindowResult{Index: index, Err: fmt.Errorf("window %d: panic: %v", index, r)}
		}
		res.Elapsed = time.Since(start)
		if res.Err != nil && ctx.Err() == nil {
			log.Warn().
				Err(res.Err).
				Int("window", index).
				Msg("Window extraction failed, continuing without it")
		}
	}()

	if err := d.limiter.Wait(ctx); err != nil {
		res.Err = err
		return res
	}

	out, err := d.extractor.ExtractWindow(ctx, window, index)
	if out != nil {
		res.Raw = out.Raw
		res.Model = out.Model
	}
	if err != nil {
		res.Err = err
		return res
	}
	if out != nil {
		res.Accounts = out.Accounts
	}

	log.Debug().
		Int("window", index).
		Int("accounts", len(res.Accounts)).
		Msg("Window extracted")
	return res
}
