package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/zombor/receipt-scanner/internal/receipt"
)

// DefaultHintCount is the number of correction examples passed to providers
const DefaultHintCount = 5

const (
	// WarningNoCredentials is reported when every provider was skipped for missing configuration
	WarningNoCredentials = "no provider credentials configured"
	// WarningCanceled is reported when the caller's context ended before the chain finished
	WarningCanceled = "recognition canceled before all providers were tried"
)

// HintSource supplies recent corrections as prompt hints
type HintSource interface {
	RecentHints(n int) []string
}

// Attempt records one provider call
type Attempt struct {
	Provider string        `json:"provider"`
	Outcome  Outcome       `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Result is a recognized record with its provenance
type Result struct {
	Data     receipt.ReceiptData `json:"data"`
	Provider string              `json:"provider"`
	Mock     bool                `json:"mock"`
	Cached   bool                `json:"cached"`
	Attempts []Attempt           `json:"attempts"`
	Warnings []string            `json:"warnings,omitempty"`
}

// OrchestratorConfig tunes the fallback chain
type OrchestratorConfig struct {
	// Timeout bounds each provider call; zero means no bound beyond the caller context
	Timeout time.Duration
	// CacheTTL keeps successful results per image; zero disables caching
	CacheTTL time.Duration
	// HintCount is the number of corrections passed as hints
	HintCount int
}

// Orchestrator tries providers in order and falls back to a placeholder record
type Orchestrator struct {
	providers []Provider
	hints     HintSource
	cfg       OrchestratorConfig
	cache     *cache.Cache
	now       func() time.Time
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. hints may be nil.
func NewOrchestrator(providers []Provider, hints HintSource, cfg OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	return NewOrchestratorWithDeps(providers, hints, cfg, time.Now, logger)
}

// NewOrchestratorWithDeps creates an Orchestrator with a custom clock for testing
func NewOrchestratorWithDeps(providers []Provider, hints HintSource, cfg OrchestratorConfig, now func() time.Time, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HintCount <= 0 {
		cfg.HintCount = DefaultHintCount
	}

	o := &Orchestrator{
		providers: providers,
		hints:     hints,
		cfg:       cfg,
		now:       now,
		logger:    logger,
	}
	if cfg.CacheTTL > 0 {
		o.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return o
}

// Recognize returns the first non-empty provider result, or the placeholder record.
// It never fails; the Result says where the record came from.
func (o *Orchestrator) Recognize(ctx context.Context, img Image) Result {
	start := time.Now()
	key := img.Hash()

	if hit, ok := o.cached(key); ok {
		o.logger.Info("scanning.recognize.cache_hit", "ref", img.Ref, "provider", hit.Provider)
		return hit
	}

	var hints []string
	if o.hints != nil {
		hints = o.hints.RecentHints(o.cfg.HintCount)
	}

	result := Result{Attempts: make([]Attempt, 0, len(o.providers))}
	for i, p := range o.providers {
		if err := ctx.Err(); err != nil {
			for _, rest := range o.providers[i:] {
				result.Attempts = append(result.Attempts, Attempt{
					Provider: rest.Name(),
					Outcome:  OutcomeNotAttempted,
					Error:    err.Error(),
				})
			}
			result.Warnings = append(result.Warnings, WarningCanceled)
			o.logger.Warn("scanning.recognize.canceled",
				"ref", img.Ref,
				"not_attempted", len(o.providers)-i,
				"error", err,
			)
			break
		}

		data, attempt := o.attempt(ctx, p, img, hints)
		result.Attempts = append(result.Attempts, attempt)
		if attempt.Outcome != OutcomeSuccess {
			continue
		}

		result.Data = data
		result.Provider = p.Name()
		if o.cache != nil {
			stored := result
			stored.Data = data.Clone()
			o.cache.SetDefault(key, stored)
		}
		o.logger.Info("scanning.recognize.done",
			"ref", img.Ref,
			"provider", result.Provider,
			"items", len(data.Items),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return result
	}

	if o.allSkipped(result.Attempts) {
		result.Warnings = append(result.Warnings, WarningNoCredentials)
		o.logger.Warn("scanning.recognize.unconfigured", "providers", len(o.providers))
	}

	result.Data = MockReceipt(o.now())
	result.Provider = "mock"
	result.Mock = true
	o.logger.Warn("scanning.recognize.mock",
		"ref", img.Ref,
		"attempts", len(result.Attempts),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result
}

// attempt runs one provider under the per-provider timeout
func (o *Orchestrator) attempt(ctx context.Context, p Provider, img Image, hints []string) (receipt.ReceiptData, Attempt) {
	callCtx := ctx
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	began := time.Now()
	data, err := safeRecognize(callCtx, p, img, hints)
	if err == nil && len(data.Items) == 0 {
		err = fmt.Errorf("%s returned no items: %w", p.Name(), ErrEmptyResult)
	}
	if err == nil {
		receipt.Finalize(&data, o.now())
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrNetworkFailure) {
		err = fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}

	attempt := Attempt{
		Provider: p.Name(),
		Outcome:  Classify(err),
		Elapsed:  time.Since(began),
	}
	if err != nil {
		attempt.Error = err.Error()
	}

	o.logger.Info("scanning.provider.attempt",
		"provider", attempt.Provider,
		"outcome", string(attempt.Outcome),
		"error_class", errorClass(err),
		"error", attempt.Error,
		"elapsed_ms", attempt.Elapsed.Milliseconds(),
	)
	return data, attempt
}

// safeRecognize turns a provider panic into an error
func safeRecognize(ctx context.Context, p Provider, img Image, hints []string) (data receipt.ReceiptData, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", p.Name(), r)
		}
	}()
	return p.Recognize(ctx, img, hints)
}

func (o *Orchestrator) allSkipped(attempts []Attempt) bool {
	if len(attempts) == 0 {
		return true
	}
	for _, a := range attempts {
		if a.Outcome != OutcomeSkipped {
			return false
		}
	}
	return true
}

// cached returns a copy of a stored result with fresh item ids
func (o *Orchestrator) cached(key string) (Result, bool) {
	if o.cache == nil {
		return Result{}, false
	}
	v, ok := o.cache.Get(key)
	if !ok {
		return Result{}, false
	}
	stored := v.(Result)

	hit := stored
	hit.Data = stored.Data.Clone()
	for i := range hit.Data.Items {
		hit.Data.Items[i].ID = receipt.NewItemID()
	}
	hit.Cached = true
	hit.Attempts = nil
	return hit, true
}

// Close closes every provider
func (o *Orchestrator) Close() error {
	var errs []error
	for _, p := range o.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
