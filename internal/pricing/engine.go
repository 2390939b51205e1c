package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fleetroad/pricingservice/internal/log"
	"github.com/fleetroad/pricingservice/internal/metrics"
	"github.com/fleetroad/pricingservice/internal/tracing"
)

var maxTaxRate = decimal.NewFromInt(1)

// Config holds engine tunables.
type Config struct {
	// TaxRate applies when a request does not carry its own.
	TaxRate decimal.Decimal
	// DemandFreshness is how old a demand snapshot may be before confidence drops to low.
	DemandFreshness time.Duration
	// BatchConcurrency bounds parallel scenario evaluation. Zero or less means unbounded.
	BatchConcurrency int
	// MaxScenarios caps the size of one batch. Zero means no cap.
	MaxScenarios int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		TaxRate:          decimal.Zero,
		DemandFreshness:  5 * time.Minute,
		BatchConcurrency: 8,
		MaxScenarios:     500,
	}
}

// Engine evaluates booking contexts against rule snapshots.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	rules  RuleRepository
	config Config
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used to judge demand freshness when a request has no requestedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine reading snapshots from repo.
func NewEngine(repo RuleRepository, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		rules:  repo,
		config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate prices one request against a fresh snapshot.
func (e *Engine) Evaluate(ctx context.Context, req EvaluationRequest) (PriceBreakdown, error) {
	ctx, span := tracing.StartSpan(ctx, "pricing.Evaluate")
	defer span.End()
	start := time.Now()

	snap, err := e.snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot")
		metrics.RecordEvaluation(metrics.OperationEvaluate, outcome(err), time.Since(start))
		return PriceBreakdown{}, err
	}
	span.SetAttributes(attribute.Int64("pricing.snapshot_version", snap.Version))

	breakdown, err := e.evaluate(snap, req)
	metrics.RecordEvaluation(metrics.OperationEvaluate, outcome(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluate")
		log.Error(ctx, "Pricing evaluation failed",
			zap.Int64("snapshot_version", snap.Version),
			zap.Error(err))
		return PriceBreakdown{}, err
	}

	log.Debug(ctx, "Pricing evaluation completed",
		zap.Int64("snapshot_version", snap.Version),
		zap.Int("rules_applied", len(breakdown.RulesApplied)),
		zap.String("total_amount", breakdown.TotalAmount.String()),
		zap.String("confidence", string(breakdown.Confidence)))

	return breakdown, nil
}

// EvaluateBatch prices every request against a single shared snapshot.
// Results are index-aligned with reqs. Any failure aborts the batch without partial results.
func (e *Engine) EvaluateBatch(ctx context.Context, reqs []EvaluationRequest) ([]PriceBreakdown, error) {
	ctx, span := tracing.StartSpan(ctx, "pricing.EvaluateBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("pricing.batch_size", len(reqs)))
	start := time.Now()

	if err := e.checkBatchSize(len(reqs)); err != nil {
		metrics.RecordEvaluation(metrics.OperationBatch, outcome(err), time.Since(start))
		return nil, err
	}

	snap, err := e.snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		metrics.RecordEvaluation(metrics.OperationBatch, outcome(err), time.Since(start))
		return nil, err
	}

	results, err := e.runBatch(ctx, snap, reqs)
	metrics.RecordEvaluation(metrics.OperationBatch, outcome(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch")
		log.Warn(ctx, "Scenario batch failed",
			zap.Int("scenarios", len(reqs)),
			zap.Int64("snapshot_version", snap.Version),
			zap.Error(err))
		return nil, err
	}

	metrics.RecordScenarioBatch(len(reqs))
	return results, nil
}

func (e *Engine) checkBatchSize(n int) error {
	if e.config.MaxScenarios > 0 && n > e.config.MaxScenarios {
		return NewInvalidRequestError(fmt.Sprintf("batch of %d scenarios exceeds limit of %d", n, e.config.MaxScenarios))
	}
	return nil
}

func (e *Engine) snapshot(ctx context.Context) (*Snapshot, error) {
	snap, err := e.rules.Snapshot(ctx)
	if err != nil {
		return nil, NewUnavailableError(err)
	}
	if err := checkSnapshot(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// runBatch evaluates reqs concurrently against snap. Each goroutine writes only its own slot.
func (e *Engine) runBatch(ctx context.Context, snap *Snapshot, reqs []EvaluationRequest) ([]PriceBreakdown, error) {
	results := make([]PriceBreakdown, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if e.config.BatchConcurrency > 0 {
		g.SetLimit(e.config.BatchConcurrency)
	}

	for i := range reqs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := e.evaluate(snap, reqs[i])
			if err != nil {
				if pe := GetError(err); pe != nil {
					return pe.AtIndex(i)
				}
				return err
			}
			results[i] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// evaluate is the pure pipeline: select, compose, assemble.
func (e *Engine) evaluate(snap *Snapshot, req EvaluationRequest) (PriceBreakdown, error) {
	if err := validateRequest(req); err != nil {
		return PriceBreakdown{}, err
	}

	fired := Select(snap.Rules, req.Context)
	applied, subtotal, err := Compose(req.Charges, fired)
	if err != nil {
		return PriceBreakdown{}, err
	}

	taxRate := e.config.TaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	asOf := e.now()
	if req.Context.RequestedAt != nil {
		asOf = *req.Context.RequestedAt
	}

	for _, rule := range fired {
		metrics.RecordRuleFired(string(rule.RuleType))
	}

	return Assemble(AssembleInput{
		Charges:         req.Charges,
		RulesApplied:    applied,
		Fired:           fired,
		Subtotal:        subtotal,
		TaxRate:         taxRate,
		Demand:          req.Context.Demand,
		DemandFreshness: e.config.DemandFreshness,
		AsOf:            asOf,
		Version:         snap.Version,
	}), nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case IsInvalidRequest(err), IsValidation(err):
		return metrics.OutcomeRejected
	case IsUnavailable(err):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeFault
	}
}
