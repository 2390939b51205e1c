package pricing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fleetroad/pricingservice/internal/log"
	"github.com/fleetroad/pricingservice/internal/metrics"
	"github.com/fleetroad/pricingservice/internal/tracing"
)

// Harness previews what a rule set would charge for synthetic scenarios.
// Nothing it evaluates is persisted or published.
type Harness struct {
	engine *Engine
}

// NewHarness creates a harness sharing the engine's configuration.
func NewHarness(engine *Engine) *Harness {
	return &Harness{engine: engine}
}

// Run evaluates scenarios against the live snapshot when draft is nil, or against the draft
// rule set otherwise. Draft rules are validated first; rules without a creation sequence
// take their position in draft as creation order.
func (h *Harness) Run(ctx context.Context, draft []PricingRule, scenarios []EvaluationRequest) ([]PriceBreakdown, error) {
	if draft == nil {
		return h.engine.EvaluateBatch(ctx, scenarios)
	}

	ctx, span := tracing.StartSpan(ctx, "pricing.Harness.Run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("pricing.draft_rules", len(draft)),
		attribute.Int("pricing.batch_size", len(scenarios)),
	)
	start := time.Now()

	snap, err := DraftSnapshot(draft)
	if err == nil {
		err = h.engine.checkBatchSize(len(scenarios))
	}
	if err != nil {
		metrics.RecordEvaluation(metrics.OperationDraft, outcome(err), time.Since(start))
		return nil, err
	}

	results, err := h.engine.runBatch(ctx, snap, scenarios)
	metrics.RecordEvaluation(metrics.OperationDraft, outcome(err), time.Since(start))
	if err != nil {
		log.Info(ctx, "Draft rule preview rejected", zap.Int("draft_rules", len(draft)), zap.Error(err))
		return nil, err
	}
	metrics.RecordScenarioBatch(len(scenarios))
	return results, nil
}

// DraftSnapshot validates draft and freezes it into a version-zero snapshot.
func DraftSnapshot(draft []PricingRule) (*Snapshot, error) {
	rules := make([]PricingRule, len(draft))
	for i, rule := range draft {
		rules[i] = rule.Clone()
		if rules[i].Sequence == 0 {
			rules[i].Sequence = int64(i + 1)
		}
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	return &Snapshot{Version: 0, TakenAt: time.Now(), Rules: rules}, nil
}

// StaticRepository serves one fixed snapshot.
type StaticRepository struct {
	snap *Snapshot
}

// NewStaticRepository freezes rules into a repository, validating them like a write would.
func NewStaticRepository(rules []PricingRule) (*StaticRepository, error) {
	snap, err := DraftSnapshot(rules)
	if err != nil {
		return nil, err
	}
	snap.Version = 1
	return &StaticRepository{snap: snap}, nil
}

// Snapshot returns the frozen snapshot.
func (r *StaticRepository) Snapshot(ctx context.Context) (*Snapshot, error) {
	return r.snap, nil
}
