package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/fleetroad/pricingservice/internal/log"
	"github.com/fleetroad/pricingservice/internal/pricing"
)

// NewQuoteEvaluatedEvent records the outcome of a live evaluation for audit.
func NewQuoteEvaluatedEvent(bc pricing.BookingContext, b pricing.PriceBreakdown) *Event {
	rules := make([]string, len(b.RulesApplied))
	for i, a := range b.RulesApplied {
		rules[i] = a.RuleID
	}

	data := map[string]interface{}{
		"serviceTypeId":   bc.ServiceTypeID,
		"scheduledFor":    bc.ScheduledFor,
		"snapshotVersion": b.SnapshotVersion,
		"rulesApplied":    rules,
		"subtotal":        b.Subtotal.String(),
		"totalAmount":     b.TotalAmount.String(),
		"confidence":      string(b.Confidence),
	}
	aggregate := "quote"
	if bc.FleetAccountID != nil {
		data["fleetAccountId"] = *bc.FleetAccountID
		aggregate = *bc.FleetAccountID
	}
	return NewEvent(TypeQuoteEvaluated, aggregate, data)
}

// NewRuleUpsertedEvent announces a rule create or edit.
func NewRuleUpsertedEvent(rule pricing.PricingRule) *Event {
	return NewEvent(TypeRuleUpserted, rule.ID, map[string]interface{}{
		"rule": rule,
	})
}

// NewRuleDeletedEvent announces a rule removal.
func NewRuleDeletedEvent(id string) *Event {
	return NewEvent(TypeRuleDeleted, id, map[string]interface{}{
		"ruleId": id,
	})
}

// NotifyingStore publishes a rule change event after every successful write.
// A failed publish is logged; the write itself has already been committed.
type NotifyingStore struct {
	pricing.RuleStore
	publisher Publisher
}

// NewNotifyingStore wraps store so writes emit events through publisher.
func NewNotifyingStore(store pricing.RuleStore, publisher Publisher) *NotifyingStore {
	return &NotifyingStore{RuleStore: store, publisher: publisher}
}

func (s *NotifyingStore) Upsert(ctx context.Context, rule pricing.PricingRule) (pricing.PricingRule, error) {
	saved, err := s.RuleStore.Upsert(ctx, rule)
	if err != nil {
		return pricing.PricingRule{}, err
	}
	if err := s.publisher.Publish(ctx, NewRuleUpsertedEvent(saved)); err != nil {
		log.Warn(ctx, "Failed to publish rule change", zap.String("rule_id", saved.ID), zap.Error(err))
	}
	return saved, nil
}

func (s *NotifyingStore) Delete(ctx context.Context, id string) error {
	if err := s.RuleStore.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, NewRuleDeletedEvent(id)); err != nil {
		log.Warn(ctx, "Failed to publish rule change", zap.String("rule_id", id), zap.Error(err))
	}
	return nil
}
