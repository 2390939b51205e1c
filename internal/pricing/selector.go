package pricing

import (
	"cmp"
	"slices"
)

// Select returns the rules that fire for bc, highest priority first.
// Ties are broken by creation order, then by ID, so the result never depends on storage order.
// The input slice is not modified.
func Select(rules []PricingRule, bc BookingContext) []PricingRule {
	selected := make([]PricingRule, 0, len(rules))
	for _, rule := range rules {
		if !inWindow(rule, bc) {
			continue
		}
		if !Matches(rule.Conditions, bc) {
			continue
		}
		selected = append(selected, rule)
	}

	slices.SortStableFunc(selected, compareFiringOrder)
	return selected
}

// inWindow applies the activation gate and the inclusive date window against scheduledFor.
func inWindow(rule PricingRule, bc BookingContext) bool {
	if !rule.IsActive {
		return false
	}
	if rule.StartDate != nil && bc.ScheduledFor.Before(*rule.StartDate) {
		return false
	}
	if rule.EndDate != nil && bc.ScheduledFor.After(*rule.EndDate) {
		return false
	}
	return true
}

func compareFiringOrder(a, b PricingRule) int {
	if a.Priority != b.Priority {
		return cmp.Compare(b.Priority, a.Priority)
	}
	if a.Sequence != b.Sequence {
		return cmp.Compare(a.Sequence, b.Sequence)
	}
	return cmp.Compare(a.ID, b.ID)
}
