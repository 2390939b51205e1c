package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Compose walks ordered rules, rebasing a running subtotal on each one.
// Every rule in ordered is recorded, including no-ops. The subtotal is clamped at zero
// after each rule; the recorded impact is the rule's own adjustment, not the clamped delta.
func Compose(charges Charges, ordered []PricingRule) ([]AppliedRule, decimal.Decimal, error) {
	subtotal := charges.BasePrice.Add(charges.DistanceCharge).Add(charges.TimeCharge)
	applied := make([]AppliedRule, 0, len(ordered))

	for _, rule := range ordered {
		var impact decimal.Decimal
		subtotal, impact = applyRule(subtotal, rule)

		applied = append(applied, AppliedRule{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Impact:   impact,
		})

		if subtotal.IsNegative() {
			subtotal = decimal.Zero
		}
		if subtotal.GreaterThan(MaxAmount) {
			return nil, decimal.Zero, NewFaultError(fmt.Sprintf("subtotal overflow after rule %q", rule.ID))
		}
	}

	return applied, subtotal, nil
}

// applyRule applies the multiplier, then the fixed amount, and returns their summed impact.
func applyRule(subtotal decimal.Decimal, rule PricingRule) (decimal.Decimal, decimal.Decimal) {
	impact := decimal.Zero

	if rule.Multiplier != nil {
		next := subtotal.Mul(*rule.Multiplier)
		impact = impact.Add(next.Sub(subtotal))
		subtotal = next
	}
	if rule.FixedAmount != nil {
		impact = impact.Add(*rule.FixedAmount)
		subtotal = subtotal.Add(*rule.FixedAmount)
	}

	return subtotal, impact
}
