package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssembleInput gathers everything the breakdown is built from.
type AssembleInput struct {
	Charges      Charges
	RulesApplied []AppliedRule
	// Fired are the rules behind RulesApplied, in the same order.
	Fired    []PricingRule
	Subtotal decimal.Decimal
	TaxRate  decimal.Decimal
	Demand   *DemandSnapshot
	// DemandFreshness is the oldest a demand snapshot may be and still count as fresh.
	DemandFreshness time.Duration
	// AsOf is the instant demand freshness is judged against.
	AsOf    time.Time
	Version int64
}

// Assemble packages the composed subtotal into a PriceBreakdown.
func Assemble(in AssembleInput) PriceBreakdown {
	surge := decimal.Zero
	discount := decimal.Zero
	for _, a := range in.RulesApplied {
		switch {
		case a.Impact.IsPositive():
			surge = surge.Add(a.Impact)
		case a.Impact.IsNegative():
			discount = discount.Add(a.Impact)
		}
	}

	tax := in.Subtotal.Mul(in.TaxRate)
	total := in.Subtotal.Add(tax)
	if total.IsNegative() {
		total = decimal.Zero
	}

	applied := in.RulesApplied
	if applied == nil {
		applied = []AppliedRule{}
	}

	return PriceBreakdown{
		BasePrice:       in.Charges.BasePrice,
		DistanceCharge:  in.Charges.DistanceCharge,
		TimeCharge:      in.Charges.TimeCharge,
		RulesApplied:    applied,
		Subtotal:        in.Subtotal,
		SurgeAmount:     surge,
		DiscountAmount:  discount.Abs(),
		TaxRate:         in.TaxRate,
		TaxAmount:       tax,
		TotalAmount:     total,
		Confidence:      confidence(in.Fired, in.Demand, in.DemandFreshness, in.AsOf),
		SnapshotVersion: in.Version,
	}
}

// confidence is low when a fired demand rule relied on a stale or estimated snapshot,
// medium when a fired rule used an approximate coordinates match, high otherwise.
func confidence(fired []PricingRule, demand *DemandSnapshot, freshness time.Duration, now time.Time) Confidence {
	result := ConfidenceHigh
	for _, rule := range fired {
		if rule.Conditions.Demand != nil && demandStale(demand, freshness, now) {
			return ConfidenceLow
		}
		if rule.Conditions.Location != nil && rule.Conditions.Location.Type == LocationCoordinates {
			result = ConfidenceMedium
		}
	}
	return result
}

func demandStale(demand *DemandSnapshot, freshness time.Duration, now time.Time) bool {
	if demand == nil || demand.Estimated || demand.CapturedAt.IsZero() {
		return true
	}
	return freshness > 0 && now.Sub(demand.CapturedAt) > freshness
}
