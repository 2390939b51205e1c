package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// monday2230 is Monday 2 March 2026, 22:30 UTC.
var monday2230 = time.Date(2026, time.March, 2, 22, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal { return ptr(dec(s)) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func globalRule(id string, priority int) PricingRule {
	return PricingRule{
		ID:       id,
		Name:     id,
		RuleType: RuleTypeTime,
		Priority: priority,
		IsActive: true,
	}
}

func multiplierRule(id string, priority int, m string) PricingRule {
	r := globalRule(id, priority)
	r.Multiplier = decPtr(m)
	return r
}

func fixedRule(id string, priority int, amount string) PricingRule {
	r := globalRule(id, priority)
	r.FixedAmount = decPtr(amount)
	return r
}

func charges(base, distance, duration string) Charges {
	return Charges{
		BasePrice:      dec(base),
		DistanceCharge: dec(distance),
		TimeCharge:     dec(duration),
	}
}

func booking() BookingContext {
	requested := monday2230.Add(-2 * time.Hour)
	return BookingContext{
		JobType:           "standard",
		ServiceTypeID:     "tire-change",
		Location:          Location{City: "Austin", State: "TX", Zone: "downtown"},
		ScheduledFor:      monday2230,
		RequestedAt:       &requested,
		EstimatedDistance: 12,
		EstimatedDuration: 45,
	}
}
