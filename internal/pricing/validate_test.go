package pricing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PricingRule)
		valid  bool
	}{
		{name: "global no-op", mutate: func(r *PricingRule) {}, valid: true},
		{name: "priority upper bound", mutate: func(r *PricingRule) { r.Priority = 1000 }, valid: true},
		{name: "priority too high", mutate: func(r *PricingRule) { r.Priority = 1001 }},
		{name: "negative priority", mutate: func(r *PricingRule) { r.Priority = -1 }},
		{name: "multiplier lower bound", mutate: func(r *PricingRule) { r.Multiplier = decPtr("0.1") }, valid: true},
		{name: "multiplier too small", mutate: func(r *PricingRule) { r.Multiplier = decPtr("0.09") }},
		{name: "fixed amount bound", mutate: func(r *PricingRule) { r.FixedAmount = decPtr("-1000") }, valid: true},
		{name: "fixed amount too large", mutate: func(r *PricingRule) { r.FixedAmount = decPtr("1000.01") }},
		{name: "missing id", mutate: func(r *PricingRule) { r.ID = "" }},
		{name: "unknown rule type", mutate: func(r *PricingRule) { r.RuleType = "seasonal" }},
		{name: "window reversed", mutate: func(r *PricingRule) {
			start := monday2230
			end := start.Add(-time.Hour)
			r.StartDate, r.EndDate = &start, &end
		}},
		{name: "bad clock", mutate: func(r *PricingRule) {
			r.Conditions.TimeOfDay = &TimeOfDayCondition{Start: "9am", End: "17:00"}
		}},
		{name: "bad weekday", mutate: func(r *PricingRule) { r.Conditions.DayOfWeek = []string{"funday"} }},
		{name: "zone without value", mutate: func(r *PricingRule) {
			r.Conditions.Location = &LocationCondition{Type: LocationZone}
		}},
		{name: "coordinates without radius", mutate: func(r *PricingRule) {
			r.Conditions.Location = &LocationCondition{Type: LocationCoordinates, Center: &GeoPoint{Lat: 1, Lng: 1}}
		}},
		{name: "within hours without hours", mutate: func(r *PricingRule) {
			r.Conditions.Urgency = &UrgencyCondition{Type: UrgencyWithinHours}
		}},
		{name: "empty demand", mutate: func(r *PricingRule) { r.Conditions.Demand = &DemandCondition{} }},
		{name: "negative loyalty", mutate: func(r *PricingRule) { r.Conditions.LoyaltyPoints = ptr(-5) }},
		{name: "misspelled condition key", mutate: func(r *PricingRule) {
			r.Conditions.unknown = map[string]json.RawMessage{"customer_type": json.RawMessage(`"fleet"`)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := globalRule("rule-1", 10)
			tt.mutate(&rule)
			err := ValidateRule(rule)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsValidation(err), "got %v", err)
			}
		})
	}
}

func TestError_AtIndex(t *testing.T) {
	base := NewInvalidRequestError("basePrice must be non-negative")
	indexed := base.AtIndex(4)

	assert.Equal(t, -1, base.Index)
	assert.Equal(t, 4, indexed.Index)
	assert.Contains(t, indexed.Error(), "scenario 4")
}
