package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetroad/pricingservice/internal/pricing"
)

func TestRuleRow_RoundTrip(t *testing.T) {
	multiplier := decimal.RequireFromString("1.35")
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rule := pricing.PricingRule{
		ID:         "summer-surge",
		Name:       "Summer surge",
		RuleType:   pricing.RuleTypeDemand,
		Priority:   75,
		Multiplier: &multiplier,
		IsActive:   true,
		StartDate:  &start,
		Conditions: pricing.Conditions{
			Demand:   &pricing.DemandCondition{ActiveJobs: intPtr(40)},
			Location: &pricing.LocationCondition{Type: pricing.LocationCoordinates, Center: &pricing.GeoPoint{Lat: 30.2, Lng: -97.7}, RadiusMiles: 20},
		},
	}

	args, err := upsertArgs(rule)
	require.NoError(t, err)
	require.Len(t, args, 11)
	assert.Equal(t, "1.35", *args[5].(*string))
	assert.Nil(t, args[6].(*string))

	row := ruleRow{
		ID:          rule.ID,
		Seq:         7,
		Name:        rule.Name,
		RuleType:    string(rule.RuleType),
		Priority:    args[4].(int32),
		Multiplier:  args[5].(*string),
		FixedAmount: args[6].(*string),
		IsActive:    true,
		StartDate:   &start,
		Conditions:  args[10].([]byte),
	}

	got, err := row.toRule()
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Sequence)
	assert.True(t, got.Multiplier.Equal(multiplier))
	assert.Nil(t, got.FixedAmount)
	assert.Equal(t, 40, *got.Conditions.Demand.ActiveJobs)
	assert.InDelta(t, 20, got.Conditions.Location.RadiusMiles, 1e-9)
	assert.NoError(t, pricing.ValidateRule(got))
}

func TestRuleRow_BadNumeric(t *testing.T) {
	bad := "one point five"
	_, err := ruleRow{ID: "x", Multiplier: &bad}.toRule()
	assert.Error(t, err)
}

func TestRuleRow_EmptyConditionsIsGlobal(t *testing.T) {
	got, err := ruleRow{ID: "g", Conditions: []byte(`{}`)}.toRule()
	require.NoError(t, err)
	assert.True(t, got.Conditions.IsEmpty())

	raw, err := json.Marshal(pricing.Conditions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestRuleRow_MisspelledConditionIsNotGlobal(t *testing.T) {
	fixed := "-50"
	row := ruleRow{
		ID:          "fleet-only",
		Name:        "Fleet discount",
		RuleType:    string(pricing.RuleTypeCustomer),
		Priority:    40,
		FixedAmount: &fixed,
		IsActive:    true,
		Conditions:  []byte(`{"customer_type": "fleet"}`),
	}
	got, err := row.toRule()
	require.NoError(t, err)
	assert.False(t, got.Conditions.IsEmpty())
	assert.Equal(t, []string{"customer_type"}, got.Conditions.UnknownKeys())

	err = pricing.ValidateRule(got)
	require.Error(t, err)
	assert.True(t, pricing.IsValidation(err))
}

func TestNewRuleStore_NilPool(t *testing.T) {
	_, err := NewRuleStore(nil)
	assert.Error(t, err)
}

func intPtr(v int) *int { return &v }
