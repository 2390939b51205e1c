package httpapi

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/fleetroad/pricingservice/internal/pricing"
)

// EvaluateRequest is one booking context plus its pre-rule charges.
type EvaluateRequest struct {
	pricing.BookingContext
	BasePrice      *decimal.Decimal `json:"basePrice"`
	DistanceCharge *decimal.Decimal `json:"distanceCharge,omitempty"`
	TimeCharge     *decimal.Decimal `json:"timeCharge,omitempty"`
	TaxRate        *decimal.Decimal `json:"taxRate,omitempty"`
}

func (r EvaluateRequest) toDomain() (pricing.EvaluationRequest, bool) {
	if r.BasePrice == nil {
		return pricing.EvaluationRequest{}, false
	}
	return pricing.EvaluationRequest{
		Context: r.BookingContext,
		Charges: pricing.Charges{
			BasePrice:      *r.BasePrice,
			DistanceCharge: orZero(r.DistanceCharge),
			TimeCharge:     orZero(r.TimeCharge),
		},
		TaxRate: r.TaxRate,
	}, true
}

// ScenarioRequest runs several contexts, optionally against a draft rule set.
type ScenarioRequest struct {
	Scenarios []EvaluateRequest `json:"scenarios"`
	// Rules, when present, replace the live rule set for this preview only.
	Rules []pricing.PricingRule `json:"rules,omitempty"`
}

// AppliedRuleResponse is one fired rule.
type AppliedRuleResponse struct {
	RuleID   string      `json:"ruleId"`
	RuleName string      `json:"ruleName"`
	Impact   json.Number `json:"impact"`
}

// BreakdownResponse renders amounts as exact JSON numbers.
type BreakdownResponse struct {
	BasePrice       json.Number           `json:"basePrice"`
	DistanceCharge  json.Number           `json:"distanceCharge"`
	TimeCharge      json.Number           `json:"timeCharge"`
	RulesApplied    []AppliedRuleResponse `json:"rulesApplied"`
	Subtotal        json.Number           `json:"subtotal"`
	SurgeAmount     json.Number           `json:"surgeAmount"`
	DiscountAmount  json.Number           `json:"discountAmount"`
	TaxRate         json.Number           `json:"taxRate"`
	TaxAmount       json.Number           `json:"taxAmount"`
	TotalAmount     json.Number           `json:"totalAmount"`
	Confidence      pricing.Confidence    `json:"confidence"`
	SnapshotVersion int64                 `json:"snapshotVersion"`
}

// ScenarioResponse holds results index-aligned with the request scenarios.
type ScenarioResponse struct {
	Results []BreakdownResponse `json:"results"`
}

func newBreakdownResponse(b pricing.PriceBreakdown) BreakdownResponse {
	applied := make([]AppliedRuleResponse, len(b.RulesApplied))
	for i, a := range b.RulesApplied {
		applied[i] = AppliedRuleResponse{RuleID: a.RuleID, RuleName: a.RuleName, Impact: number(a.Impact)}
	}
	return BreakdownResponse{
		BasePrice:       number(b.BasePrice),
		DistanceCharge:  number(b.DistanceCharge),
		TimeCharge:      number(b.TimeCharge),
		RulesApplied:    applied,
		Subtotal:        number(b.Subtotal),
		SurgeAmount:     number(b.SurgeAmount),
		DiscountAmount:  number(b.DiscountAmount),
		TaxRate:         number(b.TaxRate),
		TaxAmount:       number(b.TaxAmount),
		TotalAmount:     number(b.TotalAmount),
		Confidence:      b.Confidence,
		SnapshotVersion: b.SnapshotVersion,
	}
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
