package pricing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RuleType classifies a pricing rule. It does not restrict which conditions a rule may carry.
type RuleType string

const (
	RuleTypeTime     RuleType = "time_based"
	RuleTypeLocation RuleType = "location_based"
	RuleTypeUrgency  RuleType = "urgency_based"
	RuleTypeDemand   RuleType = "demand_based"
	RuleTypeCustomer RuleType = "customer_based"
	RuleTypeFleet    RuleType = "fleet_based"
)

// Valid reports whether t is one of the known rule types.
func (t RuleType) Valid() bool {
	switch t {
	case RuleTypeTime, RuleTypeLocation, RuleTypeUrgency, RuleTypeDemand, RuleTypeCustomer, RuleTypeFleet:
		return true
	default:
		return false
	}
}

// Rule bounds enforced at write time.
const (
	MinPriority = 0
	MaxPriority = 1000
)

var (
	MinMultiplier  = decimal.NewFromFloat(0.1)
	MaxMultiplier  = decimal.NewFromInt(10)
	MinFixedAmount = decimal.NewFromInt(-1000)
	MaxFixedAmount = decimal.NewFromInt(1000)

	// MaxAmount bounds the running subtotal; exceeding it is an evaluation fault.
	MaxAmount = decimal.New(1, 12)
)

// PricingRule defines a single conditional price adjustment.
type PricingRule struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	RuleType    RuleType `json:"ruleType"`
	Priority    int      `json:"priority"`
	// Multiplier rebases the running subtotal: new = old × multiplier.
	Multiplier *decimal.Decimal `json:"multiplier,omitempty"`
	// FixedAmount shifts the running subtotal: new = old + fixedAmount.
	FixedAmount *decimal.Decimal `json:"fixedAmount,omitempty"`
	IsActive    bool             `json:"isActive"`
	StartDate   *time.Time       `json:"startDate,omitempty"`
	EndDate     *time.Time       `json:"endDate,omitempty"`
	Conditions  Conditions       `json:"conditions"`
	// Sequence is the creation order assigned by the repository. Lower was created first.
	Sequence  int64     `json:"sequence,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy so snapshots never share mutable state with their source.
func (r PricingRule) Clone() PricingRule {
	out := r
	if r.Multiplier != nil {
		m := *r.Multiplier
		out.Multiplier = &m
	}
	if r.FixedAmount != nil {
		f := *r.FixedAmount
		out.FixedAmount = &f
	}
	if r.StartDate != nil {
		s := *r.StartDate
		out.StartDate = &s
	}
	if r.EndDate != nil {
		e := *r.EndDate
		out.EndDate = &e
	}
	out.Conditions = r.Conditions.clone()
	return out
}

// Conditions is the AND of every populated sub-condition. A nil field is vacuously true.
type Conditions struct {
	TimeOfDay     *TimeOfDayCondition `json:"timeOfDay,omitempty"`
	DayOfWeek     []string            `json:"dayOfWeek,omitempty"`
	Location      *LocationCondition  `json:"location,omitempty"`
	Urgency       *UrgencyCondition   `json:"urgency,omitempty"`
	Demand        *DemandCondition    `json:"demand,omitempty"`
	CustomerType  *string             `json:"customerType,omitempty"`
	FleetTier     *string             `json:"fleetTier,omitempty"`
	ServiceType   []string            `json:"serviceType,omitempty"`
	VehicleCount  *int                `json:"vehicleCount,omitempty"`
	ReferralCode  *string             `json:"referralCode,omitempty"`
	LoyaltyPoints *int                `json:"loyaltyPoints,omitempty"`

	// unknown holds keys no predicate understands. They fail validation and never match.
	unknown map[string]json.RawMessage
}

// IsEmpty reports whether no sub-condition is populated (a global rule).
func (c Conditions) IsEmpty() bool {
	return c.TimeOfDay == nil && len(c.DayOfWeek) == 0 && c.Location == nil &&
		c.Urgency == nil && c.Demand == nil && c.CustomerType == nil && c.FleetTier == nil &&
		len(c.ServiceType) == 0 && c.VehicleCount == nil && c.ReferralCode == nil &&
		c.LoyaltyPoints == nil && len(c.unknown) == 0
}

func (c Conditions) clone() Conditions {
	out := c
	if c.TimeOfDay != nil {
		t := *c.TimeOfDay
		out.TimeOfDay = &t
	}
	if c.DayOfWeek != nil {
		out.DayOfWeek = append([]string(nil), c.DayOfWeek...)
	}
	if c.Location != nil {
		l := *c.Location
		if c.Location.Center != nil {
			center := *c.Location.Center
			l.Center = &center
		}
		out.Location = &l
	}
	if c.Urgency != nil {
		u := *c.Urgency
		out.Urgency = &u
	}
	if c.Demand != nil {
		d := *c.Demand
		out.Demand = &d
	}
	if c.ServiceType != nil {
		out.ServiceType = append([]string(nil), c.ServiceType...)
	}
	if c.unknown != nil {
		out.unknown = make(map[string]json.RawMessage, len(c.unknown))
		for k, v := range c.unknown {
			out.unknown[k] = v
		}
	}
	return out
}

// TimeOfDayCondition is an inclusive "HH:MM" window. Start after End wraps past midnight.
type TimeOfDayCondition struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// LocationType selects how a LocationCondition compares against the booking.
type LocationType string

const (
	LocationZone        LocationType = "zone"
	LocationDistance    LocationType = "distance"
	LocationState       LocationType = "state"
	LocationCity        LocationType = "city"
	LocationCoordinates LocationType = "coordinates"
)

// LocationCondition carries exactly one typed value depending on Type.
// On the wire it is {type, value} where value is a string, a number, or {lat, lng, radius}.
type LocationCondition struct {
	Type LocationType
	// Value holds the zone, state or city name.
	Value string
	// Threshold is the distance in miles the booking must exceed.
	Threshold *decimal.Decimal
	// Center and RadiusMiles describe a coordinates match.
	Center      *GeoPoint
	RadiusMiles float64
}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UrgencyType classifies how soon the job must be served.
type UrgencyType string

const (
	UrgencyImmediate   UrgencyType = "immediate"
	UrgencyWithinHours UrgencyType = "within_hours"
	UrgencyScheduled   UrgencyType = "scheduled"
)

// UrgencyCondition matches on job type and lead time.
type UrgencyCondition struct {
	Type  UrgencyType `json:"type"`
	Hours *float64    `json:"hours,omitempty"`
}

// DemandCondition matches when the demand snapshot meets or exceeds every configured threshold.
type DemandCondition struct {
	ActiveJobs           *int    `json:"activeJobs,omitempty"`
	AvailableContractors *int    `json:"availableContractors,omitempty"`
	SurgeZone            *string `json:"surgeZone,omitempty"`
}

// Location describes where the job takes place.
type Location struct {
	Address string   `json:"address,omitempty"`
	City    string   `json:"city,omitempty"`
	State   string   `json:"state,omitempty"`
	Zone    string   `json:"zone,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// DemandSnapshot is a pre-computed view of marketplace load.
type DemandSnapshot struct {
	ActiveJobs           int       `json:"activeJobs"`
	AvailableContractors int       `json:"availableContractors"`
	SurgeZone            string    `json:"surgeZone,omitempty"`
	CapturedAt           time.Time `json:"capturedAt"`
	// Estimated marks a snapshot that was extrapolated rather than observed.
	Estimated bool `json:"estimated,omitempty"`
}

// BookingContext is the per-evaluation input describing the job being priced.
type BookingContext struct {
	JobType           string          `json:"jobType"`
	ServiceTypeID     string          `json:"serviceTypeId"`
	Location          Location        `json:"location"`
	ScheduledFor      time.Time       `json:"scheduledFor"`
	RequestedAt       *time.Time      `json:"requestedAt,omitempty"`
	TimeZone          string          `json:"timeZone,omitempty"`
	EstimatedDistance float64         `json:"estimatedDistance"`
	EstimatedDuration float64         `json:"estimatedDuration"`
	FleetAccountID    *string         `json:"fleetAccountId,omitempty"`
	CustomerType      *string         `json:"customerType,omitempty"`
	FleetTier         *string         `json:"fleetTier,omitempty"`
	IsFirstTime       *bool           `json:"isFirstTime,omitempty"`
	VehicleCount      *int            `json:"vehicleCount,omitempty"`
	ReferralCode      *string         `json:"referralCode,omitempty"`
	LoyaltyPoints     *int            `json:"loyaltyPoints,omitempty"`
	Demand            *DemandSnapshot `json:"demand,omitempty"`
}

// Charges are the pre-rule inputs supplied by the caller.
type Charges struct {
	BasePrice      decimal.Decimal `json:"basePrice"`
	DistanceCharge decimal.Decimal `json:"distanceCharge"`
	TimeCharge     decimal.Decimal `json:"timeCharge"`
}

// EvaluationRequest is one quote to price.
type EvaluationRequest struct {
	Context BookingContext
	Charges Charges
	// TaxRate overrides the engine default when set.
	TaxRate *decimal.Decimal
}

// AppliedRule records one fired rule and its signed monetary impact.
type AppliedRule struct {
	RuleID   string          `json:"ruleId"`
	RuleName string          `json:"ruleName"`
	Impact   decimal.Decimal `json:"impact"`
}

// Confidence grades how reliable the inputs used by fired rules were.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// PriceBreakdown is the auditable result of one evaluation.
type PriceBreakdown struct {
	BasePrice       decimal.Decimal `json:"basePrice"`
	DistanceCharge  decimal.Decimal `json:"distanceCharge"`
	TimeCharge      decimal.Decimal `json:"timeCharge"`
	RulesApplied    []AppliedRule   `json:"rulesApplied"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	SurgeAmount     decimal.Decimal `json:"surgeAmount"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Confidence      Confidence      `json:"confidence"`
	SnapshotVersion int64           `json:"snapshotVersion"`
}

// Snapshot is an immutable, versioned view of the full rule set.
type Snapshot struct {
	Version int64         `json:"version"`
	TakenAt time.Time     `json:"takenAt"`
	Rules   []PricingRule `json:"rules"`
}

// RuleRepository owns durable storage of rules. The engine only needs a consistent snapshot.
type RuleRepository interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// RuleWriter is implemented by repositories that accept rule writes.
// Writes are serialized with respect to each other and never block in-flight snapshots.
type RuleWriter interface {
	Upsert(ctx context.Context, rule PricingRule) (PricingRule, error)
	Delete(ctx context.Context, id string) error
}

// RuleStore is a repository that can be both read and written.
type RuleStore interface {
	RuleRepository
	RuleWriter
}
