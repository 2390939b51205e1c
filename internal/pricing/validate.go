package pricing

import (
	"fmt"
	"strings"
)

// ValidateRule enforces the write-time contract every repository applies before a rule
// becomes visible to evaluations.
func ValidateRule(rule PricingRule) error {
	problems := ruleProblems(rule)
	if len(problems) == 0 {
		return nil
	}
	return NewValidationError(rule.ID, strings.Join(problems, "; "))
}

// ValidateRules validates a whole rule set, including ID uniqueness.
func ValidateRules(rules []PricingRule) error {
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		if err := ValidateRule(rule); err != nil {
			return err
		}
		if _, dup := seen[rule.ID]; dup {
			return NewValidationError(rule.ID, "duplicate rule id")
		}
		seen[rule.ID] = struct{}{}
	}
	return nil
}

func ruleProblems(rule PricingRule) []string {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(rule.ID) == "" {
		add("id is required")
	}
	if strings.TrimSpace(rule.Name) == "" {
		add("name is required")
	}
	if !rule.RuleType.Valid() {
		add("unknown ruleType %q", rule.RuleType)
	}
	if rule.Priority < MinPriority || rule.Priority > MaxPriority {
		add("priority %d outside [%d, %d]", rule.Priority, MinPriority, MaxPriority)
	}
	if m := rule.Multiplier; m != nil && (m.LessThan(MinMultiplier) || m.GreaterThan(MaxMultiplier)) {
		add("multiplier %s outside [%s, %s]", m, MinMultiplier, MaxMultiplier)
	}
	if f := rule.FixedAmount; f != nil && (f.LessThan(MinFixedAmount) || f.GreaterThan(MaxFixedAmount)) {
		add("fixedAmount %s outside [%s, %s]", f, MinFixedAmount, MaxFixedAmount)
	}
	if rule.StartDate != nil && rule.EndDate != nil && rule.EndDate.Before(*rule.StartDate) {
		add("endDate before startDate")
	}

	problems = append(problems, conditionProblems(rule.Conditions)...)
	return problems
}

func conditionProblems(c Conditions) []string {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.TimeOfDay != nil {
		if _, ok := parseClock(c.TimeOfDay.Start); !ok {
			add("timeOfDay.start %q is not HH:MM", c.TimeOfDay.Start)
		}
		if _, ok := parseClock(c.TimeOfDay.End); !ok {
			add("timeOfDay.end %q is not HH:MM", c.TimeOfDay.End)
		}
	}
	for _, day := range c.DayOfWeek {
		if _, ok := parseWeekday(day); !ok {
			add("dayOfWeek %q is not a weekday", day)
		}
	}
	if l := c.Location; l != nil {
		switch l.Type {
		case LocationZone, LocationState, LocationCity:
			if strings.TrimSpace(l.Value) == "" {
				add("location.%s requires a value", l.Type)
			}
		case LocationDistance:
			if l.Threshold == nil || l.Threshold.IsNegative() {
				add("location.distance requires a non-negative threshold")
			}
		case LocationCoordinates:
			if l.Center == nil {
				add("location.coordinates requires lat/lng")
			} else if l.Center.Lat < -90 || l.Center.Lat > 90 || l.Center.Lng < -180 || l.Center.Lng > 180 {
				add("location.coordinates center out of range")
			}
			if l.RadiusMiles <= 0 {
				add("location.coordinates requires a positive radius")
			}
		default:
			add("unknown location.type %q", l.Type)
		}
	}
	if u := c.Urgency; u != nil {
		switch u.Type {
		case UrgencyImmediate, UrgencyScheduled:
		case UrgencyWithinHours:
			if u.Hours == nil {
				add("urgency.within_hours requires hours")
			}
		default:
			add("unknown urgency.type %q", u.Type)
		}
		if u.Hours != nil && *u.Hours <= 0 {
			add("urgency.hours must be positive")
		}
	}
	if d := c.Demand; d != nil {
		if d.ActiveJobs == nil && d.AvailableContractors == nil && d.SurgeZone == nil {
			add("demand requires at least one threshold")
		}
		if d.ActiveJobs != nil && *d.ActiveJobs < 0 {
			add("demand.activeJobs must be non-negative")
		}
		if d.AvailableContractors != nil && *d.AvailableContractors < 0 {
			add("demand.availableContractors must be non-negative")
		}
	}
	if c.CustomerType != nil && strings.TrimSpace(*c.CustomerType) == "" {
		add("customerType must not be empty")
	}
	if c.FleetTier != nil && strings.TrimSpace(*c.FleetTier) == "" {
		add("fleetTier must not be empty")
	}
	for _, s := range c.ServiceType {
		if strings.TrimSpace(s) == "" {
			add("serviceType entries must not be empty")
			break
		}
	}
	if c.VehicleCount != nil && *c.VehicleCount < 0 {
		add("vehicleCount must be non-negative")
	}
	if c.ReferralCode != nil && strings.TrimSpace(*c.ReferralCode) == "" {
		add("referralCode must not be empty")
	}
	for _, key := range c.UnknownKeys() {
		add("unknown condition %q", key)
	}
	if c.LoyaltyPoints != nil && *c.LoyaltyPoints < 0 {
		add("loyaltyPoints must be non-negative")
	}
	return problems
}

// checkSnapshot fails closed on rules that could not have passed write-time validation.
func checkSnapshot(s *Snapshot) error {
	if s == nil {
		return NewFaultError("nil rule snapshot")
	}
	seen := make(map[string]struct{}, len(s.Rules))
	for _, rule := range s.Rules {
		if _, dup := seen[rule.ID]; dup {
			return NewFaultError(fmt.Sprintf("duplicate rule %q in snapshot %d", rule.ID, s.Version))
		}
		seen[rule.ID] = struct{}{}
		if problems := ruleProblems(rule); len(problems) > 0 {
			return NewFaultError(fmt.Sprintf("malformed rule %q in snapshot %d: %s",
				rule.ID, s.Version, strings.Join(problems, "; ")))
		}
	}
	return nil
}

func validateRequest(req EvaluationRequest) error {
	var problems []string
	if req.Context.ScheduledFor.IsZero() {
		problems = append(problems, "scheduledFor is required")
	}
	if req.Charges.BasePrice.IsNegative() {
		problems = append(problems, "basePrice must be non-negative")
	}
	if req.Charges.DistanceCharge.IsNegative() {
		problems = append(problems, "distanceCharge must be non-negative")
	}
	if req.Charges.TimeCharge.IsNegative() {
		problems = append(problems, "timeCharge must be non-negative")
	}
	if req.Context.EstimatedDistance < 0 {
		problems = append(problems, "estimatedDistance must be non-negative")
	}
	if req.TaxRate != nil && (req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(maxTaxRate)) {
		problems = append(problems, "taxRate must be within [0, 1]")
	}
	if len(problems) > 0 {
		return NewInvalidRequestError(strings.Join(problems, "; "))
	}
	return nil
}
