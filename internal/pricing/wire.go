package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const dateOnlyLayout = "2006-01-02"

// UnmarshalJSON accepts RFC3339 timestamps or bare dates for the activation window.
// A bare endDate covers the whole day.
func (r *PricingRule) UnmarshalJSON(data []byte) error {
	type alias PricingRule
	aux := struct {
		*alias
		StartDate *string `json:"startDate,omitempty"`
		EndDate   *string `json:"endDate,omitempty"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.StartDate = nil
	r.EndDate = nil
	if aux.StartDate != nil && *aux.StartDate != "" {
		t, err := parseRuleDate(*aux.StartDate, false)
		if err != nil {
			return fmt.Errorf("startDate: %w", err)
		}
		r.StartDate = &t
	}
	if aux.EndDate != nil && *aux.EndDate != "" {
		t, err := parseRuleDate(*aux.EndDate, true)
		if err != nil {
			return fmt.Errorf("endDate: %w", err)
		}
		r.EndDate = &t
	}
	return nil
}

func parseRuleDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnlyLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

var conditionKeys = map[string]struct{}{
	"timeOfDay": {}, "dayOfWeek": {}, "location": {}, "urgency": {}, "demand": {},
	"customerType": {}, "fleetTier": {}, "serviceType": {}, "vehicleCount": {},
	"referralCode": {}, "loyaltyPoints": {},
}

// UnmarshalJSON keeps unrecognized keys so validation can reject them instead of
// silently widening the rule to every booking.
func (c *Conditions) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	type alias Conditions
	var known alias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Conditions(known)
	for key, value := range raw {
		if _, ok := conditionKeys[key]; ok {
			continue
		}
		if c.unknown == nil {
			c.unknown = make(map[string]json.RawMessage)
		}
		c.unknown[key] = value
	}
	return nil
}

// MarshalJSON writes unknown keys back out so a cached or stored copy stays rejectable.
func (c Conditions) MarshalJSON() ([]byte, error) {
	type alias Conditions
	data, err := json.Marshal(alias(c))
	if err != nil || len(c.unknown) == 0 {
		return data, err
	}

	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range c.unknown {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// UnknownKeys returns unrecognized condition keys in sorted order.
func (c Conditions) UnknownKeys() []string {
	if len(c.unknown) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.unknown))
	for key := range c.unknown {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type coordinatesValue struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Radius float64 `json:"radius"`
}

// MarshalJSON renders the condition as {type, value}.
func (l LocationCondition) MarshalJSON() ([]byte, error) {
	var value interface{}
	switch l.Type {
	case LocationDistance:
		if l.Threshold != nil {
			value = l.Threshold
		}
	case LocationCoordinates:
		if l.Center != nil {
			value = coordinatesValue{Lat: l.Center.Lat, Lng: l.Center.Lng, Radius: l.RadiusMiles}
		}
	default:
		value = l.Value
	}
	return json.Marshal(struct {
		Type  LocationType `json:"type"`
		Value interface{}  `json:"value"`
	}{Type: l.Type, Value: value})
}

// UnmarshalJSON decodes the polymorphic value according to type.
func (l *LocationCondition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  LocationType    `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*l = LocationCondition{Type: raw.Type}
	if len(raw.Value) == 0 || string(raw.Value) == "null" {
		return nil
	}

	switch raw.Type {
	case LocationDistance:
		var d decimal.Decimal
		if err := d.UnmarshalJSON(raw.Value); err != nil {
			return fmt.Errorf("location distance value: %w", err)
		}
		l.Threshold = &d
	case LocationCoordinates:
		var c coordinatesValue
		if err := json.Unmarshal(raw.Value, &c); err != nil {
			return fmt.Errorf("location coordinates value: %w", err)
		}
		l.Center = &GeoPoint{Lat: c.Lat, Lng: c.Lng}
		l.RadiusMiles = c.Radius
	default:
		if err := json.Unmarshal(raw.Value, &l.Value); err != nil {
			return fmt.Errorf("location %s value: %w", raw.Type, err)
		}
	}
	return nil
}
