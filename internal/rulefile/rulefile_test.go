package rulefile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetroad/pricingservice/internal/pricing"
)

const sampleYAML = `
rules:
  - id: night-owl
    name: Night owl surcharge
    ruleType: time_based
    priority: 80
    multiplier: 1.25
    isActive: true
    startDate: 2026-01-01
    endDate: 2026-12-31
    conditions:
      timeOfDay: {start: "22:00", end: "05:00"}
      dayOfWeek: [fri, sat]
  - id: airport
    name: Airport zone fee
    ruleType: location_based
    priority: 40
    fixedAmount: 15.50
    isActive: true
    conditions:
      location: {type: coordinates, value: {lat: 30.1975, lng: -97.6664, radius: 3}}
scenarios:
  - name: late friday tow
    jobType: standard
    serviceTypeId: tow
    scheduledFor: 2026-03-06T23:15:00Z
    estimatedDistance: 14.2
    basePrice: 120
    distanceCharge: 35.5
`

func TestParseYAML(t *testing.T) {
	f, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, f.Rules, 2)
	require.NoError(t, pricing.ValidateRules(f.Rules))

	night := f.Rules[0]
	assert.Equal(t, "1.25", night.Multiplier.String())
	assert.Equal(t, time.Date(2026, 12, 31, 23, 59, 59, 999999999, time.UTC), *night.EndDate)
	assert.Equal(t, []string{"fri", "sat"}, night.Conditions.DayOfWeek)

	airport := f.Rules[1]
	assert.Equal(t, "15.5", airport.FixedAmount.String())
	assert.Equal(t, pricing.LocationCoordinates, airport.Conditions.Location.Type)
	assert.InDelta(t, 3, airport.Conditions.Location.RadiusMiles, 1e-9)

	require.Len(t, f.Scenarios, 1)
	s := f.Scenarios[0]
	assert.Equal(t, "late friday tow", s.Name)
	assert.Equal(t, time.Date(2026, 3, 6, 23, 15, 0, 0, time.UTC), s.ScheduledFor)
	assert.Equal(t, "35.5", s.DistanceCharge.String())

	reqs := f.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "120", reqs[0].Charges.BasePrice.String())
}

func TestLoad_JSONAndYAMLAgree(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "rules.yaml")
	jsonPath := filepath.Join(dir, "rules.json")

	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0o600))
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"rules": [{"id": "night-owl", "name": "Night owl surcharge", "ruleType": "time_based",
			"priority": 80, "multiplier": 1.25, "isActive": true,
			"startDate": "2026-01-01", "endDate": "2026-12-31",
			"conditions": {"timeOfDay": {"start": "22:00", "end": "05:00"}, "dayOfWeek": ["fri", "sat"]}}]
	}`), 0o600))

	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)
	fromJSON, err := Load(jsonPath)
	require.NoError(t, err)

	assert.Equal(t, fromJSON.Rules[0], fromYAML.Rules[0])
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseYAML([]byte("rules: [unclosed"))
	assert.Error(t, err)

	_, err = ParseYAML([]byte("rules:\n  - id: x\n    startDate: not-a-date\n"))
	assert.Error(t, err)
}

func TestParseYAML_Empty(t *testing.T) {
	f, err := ParseYAML(nil)
	require.NoError(t, err)
	assert.Empty(t, f.Rules)
}

func TestParseYAML_MisspelledConditionRejected(t *testing.T) {
	doc := `
rules:
  - id: fleet-only
    name: Fleet discount
    ruleType: customer_based
    priority: 40
    fixedAmount: -50
    isActive: true
    conditions:
      customer_type: fleet
`
	f, err := ParseYAML([]byte(doc))
	require.NoError(t, err)
	require.Len(t, f.Rules, 1)
	assert.False(t, f.Rules[0].Conditions.IsEmpty())

	err = pricing.ValidateRules(f.Rules)
	require.Error(t, err)
	assert.True(t, pricing.IsValidation(err))
	assert.Contains(t, err.Error(), "customer_type")
}

func TestLoad_JSONMisspelledConditionRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	doc := `{"rules": [{"id": "fleet-only", "name": "Fleet discount", "ruleType": "customer_based",
		"priority": 40, "fixedAmount": -50, "isActive": true, "conditions": {"customer_type": "fleet"}}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	err = pricing.ValidateRules(f.Rules)
	require.Error(t, err)
	assert.True(t, pricing.IsValidation(err))
}
