// Package scenario generates synthetic booking contexts for previewing rule sets.
package scenario

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jaswdr/faker"
	"github.com/shopspring/decimal"

	"github.com/fleetroad/pricingservice/internal/pricing"
)

// Options shape the generated traffic.
type Options struct {
	Seed int64
	// Start and Window bound scheduledFor.
	Start  time.Time
	Window time.Duration
	// MaxLead bounds how far ahead of scheduledFor the booking was requested.
	MaxLead      time.Duration
	Zones        []string
	ServiceTypes []string
	// DemandRatio is the share of scenarios that carry a demand snapshot.
	DemandRatio float64
}

// DefaultOptions covers one week of traffic starting at start.
func DefaultOptions(start time.Time) Options {
	return Options{
		Seed:         1,
		Start:        start,
		Window:       7 * 24 * time.Hour,
		MaxLead:      72 * time.Hour,
		Zones:        []string{"downtown", "airport", "industrial", "suburbs"},
		ServiceTypes: []string{"tow", "jump-start", "tire-change", "lockout", "fuel-delivery"},
		DemandRatio:  0.7,
	}
}

var (
	jobTypes      = []string{"standard", "standard", "standard", "scheduled", "emergency"}
	customerTypes = []string{"retail", "fleet", "commercial"}
	fleetTiers    = []string{"bronze", "silver", "gold"}

	perMile   = decimal.RequireFromString("2.50")
	perMinute = decimal.RequireFromString("0.75")
)

// Generator produces reproducible scenarios: the same options yield the same sequence.
// It is not safe for concurrent use.
type Generator struct {
	fake faker.Faker
	opts Options
}

// NewGenerator creates a generator seeded from opts.
func NewGenerator(opts Options) *Generator {
	return &Generator{
		fake: faker.NewWithSeed(rand.NewSource(opts.Seed)),
		opts: opts,
	}
}

// Generate returns n scenarios.
func (g *Generator) Generate(n int) []pricing.EvaluationRequest {
	out := make([]pricing.EvaluationRequest, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// Next returns one scenario.
func (g *Generator) Next() pricing.EvaluationRequest {
	f := g.fake

	scheduled := g.opts.Start.Add(time.Duration(f.Int64Between(0, int64(g.opts.Window/time.Minute))) * time.Minute)
	requested := scheduled.Add(-time.Duration(f.Int64Between(0, int64(g.opts.MaxLead/time.Minute))) * time.Minute)

	distance := f.Float64(1, 0, 60)
	duration := float64(f.IntBetween(15, 240))
	lat := f.Address().Latitude()
	lng := f.Address().Longitude()

	bc := pricing.BookingContext{
		JobType:       f.RandomStringElement(jobTypes),
		ServiceTypeID: g.pick(g.opts.ServiceTypes),
		Location: pricing.Location{
			Address: f.Address().StreetAddress(),
			City:    f.Address().City(),
			State:   f.Address().StateAbbr(),
			Zone:    g.pick(g.opts.Zones),
			Lat:     &lat,
			Lng:     &lng,
		},
		ScheduledFor:      scheduled,
		RequestedAt:       &requested,
		EstimatedDistance: distance,
		EstimatedDuration: duration,
	}

	customer := f.RandomStringElement(customerTypes)
	bc.CustomerType = &customer
	if customer == "fleet" {
		fleetID := fmt.Sprintf("fleet-%05d", f.IntBetween(1, 99999))
		tier := f.RandomStringElement(fleetTiers)
		vehicles := f.IntBetween(2, 250)
		bc.FleetAccountID = &fleetID
		bc.FleetTier = &tier
		bc.VehicleCount = &vehicles
	}
	if f.IntBetween(0, 99) < 20 {
		points := f.IntBetween(0, 5000)
		bc.LoyaltyPoints = &points
	}

	if float64(f.IntBetween(0, 99)) < g.opts.DemandRatio*100 {
		bc.Demand = &pricing.DemandSnapshot{
			ActiveJobs:           f.IntBetween(0, 120),
			AvailableContractors: f.IntBetween(0, 60),
			SurgeZone:            bc.Location.Zone,
			CapturedAt:           requested.Add(-time.Duration(f.IntBetween(0, 15)) * time.Minute),
			Estimated:            f.IntBetween(0, 9) == 0,
		}
	}

	base := decimal.NewFromFloat(f.Float64(2, 50, 400)).Round(2)
	return pricing.EvaluationRequest{
		Context: bc,
		Charges: pricing.Charges{
			BasePrice:      base,
			DistanceCharge: decimal.NewFromFloat(distance).Mul(perMile).Round(2),
			TimeCharge:     decimal.NewFromFloat(duration).Mul(perMinute).Round(2),
		},
	}
}

func (g *Generator) pick(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return g.fake.RandomStringElement(values)
}
