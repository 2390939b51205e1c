package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ids(rules []PricingRule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.ID
	}
	return out
}

func TestSelect_PriorityThenCreationThenID(t *testing.T) {
	low := globalRule("low", 10)
	low.Sequence = 1
	olderTie := globalRule("zeta", 50)
	olderTie.Sequence = 2
	newerTie := globalRule("alpha", 50)
	newerTie.Sequence = 3
	sameSeqB := globalRule("b", 50)
	sameSeqB.Sequence = 4
	sameSeqA := globalRule("a", 50)
	sameSeqA.Sequence = 4
	high := globalRule("high", 900)
	high.Sequence = 5

	rules := []PricingRule{low, sameSeqB, newerTie, high, sameSeqA, olderTie}
	got := Select(rules, booking())

	assert.Equal(t, []string{"high", "zeta", "alpha", "a", "b", "low"}, ids(got))
	assert.Equal(t, "low", rules[0].ID, "input must not be reordered")
}

func TestSelect_OrderIndependentOfStorageOrder(t *testing.T) {
	a := globalRule("a", 50)
	a.Sequence = 1
	b := globalRule("b", 50)
	b.Sequence = 2
	c := globalRule("c", 70)
	c.Sequence = 3

	first := ids(Select([]PricingRule{a, b, c}, booking()))
	second := ids(Select([]PricingRule{c, b, a}, booking()))
	assert.Equal(t, first, second)
}

func TestSelect_InactiveExcluded(t *testing.T) {
	off := globalRule("off", 999)
	off.IsActive = false

	got := Select([]PricingRule{off, globalRule("on", 1)}, booking())
	assert.Equal(t, []string{"on"}, ids(got))
}

func TestSelect_DateWindowUsesScheduledFor(t *testing.T) {
	bc := booking()
	dayBefore := bc.ScheduledFor.Add(-24 * time.Hour)
	dayAfter := bc.ScheduledFor.Add(24 * time.Hour)

	expired := globalRule("expired", 10)
	expired.EndDate = &dayBefore

	future := globalRule("future", 10)
	future.StartDate = &dayAfter

	current := globalRule("current", 10)
	current.StartDate = &dayBefore
	current.EndDate = &dayAfter

	edge := globalRule("edge", 10)
	edge.StartDate = &bc.ScheduledFor
	edge.EndDate = &bc.ScheduledFor

	got := Select([]PricingRule{expired, future, current, edge}, bc)
	assert.ElementsMatch(t, []string{"current", "edge"}, ids(got))
}

func TestSelect_ConditionsFilter(t *testing.T) {
	weekend := globalRule("weekend", 10)
	weekend.Conditions.DayOfWeek = []string{"saturday", "sunday"}

	downtown := globalRule("downtown", 20)
	downtown.Conditions.Location = &LocationCondition{Type: LocationZone, Value: "downtown"}

	got := Select([]PricingRule{weekend, downtown}, booking())
	assert.Equal(t, []string{"downtown"}, ids(got))
}
