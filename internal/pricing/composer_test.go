package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_NoRules(t *testing.T) {
	applied, subtotal, err := Compose(charges("150", "25", "0"), nil)
	require.NoError(t, err)

	assert.Empty(t, applied)
	assertDecimal(t, "175", subtotal)
}

func TestCompose_SingleMultiplier(t *testing.T) {
	applied, subtotal, err := Compose(charges("150", "25", "0"), []PricingRule{
		multiplierRule("surge", 50, "1.5"),
	})
	require.NoError(t, err)

	require.Len(t, applied, 1)
	assert.Equal(t, "surge", applied[0].RuleID)
	assertDecimal(t, "87.50", applied[0].Impact)
	assertDecimal(t, "262.50", subtotal)
}

func TestCompose_OrderDependence(t *testing.T) {
	surge := multiplierRule("surge", 80, "1.2")
	promo := fixedRule("promo", 50, "-20")

	applied, subtotal, err := Compose(charges("100", "0", "0"), []PricingRule{surge, promo})
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assertDecimal(t, "20", applied[0].Impact)
	assertDecimal(t, "-20", applied[1].Impact)
	assertDecimal(t, "100", subtotal)

	_, reversed, err := Compose(charges("100", "0", "0"), []PricingRule{promo, surge})
	require.NoError(t, err)
	assertDecimal(t, "96", reversed)
}

func TestCompose_ClampKeepsConfiguredImpact(t *testing.T) {
	applied, subtotal, err := Compose(charges("100", "0", "0"), []PricingRule{
		fixedRule("big-discount", 10, "-500"),
	})
	require.NoError(t, err)

	require.Len(t, applied, 1)
	assertDecimal(t, "-500", applied[0].Impact)
	assertDecimal(t, "0", subtotal)
}

func TestCompose_ClampAppliesBetweenRules(t *testing.T) {
	// The clamp happens before the next rule sees the subtotal.
	applied, subtotal, err := Compose(charges("100", "0", "0"), []PricingRule{
		fixedRule("wipeout", 90, "-500"),
		fixedRule("call-out", 10, "40"),
	})
	require.NoError(t, err)

	require.Len(t, applied, 2)
	assertDecimal(t, "40", subtotal)
}

func TestCompose_NoOpRuleIsRecorded(t *testing.T) {
	applied, subtotal, err := Compose(charges("80", "10", "10"), []PricingRule{
		globalRule("audit-only", 5),
	})
	require.NoError(t, err)

	require.Len(t, applied, 1)
	assert.Equal(t, "audit-only", applied[0].RuleID)
	assert.True(t, applied[0].Impact.IsZero())
	assertDecimal(t, "100", subtotal)
}

func TestCompose_MultiplierThenFixedAmount(t *testing.T) {
	rule := multiplierRule("both", 50, "2")
	rule.FixedAmount = decPtr("-30")

	applied, subtotal, err := Compose(charges("100", "0", "0"), []PricingRule{rule})
	require.NoError(t, err)

	require.Len(t, applied, 1)
	assertDecimal(t, "70", applied[0].Impact)
	assertDecimal(t, "170", subtotal)
}

func TestCompose_OverflowIsFault(t *testing.T) {
	_, _, err := Compose(charges("1000000000000", "0", "0"), []PricingRule{
		fixedRule("tip", 1, "1"),
	})
	require.Error(t, err)
	assert.True(t, IsFault(err))
}

func TestCompose_ExactDecimalArithmetic(t *testing.T) {
	_, subtotal, err := Compose(charges("0.1", "0.2", "0"), []PricingRule{
		multiplierRule("third", 1, "3"),
	})
	require.NoError(t, err)
	assertDecimal(t, "0.9", subtotal)
}
