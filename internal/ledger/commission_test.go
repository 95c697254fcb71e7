package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func defaultSchedule() FeeSchedule {
	return FeeSchedule{
		PerItem:            d("2"),
		PlatformShare:      d("1"),
		SupervisorShare:    d("1"),
		CommissionPerOrder: d("1"),
	}
}

func TestCalculate_SupervisedRestaurant(t *testing.T) {
	// restaurant R under supervisor S, three single items, total 50
	lines := []Line{{Quantity: 1}, {Quantity: 1}, {Quantity: 1}}

	b := defaultSchedule().Calculate(d("50"), lines, true)

	assert.Equal(t, 3, b.ItemCount)
	assert.True(t, b.CommissionAmount.Equal(d("6")), "commission %s", b.CommissionAmount)
	assert.True(t, b.PlatformAmount.Equal(d("3")))
	assert.True(t, b.SupervisorAmount.Equal(d("3")))
	assert.True(t, b.NetAmount.Equal(d("44")))
}

func TestCalculate_Unsupervised(t *testing.T) {
	b := defaultSchedule().Calculate(d("30.50"), []Line{{Quantity: 2}, {Quantity: 2}}, false)

	assert.Equal(t, 4, b.ItemCount)
	assert.True(t, b.PlatformAmount.Equal(d("8")))
	assert.True(t, b.SupervisorAmount.IsZero())
	assert.True(t, b.NetAmount.Equal(d("22.50")))
}

func TestCalculate_FlatSupervisorCommission(t *testing.T) {
	fees := FeeSchedule{
		PerItem:            d("2"),
		PlatformShare:      d("2"),
		SupervisorShare:    decimal.Zero,
		CommissionPerOrder: d("1"),
	}
	require.NoError(t, fees.Validate())

	b := fees.Calculate(d("40"), []Line{{Quantity: 5}}, true)

	assert.True(t, b.PlatformAmount.Equal(d("10")))
	assert.True(t, b.SupervisorAmount.Equal(d("1")))
	assert.True(t, b.CommissionAmount.Equal(d("11")))
	assert.True(t, b.NetAmount.Equal(d("29")))
}

func TestCalculate_NoItems(t *testing.T) {
	b := defaultSchedule().Calculate(d("12"), nil, true)

	assert.Equal(t, 0, b.ItemCount)
	assert.True(t, b.CommissionAmount.IsZero())
	assert.True(t, b.NetAmount.Equal(d("12")))
}

func TestCalculate_CommissionPlusNetIsTotal(t *testing.T) {
	fees := FeeSchedule{PerItem: d("0.35"), PlatformShare: d("0.2"), SupervisorShare: d("0.15")}
	totals := []string{"0.10", "9.99", "17.3", "1000.01"}

	for _, total := range totals {
		for _, supervised := range []bool{true, false} {
			b := fees.Calculate(d(total), []Line{{Quantity: 3}, {Quantity: 7}}, supervised)
			assert.True(t, b.CommissionAmount.Add(b.NetAmount).Equal(d(total)),
				"total %s supervised=%v", total, supervised)
		}
	}
}

func TestFeeSchedule_Validate(t *testing.T) {
	assert.NoError(t, defaultSchedule().Validate())

	bad := defaultSchedule()
	bad.SupervisorShare = d("1.5")
	assert.ErrorIs(t, bad.Validate(), ErrInvalidFeeSchedule)

	neg := FeeSchedule{PerItem: d("0"), PlatformShare: d("1"), SupervisorShare: d("-1")}
	assert.ErrorIs(t, neg.Validate(), ErrInvalidFeeSchedule)
}

func TestRound(t *testing.T) {
	assert.Equal(t, "44", Round(d("44.4")))
	assert.Equal(t, "45", Round(d("44.5")))
}
