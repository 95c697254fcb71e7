package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// FeeSchedule is the platform's service-fee configuration. It is loaded once
// at start-up and handed to the calculator.
type FeeSchedule struct {
	// PerItem is charged for every unit on a delivered order.
	PerItem decimal.Decimal
	// PlatformShare + SupervisorShare must equal PerItem.
	PlatformShare   decimal.Decimal
	SupervisorShare decimal.Decimal
	// CommissionPerOrder is the flat supervisor credit used when the
	// schedule carries no per-item supervisor share.
	CommissionPerOrder decimal.Decimal
}

var ErrInvalidFeeSchedule = errors.New("invalid fee schedule")

// Validate checks the split adds up and nothing is negative.
func (f FeeSchedule) Validate() error {
	for name, v := range map[string]decimal.Decimal{
		"perItem":            f.PerItem,
		"platformShare":      f.PlatformShare,
		"supervisorShare":    f.SupervisorShare,
		"commissionPerOrder": f.CommissionPerOrder,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s is negative", ErrInvalidFeeSchedule, name)
		}
	}
	if !f.PlatformShare.Add(f.SupervisorShare).Equal(f.PerItem) {
		return fmt.Errorf("%w: platformShare + supervisorShare (%s + %s) != perItem (%s)",
			ErrInvalidFeeSchedule, f.PlatformShare, f.SupervisorShare, f.PerItem)
	}
	return nil
}

// Line is the part of an order line the calculator cares about.
type Line struct {
	Quantity int
}

// Breakdown is the result of settling one delivered order.
type Breakdown struct {
	ItemCount        int             `json:"itemCount"`
	PlatformAmount   decimal.Decimal `json:"platformAmount"`
	SupervisorAmount decimal.Decimal `json:"supervisorAmount"`
	CommissionAmount decimal.Decimal `json:"commissionAmount"`
	NetAmount        decimal.Decimal `json:"netAmount"`
}

// Calculate splits an order total into the platform's cut, the supervisor's
// cut (only for supervised restaurants) and the restaurant's net amount.
// CommissionAmount + NetAmount always equals total.
func (f FeeSchedule) Calculate(total decimal.Decimal, lines []Line, supervised bool) Breakdown {
	count := 0
	for _, l := range lines {
		if l.Quantity > 0 {
			count += l.Quantity
		}
	}

	b := Breakdown{
		ItemCount:        count,
		PlatformAmount:   decimal.Zero,
		SupervisorAmount: decimal.Zero,
	}

	if count > 0 {
		n := decimal.NewFromInt(int64(count))
		if supervised {
			b.PlatformAmount = f.PlatformShare.Mul(n)
			if f.SupervisorShare.IsPositive() {
				b.SupervisorAmount = f.SupervisorShare.Mul(n)
			} else {
				b.SupervisorAmount = f.CommissionPerOrder
			}
		} else {
			b.PlatformAmount = f.PerItem.Mul(n)
		}
	}

	b.CommissionAmount = b.PlatformAmount.Add(b.SupervisorAmount)
	b.NetAmount = total.Sub(b.CommissionAmount)
	return b
}

// Round formats an amount for display in whole currency units.
// Stored values keep full precision.
func Round(d decimal.Decimal) string {
	return d.StringFixed(0)
}
