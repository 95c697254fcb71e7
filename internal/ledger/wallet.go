package ledger

import "github.com/shopspring/decimal"

// Wallet owners.
const (
	WalletRestaurant = "restaurant"
	WalletSupervisor = "supervisor"
	WalletPlatform   = "platform"
)

// wallet_transactions.type values.
const (
	TxOrderNet             = "order_net"
	TxSupervisorCommission = "supervisor_commission"
	TxPlatformCommission   = "platform_commission"
	TxWithdrawal           = "withdrawal"
	TxRefund               = "refund"
	TxAdjustment           = "adjustment"
)

// Withdrawal statuses.
const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
)

// Entry is one signed ledger row.
type Entry struct {
	Type   string
	Amount decimal.Decimal
}

// Withdrawal is the part of a withdrawal request the projection needs.
type Withdrawal struct {
	Amount decimal.Decimal
	Status string
}

// Wallet is the read-side view of a wallet, rebuilt from the ledger on every read.
type Wallet struct {
	Balance            decimal.Decimal `json:"balance"`
	TotalEarnings      decimal.Decimal `json:"totalEarnings"`
	PendingWithdrawals decimal.Decimal `json:"pendingWithdrawals"`
	TotalWithdrawn     decimal.Decimal `json:"totalWithdrawn"`
}

// IsEarning reports whether a ledger type counts towards lifetime earnings.
func IsEarning(txType string) bool {
	switch txType {
	case TxOrderNet, TxSupervisorCommission, TxPlatformCommission:
		return true
	}
	return false
}

// Project folds ledger entries and withdrawal requests into a Wallet.
// Withdrawals and their refunds move the balance only, so Balance never
// exceeds TotalEarnings.
func Project(entries []Entry, withdrawals []Withdrawal) Wallet {
	w := Wallet{
		Balance:            decimal.Zero,
		TotalEarnings:      decimal.Zero,
		PendingWithdrawals: decimal.Zero,
		TotalWithdrawn:     decimal.Zero,
	}

	for _, e := range entries {
		w.Balance = w.Balance.Add(e.Amount)
		// positive manual adjustments count as earnings, negative ones do not
		if (IsEarning(e.Type) || e.Type == TxAdjustment) && e.Amount.IsPositive() {
			w.TotalEarnings = w.TotalEarnings.Add(e.Amount)
		}
	}

	for _, wd := range withdrawals {
		switch wd.Status {
		case WithdrawalPending:
			w.PendingWithdrawals = w.PendingWithdrawals.Add(wd.Amount)
		case WithdrawalApproved:
			w.TotalWithdrawn = w.TotalWithdrawn.Add(wd.Amount)
		}
	}

	return w
}
