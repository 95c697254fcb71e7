package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletTransaction is the model for the 'wallet_transactions' table.
// WalletOwnerID is 0 for the platform wallet.
type WalletTransaction struct {
	ID            int64           `json:"id" db:"id"`
	WalletType    string          `json:"walletType" db:"wallet_type"`
	WalletOwnerID int64           `json:"walletOwnerId" db:"wallet_owner_id"`
	OrderID       *string         `json:"orderId,omitempty" db:"order_id"`
	Type          string          `json:"type" db:"type"`     // order_net, supervisor_commission, platform_commission, withdrawal, refund, adjustment
	Amount        decimal.Decimal `json:"amount" db:"amount"` // Positive (credit) or negative (debit)
	BalanceAfter  decimal.Decimal `json:"balanceAfter" db:"balance_after"`
	Notes         *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// WithdrawalRequest is the model for the 'withdrawal_requests' table
type WithdrawalRequest struct {
	ID              int64           `json:"id" db:"id"`
	WalletType      string          `json:"walletType" db:"wallet_type"`
	WalletOwnerID   int64           `json:"walletOwnerId" db:"wallet_owner_id"`
	RequestedBy     int64           `json:"requestedBy" db:"requested_by"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	Status          string          `json:"status" db:"status"`
	BankName        string          `json:"bankName" db:"bank_name"`
	AccountName     string          `json:"accountName" db:"account_name"`
	IBAN            string          `json:"iban" db:"iban"`
	RejectionReason *string         `json:"rejectionReason,omitempty" db:"rejection_reason"`
	RequestedAt     time.Time       `json:"requestedAt" db:"requested_at"`
	ProcessedAt     *time.Time      `json:"processedAt,omitempty" db:"processed_at"`

	// Joined for the admin queue
	RequesterName  string `json:"requesterName,omitempty"`
	RequesterEmail string `json:"requesterEmail,omitempty"`
}
