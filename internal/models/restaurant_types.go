package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PackageFree    = "free"
	PackagePremium = "premium"
)

// Restaurant is the model for the 'restaurants' table.
// Restaurants are never deleted.
type Restaurant struct {
	ID                  int64           `json:"id" db:"id"`
	OwnerID             int64           `json:"ownerId" db:"owner_id"`
	Name                string          `json:"name" db:"name"`
	Slug                string          `json:"slug" db:"slug"`
	Phone               string          `json:"phone" db:"phone"`
	City                string          `json:"city" db:"city"`
	LogoURL             *string         `json:"logoUrl,omitempty" db:"logo_url"`
	IsOpen              bool            `json:"isOpen" db:"is_open"`
	IsVerified          bool            `json:"isVerified" db:"is_verified"`
	LicenseStatus       string          `json:"licenseStatus" db:"license_status"` // pending, verified, rejected
	PackageType         string          `json:"packageType" db:"package_type"`     // free, premium
	PackageSubscribedAt *time.Time      `json:"packageSubscribedAt,omitempty" db:"package_subscribed_at"`
	PackageExpiresAt    *time.Time      `json:"packageExpiresAt,omitempty" db:"package_expires_at"`
	SupervisorID        *int64          `json:"supervisorId,omitempty" db:"supervisor_id"`
	IsHiring            bool            `json:"isHiring" db:"is_hiring"`
	HiringDescription   *string         `json:"hiringDescription,omitempty" db:"hiring_description"`
	DeliveryFee         decimal.Decimal `json:"deliveryFee" db:"delivery_fee"`
	CreatedAt           time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time       `json:"updatedAt" db:"updated_at"`
}

// PackageRequest is the model for the 'package_requests' table
type PackageRequest struct {
	ID                   int64           `json:"id" db:"id"`
	RestaurantID         int64           `json:"restaurantId" db:"restaurant_id"`
	Status               string          `json:"status" db:"status"`
	SubscriptionAmount   decimal.Decimal `json:"subscriptionAmount" db:"subscription_amount"`
	SubscriptionDuration int             `json:"subscriptionDuration" db:"subscription_duration"` // days
	BankAccountImageURL  *string         `json:"bankAccountImageUrl,omitempty" db:"bank_account_image_url"`
	PaymentProofImageURL *string         `json:"paymentProofImageUrl,omitempty" db:"payment_proof_image_url"`
	RejectionReason      *string         `json:"rejectionReason,omitempty" db:"rejection_reason"`
	CreatedAt            time.Time       `json:"createdAt" db:"created_at"`
	BankSentAt           *time.Time      `json:"bankSentAt,omitempty" db:"bank_sent_at"`
	PaymentSentAt        *time.Time      `json:"paymentSentAt,omitempty" db:"payment_sent_at"`
	ApprovedAt           *time.Time      `json:"approvedAt,omitempty" db:"approved_at"`
	RejectedAt           *time.Time      `json:"rejectedAt,omitempty" db:"rejected_at"`
	ExpiredAt            *time.Time      `json:"expiredAt,omitempty" db:"expired_at"`
}
