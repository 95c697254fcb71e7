package models

import (
	"encoding/json"
	"time"
)

// Notification is the model for the 'notifications' table
type Notification struct {
	ID          int64     `json:"id" db:"id"`
	RecipientID int64     `json:"recipientId" db:"recipient_id"`
	Title       string    `json:"title" db:"title"`
	Message     string    `json:"message" db:"message"`
	Type        string    `json:"type" db:"type"`
	Link        *string   `json:"link,omitempty" db:"link"`
	IsRead      bool      `json:"isRead" db:"is_read"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Notification types
const (
	NotifyOrderStatus    = "order_status"
	NotifyPackageRequest = "package_request"
	NotifyWithdrawal     = "withdrawal"
	NotifyRestaurant     = "restaurant"
	NotifyBroadcast      = "broadcast"
)

// AuditLog is the model for the 'audit_logs' table
type AuditLog struct {
	ID           int64           `json:"id" db:"id"`
	Action       string          `json:"action" db:"action"`
	PerformedBy  int64           `json:"performedBy" db:"performed_by"`
	TargetUserID *int64          `json:"targetUserId,omitempty" db:"target_user_id"`
	Metadata     json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// Audit actions
const (
	AuditUserDeactivated     = "user_deactivated"
	AuditUserReactivated     = "user_reactivated"
	AuditUserUnlocked        = "user_unlocked"
	AuditWithdrawalProcessed = "withdrawal_processed"
	AuditPackageReviewed     = "package_request_reviewed"
	AuditRestaurantVerified  = "restaurant_verified"
	AuditSupervisorLinked    = "supervisor_linked"
	AuditBroadcastSent       = "broadcast_sent"
)
