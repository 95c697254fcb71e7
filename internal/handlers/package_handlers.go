package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/01moynul/foodhub-golang/internal/lifecycle"
	"github.com/01moynul/foodhub-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const packageRequestColumns = `
	id, restaurant_id, status, subscription_amount, subscription_duration,
	bank_account_image_url, payment_proof_image_url, rejection_reason,
	created_at, bank_sent_at, payment_sent_at, approved_at, rejected_at, expired_at`

func scanPackageRequest(s rowScanner, p *models.PackageRequest) error {
	return s.Scan(
		&p.ID, &p.RestaurantID, &p.Status, &p.SubscriptionAmount, &p.SubscriptionDuration,
		&p.BankAccountImageURL, &p.PaymentProofImageURL, &p.RejectionReason,
		&p.CreatedAt, &p.BankSentAt, &p.PaymentSentAt, &p.ApprovedAt, &p.RejectedAt, &p.ExpiredAt,
	)
}

// packageTimestampColumn is the phase timestamp each status stamps.
var packageTimestampColumn = map[lifecycle.PackageStatus]string{
	lifecycle.PackageBankSent:    "bank_sent_at",
	lifecycle.PackagePaymentSent: "payment_sent_at",
	lifecycle.PackageApproved:    "approved_at",
	lifecycle.PackageRejected:    "rejected_at",
	lifecycle.PackageExpired:     "expired_at",
}

// packageStep is one requested move of a package request.
type packageStep struct {
	RequestID int64
	Target    lifecycle.PackageStatus
	ActorID   int64
	AsOwner   bool // owners may only move their own restaurant's requests

	BankAccountImageURL  string
	PaymentProofImageURL string
	Reason               string
}

type packageRow struct {
	ID           int64
	RestaurantID int64
	OwnerID      int64
	Status       lifecycle.PackageStatus
	Duration     int
}

// advancePackageRequest moves a request one step. Approval upgrades the
// restaurant in the same transaction. Rejection leaves the restaurant as it is.
func (h *Handlers) advancePackageRequest(ctx context.Context, step packageStep) error {
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. --- Lock the request ---
	var pr packageRow
	var status string
	err = tx.QueryRow(`
		SELECT pr.id, pr.restaurant_id, r.owner_id, pr.status, pr.subscription_duration
		FROM package_requests pr
		JOIN restaurants r ON r.id = pr.restaurant_id
		WHERE pr.id = ?
		FOR UPDATE`, step.RequestID).Scan(&pr.ID, &pr.RestaurantID, &pr.OwnerID, &status, &pr.Duration)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPackageRequestNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock package request: %w", err)
	}
	pr.Status = lifecycle.PackageStatus(status)

	if step.AsOwner && pr.OwnerID != step.ActorID {
		return ErrForbidden
	}

	// 2. --- State machine ---
	if err := lifecycle.ValidatePackageTransition(pr.Status, step.Target); err != nil {
		return err
	}

	// 3. --- Update the request ---
	now := h.now()
	query := "UPDATE package_requests SET status = ?, " + packageTimestampColumn[step.Target] + " = ?"
	args := []interface{}{string(step.Target), now}
	switch step.Target {
	case lifecycle.PackageBankSent:
		query += ", bank_account_image_url = ?"
		args = append(args, step.BankAccountImageURL)
	case lifecycle.PackagePaymentSent:
		if step.PaymentProofImageURL != "" {
			query += ", payment_proof_image_url = ?"
			args = append(args, step.PaymentProofImageURL)
		}
	case lifecycle.PackageRejected:
		query += ", rejection_reason = ?"
		args = append(args, step.Reason)
	}
	query += " WHERE id = ? AND status = ?"
	args = append(args, pr.ID, string(pr.Status))

	res, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update package request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return lifecycle.ErrInvalidTransition
	}

	// 4. --- Approval upgrades the restaurant in the same transaction ---
	if step.Target == lifecycle.PackageApproved {
		expires := now.AddDate(0, 0, pr.Duration)
		if _, err := tx.Exec(
			"UPDATE restaurants SET package_type = ?, package_subscribed_at = ?, package_expires_at = ?, updated_at = ? WHERE id = ?",
			models.PackagePremium, now, expires, now, pr.RestaurantID); err != nil {
			return fmt.Errorf("failed to upgrade restaurant: %w", err)
		}
		// a renewal supersedes the previous approval
		if _, err := tx.Exec(
			"UPDATE package_requests SET status = ?, expired_at = ? WHERE restaurant_id = ? AND status = ? AND id <> ?",
			string(lifecycle.PackageExpired), now, pr.RestaurantID, string(lifecycle.PackageApproved), pr.ID); err != nil {
			return fmt.Errorf("failed to expire previous package: %w", err)
		}
	}

	// 5. --- Notify the owner, audit admin actions ---
	if err := h.AddNotification(tx, pr.OwnerID, "Premium package", packageMessage(step), models.NotifyPackageRequest, "/restaurant/package"); err != nil {
		return err
	}
	if !step.AsOwner {
		if err := h.AddAuditLog(tx, models.AuditPackageReviewed, step.ActorID, &pr.OwnerID, map[string]interface{}{
			"requestId": pr.ID,
			"status":    string(step.Target),
		}); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func packageMessage(step packageStep) string {
	switch step.Target {
	case lifecycle.PackageBankSent:
		return "Bank details for your premium package are ready. Please send the payment and upload the proof."
	case lifecycle.PackagePaymentSent:
		return "We received your payment proof and will review it shortly."
	case lifecycle.PackageApproved:
		return "Your premium package is now active."
	case lifecycle.PackageRejected:
		return "Your premium package request was rejected: " + step.Reason
	case lifecycle.PackageExpired:
		return "Your premium package has expired."
	}
	return "Your premium package request was updated."
}

//
// --- Owner: Package Requests ---
//

// CreatePackageRequestInput is the owner's upgrade request.
type CreatePackageRequestInput struct {
	SubscriptionAmount   decimal.Decimal `json:"subscriptionAmount"`
	SubscriptionDuration int             `json:"subscriptionDuration" binding:"required,gt=0,lte=366"`
}

// CreatePackageRequest is the handler for POST /v1/owner/package-requests
// A restaurant has at most one open request at a time.
func (h *Handlers) CreatePackageRequest(c *gin.Context) {
	ownerID, _ := currentUser(c)

	var input CreatePackageRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !input.SubscriptionAmount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscriptionAmount must be greater than zero"})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// Lock the restaurant row so two requests cannot race past the open check.
	var restaurantID int64
	if err := tx.QueryRow("SELECT id FROM restaurants WHERE owner_id = ? FOR UPDATE", ownerID).Scan(&restaurantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, ErrRestaurantNotFound, "")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load restaurant"})
		return
	}

	var open int
	if err := tx.QueryRow("SELECT COUNT(*) FROM package_requests WHERE restaurant_id = ? AND status IN (?, ?, ?)",
		restaurantID, string(lifecycle.PackagePending), string(lifecycle.PackageBankSent), string(lifecycle.PackagePaymentSent),
	).Scan(&open); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check open requests"})
		return
	}
	if open > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "You already have an open package request"})
		return
	}

	res, err := tx.Exec(`
		INSERT INTO package_requests (restaurant_id, status, subscription_amount, subscription_duration, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		restaurantID, string(lifecycle.PackagePending), input.SubscriptionAmount, input.SubscriptionDuration, h.now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create package request"})
		return
	}
	id, _ := res.LastInsertId()

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Package request submitted", "id": id})
}

// GetMyPackageRequests is the handler for GET /v1/owner/package-requests
func (h *Handlers) GetMyPackageRequests(c *gin.Context) {
	ownerID, _ := currentUser(c)

	restaurantID, err := h.ownerRestaurantID(h.DB, ownerID)
	if err != nil {
		respondError(c, err, "Failed to resolve restaurant")
		return
	}
	h.listPackageRequests(c, "restaurant_id = ?", restaurantID)
}

// SubmitPaymentInput carries the owner's proof of transfer.
type SubmitPaymentInput struct {
	PaymentProofImageURL string `json:"paymentProofImageUrl" binding:"required,url"`
}

// SubmitPackagePayment is the handler for PATCH /v1/owner/package-requests/:id/payment
func (h *Handlers) SubmitPackagePayment(c *gin.Context) {
	ownerID, _ := currentUser(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request id"})
		return
	}

	var input SubmitPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.advancePackageRequest(c.Request.Context(), packageStep{
		RequestID:            id,
		Target:               lifecycle.PackagePaymentSent,
		ActorID:              ownerID,
		AsOwner:              true,
		PaymentProofImageURL: input.PaymentProofImageURL,
	}); err != nil {
		respondError(c, err, "Failed to update package request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment proof submitted"})
}

//
// --- Admin: Package Requests ---
//

// GetPackageRequests is the handler for GET /v1/admin/package-requests?status=
func (h *Handlers) GetPackageRequests(c *gin.Context) {
	if s := c.Query("status"); s != "" {
		h.listPackageRequests(c, "status = ?", s)
		return
	}
	h.listPackageRequests(c, "1 = 1")
}

func (h *Handlers) listPackageRequests(c *gin.Context, where string, args ...interface{}) {
	rows, err := h.DB.Query("SELECT"+packageRequestColumns+" FROM package_requests WHERE "+where+" ORDER BY created_at DESC", args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	list := []*models.PackageRequest{}
	for rows.Next() {
		var p models.PackageRequest
		if err := scanPackageRequest(rows, &p); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan package request"})
			return
		}
		list = append(list, &p)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating rows"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": list})
}

// ProcessPackageInput is one admin review action.
type ProcessPackageInput struct {
	Action               string `json:"action" binding:"required,oneof=send_bank confirm_payment approve reject"`
	BankAccountImageURL  string `json:"bankAccountImageUrl" binding:"omitempty,url"`
	PaymentProofImageURL string `json:"paymentProofImageUrl" binding:"omitempty,url"`
	Reason               string `json:"reason"`
}

var packageActions = map[string]lifecycle.PackageStatus{
	"send_bank":       lifecycle.PackageBankSent,
	"confirm_payment": lifecycle.PackagePaymentSent,
	"approve":         lifecycle.PackageApproved,
	"reject":          lifecycle.PackageRejected,
}

// ProcessPackageRequest is the handler for PATCH /v1/admin/package-requests/:id
func (h *Handlers) ProcessPackageRequest(c *gin.Context) {
	adminID, _ := currentUser(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request id"})
		return
	}

	var input ProcessPackageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch {
	case input.Action == "send_bank" && input.BankAccountImageURL == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "bankAccountImageUrl is required for send_bank"})
		return
	case input.Action == "reject" && input.Reason == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required for reject"})
		return
	}

	if err := h.advancePackageRequest(c.Request.Context(), packageStep{
		RequestID:            id,
		Target:               packageActions[input.Action],
		ActorID:              adminID,
		BankAccountImageURL:  input.BankAccountImageURL,
		PaymentProofImageURL: input.PaymentProofImageURL,
		Reason:               input.Reason,
	}); err != nil {
		respondError(c, err, "Failed to update package request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Package request " + string(packageActions[input.Action])})
}

// ExpirePackages moves approved requests whose restaurant package ran out to
// expired and drops the restaurant back to the free package.
func (h *Handlers) ExpirePackages(ctx context.Context) (int, error) {
	now := h.now()

	rows, err := h.DB.QueryContext(ctx, `
		SELECT pr.id
		FROM package_requests pr
		JOIN restaurants r ON r.id = pr.restaurant_id
		WHERE pr.status = ? AND r.package_expires_at IS NOT NULL AND r.package_expires_at <= ?`,
		string(lifecycle.PackageApproved), now)
	if err != nil {
		return 0, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		if err := h.expirePackage(ctx, id, now); err != nil {
			log.Printf("expire package request %d: %v", id, err)
			continue
		}
		expired++
	}
	return expired, nil
}

func (h *Handlers) expirePackage(ctx context.Context, requestID int64, now time.Time) error {
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var restaurantID, ownerID int64
	var status string
	err = tx.QueryRow(`
		SELECT pr.restaurant_id, r.owner_id, pr.status
		FROM package_requests pr
		JOIN restaurants r ON r.id = pr.restaurant_id
		WHERE pr.id = ?
		FOR UPDATE`, requestID).Scan(&restaurantID, &ownerID, &status)
	if err != nil {
		return err
	}
	if err := lifecycle.ValidatePackageTransition(lifecycle.PackageStatus(status), lifecycle.PackageExpired); err != nil {
		return err
	}

	if _, err := tx.Exec("UPDATE package_requests SET status = ?, expired_at = ? WHERE id = ?",
		string(lifecycle.PackageExpired), now, requestID); err != nil {
		return err
	}
	// Only downgrade if no renewal pushed the expiry out meanwhile.
	if _, err := tx.Exec("UPDATE restaurants SET package_type = ?, updated_at = ? WHERE id = ? AND package_expires_at <= ?",
		models.PackageFree, now, restaurantID, now); err != nil {
		return err
	}
	if err := h.AddNotification(tx, ownerID, "Premium package", packageMessage(packageStep{Target: lifecycle.PackageExpired}),
		models.NotifyPackageRequest, "/restaurant/package"); err != nil {
		return err
	}
	return tx.Commit()
}
