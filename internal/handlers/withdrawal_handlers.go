package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/01moynul/foodhub-golang/internal/ledger"
	"github.com/01moynul/foodhub-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RequestWithdrawalInput defines the JSON for a withdrawal request
type RequestWithdrawalInput struct {
	Amount      decimal.Decimal `json:"amount"`
	BankName    string          `json:"bankName" binding:"required"`
	AccountName string          `json:"accountName" binding:"required"`
	IBAN        string          `json:"iban" binding:"required"`
}

// RequestWithdrawal is the handler for POST /v1/owner/withdrawals and
// POST /v1/supervisor/withdrawals. The amount leaves the balance
// immediately and is refunded if an admin rejects the request.
func (h *Handlers) RequestWithdrawal(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input RequestWithdrawalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !input.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be greater than zero"})
		return
	}

	userID, _ := currentUser(c)
	walletType, ownerID, err := h.walletFor(c)
	if err != nil {
		respondError(c, err, "Failed to resolve wallet")
		return
	}

	// 2. --- Begin Transaction ---
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// 3. --- Check Available Balance (locked) ---
	available, err := h.lockWalletBalance(tx, walletType, ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get wallet balance"})
		return
	}
	if available.LessThan(input.Amount) {
		c.JSON(http.StatusConflict, gin.H{"error": "Insufficient funds. Your available balance is lower than the requested amount."})
		return
	}

	// 4. --- Create the request ---
	now := h.now()
	result, err := tx.Exec(`
		INSERT INTO withdrawal_requests
		(wallet_type, wallet_owner_id, requested_by, amount, status, bank_name, account_name, iban, requested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		walletType, ownerID, userID, input.Amount, ledger.WithdrawalPending,
		input.BankName, input.AccountName, strings.ToUpper(strings.ReplaceAll(input.IBAN, " ", "")), now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create withdrawal request"})
		return
	}
	requestID, _ := result.LastInsertId()

	// 5. --- Debit the wallet ---
	notes := fmt.Sprintf("Pending withdrawal (Request ID: %d)", requestID)
	if err := h.AddWalletTransaction(tx, walletType, ownerID, nil, ledger.TxWithdrawal, input.Amount.Neg(), notes); err != nil {
		respondError(c, err, "Failed to add wallet transaction")
		return
	}

	// 6. --- Commit ---
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Withdrawal request submitted. The amount is held until an admin reviews it.",
		"requestId": requestID,
	})
}

//
// --- Admin: Withdrawal Handlers ---
//

// GetWithdrawalRequests is the handler for GET /v1/admin/withdrawals?status=
// Defaults to the pending queue, oldest first.
func (h *Handlers) GetWithdrawalRequests(c *gin.Context) {
	status := c.DefaultQuery("status", ledger.WithdrawalPending)

	rows, err := h.DB.Query(`
		SELECT
			wr.id, wr.wallet_type, wr.wallet_owner_id, wr.requested_by, wr.amount, wr.status,
			wr.bank_name, wr.account_name, wr.iban, wr.rejection_reason, wr.requested_at, wr.processed_at,
			u.full_name, u.email
		FROM withdrawal_requests wr
		JOIN users u ON wr.requested_by = u.id
		WHERE wr.status = ?
		ORDER BY wr.requested_at ASC`, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	requests := []*models.WithdrawalRequest{}
	for rows.Next() {
		var req models.WithdrawalRequest
		if err := rows.Scan(
			&req.ID, &req.WalletType, &req.WalletOwnerID, &req.RequestedBy, &req.Amount, &req.Status,
			&req.BankName, &req.AccountName, &req.IBAN, &req.RejectionReason, &req.RequestedAt, &req.ProcessedAt,
			&req.RequesterName, &req.RequesterEmail,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan withdrawal request"})
			return
		}
		requests = append(requests, &req)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ProcessWithdrawalInput defines the JSON for approving/rejecting a request
type ProcessWithdrawalInput struct {
	Action          string `json:"action" binding:"required,oneof=approve reject"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

// ProcessWithdrawalRequest is the handler for PATCH /v1/admin/withdrawals/:id
func (h *Handlers) ProcessWithdrawalRequest(c *gin.Context) {
	// 1. --- Get IDs & Bind Input ---
	adminID, _ := currentUser(c)
	requestID := c.Param("id")

	var input ProcessWithdrawalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Action == "reject" && strings.TrimSpace(input.RejectionReason) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A rejectionReason is required when rejecting a request"})
		return
	}

	// 2. --- Begin Transaction ---
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// 3. --- Lock the request and check its status ---
	var req models.WithdrawalRequest
	err = tx.QueryRow(
		"SELECT id, wallet_type, wallet_owner_id, requested_by, amount, status FROM withdrawal_requests WHERE id = ? FOR UPDATE",
		requestID,
	).Scan(&req.ID, &req.WalletType, &req.WalletOwnerID, &req.RequestedBy, &req.Amount, &req.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Withdrawal request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get request details"})
		return
	}
	if req.Status != ledger.WithdrawalPending {
		c.JSON(http.StatusConflict, gin.H{"error": "This request has already been processed"})
		return
	}

	// 4. --- Process Action ---
	now := h.now()
	var message, outcome string
	if input.Action == "approve" {
		outcome = ledger.WithdrawalApproved
		// The funds were deducted when the request was made.
		if _, err := tx.Exec("UPDATE withdrawal_requests SET status = ?, processed_at = ? WHERE id = ?",
			ledger.WithdrawalApproved, now, req.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve request"})
			return
		}
		message = fmt.Sprintf("Your withdrawal of %s has been approved.", ledger.Round(req.Amount))
	} else {
		outcome = ledger.WithdrawalRejected
		if _, err := tx.Exec("UPDATE withdrawal_requests SET status = ?, rejection_reason = ?, processed_at = ? WHERE id = ?",
			ledger.WithdrawalRejected, input.RejectionReason, now, req.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reject request"})
			return
		}

		// Put the held amount back.
		details := fmt.Sprintf("Refund for rejected withdrawal (Request ID: %d)", req.ID)
		if err := h.AddWalletTransaction(tx, req.WalletType, req.WalletOwnerID, nil, ledger.TxRefund, req.Amount, details); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refund wallet"})
			return
		}
		message = fmt.Sprintf("Your withdrawal of %s was rejected: %s", ledger.Round(req.Amount), input.RejectionReason)
	}

	// 5. --- Notify & audit ---
	if err := h.AddNotification(tx, req.RequestedBy, "Withdrawal update", message, models.NotifyWithdrawal, "/wallet"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to notify requester"})
		return
	}
	target := req.RequestedBy
	if err := h.AddAuditLog(tx, models.AuditWithdrawalProcessed, adminID, &target, map[string]interface{}{
		"requestId": req.ID,
		"action":    input.Action,
		"amount":    req.Amount.String(),
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}

	// 6. --- Commit Transaction ---
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Withdrawal request " + outcome})
}
