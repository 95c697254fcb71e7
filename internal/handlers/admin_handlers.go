package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/01moynul/foodhub-golang/internal/lifecycle"
	"github.com/01moynul/foodhub-golang/internal/models"
	"github.com/01moynul/foodhub-golang/internal/notify"
	"github.com/gin-gonic/gin"
)

//
// --- Admin: User Security ---
//

// DeactivateUserInput requires a reason for the audit trail.
type DeactivateUserInput struct {
	Reason string `json:"reason" binding:"required"`
}

// DeactivateUser is the handler for PATCH /v1/admin/users/:id/deactivate
func (h *Handlers) DeactivateUser(c *gin.Context) {
	adminID, _ := currentUser(c)
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	if targetID == adminID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot deactivate your own account"})
		return
	}

	var input DeactivateUserInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Reason) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A reason is required to deactivate a user"})
		return
	}

	h.updateUserSecurity(c, targetID, models.AuditUserDeactivated,
		"UPDATE users SET is_deactivated = 1, deactivated_at = ?, deactivated_by = ?, deactivated_reason = ?, updated_at = ? WHERE id = ?",
		[]interface{}{h.now(), adminID, input.Reason, h.now(), targetID},
		map[string]interface{}{"reason": input.Reason})
}

// ReactivateUser is the handler for PATCH /v1/admin/users/:id/reactivate
// Reactivation also clears any lock so the user starts from a clean slate.
func (h *Handlers) ReactivateUser(c *gin.Context) {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	now := h.now()
	h.updateUserSecurity(c, targetID, models.AuditUserReactivated,
		`UPDATE users SET is_deactivated = 0, deactivated_at = NULL, deactivated_by = NULL, deactivated_reason = NULL,
			failed_attempts = 0, locked_until = NULL, attempts_reset_at = ?, updated_at = ? WHERE id = ?`,
		[]interface{}{now, now, targetID}, nil)
}

// UnlockUser is the handler for PATCH /v1/admin/users/:id/unlock
func (h *Handlers) UnlockUser(c *gin.Context) {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	now := h.now()
	h.updateUserSecurity(c, targetID, models.AuditUserUnlocked,
		"UPDATE users SET failed_attempts = 0, locked_until = NULL, attempts_reset_at = ?, updated_at = ? WHERE id = ?",
		[]interface{}{now, now, targetID}, nil)
}

// updateUserSecurity runs one users UPDATE and its audit entry in a transaction.
func (h *Handlers) updateUserSecurity(c *gin.Context, targetID int64, action, query string, args []interface{}, meta map[string]interface{}) {
	adminID, _ := currentUser(c)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	result, err := tx.Exec(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := h.AddAuditLog(tx, action, adminID, &targetID, meta); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated", "action": action})
}

//
// --- Admin: Broadcast ---
//

// BroadcastInput targets either explicit recipients or everyone with a role.
type BroadcastInput struct {
	Title        string  `json:"title" binding:"required"`
	Message      string  `json:"message" binding:"required"`
	Link         string  `json:"link"`
	RecipientIDs []int64 `json:"recipientIds"`
	Role         string  `json:"role" binding:"omitempty,oneof=customer owner courier supervisor admin"`
}

// BroadcastNotification is the handler for POST /v1/admin/notifications/broadcast
// Each recipient is written independently. The response lists who failed
// so the caller can retry just those.
func (h *Handlers) BroadcastNotification(c *gin.Context) {
	adminID, _ := currentUser(c)

	var input BroadcastInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipients := input.RecipientIDs
	if len(recipients) == 0 {
		if input.Role == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "recipientIds or role is required"})
			return
		}
		var err error
		if recipients, err = h.userIDsByRole(lifecycle.ActorRole(input.Role)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load recipients"})
			return
		}
	}

	result := notify.Dispatch(c.Request.Context(), recipients, notify.DefaultConcurrency,
		func(ctx context.Context, recipientID int64) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return h.AddNotification(h.DB, recipientID, input.Title, input.Message, models.NotifyBroadcast, input.Link)
		})

	if err := h.AddAuditLog(h.DB, models.AuditBroadcastSent, adminID, nil, map[string]interface{}{
		"title":     input.Title,
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
	}); err != nil {
		// the notifications are already written
		log.Printf("[%s] broadcast audit log: %v", c.GetString("requestID"), err)
	}

	status := http.StatusOK
	if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

func (h *Handlers) userIDsByRole(role lifecycle.ActorRole) ([]int64, error) {
	rows, err := h.DB.Query("SELECT id FROM users WHERE role = ? AND is_deactivated = 0", string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (h *Handlers) lookupUserRole(q Querier, userID int64) (string, error) {
	var role string
	err := q.QueryRow("SELECT role FROM users WHERE id = ?", userID).Scan(&role)
	return role, err
}
