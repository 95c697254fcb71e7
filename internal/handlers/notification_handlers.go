package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/01moynul/foodhub-golang/internal/models"
	"github.com/gin-gonic/gin"
)

// Execer is implemented by both *sql.DB and *sql.Tx.
type Execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

//
// --- Notification Handlers ---
//

// AddNotification is an internal helper, not a handler. Pass the caller's
// transaction so the notification commits or rolls back with the change it
// describes.
func (h *Handlers) AddNotification(ex Execer, recipientID int64, title, message, notifType, link string) error {
	var nullLink *string
	if link != "" {
		nullLink = &link
	}

	query := `
		INSERT INTO notifications
		(recipient_id, title, message, type, link, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`

	if _, err := ex.Exec(query, recipientID, title, message, notifType, nullLink, h.now()); err != nil {
		return fmt.Errorf("failed to add notification: %w", err)
	}
	return nil
}

// AddAuditLog records an admin action. Same transaction rule as AddNotification.
func (h *Handlers) AddAuditLog(ex Execer, action string, performedBy int64, targetUserID *int64, metadata map[string]interface{}) error {
	var meta []byte
	if metadata != nil {
		var err error
		if meta, err = json.Marshal(metadata); err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs
		(action, performed_by, target_user_id, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?)`

	if _, err := ex.Exec(query, action, performedBy, targetUserID, meta, h.now()); err != nil {
		return fmt.Errorf("failed to add audit log: %w", err)
	}
	return nil
}

// GetMyNotifications is the handler for GET /v1/notifications
// Unread first, then newest first.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	// 1. --- Get User ID ---
	userID, _ := currentUser(c)

	// 2. --- Query Database ---
	query := `
		SELECT id, recipient_id, title, message, type, link, is_read, created_at
		FROM notifications
		WHERE recipient_id = ?
		ORDER BY is_read ASC, created_at DESC
		LIMIT 50`

	rows, err := h.DB.Query(query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	// 3. --- Scan Rows into Slice ---
	notifications := []*models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.Type, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan notification row"})
			return
		}
		notifications = append(notifications, &n)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating notification rows"})
		return
	}

	// 4. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkNotificationAsRead is the handler for PATCH /v1/notifications/:id/read
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	userID, _ := currentUser(c)
	notificationID := c.Param("id")

	// Only the recipient can mark it read.
	result, err := h.DB.Exec("UPDATE notifications SET is_read = 1 WHERE id = ? AND recipient_id = ?", notificationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check affected rows"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found or you do not have permission to update it"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// GetAuditLogs is the handler for GET /v1/admin/audit-logs?action=
func (h *Handlers) GetAuditLogs(c *gin.Context) {
	query := `
		SELECT id, action, performed_by, target_user_id, metadata, timestamp
		FROM audit_logs`
	var args []interface{}
	if action := c.Query("action"); action != "" {
		query += " WHERE action = ?"
		args = append(args, action)
	}
	query += " ORDER BY timestamp DESC LIMIT 100"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	logs := []*models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		var meta []byte
		if err := rows.Scan(&l.ID, &l.Action, &l.PerformedBy, &l.TargetUserID, &meta, &l.Timestamp); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan audit log row"})
			return
		}
		if len(meta) > 0 {
			l.Metadata = json.RawMessage(meta)
		}
		logs = append(logs, &l)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating audit log rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"auditLogs": logs})
}
