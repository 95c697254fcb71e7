package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/01moynul/foodhub-golang/internal/auth"
	"github.com/01moynul/foodhub-golang/internal/models"
	"github.com/01moynul/foodhub-golang/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
)

// --- User Registration ---

// RegisterUserInput is separate from models.User so clients cannot set an
// id or any security field.
type RegisterUserInput struct {
	FullName    string `json:"fullName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Role        string `json:"role" binding:"required,oneof=customer owner courier supervisor"`
}

// Register is the handler for POST /v1/auth/register. Admin accounts are
// provisioned directly in the database.
func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	now := h.now()
	user := &models.User{
		Role:         input.Role,
		Email:        normalizeEmail(input.Email),
		PasswordHash: password.Hash,
		FullName:     input.FullName,
		PhoneNumber:  input.PhoneNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 3. --- Save ---
	result, err := h.DB.Exec(`
		INSERT INTO users (role, email, password_hash, full_name, phone_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.Role, user.Email, user.PasswordHash, user.FullName, user.PhoneNumber, now, now)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	user.ID, _ = result.LastInsertId()

	// json:"-" keeps the hash out of the response.
	c.JSON(http.StatusCreated, gin.H{"message": "Account created", "user": user})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

//
// --- Login guard ---
//

// securityRow is users' security sub-record, plus what login needs.
type securityRow struct {
	ID              int64
	Role            string
	PasswordHash    string
	Info            ratelimit.SecurityInfo
	AttemptsResetAt *time.Time
}

func (h *Handlers) loadSecurity(q Querier, email string, forUpdate bool) (*securityRow, error) {
	query := `
		SELECT id, role, password_hash, failed_attempts, locked_until, is_deactivated, attempts_reset_at
		FROM users WHERE email = ?`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var s securityRow
	err := q.QueryRow(query, email).Scan(&s.ID, &s.Role, &s.PasswordHash,
		&s.Info.FailedAttempts, &s.Info.LockedUntil, &s.Info.IsDeactivated, &s.AttemptsResetAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (h *Handlers) countFailures(q Querier, email string, since time.Time) (int, error) {
	var n int
	err := q.QueryRow("SELECT COUNT(*) FROM login_attempts WHERE email = ? AND status = ? AND timestamp >= ?",
		email, models.AttemptFailed, since).Scan(&n)
	return n, err
}

// CheckRateLimitStatus reports whether a login for email may proceed.
// Unknown emails are still counted, so probing does not reveal accounts.
func (h *Handlers) CheckRateLimitStatus(ctx context.Context, email string) (ratelimit.Status, error) {
	email = normalizeEmail(email)
	now := h.now()

	sec, err := h.loadSecurity(h.DB, email, false)
	if err != nil {
		return ratelimit.Status{}, fmt.Errorf("failed to load user security: %w", err)
	}
	var info ratelimit.SecurityInfo
	var resetAt *time.Time
	if sec != nil {
		info, resetAt = sec.Info, sec.AttemptsResetAt
	}

	failures, err := h.countFailures(h.DB, email, h.RateLimit.CountFrom(now, resetAt))
	if err != nil {
		return ratelimit.Status{}, fmt.Errorf("failed to count login attempts: %w", err)
	}
	return ratelimit.Evaluate(info, failures, now, h.RateLimit), nil
}

// RecordFailedAttempt logs a failed login, bumps the user's counter and
// locks the account once the window limit is reached.
func (h *Handlers) RecordFailedAttempt(ctx context.Context, email, ip string) (ratelimit.Status, error) {
	email = normalizeEmail(email)
	now := h.now()

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return ratelimit.Status{}, err
	}
	defer tx.Rollback()

	// 1. --- Log the attempt ---
	if _, err := tx.Exec("INSERT INTO login_attempts (email, status, ip, timestamp) VALUES (?, ?, ?, ?)",
		email, models.AttemptFailed, ip, now); err != nil {
		return ratelimit.Status{}, fmt.Errorf("failed to log attempt: %w", err)
	}

	// 2. --- Lock the user row ---
	sec, err := h.loadSecurity(tx, email, true)
	if err != nil {
		return ratelimit.Status{}, fmt.Errorf("failed to load user security: %w", err)
	}
	var info ratelimit.SecurityInfo
	var resetAt *time.Time
	if sec != nil {
		info, resetAt = sec.Info, sec.AttemptsResetAt
	}

	// 3. --- Count and decide ---
	failures, err := h.countFailures(tx, email, h.RateLimit.CountFrom(now, resetAt))
	if err != nil {
		return ratelimit.Status{}, fmt.Errorf("failed to count login attempts: %w", err)
	}
	st := ratelimit.Evaluate(info, failures, now, h.RateLimit)

	// 4. --- Persist counter (and lock) ---
	if sec != nil {
		if st.Lock {
			_, err = tx.Exec("UPDATE users SET failed_attempts = failed_attempts + 1, last_failed_attempt = ?, locked_until = ? WHERE id = ?",
				now, *st.BlockedUntil, sec.ID)
		} else {
			_, err = tx.Exec("UPDATE users SET failed_attempts = failed_attempts + 1, last_failed_attempt = ? WHERE id = ?",
				now, sec.ID)
		}
		if err != nil {
			return ratelimit.Status{}, fmt.Errorf("failed to update failed attempts: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ratelimit.Status{}, err
	}
	return st, nil
}

// ResetFailedAttempts clears the counter after a successful login and logs it.
func (h *Handlers) ResetFailedAttempts(ctx context.Context, userID int64, email, ip string) error {
	now := h.now()

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE users SET failed_attempts = 0, locked_until = NULL, attempts_reset_at = ?, last_login = ? WHERE id = ?",
		now, now, userID); err != nil {
		return fmt.Errorf("failed to reset attempts: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO login_attempts (email, status, ip, timestamp) VALUES (?, ?, ?, ?)",
		normalizeEmail(email), models.AttemptSuccess, ip, now); err != nil {
		return fmt.Errorf("failed to log attempt: %w", err)
	}
	return tx.Commit()
}

// LoginInput defines the JSON for POST /v1/auth/login
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	ctx := c.Request.Context()

	// 1. --- Bind & Validate JSON ---
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := normalizeEmail(input.Email)

	// 2. --- Guard ---
	st, err := h.CheckRateLimitStatus(ctx, email)
	if err != nil {
		respondError(c, err, "Failed to check login status")
		return
	}
	if st.IsBlocked {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": st.Message, "blockedUntil": st.BlockedUntil})
		return
	}

	// 3. --- Verify password ---
	sec, err := h.loadSecurity(h.DB, email, false)
	if err != nil {
		respondError(c, err, "Failed to load user")
		return
	}
	ok := false
	if sec != nil {
		p := models.Password{Hash: sec.PasswordHash}
		if ok, err = p.Matches(input.Password); err != nil {
			respondError(c, err, "Failed to verify password")
			return
		}
	}

	// 4. --- Failure: record and report ---
	if !ok {
		st, err := h.RecordFailedAttempt(ctx, email, c.ClientIP())
		if err != nil {
			respondError(c, err, "Failed to record login attempt")
			return
		}
		if st.IsBlocked {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": st.Message, "blockedUntil": st.BlockedUntil})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password", "remainingAttempts": st.RemainingAttempts})
		return
	}

	// 5. --- Success: reset and issue token ---
	if err := h.ResetFailedAttempts(ctx, sec.ID, email, c.ClientIP()); err != nil {
		respondError(c, err, "Failed to record login")
		return
	}
	token, err := auth.GenerateToken(h.JWTSecret, h.JWTTTL, sec.ID, sec.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "role": sec.Role, "userId": sec.ID})
}

// GetRateLimitStatus is the handler for GET /v1/auth/rate-limit?email=
// The login screen uses it to show the lockout banner.
func (h *Handlers) GetRateLimitStatus(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	st, err := h.CheckRateLimitStatus(c.Request.Context(), email)
	if err != nil {
		respondError(c, err, "Failed to check login status")
		return
	}
	c.JSON(http.StatusOK, st)
}
