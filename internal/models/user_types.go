package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User Model with Pointers for Nullable Fields
type User struct {
	ID           int64  `json:"id" db:"id"`
	Role         string `json:"role" db:"role"` // customer, owner, courier, supervisor, admin
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	FullName     string `json:"fullName" db:"full_name"`
	PhoneNumber  string `json:"phoneNumber" db:"phone_number"`

	// --- Security (login guard) ---
	FailedAttempts    int        `json:"failedAttempts" db:"failed_attempts"`
	LastFailedAttempt *time.Time `json:"lastFailedAttempt,omitempty" db:"last_failed_attempt"`
	LockedUntil       *time.Time `json:"lockedUntil,omitempty" db:"locked_until"`
	AttemptsResetAt   *time.Time `json:"-" db:"attempts_reset_at"` // successful login or admin unlock
	IsDeactivated     bool       `json:"isDeactivated" db:"is_deactivated"`
	DeactivatedAt     *time.Time `json:"deactivatedAt,omitempty" db:"deactivated_at"`
	DeactivatedBy     *int64     `json:"deactivatedBy,omitempty" db:"deactivated_by"`
	DeactivatedReason *string    `json:"deactivatedReason,omitempty" db:"deactivated_reason"`
	LastLogin         *time.Time `json:"lastLogin,omitempty" db:"last_login"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// LoginAttempt is a row of the 'login_attempts' table.
type LoginAttempt struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Status    string    `json:"status" db:"status"` // failed, success
	IP        string    `json:"ip" db:"ip"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

const (
	AttemptFailed  = "failed"
	AttemptSuccess = "success"
)

// Password Helper (Standard)
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
