package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/01moynul/foodhub-golang/internal/ledger"
	"github.com/01moynul/foodhub-golang/internal/lifecycle"
	"github.com/01moynul/foodhub-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

//
// --- Wallet Core Functions ---
//

// Querier defines a common interface for QueryRow,
// which is implemented by both *sql.DB and *sql.Tx.
type Querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// GetWalletBalance sums a wallet's ledger. It accepts any Querier.
func (h *Handlers) GetWalletBalance(q Querier, walletType string, ownerID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	query := "SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions WHERE wallet_type = ? AND wallet_owner_id = ?"
	if err := q.QueryRow(query, walletType, ownerID).Scan(&balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// lockWalletBalance is GetWalletBalance with the rows locked until tx ends.
func (h *Handlers) lockWalletBalance(tx *sql.Tx, walletType string, ownerID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	query := "SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions WHERE wallet_type = ? AND wallet_owner_id = ? FOR UPDATE"
	if err := tx.QueryRow(query, walletType, ownerID).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance for update: %w", err)
	}
	return balance, nil
}

// AddWalletTransaction appends one ledger row. This is the *only* way a
// balance changes, and it MUST be called from within a transaction.
// A second row for the same (order, wallet, type) returns ErrAlreadySettled.
func (h *Handlers) AddWalletTransaction(tx *sql.Tx, walletType string, ownerID int64, orderID *string, txType string, amount decimal.Decimal, notes string) error {
	// 1. Current balance, to compute balance_after
	current, err := h.lockWalletBalance(tx, walletType, ownerID)
	if err != nil {
		return err
	}

	// 2. Insert
	query := `
		INSERT INTO wallet_transactions
		(wallet_type, wallet_owner_id, order_id, type, amount, balance_after, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.Exec(query, walletType, ownerID, orderID, txType, amount, current.Add(amount), notes, h.now())
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrAlreadySettled
		}
		return fmt.Errorf("failed to add wallet transaction: %w", err)
	}
	return nil
}

// ownerRestaurantID finds the restaurant an owner runs.
func (h *Handlers) ownerRestaurantID(q Querier, ownerID int64) (int64, error) {
	var id int64
	err := q.QueryRow("SELECT id FROM restaurants WHERE owner_id = ?", ownerID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRestaurantNotFound
	}
	return id, err
}

// walletFor resolves the caller's own wallet: owners get their restaurant's
// wallet, supervisors their personal one.
func (h *Handlers) walletFor(c *gin.Context) (string, int64, error) {
	userID, role := currentUser(c)
	switch role {
	case lifecycle.RoleOwner:
		id, err := h.ownerRestaurantID(h.DB, userID)
		return ledger.WalletRestaurant, id, err
	case lifecycle.RoleSupervisor:
		return ledger.WalletSupervisor, userID, nil
	}
	return "", 0, ErrForbidden
}

//
// --- Wallet HTTP Handlers ---
//

// GetMyWallet is the handler for GET /v1/owner/wallet and GET /v1/supervisor/wallet.
// The balance is rebuilt from the ledger on every read.
func (h *Handlers) GetMyWallet(c *gin.Context) {
	// 1. --- Which wallet ---
	walletType, ownerID, err := h.walletFor(c)
	if err != nil {
		respondError(c, err, "Failed to resolve wallet")
		return
	}

	// 2. --- Ledger rows ---
	rows, err := h.DB.Query(`
		SELECT id, order_id, type, amount, balance_after, notes, created_at
		FROM wallet_transactions
		WHERE wallet_type = ? AND wallet_owner_id = ?
		ORDER BY id DESC`, walletType, ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get wallet transactions"})
		return
	}
	defer rows.Close()

	var entries []ledger.Entry
	transactions := []models.WalletTransaction{}
	for rows.Next() {
		t := models.WalletTransaction{WalletType: walletType, WalletOwnerID: ownerID}
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Type, &t.Amount, &t.BalanceAfter, &t.Notes, &t.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan wallet transaction"})
			return
		}
		entries = append(entries, ledger.Entry{Type: t.Type, Amount: t.Amount})
		if len(transactions) < 20 {
			transactions = append(transactions, t)
		}
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating wallet transactions"})
		return
	}

	// 3. --- Withdrawal history ---
	history, err := h.listWithdrawals(walletType, ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get withdrawal history"})
		return
	}
	wds := make([]ledger.Withdrawal, 0, len(history))
	for _, wr := range history {
		wds = append(wds, ledger.Withdrawal{Amount: wr.Amount, Status: wr.Status})
	}

	// 4. --- Send Response ---
	c.JSON(http.StatusOK, gin.H{
		"wallet":       ledger.Project(entries, wds),
		"withdrawals":  history,
		"transactions": transactions,
	})
}

func (h *Handlers) listWithdrawals(walletType string, ownerID int64) ([]models.WithdrawalRequest, error) {
	rows, err := h.DB.Query(`
		SELECT id, requested_by, amount, status, bank_name, account_name, iban, rejection_reason, requested_at, processed_at
		FROM withdrawal_requests
		WHERE wallet_type = ? AND wallet_owner_id = ?
		ORDER BY requested_at DESC`, walletType, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []models.WithdrawalRequest{}
	for rows.Next() {
		wr := models.WithdrawalRequest{WalletType: walletType, WalletOwnerID: ownerID}
		if err := rows.Scan(&wr.ID, &wr.RequestedBy, &wr.Amount, &wr.Status, &wr.BankName, &wr.AccountName,
			&wr.IBAN, &wr.RejectionReason, &wr.RequestedAt, &wr.ProcessedAt); err != nil {
			return nil, err
		}
		history = append(history, wr)
	}
	return history, rows.Err()
}
