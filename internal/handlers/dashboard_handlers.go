package handlers

import (
	"net/http"
	"time"

	"github.com/01moynul/foodhub-golang/internal/ledger"
	"github.com/01moynul/foodhub-golang/internal/lifecycle"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

//
// --- Owner Dashboard Stats ---
//

type OwnerStats struct {
	PendingOrders  int             `json:"pendingOrders"`
	ActiveOrders   int             `json:"activeOrders"` // accepted through outForDelivery
	DeliveredToday int             `json:"deliveredToday"`
	WalletBalance  decimal.Decimal `json:"walletBalance"`
}

// GetOwnerStats returns KPI data for the restaurant dashboard
// GET /v1/owner/dashboard-stats
func (h *Handlers) GetOwnerStats(c *gin.Context) {
	ownerID, _ := currentUser(c)

	restaurantID, err := h.ownerRestaurantID(h.DB, ownerID)
	if err != nil {
		respondError(c, err, "Failed to resolve restaurant")
		return
	}

	stats := OwnerStats{}

	// 1. Pending Orders
	err = h.DB.QueryRow("SELECT COUNT(*) FROM orders WHERE restaurant_id = ? AND status = ?",
		restaurantID, string(lifecycle.StatusPending)).Scan(&stats.PendingOrders)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count pending orders"})
		return
	}

	// 2. Active Orders
	err = h.DB.QueryRow("SELECT COUNT(*) FROM orders WHERE restaurant_id = ? AND status IN (?, ?, ?, ?)",
		restaurantID,
		string(lifecycle.StatusAccepted), string(lifecycle.StatusPreparing),
		string(lifecycle.StatusReady), string(lifecycle.StatusOutForDelivery),
	).Scan(&stats.ActiveOrders)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count active orders"})
		return
	}

	// 3. Delivered Today (settled_at is stamped on delivery)
	now := h.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	err = h.DB.QueryRow("SELECT COUNT(*) FROM orders WHERE restaurant_id = ? AND status = ? AND settled_at >= ?",
		restaurantID, string(lifecycle.StatusDelivered), startOfDay).Scan(&stats.DeliveredToday)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count delivered orders"})
		return
	}

	// 4. Wallet Balance
	if stats.WalletBalance, err = h.GetWalletBalance(h.DB, ledger.WalletRestaurant, restaurantID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get wallet balance"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

//
// --- Admin Dashboard Stats ---
//

type AdminStats struct {
	PendingWithdrawals     int             `json:"pendingWithdrawals"`
	PendingPackageRequests int             `json:"pendingPackageRequests"` // any open phase
	LockedUsers            int             `json:"lockedUsers"`
	PlatformBalance        decimal.Decimal `json:"platformBalance"`
}

// GetAdminStats returns KPI data for the admin dashboard
// GET /v1/admin/dashboard-stats
func (h *Handlers) GetAdminStats(c *gin.Context) {
	stats := AdminStats{}

	err := h.DB.QueryRow("SELECT COUNT(*) FROM withdrawal_requests WHERE status = ?",
		ledger.WithdrawalPending).Scan(&stats.PendingWithdrawals)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count withdrawals"})
		return
	}

	err = h.DB.QueryRow("SELECT COUNT(*) FROM package_requests WHERE status IN (?, ?, ?)",
		string(lifecycle.PackagePending), string(lifecycle.PackageBankSent), string(lifecycle.PackagePaymentSent),
	).Scan(&stats.PendingPackageRequests)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count package requests"})
		return
	}

	err = h.DB.QueryRow("SELECT COUNT(*) FROM users WHERE locked_until IS NOT NULL AND locked_until > ?",
		h.now()).Scan(&stats.LockedUsers)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count locked users"})
		return
	}

	if stats.PlatformBalance, err = h.GetWalletBalance(h.DB, ledger.WalletPlatform, 0); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get platform balance"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
