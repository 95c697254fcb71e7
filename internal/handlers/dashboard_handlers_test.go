package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countRow(n int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestGetOwnerStats(t *testing.T) {
	h, mock, _ := newTestHandlers(t)
	startOfDay := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(ownerRestaurantQuery).WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery("status = \\?").WithArgs(int64(7), "pending").WillReturnRows(countRow(2))
	mock.ExpectQuery("status IN").WithArgs(int64(7), "accepted", "preparing", "ready", "outForDelivery").WillReturnRows(countRow(3))
	mock.ExpectQuery("settled_at >=").WithArgs(int64(7), "delivered", startOfDay).WillReturnRows(countRow(5))
	mock.ExpectQuery("FROM wallet_transactions").WithArgs("restaurant", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("120.50"))

	w := serve(h.GetOwnerStats, http.MethodGet, "/v1/owner/dashboard-stats", "/v1/owner/dashboard-stats", nil, 11, "owner")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stats OwnerStats
	decodeBody(t, w, &stats)
	assert.Equal(t, 2, stats.PendingOrders)
	assert.Equal(t, 3, stats.ActiveOrders)
	assert.Equal(t, 5, stats.DeliveredToday)
	assert.True(t, stats.WalletBalance.Equal(dec("120.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAdminStats(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectQuery("FROM withdrawal_requests").WithArgs("pending").WillReturnRows(countRow(4))
	mock.ExpectQuery("FROM package_requests").WithArgs("pending", "bank_sent", "payment_sent").WillReturnRows(countRow(1))
	mock.ExpectQuery("locked_until > \\?").WithArgs(testNow).WillReturnRows(countRow(2))
	mock.ExpectQuery("FROM wallet_transactions").WithArgs("platform", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("9.00"))

	w := serve(h.GetAdminStats, http.MethodGet, "/v1/admin/dashboard-stats", "/v1/admin/dashboard-stats", nil, 1, "admin")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stats AdminStats
	decodeBody(t, w, &stats)
	assert.Equal(t, 4, stats.PendingWithdrawals)
	assert.Equal(t, 1, stats.PendingPackageRequests)
	assert.Equal(t, 2, stats.LockedUsers)
	assert.True(t, stats.PlatformBalance.Equal(dec("9")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
