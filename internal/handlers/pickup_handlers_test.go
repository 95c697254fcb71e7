package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCode struct{ orderID string }

func (s *stubCode) Generate(orderID string) ([]byte, error) {
	s.orderID = orderID
	return []byte("\x89PNG"), nil
}

func pickupRow(deliveryType, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"customer_id", "delivery_type", "status", "owner_id", "supervisor_id"}).
		AddRow(int64(3), deliveryType, status, int64(11), nil)
}

func getPickupCode(h *Handlers, userID int64, role string) (int, string) {
	w := serve(h.GetPickupCode, http.MethodGet, "/v1/orders/:id/pickup-code", "/v1/orders/ord-1/pickup-code", nil, userID, role)
	return w.Code, w.Body.String()
}

func TestGetPickupCode_ReadyPickup(t *testing.T) {
	h, mock, _ := newTestHandlers(t)
	code := &stubCode{}
	h.Pickup = code
	mock.ExpectQuery("FROM orders o").WithArgs("ord-1").WillReturnRows(pickupRow("pickup", "ready"))

	w := serve(h.GetPickupCode, http.MethodGet, "/v1/orders/:id/pickup-code", "/v1/orders/ord-1/pickup-code", nil, 3, "customer")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "ord-1", code.orderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPickupCode_Rejections(t *testing.T) {
	tests := []struct {
		name         string
		deliveryType string
		status       string
		userID       int64
		role         string
		want         int
	}{
		{"delivery order", "delivery", "ready", 3, "customer", http.StatusConflict},
		{"not ready yet", "pickup", "preparing", 3, "customer", http.StatusConflict},
		{"another customer", "pickup", "ready", 99, "customer", http.StatusForbidden},
		{"another owner", "pickup", "ready", 12, "owner", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock, _ := newTestHandlers(t)
			h.Pickup = &stubCode{}
			mock.ExpectQuery("FROM orders o").WillReturnRows(pickupRow(tt.deliveryType, tt.status))

			got, body := getPickupCode(h, tt.userID, tt.role)
			assert.Equal(t, tt.want, got, body)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetPickupCode_NotConfigured(t *testing.T) {
	h, mock, _ := newTestHandlers(t)
	mock.ExpectQuery("FROM orders o").WillReturnRows(pickupRow("pickup", "ready"))

	got, _ := getPickupCode(h, 11, "owner")
	assert.Equal(t, http.StatusServiceUnavailable, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPickupCode_UnknownOrder(t *testing.T) {
	h, mock, _ := newTestHandlers(t)
	mock.ExpectQuery("FROM orders o").WillReturnRows(sqlmock.NewRows([]string{"customer_id"}))

	got, _ := getPickupCode(h, 3, "customer")
	assert.Equal(t, http.StatusNotFound, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
