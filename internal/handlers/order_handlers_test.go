package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	"github.com/01moynul/foodhub-golang/internal/models"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var restaurantForOrderQuery = regexp.QuoteMeta("SELECT owner_id, is_open, delivery_fee FROM restaurants WHERE id = ?")

func orderInput(deliveryType string) CreateOrderInput {
	return CreateOrderInput{
		RestaurantID: 7,
		DeliveryType: deliveryType,
		Notes:        "  no onions ",
		Items: []OrderItemInput{
			{Name: "Jollof rice", UnitPrice: dec("12.50"), Quantity: 2},
			{Name: "Plantain", UnitPrice: dec("5"), Quantity: 1},
		},
	}
}

func createOrder(h *Handlers, input CreateOrderInput) (int, models.Order, string) {
	w := serve(h.CreateOrder, http.MethodPost, "/v1/orders", "/v1/orders", input, 3, "customer")
	var o models.Order
	_ = json.Unmarshal(w.Body.Bytes(), &o)
	return w.Code, o, w.Body.String()
}

func TestCreateOrder_DeliveryAddsRestaurantFee(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectQuery(restaurantForOrderQuery).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "is_open", "delivery_fee"}).AddRow(int64(11), true, "10.00"))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), int64(7), int64(3), "delivery", dec("30"), dec("10"), dec("40"), "pending", "no onions", testNow, testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(sqlmock.AnyArg(), int64(7), "Jollof rice", dec("12.5"), 2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(sqlmock.AnyArg(), int64(7), "Plantain", dec("5"), 1).
		WillReturnResult(sqlmock.NewResult(2, 1))
	expectNotification(mock, 11, "New order")
	mock.ExpectCommit()

	code, o, body := createOrder(h, orderInput("delivery"))
	require.Equal(t, http.StatusCreated, code, body)
	assert.Len(t, o.ID, 36)
	assert.True(t, o.Subtotal.Equal(dec("30")))
	assert.True(t, o.DeliveryFee.Equal(dec("10")))
	assert.True(t, o.Total.Equal(dec("40")))
	assert.Equal(t, "pending", o.Status)
	assert.Len(t, o.Items, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_PickupHasNoDeliveryFee(t *testing.T) {
	h, mock, _ := newTestHandlers(t)

	mock.ExpectQuery(restaurantForOrderQuery).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "is_open", "delivery_fee"}).AddRow(int64(11), true, "10.00"))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), int64(7), int64(3), "pickup", dec("30"), dec("0"), dec("30"), "pending", sqlmock.AnyArg(), testNow, testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(2, 1))
	expectNotification(mock, 11, "New order")
	mock.ExpectCommit()

	code, o, body := createOrder(h, orderInput("pickup"))
	require.Equal(t, http.StatusCreated, code, body)
	assert.True(t, o.DeliveryFee.IsZero())
	assert.True(t, o.Total.Equal(dec("30")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_Rejections(t *testing.T) {
	t.Run("closed restaurant", func(t *testing.T) {
		h, mock, _ := newTestHandlers(t)
		mock.ExpectQuery(restaurantForOrderQuery).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id", "is_open", "delivery_fee"}).AddRow(int64(11), false, "10.00"))

		code, _, _ := createOrder(h, orderInput("delivery"))
		assert.Equal(t, http.StatusConflict, code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown restaurant", func(t *testing.T) {
		h, mock, _ := newTestHandlers(t)
		mock.ExpectQuery(restaurantForOrderQuery).WillReturnRows(sqlmock.NewRows([]string{"owner_id"}))

		code, _, _ := createOrder(h, orderInput("delivery"))
		assert.Equal(t, http.StatusNotFound, code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative price", func(t *testing.T) {
		h, mock, _ := newTestHandlers(t)
		input := orderInput("pickup")
		input.Items[1].UnitPrice = dec("-1")

		code, _, _ := createOrder(h, input)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no items", func(t *testing.T) {
		h, mock, _ := newTestHandlers(t)
		input := orderInput("pickup")
		input.Items = nil

		code, _, _ := createOrder(h, input)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "3f2a9c1e", shortID("3f2a9c1e-0000-4000-8000-000000000000"))
	assert.Equal(t, "plain", shortID("plain"))
}
