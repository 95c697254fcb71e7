package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/01moynul/foodhub-golang/internal/lifecycle"
	"github.com/01moynul/foodhub-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const orderColumns = `
	id, restaurant_id, customer_id, delivery_type, subtotal, delivery_fee, total, status,
	notes, cancel_reason, commission_amount, net_amount, settled_at, created_at, updated_at`

func scanOrder(s rowScanner, o *models.Order) error {
	return s.Scan(
		&o.ID, &o.RestaurantID, &o.CustomerID, &o.DeliveryType, &o.Subtotal, &o.DeliveryFee, &o.Total, &o.Status,
		&o.Notes, &o.CancelReason, &o.CommissionAmount, &o.NetAmount, &o.SettledAt, &o.CreatedAt, &o.UpdatedAt,
	)
}

// OrderItemInput is one line of a new order.
type OrderItemInput struct {
	Name      string          `json:"name" binding:"required"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderInput defines the JSON for placing an order.
type CreateOrderInput struct {
	RestaurantID int64            `json:"restaurantId" binding:"required"`
	DeliveryType string           `json:"deliveryType" binding:"required,oneof=pickup delivery"`
	Notes        string           `json:"notes"`
	Items        []OrderItemInput `json:"items" binding:"required,min=1,dive"`
}

// CreateOrder is the handler for POST /v1/orders
// The total is fixed here and never recomputed.
func (h *Handlers) CreateOrder(c *gin.Context) {
	customerID, _ := currentUser(c)

	// 1. --- Bind & Validate JSON ---
	var input CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, it := range input.Items {
		if it.UnitPrice.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unitPrice cannot be negative"})
			return
		}
	}

	// 2. --- Restaurant must exist and be open ---
	var ownerID int64
	var isOpen bool
	var restaurantFee decimal.Decimal
	err := h.DB.QueryRow("SELECT owner_id, is_open, delivery_fee FROM restaurants WHERE id = ?", input.RestaurantID).
		Scan(&ownerID, &isOpen, &restaurantFee)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(c, ErrRestaurantNotFound, "")
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load restaurant"})
		return
	}
	if !isOpen {
		c.JSON(http.StatusConflict, gin.H{"error": "Restaurant is currently closed"})
		return
	}

	// 3. --- Totals ---
	subtotal := decimal.Zero
	for _, it := range input.Items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	deliveryFee := decimal.Zero
	if input.DeliveryType == models.DeliveryTypeDelivery {
		deliveryFee = restaurantFee
	}

	now := h.now()
	order := models.Order{
		ID:           uuid.NewString(),
		RestaurantID: input.RestaurantID,
		CustomerID:   customerID,
		DeliveryType: input.DeliveryType,
		Subtotal:     subtotal,
		DeliveryFee:  deliveryFee,
		Total:        subtotal.Add(deliveryFee),
		Status:       string(lifecycle.StatusPending),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		order.Notes = &notes
	}

	// 4. --- Begin Transaction ---
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO orders
		(id, restaurant_id, customer_id, delivery_type, subtotal, delivery_fee, total, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.RestaurantID, order.CustomerID, order.DeliveryType, order.Subtotal, order.DeliveryFee,
		order.Total, order.Status, order.Notes, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	for _, it := range input.Items {
		res, err := tx.Exec(
			"INSERT INTO order_items (order_id, restaurant_id, name, unit_price, quantity) VALUES (?, ?, ?, ?, ?)",
			order.ID, order.RestaurantID, it.Name, it.UnitPrice, it.Quantity)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add order item"})
			return
		}
		itemID, _ := res.LastInsertId()
		order.Items = append(order.Items, models.OrderItem{
			ID: itemID, OrderID: order.ID, RestaurantID: order.RestaurantID,
			Name: it.Name, UnitPrice: it.UnitPrice, Quantity: it.Quantity,
		})
	}

	// 5. --- Tell the restaurant ---
	msg := fmt.Sprintf("New %s order #%s", order.DeliveryType, shortID(order.ID))
	if err := h.AddNotification(tx, ownerID, "New order", msg, models.NotifyOrderStatus, "/orders/"+order.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to notify restaurant"})
		return
	}

	// 6. --- Commit ---
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit order"})
		return
	}

	c.JSON(http.StatusCreated, order)
}

// shortID is the first block of a uuid, for human-readable messages.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// GetOrder is the handler for GET /v1/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	userID, role := currentUser(c)
	orderID := c.Param("id")

	// 1. --- Load order with its restaurant's owner and supervisor ---
	var o models.Order
	var ownerID int64
	var supervisorID *int64
	err := h.DB.QueryRow(`
		SELECT o.id, o.restaurant_id, o.customer_id, o.delivery_type, o.subtotal, o.delivery_fee, o.total, o.status,
			o.notes, o.cancel_reason, o.commission_amount, o.net_amount, o.settled_at, o.created_at, o.updated_at,
			r.owner_id, r.supervisor_id
		FROM orders o
		JOIN restaurants r ON r.id = o.restaurant_id
		WHERE o.id = ?`, orderID).Scan(
		&o.ID, &o.RestaurantID, &o.CustomerID, &o.DeliveryType, &o.Subtotal, &o.DeliveryFee, &o.Total, &o.Status,
		&o.Notes, &o.CancelReason, &o.CommissionAmount, &o.NetAmount, &o.SettledAt, &o.CreatedAt, &o.UpdatedAt,
		&ownerID, &supervisorID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(c, ErrOrderNotFound, "")
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}

	// 2. --- Who may see it ---
	ref := orderRef{CustomerID: o.CustomerID, OwnerID: ownerID, SupervisorID: supervisorID}
	if err := ref.authorize(userID, role); err != nil {
		respondError(c, err, "")
		return
	}

	// 3. --- Items ---
	if o.Items, err = h.loadOrderItems(h.DB, o.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":       o,
		"transitions": lifecycle.NextStates(lifecycle.OrderStatus(o.Status), role),
	})
}

type queryer interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

func (h *Handlers) loadOrderItems(q queryer, orderID string) ([]models.OrderItem, error) {
	rows, err := q.Query("SELECT id, order_id, restaurant_id, name, unit_price, quantity FROM order_items WHERE order_id = ? ORDER BY id", orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.RestaurantID, &it.Name, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetMyOrders is the handler for GET /v1/orders (customer history)
func (h *Handlers) GetMyOrders(c *gin.Context) {
	customerID, _ := currentUser(c)
	h.listOrders(c, "customer_id = ?", customerID)
}

// GetRestaurantOrders is the handler for GET /v1/owner/orders?status=
func (h *Handlers) GetRestaurantOrders(c *gin.Context) {
	ownerID, _ := currentUser(c)

	restaurantID, err := h.ownerRestaurantID(h.DB, ownerID)
	if err != nil {
		respondError(c, err, "Failed to resolve restaurant")
		return
	}

	if s := c.Query("status"); s != "" {
		status, err := lifecycle.ParseOrderStatus(s)
		if err != nil {
			respondError(c, err, "")
			return
		}
		h.listOrders(c, "restaurant_id = ? AND status = ?", restaurantID, string(status))
		return
	}
	h.listOrders(c, "restaurant_id = ?", restaurantID)
}

func (h *Handlers) listOrders(c *gin.Context, where string, args ...interface{}) {
	rows, err := h.DB.Query("SELECT"+orderColumns+" FROM orders WHERE "+where+" ORDER BY created_at DESC LIMIT 100", args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order"})
			return
		}
		orders = append(orders, &o)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating order rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
