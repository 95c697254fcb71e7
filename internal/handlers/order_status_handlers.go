package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/01moynul/foodhub-golang/internal/events"
	"github.com/01moynul/foodhub-golang/internal/ledger"
	"github.com/01moynul/foodhub-golang/internal/lifecycle"
	"github.com/01moynul/foodhub-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// orderRef is who an order belongs to, for authorization.
type orderRef struct {
	CustomerID   int64
	OwnerID      int64
	SupervisorID *int64
}

// authorize: owners act on their own restaurant, supervisors on the
// restaurants they supervise, customers on their own orders. Couriers and
// admins are not tied to a restaurant.
func (r orderRef) authorize(userID int64, role lifecycle.ActorRole) error {
	switch role {
	case lifecycle.RoleAdmin, lifecycle.RoleCourier:
		return nil
	case lifecycle.RoleOwner:
		if r.OwnerID == userID {
			return nil
		}
	case lifecycle.RoleSupervisor:
		if r.SupervisorID != nil && *r.SupervisorID == userID {
			return nil
		}
	case lifecycle.RoleCustomer:
		if r.CustomerID == userID {
			return nil
		}
	}
	return ErrForbidden
}

// lockedOrder is the slice of an order the write path needs, read FOR UPDATE.
type lockedOrder struct {
	orderRef
	ID           string
	RestaurantID int64
	Status       lifecycle.OrderStatus
	Total        decimal.Decimal
	SettledAt    *time.Time
}

func (h *Handlers) loadOrderForUpdate(tx *sql.Tx, orderID string) (*lockedOrder, error) {
	var o lockedOrder
	var status string
	err := tx.QueryRow(`
		SELECT o.id, o.restaurant_id, o.customer_id, o.status, o.total, o.settled_at, r.owner_id, r.supervisor_id
		FROM orders o
		JOIN restaurants r ON r.id = o.restaurant_id
		WHERE o.id = ?
		FOR UPDATE`, orderID).Scan(
		&o.ID, &o.RestaurantID, &o.CustomerID, &status, &o.Total, &o.SettledAt, &o.OwnerID, &o.SupervisorID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	o.Status = lifecycle.OrderStatus(status)
	return &o, nil
}

// StatusChange is the outcome of a committed transition.
type StatusChange struct {
	OrderID    string                `json:"orderId"`
	From       lifecycle.OrderStatus `json:"from"`
	To         lifecycle.OrderStatus `json:"to"`
	Back       bool                  `json:"back"`
	Settlement *ledger.Breakdown     `json:"settlement,omitempty"`
}

// ChangeOrderStatus is the only write path for orders.status. Validation,
// the status write, settlement on delivery and the customer notification
// all commit together or not at all.
func (h *Handlers) ChangeOrderStatus(ctx context.Context, orderID string, actorID int64, role lifecycle.ActorRole, target lifecycle.OrderStatus, reason string) (*StatusChange, error) {
	// 1. --- Begin Transaction ---
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	// 2. --- Lock & authorize ---
	o, err := h.loadOrderForUpdate(tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.authorize(actorID, role); err != nil {
		return nil, err
	}

	// 3. --- Validate against the state machine ---
	move, err := lifecycle.Validate(o.Status, target, role, reason)
	if err != nil {
		return nil, err
	}

	// 4. --- Guarded write: only from the status we validated against ---
	now := h.now()
	var res sql.Result
	if target == lifecycle.StatusCancelled {
		res, err = tx.Exec("UPDATE orders SET status = ?, cancel_reason = ?, updated_at = ? WHERE id = ? AND status = ?",
			string(target), reason, now, o.ID, string(o.Status))
	} else {
		res, err = tx.Exec("UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
			string(target), now, o.ID, string(o.Status))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrStatusConflict
	}

	change := &StatusChange{OrderID: o.ID, From: o.Status, To: target, Back: move.Back}

	// 5. --- Settle on delivery ---
	if target == lifecycle.StatusDelivered {
		if change.Settlement, err = h.settleOrder(tx, o, now); err != nil {
			return nil, err
		}
	}

	// 6. --- Tell the customer ---
	title, msg := statusMessage(o.ID, target, reason)
	if err := h.AddNotification(tx, o.CustomerID, title, msg, models.NotifyOrderStatus, "/orders/"+o.ID); err != nil {
		return nil, err
	}

	// 7. --- Commit ---
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status change: %w", err)
	}

	// 8. --- Best-effort side effects ---
	if change.Settlement != nil {
		if err := h.Markers.Mark(ctx, o.ID); err != nil {
			log.Printf("settlement marker for order %s: %v", o.ID, err)
		}
	}
	evt := events.OrderStatusChanged{
		Type:         events.TypeOrderStatusChanged,
		OrderID:      o.ID,
		RestaurantID: o.RestaurantID,
		From:         string(o.Status),
		To:           string(target),
		ActorID:      actorID,
		ActorRole:    string(role),
		Back:         move.Back,
		Timestamp:    now,
	}
	if err := h.publisher().PublishOrderStatus(ctx, evt); err != nil {
		log.Printf("publish status change for order %s: %v", o.ID, err)
	}

	return change, nil
}

func statusMessage(orderID string, to lifecycle.OrderStatus, reason string) (string, string) {
	id := shortID(orderID)
	switch to {
	case lifecycle.StatusAccepted:
		return "Order accepted", fmt.Sprintf("Your order #%s was accepted by the restaurant.", id)
	case lifecycle.StatusPreparing:
		return "Order in the kitchen", fmt.Sprintf("Your order #%s is being prepared.", id)
	case lifecycle.StatusReady:
		return "Order ready", fmt.Sprintf("Your order #%s is ready.", id)
	case lifecycle.StatusOutForDelivery:
		return "Order on the way", fmt.Sprintf("Your order #%s is out for delivery.", id)
	case lifecycle.StatusDelivered:
		return "Order delivered", fmt.Sprintf("Your order #%s has been delivered. Enjoy!", id)
	case lifecycle.StatusCancelled:
		return "Order cancelled", fmt.Sprintf("Your order #%s was cancelled: %s", id, reason)
	}
	return "Order updated", fmt.Sprintf("Your order #%s is now %s.", id, to)
}

// settleOrder writes the ledger rows for a delivered order and stamps the
// order with its commission. An order that already carries settled_at is
// left alone and nil is returned.
func (h *Handlers) settleOrder(tx *sql.Tx, o *lockedOrder, now time.Time) (*ledger.Breakdown, error) {
	if o.SettledAt != nil {
		return nil, nil
	}

	// 1. --- Item count ---
	rows, err := tx.Query("SELECT quantity FROM order_items WHERE order_id = ?", o.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	var lines []ledger.Line
	for rows.Next() {
		var l ledger.Line
		if err := rows.Scan(&l.Quantity); err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 2. --- Split ---
	supervised := o.SupervisorID != nil
	b := h.Fees.Calculate(o.Total, lines, supervised)

	// 3. --- Ledger rows ---
	orderID := o.ID
	notes := "Order #" + shortID(o.ID)
	if !b.NetAmount.IsZero() {
		if err := h.AddWalletTransaction(tx, ledger.WalletRestaurant, o.RestaurantID, &orderID, ledger.TxOrderNet, b.NetAmount, notes); err != nil {
			return nil, err
		}
	}
	if supervised && b.SupervisorAmount.IsPositive() {
		if err := h.AddWalletTransaction(tx, ledger.WalletSupervisor, *o.SupervisorID, &orderID, ledger.TxSupervisorCommission, b.SupervisorAmount, notes); err != nil {
			return nil, err
		}
	}
	if b.PlatformAmount.IsPositive() {
		if err := h.AddWalletTransaction(tx, ledger.WalletPlatform, 0, &orderID, ledger.TxPlatformCommission, b.PlatformAmount, notes); err != nil {
			return nil, err
		}
	}

	// 4. --- Stamp the order, once ---
	res, err := tx.Exec("UPDATE orders SET commission_amount = ?, net_amount = ?, settled_at = ? WHERE id = ? AND settled_at IS NULL",
		b.CommissionAmount, b.NetAmount, now, o.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to stamp settlement: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrAlreadySettled
	}

	return &b, nil
}

// TransitionInput defines the JSON for a status change.
type TransitionInput struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// TransitionOrder is the handler for PATCH /v1/orders/:id/status
func (h *Handlers) TransitionOrder(c *gin.Context) {
	userID, role := currentUser(c)

	var input TransitionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target, err := lifecycle.ParseOrderStatus(input.Status)
	if err != nil {
		respondError(c, err, "")
		return
	}

	change, err := h.ChangeOrderStatus(c.Request.Context(), c.Param("id"), userID, role, target, input.Reason)
	if err != nil {
		respondError(c, err, "Failed to update order status")
		return
	}

	c.JSON(http.StatusOK, change)
}

// ReconcileSettlements settles delivered orders that carry no settled_at,
// e.g. rows delivered before settlement moved into the status write. It
// returns how many orders it settled.
func (h *Handlers) ReconcileSettlements(ctx context.Context) (int, error) {
	rows, err := h.DB.QueryContext(ctx,
		"SELECT id FROM orders WHERE status = ? AND settled_at IS NULL ORDER BY updated_at LIMIT 100",
		string(lifecycle.StatusDelivered))
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	settled := 0
	for _, id := range ids {
		if done, err := h.Markers.Exists(ctx, id); err == nil && done {
			continue
		}
		ok, err := h.settleByID(ctx, id)
		if err != nil {
			log.Printf("reconcile: order %s: %v", id, err)
			continue
		}
		if ok {
			settled++
		}
	}
	return settled, nil
}

func (h *Handlers) settleByID(ctx context.Context, orderID string) (bool, error) {
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	o, err := h.loadOrderForUpdate(tx, orderID)
	if err != nil {
		return false, err
	}
	if o.Status != lifecycle.StatusDelivered || o.SettledAt != nil {
		return false, nil
	}

	b, err := h.settleOrder(tx, o, h.now())
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	if err := h.Markers.Mark(ctx, orderID); err != nil {
		log.Printf("settlement marker for order %s: %v", orderID, err)
	}
	return b != nil, nil
}
