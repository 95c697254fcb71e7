package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/01moynul/foodhub-golang/internal/lifecycle"
	"github.com/01moynul/foodhub-golang/internal/models"
	"github.com/gin-gonic/gin"
)

// GetPickupCode is the handler for GET /v1/orders/:id/pickup-code
// Only pickup orders that are ready have a code.
func (h *Handlers) GetPickupCode(c *gin.Context) {
	userID, role := currentUser(c)
	orderID := c.Param("id")

	var ref orderRef
	var deliveryType, status string
	err := h.DB.QueryRow(`
		SELECT o.customer_id, o.delivery_type, o.status, r.owner_id, r.supervisor_id
		FROM orders o
		JOIN restaurants r ON r.id = o.restaurant_id
		WHERE o.id = ?`, orderID).Scan(&ref.CustomerID, &deliveryType, &status, &ref.OwnerID, &ref.SupervisorID)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(c, ErrOrderNotFound, "")
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}
	if err := ref.authorize(userID, role); err != nil {
		respondError(c, err, "")
		return
	}

	if deliveryType != models.DeliveryTypePickup {
		c.JSON(http.StatusConflict, gin.H{"error": "Pickup codes exist only for pickup orders"})
		return
	}
	if lifecycle.OrderStatus(status) != lifecycle.StatusReady {
		c.JSON(http.StatusConflict, gin.H{"error": "Order is not ready for pickup"})
		return
	}
	if h.Pickup == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Pickup codes are not configured"})
		return
	}

	png, err := h.Pickup.Generate(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render pickup code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
