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
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

const restaurantColumns = `
	id, owner_id, name, slug, phone, city, logo_url, is_open, is_verified, license_status,
	package_type, package_subscribed_at, package_expires_at, supervisor_id,
	is_hiring, hiring_description, delivery_fee, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRestaurant(s rowScanner, r *models.Restaurant) error {
	return s.Scan(
		&r.ID, &r.OwnerID, &r.Name, &r.Slug, &r.Phone, &r.City, &r.LogoURL, &r.IsOpen, &r.IsVerified, &r.LicenseStatus,
		&r.PackageType, &r.PackageSubscribedAt, &r.PackageExpiresAt, &r.SupervisorID,
		&r.IsHiring, &r.HiringDescription, &r.DeliveryFee, &r.CreatedAt, &r.UpdatedAt,
	)
}

// uniqueSlug returns slug.Make(name), suffixed with -2, -3, ... until free.
func (h *Handlers) uniqueSlug(q Querier, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "restaurant"
	}
	candidate := base
	for i := 2; ; i++ {
		var exists bool
		if err := q.QueryRow("SELECT EXISTS(SELECT 1 FROM restaurants WHERE slug = ?)", candidate).Scan(&exists); err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// CreateRestaurantInput is the onboarding form.
type CreateRestaurantInput struct {
	Name        string           `json:"name" binding:"required,max=255"`
	Phone       string           `json:"phone" binding:"required"`
	City        string           `json:"city" binding:"required"`
	LogoURL     string           `json:"logoUrl" binding:"omitempty,url"`
	DeliveryFee *decimal.Decimal `json:"deliveryFee"`
}

// CreateRestaurant is the handler for POST /v1/owner/restaurant
// One restaurant per owner. It starts closed, unverified and on the free package.
func (h *Handlers) CreateRestaurant(c *gin.Context) {
	ownerID, _ := currentUser(c)

	// 1. --- Bind & Validate JSON ---
	var input CreateRestaurantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fee := h.DefaultDeliveryFee
	if input.DeliveryFee != nil {
		if input.DeliveryFee.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "deliveryFee cannot be negative"})
			return
		}
		fee = *input.DeliveryFee
	}

	// 2. --- Only one restaurant per owner ---
	if _, err := h.ownerRestaurantID(h.DB, ownerID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "You already have a restaurant"})
		return
	} else if !errors.Is(err, ErrRestaurantNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing restaurant"})
		return
	}

	// 3. --- Slug ---
	s, err := h.uniqueSlug(h.DB, input.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate slug"})
		return
	}

	// 4. --- Insert ---
	var logo *string
	if input.LogoURL != "" {
		logo = &input.LogoURL
	}
	now := h.now()
	result, err := h.DB.Exec(`
		INSERT INTO restaurants
		(owner_id, name, slug, phone, city, logo_url, is_open, is_verified, license_status, package_type, delivery_fee, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, 'pending', ?, ?, ?, ?)`,
		ownerID, input.Name, s, input.Phone, input.City, logo, models.PackageFree, fee, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create restaurant"})
		return
	}
	id, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{"message": "Restaurant created, pending verification", "id": id, "slug": s})
}

// GetMyRestaurant is the handler for GET /v1/owner/restaurant
func (h *Handlers) GetMyRestaurant(c *gin.Context) {
	ownerID, _ := currentUser(c)

	var r models.Restaurant
	err := scanRestaurant(h.DB.QueryRow("SELECT"+restaurantColumns+" FROM restaurants WHERE owner_id = ?", ownerID), &r)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(c, ErrRestaurantNotFound, "")
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load restaurant"})
		return
	}
	c.JSON(http.StatusOK, r)
}

// UpdateRestaurantInput holds the settings an owner may change. Nil means unchanged.
type UpdateRestaurantInput struct {
	IsOpen            *bool            `json:"isOpen"`
	IsHiring          *bool            `json:"isHiring"`
	HiringDescription *string          `json:"hiringDescription"`
	Phone             *string          `json:"phone"`
	City              *string          `json:"city"`
	LogoURL           *string          `json:"logoUrl" binding:"omitempty,url"`
	DeliveryFee       *decimal.Decimal `json:"deliveryFee"`
}

// UpdateMyRestaurant is the handler for PATCH /v1/owner/restaurant
func (h *Handlers) UpdateMyRestaurant(c *gin.Context) {
	ownerID, _ := currentUser(c)

	var input UpdateRestaurantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Build the SET list from whatever was sent.
	var sets []string
	var args []interface{}
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if input.IsOpen != nil {
		add("is_open", *input.IsOpen)
	}
	if input.IsHiring != nil {
		add("is_hiring", *input.IsHiring)
	}
	if input.HiringDescription != nil {
		add("hiring_description", *input.HiringDescription)
	}
	if input.Phone != nil {
		add("phone", *input.Phone)
	}
	if input.City != nil {
		add("city", *input.City)
	}
	if input.LogoURL != nil {
		add("logo_url", *input.LogoURL)
	}
	if input.DeliveryFee != nil {
		if input.DeliveryFee.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "deliveryFee cannot be negative"})
			return
		}
		add("delivery_fee", *input.DeliveryFee)
	}
	if len(sets) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}
	add("updated_at", h.now())
	args = append(args, ownerID)

	result, err := h.DB.Exec("UPDATE restaurants SET "+strings.Join(sets, ", ")+" WHERE owner_id = ?", args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update restaurant"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		respondError(c, ErrRestaurantNotFound, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Restaurant updated"})
}

//
// --- Admin: Restaurant Handlers ---
//

// VerifyRestaurantInput sets the license review outcome.
type VerifyRestaurantInput struct {
	LicenseStatus string `json:"licenseStatus" binding:"required,oneof=verified rejected"`
}

// VerifyRestaurant is the handler for PATCH /v1/admin/restaurants/:id/verify
func (h *Handlers) VerifyRestaurant(c *gin.Context) {
	adminID, _ := currentUser(c)
	restaurantID := c.Param("id")

	var input VerifyRestaurantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var ownerID int64
	if err := tx.QueryRow("SELECT owner_id FROM restaurants WHERE id = ? FOR UPDATE", restaurantID).Scan(&ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, ErrRestaurantNotFound, "")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load restaurant"})
		return
	}

	verified := input.LicenseStatus == "verified"
	if _, err := tx.Exec("UPDATE restaurants SET license_status = ?, is_verified = ?, updated_at = ? WHERE id = ?",
		input.LicenseStatus, verified, h.now(), restaurantID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update restaurant"})
		return
	}

	msg := "Your restaurant license has been verified."
	if !verified {
		msg = "Your restaurant license was rejected. Please contact support."
	}
	if err := h.AddNotification(tx, ownerID, "License review", msg, models.NotifyRestaurant, "/restaurant"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to notify owner"})
		return
	}
	if err := h.AddAuditLog(tx, models.AuditRestaurantVerified, adminID, &ownerID, map[string]interface{}{
		"restaurantId":  restaurantID,
		"licenseStatus": input.LicenseStatus,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant " + input.LicenseStatus})
}

// SetSupervisorInput links a restaurant to a supervisor, or unlinks it when
// SupervisorID is null.
type SetSupervisorInput struct {
	SupervisorID *int64 `json:"supervisorId"`
}

// SetRestaurantSupervisor is the handler for PATCH /v1/admin/restaurants/:id/supervisor
func (h *Handlers) SetRestaurantSupervisor(c *gin.Context) {
	adminID, _ := currentUser(c)
	restaurantID := c.Param("id")

	var input SetSupervisorInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// The target must really be a supervisor.
	if input.SupervisorID != nil {
		role, err := h.lookupUserRole(tx, *input.SupervisorID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && role != string(lifecycle.RoleSupervisor)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "supervisorId is not a supervisor"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load supervisor"})
			return
		}
	}

	result, err := tx.Exec("UPDATE restaurants SET supervisor_id = ?, updated_at = ? WHERE id = ?", input.SupervisorID, h.now(), restaurantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update restaurant"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		respondError(c, ErrRestaurantNotFound, "")
		return
	}

	if err := h.AddAuditLog(tx, models.AuditSupervisorLinked, adminID, input.SupervisorID, map[string]interface{}{
		"restaurantId": restaurantID,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write audit log"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Supervisor updated"})
}

// SupervisedRestaurant is one row of the supervisor's family-business list.
type SupervisedRestaurant struct {
	models.Restaurant
	DeliveredOrders int `json:"deliveredOrders"`
}

// GetSupervisedRestaurants is the handler for GET /v1/supervisor/restaurants
func (h *Handlers) GetSupervisedRestaurants(c *gin.Context) {
	supervisorID, _ := currentUser(c)

	rows, err := h.DB.Query(`
		SELECT`+restaurantColumns+`,
			(SELECT COUNT(*) FROM orders o WHERE o.restaurant_id = restaurants.id AND o.status = 'delivered')
		FROM restaurants
		WHERE supervisor_id = ?
		ORDER BY name ASC`, supervisorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	list := []SupervisedRestaurant{}
	for rows.Next() {
		var sr SupervisedRestaurant
		r := &sr.Restaurant
		if err := rows.Scan(
			&r.ID, &r.OwnerID, &r.Name, &r.Slug, &r.Phone, &r.City, &r.LogoURL, &r.IsOpen, &r.IsVerified, &r.LicenseStatus,
			&r.PackageType, &r.PackageSubscribedAt, &r.PackageExpiresAt, &r.SupervisorID,
			&r.IsHiring, &r.HiringDescription, &r.DeliveryFee, &r.CreatedAt, &r.UpdatedAt,
			&sr.DeliveredOrders,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan restaurant"})
			return
		}
		list = append(list, sr)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"restaurants": list})
}
