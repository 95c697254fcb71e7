package handlers

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/01moynul/foodhub-golang/internal/cache"
	"github.com/01moynul/foodhub-golang/internal/events"
	"github.com/01moynul/foodhub-golang/internal/ledger"
	"github.com/01moynul/foodhub-golang/internal/lifecycle"
	"github.com/01moynul/foodhub-golang/internal/pickup"
	"github.com/01moynul/foodhub-golang/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Assistant answers back-office questions. *ai.AIService implements it.
type Assistant interface {
	GenerateResponse(ctx context.Context, userMessage, userRole string) (string, int, error)
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB         *sql.DB // Primary Read/Write connection
	DBReadOnly *sql.DB // Read-Only connection (assistant)

	JWTSecret          []byte
	JWTTTL             time.Duration
	Fees               ledger.FeeSchedule
	RateLimit          ratelimit.Policy
	DefaultDeliveryFee decimal.Decimal

	Markers   *cache.SettlementMarkers // nil-safe
	Events    events.Publisher
	Pickup    pickup.Generator
	AIService Assistant // nil when GEMINI_API_KEY is unset

	// Now is overridden in tests.
	Now func() time.Time
}

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrForbidden          = errors.New("not allowed to act on this resource")
	ErrStatusConflict     = errors.New("order status changed concurrently")
	ErrAlreadySettled     = errors.New("order already settled")
	ErrInsufficientFunds  = errors.New("insufficient funds")

	ErrPackageRequestNotFound = errors.New("package request not found")
)

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handlers) publisher() events.Publisher {
	if h.Events == nil {
		return events.NopPublisher{}
	}
	return h.Events
}

// currentUser reads what AuthMiddleware stored on the context.
func currentUser(c *gin.Context) (int64, lifecycle.ActorRole) {
	userID := c.GetInt64("userID")
	role := c.GetString("userRole")
	return userID, lifecycle.ActorRole(role)
}

// respondError maps domain errors onto status codes. Anything unknown is
// logged with the request id and reported as a 500 with fallback.
func respondError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	msg := fallback

	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrOrderFinalized),
		errors.Is(err, lifecycle.ErrRequestClosed),
		errors.Is(err, ErrStatusConflict),
		errors.Is(err, ErrAlreadySettled),
		errors.Is(err, ErrInsufficientFunds):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, lifecycle.ErrReasonRequired),
		errors.Is(err, lifecycle.ErrUnknownStatus):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrRestaurantNotFound),
		errors.Is(err, ErrPackageRequestNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, ErrForbidden):
		status, msg = http.StatusForbidden, err.Error()
	default:
		log.Printf("[%s] %s %s: %v", c.GetString("requestID"), c.Request.Method, c.FullPath(), err)
	}

	c.JSON(status, gin.H{"error": msg})
}
