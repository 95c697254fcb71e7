package routes

import (
	"net/http"
	"time"

	"github.com/01moynul/foodhub-golang/internal/handlers"
	"github.com/01moynul/foodhub-golang/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware lets the web dashboards at allowedOrigins call the API.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func SetupRouter(h *handlers.Handlers, allowedOrigins []string) *gin.Engine {
	router := gin.Default()

	// CORS must run first so preflight requests never reach auth.
	router.Use(CORSMiddleware(allowedOrigins))
	router.Use(middleware.RequestID())

	authRequired := middleware.AuthMiddleware(h.JWTSecret, h.DB)

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/auth/register", h.Register)
		v1.POST("/auth/login", h.Login)
		v1.GET("/auth/rate-limit", h.GetRateLimitStatus)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(authRequired)
		{
			// Orders: per-order access is checked in the handlers.
			auth.POST("/orders", middleware.RoleMiddleware("customer"), h.CreateOrder)
			auth.GET("/orders", middleware.RoleMiddleware("customer"), h.GetMyOrders)
			auth.GET("/orders/:id", h.GetOrder)
			auth.PATCH("/orders/:id/status", h.TransitionOrder)
			auth.GET("/orders/:id/pickup-code", h.GetPickupCode)

			// --- Notification Routes ---
			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)
		}

		// --- Restaurant Owner Routes ---
		owner := v1.Group("/owner")
		owner.Use(authRequired, middleware.RoleMiddleware("owner"))
		{
			owner.POST("/restaurant", h.CreateRestaurant)
			owner.GET("/restaurant", h.GetMyRestaurant)
			owner.PATCH("/restaurant", h.UpdateMyRestaurant)

			owner.GET("/orders", h.GetRestaurantOrders)

			owner.GET("/wallet", h.GetMyWallet)
			owner.POST("/withdrawals", h.RequestWithdrawal)

			owner.POST("/package-requests", h.CreatePackageRequest)
			owner.GET("/package-requests", h.GetMyPackageRequests)
			owner.PATCH("/package-requests/:id/payment", h.SubmitPackagePayment)

			owner.GET("/dashboard-stats", h.GetOwnerStats)
		}

		// --- Supervisor Routes ---
		supervisor := v1.Group("/supervisor")
		supervisor.Use(authRequired, middleware.RoleMiddleware("supervisor"))
		{
			supervisor.GET("/restaurants", h.GetSupervisedRestaurants)
			supervisor.GET("/wallet", h.GetMyWallet)
			supervisor.POST("/withdrawals", h.RequestWithdrawal)
		}

		// --- Admin-Only Routes ---
		admin := v1.Group("/admin")
		admin.Use(authRequired, middleware.RoleMiddleware("admin"))
		{
			admin.GET("/withdrawals", h.GetWithdrawalRequests)
			admin.PATCH("/withdrawals/:id", h.ProcessWithdrawalRequest)

			admin.GET("/package-requests", h.GetPackageRequests)
			admin.PATCH("/package-requests/:id", h.ProcessPackageRequest)

			admin.PATCH("/users/:id/deactivate", h.DeactivateUser)
			admin.PATCH("/users/:id/reactivate", h.ReactivateUser)
			admin.PATCH("/users/:id/unlock", h.UnlockUser)

			admin.PATCH("/restaurants/:id/verify", h.VerifyRestaurant)
			admin.PATCH("/restaurants/:id/supervisor", h.SetRestaurantSupervisor)

			admin.GET("/audit-logs", h.GetAuditLogs)
			admin.POST("/notifications/broadcast", h.BroadcastNotification)
			admin.GET("/dashboard-stats", h.GetAdminStats)

			admin.POST("/assistant", h.AskAssistant)
		}
	}

	return router
}
