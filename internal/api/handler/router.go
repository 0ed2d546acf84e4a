package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(h.TrustedProxies); err != nil {
		slog.Error("invalid trusted proxies, ignoring forwarding headers", "proxies", h.TrustedProxies, "err", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), requestID(), requestLogger(), cors())

	r.GET("/healthz", h.Health)
	if h.UploadDir != "" {
		r.Static(h.UploadBaseURL, h.UploadDir)
	}

	api := r.Group("/api")

	authRoutes := api.Group("/auth", h.rateLimit())
	authRoutes.POST("/register", h.Register)
	authRoutes.POST("/login", h.Login)
	authRoutes.POST("/admin/login", h.AdminLogin)

	api.GET("/meta/buildings", h.Buildings)
	// Browsers cannot set headers on websocket upgrades, so this route authenticates itself.
	api.GET("/notifications/ws", h.ServeWebSocket)

	protected := api.Group("", h.authenticate())

	complaints := protected.Group("/complaints")
	complaints.POST("", h.SubmitComplaint)
	complaints.GET("", h.ListComplaints)
	complaints.GET("/:id", h.GetComplaint)
	complaints.PATCH("/:id/status", h.requireAdmin(), h.UpdateStatus)
	complaints.PATCH("/:id/assign", h.requireAdmin(), h.AssignComplaint)
	complaints.POST("/:id/comments", h.requireAdmin(), h.AddComment)

	notifications := protected.Group("/notifications")
	notifications.GET("", h.ListNotifications)
	notifications.GET("/unread-count", h.UnreadCount)
	notifications.PATCH("/read-all", h.MarkAllRead)

	admin := protected.Group("/admin", h.requireAdmin())
	admin.GET("/stats", h.Stats)
	admin.GET("/staff", h.Staff)

	return r
}
