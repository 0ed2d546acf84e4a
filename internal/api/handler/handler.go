// Package handler exposes the complaint services over HTTP with gin.
package handler

import (
	"net/http"

	"scms/backend/internal/auth"
	"scms/backend/internal/complaint"
	"scms/backend/internal/config"
	"scms/backend/internal/hub"
	"scms/backend/internal/notification"
	"scms/backend/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// Handler holds the services every route delegates to.
type Handler struct {
	Auth          *auth.Service
	Complaints    *complaint.Service
	Notifications *notification.Service
	Hub           *hub.ManagerService

	// Limiter throttles the auth endpoints per client IP. Nil disables it.
	Limiter *ratelimit.FixedWindowLimiter
	// TrustedProxies may set X-Forwarded-For and X-Real-IP. Empty trusts no one.
	TrustedProxies []string

	MaxUploadBytes int64
	// UploadDir is served under UploadBaseURL when uploads are kept on local disk.
	UploadDir     string
	UploadBaseURL string
}

func NewHandler(authSvc *auth.Service, complaints *complaint.Service, notes *notification.Service, h *hub.ManagerService) *Handler {
	return &Handler{
		Auth:           authSvc,
		Complaints:     complaints,
		Notifications:  notes,
		Hub:            h,
		MaxUploadBytes: config.DefaultMaxUploadBytes,
		UploadBaseURL:  config.DefaultUploadBaseURL,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
