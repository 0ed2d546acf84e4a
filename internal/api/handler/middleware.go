package handler

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scms/backend/internal/apperr"
	"scms/backend/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
	identityKey     = "identity"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// cors allows any origin; the API is token-authenticated and sets no cookies.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.Request)
		if !ok {
			audit(c, "authorize", "fail", "reason", "missing_token")
			h.fail(c, apperr.New(apperr.ErrUnauthenticated, "Missing or invalid Authorization header"))
			return
		}
		id, err := h.Auth.Resolve(c.Request.Context(), token)
		if err != nil {
			audit(c, "authorize", "fail", "reason", auditReason(err))
			h.fail(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func (h *Handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identity(c)
		if err := auth.RequireAdmin(id); err != nil {
			audit(c, "admin.authorize", "fail", "user_id", id.ID, "reason", "forbidden")
			h.fail(c, err)
			return
		}
		c.Next()
	}
}

func (h *Handler) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Limiter == nil {
			c.Next()
			return
		}
		key := c.FullPath() + "|" + c.ClientIP()
		if !h.Limiter.Allow(c.Request.Context(), key) {
			audit(c, "rate_limit", "rate_limited")
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(h.Limiter.Window().Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Try again later."})
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func audit(c *gin.Context, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"ip", c.ClientIP(),
		"request_id", c.GetString(requestIDKey),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

// auditReason keeps internal error text out of security events.
func auditReason(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "internal_error"
	}
	return apperr.Message(err)
}
