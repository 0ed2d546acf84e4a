package handler

import (
	"net/http"

	"scms/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	StudentID string `json:"student_id"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		audit(c, "signup", "fail", "reason", "invalid_json")
		badRequest(c, "Invalid request body.")
		return
	}
	session, err := h.Auth.Register(c.Request.Context(), auth.RegisterInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		StudentID: req.StudentID,
	})
	if err != nil {
		audit(c, "signup", "fail", "reason", auditReason(err))
		h.fail(c, err)
		return
	}
	audit(c, "signup", "success", "user_id", session.User.ID)
	c.JSON(http.StatusCreated, newSessionResponse(session))
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		audit(c, "login", "fail", "reason", "invalid_json")
		badRequest(c, "Invalid request body.")
		return
	}
	session, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		audit(c, "login", "fail", "reason", auditReason(err))
		h.fail(c, err)
		return
	}
	audit(c, "login", "success", "user_id", session.User.ID)
	c.JSON(http.StatusOK, newSessionResponse(session))
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		audit(c, "admin.login", "fail", "reason", "invalid_json")
		badRequest(c, "Invalid request body.")
		return
	}
	session, err := h.Auth.AdminLogin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		audit(c, "admin.login", "fail", "reason", auditReason(err))
		h.fail(c, err)
		return
	}
	audit(c, "admin.login", "success", "username", session.User.Username)
	c.JSON(http.StatusOK, newSessionResponse(session))
}
