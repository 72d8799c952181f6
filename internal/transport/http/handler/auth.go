package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/ErlanBelekov/recircular-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, input usecase.RegisterInput) (*usecase.RegisterResult, error)
	Confirm(ctx context.Context, rawToken string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*usecase.LoginResult, error)
}

type AuthHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "auth_handler"),
	}
}

type registerRequest struct {
	Name     string `json:"name"     binding:"required,max=100"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type registerResponse struct {
	Message    string `json:"message"`
	ConfirmURL string `json:"confirm_url,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.authUsecase.Register(c.Request.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.logger, "register", err)
		return
	}

	c.JSON(http.StatusCreated, registerResponse{
		Message:    "Account created. Check your email to activate it.",
		ConfirmURL: res.ConfirmURL,
	})
}

// GET /api/auth/confirm/:token
func (h *AuthHandler) Confirm(c *gin.Context) {
	if _, err := h.authUsecase.Confirm(c.Request.Context(), c.Param("token")); err != nil {
		respondError(c, h.logger, "confirm account", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account activated. You can now log in."})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.authUsecase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "login", err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token: res.Token,
		User:  userResponse{ID: res.User.ID, Name: res.User.Name, Email: res.User.Email},
	})
}
