package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/nl2sql/internal/metrics"
	"github.com/xxxsen/nl2sql/internal/model"
	appErr "github.com/xxxsen/nl2sql/internal/pkg/errors"
	"github.com/xxxsen/nl2sql/internal/pkg/password"
	"github.com/xxxsen/nl2sql/internal/pkg/response"
)

const msgPasswordTooLong = "Password must be at most 72 bytes"

// IAuthService is the part of service.AuthService the handlers call.
type IAuthService interface {
	Signup(ctx context.Context, email, password, name string) (*model.PublicUser, string, error)
	Login(ctx context.Context, email, password string) (*model.PublicUser, string, error)
}

type AuthHandler struct {
	errorMapper
	auth IAuthService
}

func NewAuthHandler(auth IAuthService, exposeDetails bool) *AuthHandler {
	return &AuthHandler{errorMapper: errorMapper{exposeDetails: exposeDetails}, auth: auth}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	User  *model.PublicUser `json:"user"`
	Token string            `json:"token"`
}

var (
	signupMessages = failureMessages{badInput: "Missing required fields", internal: "Failed to create user"}
	loginMessages  = failureMessages{badInput: "Email and password are required", internal: "Failed to login"}
)

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecordAuth(metrics.OpSignup, metrics.OutcomeBadInput)
		response.Error(c, http.StatusBadRequest, signupMessages.badInput)
		return
	}
	user, token, err := h.auth.Signup(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		metrics.RecordAuth(metrics.OpSignup, outcomeOf(err))
		if errors.Is(err, password.ErrTooLong) {
			response.Error(c, http.StatusBadRequest, msgPasswordTooLong)
			return
		}
		h.handleError(c, err, signupMessages)
		return
	}
	metrics.RecordAuth(metrics.OpSignup, metrics.OutcomeSuccess)
	response.Success(c, http.StatusCreated, authResponse{User: user, Token: token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecordAuth(metrics.OpLogin, metrics.OutcomeBadInput)
		response.Error(c, http.StatusBadRequest, loginMessages.badInput)
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		metrics.RecordAuth(metrics.OpLogin, outcomeOf(err))
		h.handleError(c, err, loginMessages)
		return
	}
	metrics.RecordAuth(metrics.OpLogin, metrics.OutcomeSuccess)
	response.Success(c, http.StatusOK, authResponse{User: user, Token: token})
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, appErr.ErrInvalid):
		return metrics.OutcomeBadInput
	case errors.Is(err, appErr.ErrUnauthorized):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, appErr.ErrConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeFailure
	}
}
