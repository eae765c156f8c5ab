package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/nl2sql/internal/pkg/errors"
	"github.com/xxxsen/nl2sql/internal/pkg/response"
)

const (
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid email or password"
	msgTooMany            = "Too many requests"
)

// failureMessages names the client-facing text for each outcome of one endpoint.
type failureMessages struct {
	badInput string
	internal string
}

type errorMapper struct {
	exposeDetails bool
}

func (m errorMapper) handleError(c *gin.Context, err error, msgs failureMessages) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
	)
	switch {
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, msgs.badInput)
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, http.StatusConflict, msgUserExists)
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, msgTooMany)
	default:
		logger.Error("request failed", zap.Error(err))
		m.internalError(c, http.StatusInternalServerError, msgs.internal, err)
	}
}

func (m errorMapper) internalError(c *gin.Context, status int, message string, err error) {
	if m.exposeDetails && err != nil {
		response.ErrorWithDetails(c, status, message, err.Error())
		return
	}
	response.Error(c, status, message)
}
