package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/nl2sql/internal/ai"
	"github.com/xxxsen/nl2sql/internal/model"
	appErr "github.com/xxxsen/nl2sql/internal/pkg/errors"
	"github.com/xxxsen/nl2sql/internal/pkg/response"
	"github.com/xxxsen/nl2sql/internal/service"
)

const (
	msgPromptRequired = "Prompt is required"
	msgGenerateFailed = "Failed to generate SQL query"
	msgNoSQL          = "No SQL query generated"
	msgNoSQLDetails   = "The API response did not contain any generated text"
	msgAIUnavailable  = "AI provider not configured"
)

type SQLHandler struct {
	errorMapper
	sql *service.SQLService
}

func NewSQLHandler(sql *service.SQLService, exposeDetails bool) *SQLHandler {
	return &SQLHandler{errorMapper: errorMapper{exposeDetails: exposeDetails}, sql: sql}
}

type generateSQLRequest struct {
	Prompt      string              `json:"prompt"`
	ChatHistory []model.ChatMessage `json:"chatHistory"`
}

type generateSQLResponse struct {
	Result string `json:"result"`
}

func (h *SQLHandler) Generate(c *gin.Context) {
	var req generateSQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgPromptRequired)
		return
	}
	result, err := h.sql.Generate(c.Request.Context(), req.Prompt, req.ChatHistory)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, generateSQLResponse{Result: result})
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, msgPromptRequired)
	case errors.Is(err, service.ErrAIUnavailable):
		response.Error(c, http.StatusServiceUnavailable, msgAIUnavailable)
	case errors.Is(err, service.ErrEmptySQL):
		response.ErrorWithDetails(c, http.StatusInternalServerError, msgNoSQL, msgNoSQLDetails)
	default:
		status := http.StatusBadGateway
		if code, ok := ai.StatusCode(err); ok && code >= http.StatusBadRequest && code < 600 {
			status = code
		}
		h.internalError(c, status, msgGenerateFailed, err)
	}
}
