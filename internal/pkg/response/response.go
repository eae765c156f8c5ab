package response

import (
	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, errorBody{Error: message})
}

// ErrorWithDetails writes an error body that carries diagnostic text. An
// empty details string is omitted from the body.
func ErrorWithDetails(c *gin.Context, status int, message, details string) {
	c.JSON(status, errorBody{Error: message, Details: details})
}
