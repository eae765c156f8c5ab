package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/nl2sql/internal/pkg/jwt"
)

func newTestEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(mw...)
	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    c.GetString(ContextUserIDKey),
			"request_id": c.GetString(ContextRequestIDKey),
		})
	})
	return engine
}

func TestJWTAuth(t *testing.T) {
	secret := []byte("test-secret")
	engine := newTestEngine(JWTAuth(secret))
	valid, err := jwt.GenerateToken("user-1", "a@x.com", secret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc", want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + valid, want: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + valid, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			engine.ServeHTTP(resp, req)
			require.Equal(t, tt.want, resp.Code)
			if tt.want == http.StatusOK {
				require.Contains(t, resp.Body.String(), `"user_id":"user-1"`)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	engine := newTestEngine(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	generated := resp.Header().Get(RequestIDHeader)
	require.Len(t, generated, 26)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "given-id")
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	require.Equal(t, "given-id", resp.Header().Get(RequestIDHeader))
	require.Contains(t, resp.Body.String(), `"request_id":"given-id"`)
}

func TestCORS(t *testing.T) {
	engine := newTestEngine(CORS([]string{"https://app.example.com"}))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, "https://app.example.com", resp.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	require.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
}
