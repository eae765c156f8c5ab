package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xxxsen/nl2sql/internal/middleware"
)

type RouterDeps struct {
	Auth          *AuthHandler
	SQL           *SQLHandler
	JWTSecret     []byte
	RequireAuth   bool
	AuthRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(deps.AuthRateLimit))
	authGroup.POST("/signup", deps.Auth.Signup)
	authGroup.POST("/login", deps.Auth.Login)

	sqlGroup := api.Group("")
	if deps.RequireAuth {
		sqlGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	}
	sqlGroup.POST("/generate-sql", deps.SQL.Generate)

	api.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
