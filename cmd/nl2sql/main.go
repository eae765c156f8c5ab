package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/nl2sql/internal/ai"
	"github.com/xxxsen/nl2sql/internal/cli"
	"github.com/xxxsen/nl2sql/internal/config"
	"github.com/xxxsen/nl2sql/internal/handler"
	"github.com/xxxsen/nl2sql/internal/middleware"
	"github.com/xxxsen/nl2sql/internal/repo"
	"github.com/xxxsen/nl2sql/internal/service"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "nl2sql",
		Short:        "natural language to SQL chat server and client",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newRunCommand())
	cli.AddClientCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run nl2sql server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			if err := runServer(cfg); err != nil {
				logutil.GetLogger(context.Background()).Error("server exited", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	return cmd
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("store", cfg.Store.Type),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.Bool("require_auth", cfg.RequireAuth),
	)

	users, closeStore, err := repo.OpenUserRepo(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	defer closeStore()

	secret := []byte(cfg.JWTSecret)
	authService := service.NewAuthService(users, secret, time.Hour*time.Duration(cfg.JWTTTLHours))

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	sqlService := service.NewSQLService(provider, service.SQLServiceConfig{
		Model:     cfg.AI.Model,
		Timeout:   time.Duration(cfg.AI.Timeout) * time.Second,
		CacheSize: cfg.AI.CacheSize,
		CacheTTL:  time.Duration(cfg.AI.CacheTTLMinutes) * time.Minute,
	})

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authService, cfg.ExposeErrorDetails),
		SQL:           handler.NewSQLHandler(sqlService, cfg.ExposeErrorDetails),
		JWTSecret:     secret,
		RequireAuth:   cfg.RequireAuth,
		AuthRateLimit: time.Duration(cfg.AuthRateLimitMs) * time.Millisecond,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
