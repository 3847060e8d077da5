package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/mockserver"
	"go.uber.org/zap"
)

type Config struct {
	APIPort         string
	PaymentPort     string
	JWTSecret       string
	PaymentKey      string
	ShutdownTimeout time.Duration
	LogLevel        string
}

func loadConfig() *Config {
	return &Config{
		APIPort:         getEnv("API_PORT", "8080"),
		PaymentPort:     getEnv("PAYMENT_PORT", "8090"),
		JWTSecret:       getEnv("JWT_SECRET", "storefront-dev-secret"),
		PaymentKey:      getEnv("PAYMENT_KEY", ""),
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	mock := mockserver.New(mockserver.Options{
		JWTSecret:  cfg.JWTSecret,
		PaymentKey: cfg.PaymentKey,
		Logger:     log,
	})

	servers := []*http.Server{
		newServer(cfg.APIPort, mock.Handler()),
		newServer(cfg.PaymentPort, mock.PaymentHandler()),
	}
	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Info("mock backend listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("server error", zap.Error(err))
			}
		}(srv)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("server forced to shutdown", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}
	log.Info("mock backend stopped")
}

func newServer(port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
