package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"ALBA-backend/internal/account"
	"ALBA-backend/internal/attendance"
	"ALBA-backend/internal/employee"
	"ALBA-backend/internal/payment"
	"ALBA-backend/internal/platform/auth"
	"ALBA-backend/internal/platform/config"
	"ALBA-backend/internal/platform/db"
	"ALBA-backend/internal/platform/logging"
	"ALBA-backend/internal/schedule"
	"ALBA-backend/internal/wage"
)

//go:embed openapi.yaml
var openAPISpec []byte

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to config yaml")
	flag.Parse()

	// 設定読み込み
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Mode)
	slog.SetDefault(logger)
	logger.Info("starting", "mode", cfg.Mode, "version", cfg.Version, "time_zone", cfg.Payroll.TimeZone)

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		logger.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("connected to DB", "dbname", cfg.DB.DBName)

	if cfg.DB.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(ctx, conn)
		cancel()
		if err != nil {
			logger.Error("migrate", "err", err)
			os.Exit(1)
		}
		logger.Info("schema migrated")
	}

	key, err := cfg.AccountKey()
	if err != nil {
		logger.Error("account key", "err", err)
		os.Exit(1)
	}
	sealer, err := account.NewSealer(key)
	if err != nil {
		logger.Error("account cipher", "err", err)
		os.Exit(1)
	}

	// ===== 依存の組み立て =====
	loc := cfg.Location()
	attendanceSvc := attendance.NewService(conn, schedule.NewStore(conn), loc)
	wageSvc := wage.NewService(attendanceSvc, employee.NewDirectory(conn, cfg.Payroll.DefaultHourlyWage), wage.DefaultRates(), loc)
	accountSvc := account.NewService(conn, sealer)
	paymentSvc := payment.NewService(conn, sealer, wageSvc)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(logging.Middleware(logger), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logging.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", "Location", logging.RequestIDHeader},
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := conn.PingContext(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, "db unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	// API ドキュメント
	r.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", openAPISpec)
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/openapi.yaml")))

	// /api/v1（全ルート JWT 必須）
	api := r.Group("/api/v1", auth.RequireAuth([]byte(cfg.Auth.JWTSecret)))
	attendance.RegisterRoutes(api, attendanceSvc)
	wage.RegisterRoutes(api, wageSvc)
	account.RegisterRoutes(api, accountSvc)
	payment.RegisterRoutes(api, paymentSvc)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.Server.Cert != "" {
			dir := filepath.Join("config", "tls", cfg.Mode)
			logger.Info("listening (TLS)", "addr", cfg.Server.Addr)
			err = srv.ListenAndServeTLS(filepath.Join(dir, cfg.Server.Cert), filepath.Join(dir, cfg.Server.Key))
		} else {
			logger.Warn("listening without TLS (dev only)", "addr", cfg.Server.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
