package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/roster-api/api/swagger"
	"github.com/noah-isme/roster-api/internal/handler"
	"github.com/noah-isme/roster-api/internal/middleware"
	"github.com/noah-isme/roster-api/internal/repository"
	"github.com/noah-isme/roster-api/internal/service"
	"github.com/noah-isme/roster-api/pkg/cache"
	"github.com/noah-isme/roster-api/pkg/config"
	"github.com/noah-isme/roster-api/pkg/database"
	"github.com/noah-isme/roster-api/pkg/export"
	"github.com/noah-isme/roster-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/roster-api/pkg/middleware/requestid"
)

// @title Roster API
// @version 1.0.0
// @description School roster: students, classes by age range, daily attendance, reports and contracts.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	snapshots := repository.NewCacheRepository(redisClient, logr)
	defer snapshots.Close() //nolint:errcheck

	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	allowedUsers := repository.NewAllowedUserRepository(db)

	validate := validator.New()
	metrics := service.NewMetricsService()
	notifications := service.NewNotificationService(cfg.Notifications.BufferSize, logr)
	persistence := service.NewPersistenceService(cfg.Persistence.BufferSize, metrics, logr)

	directory := service.NewStudentDirectory(studentRepo, persistence, notifications, validate, logr, service.StudentDirectoryOptions{
		DefaultAreaCode: cfg.Roster.DefaultAreaCode,
	})
	registry := service.NewClassRegistry(classRepo, directory, persistence, notifications, validate, logr, nil)
	ledger := service.NewAttendanceLedger(registry)
	directory.OnRemap(registry.RemapStudent)
	directory.OnRemove(registry.DropStudent)

	persistence.Register(directory.Jobs())
	persistence.Register(registry.Jobs())
	persistence.Start(context.Background())

	roster := service.NewRosterCache(snapshots, studentRepo, classRepo, directory, registry, metrics, logr, service.RosterCacheConfig{
		Prefix: cfg.Roster.SnapshotPrefix,
		TTL:    cfg.Roster.SnapshotTTL,
	})
	if err := roster.Hydrate(ctx); err != nil {
		logr.Fatal("failed to hydrate roster", zap.Error(err))
	}
	roster.Attach()

	reports := service.NewReportService(directory, nil)
	exports := service.NewExportService(reports, directory, nil, nil, service.ContractSettings{
		Issuer: export.Issuer{
			Name:    cfg.Contract.IssuerName,
			CNPJ:    cfg.Contract.IssuerCNPJ,
			Address: cfg.Contract.IssuerAddress,
			Phones:  cfg.Contract.IssuerPhones,
			City:    cfg.Contract.City,
		},
		SchoolYear: cfg.Contract.SchoolYear,
	}, logr)
	access := service.NewAccessService(allowedUsers, cfg.Access.AllowedEmails, validate, logr)
	auth := service.NewAuthService(access, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics"))

	ops := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"database": db.PingContext,
		"redis":    snapshots.Ping,
	})
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Handlers{
		Students:      handler.NewStudentHandler(directory, reports),
		Classes:       handler.NewClassHandler(registry),
		Attendance:    handler.NewAttendanceHandler(ledger),
		Exports:       handler.NewExportHandler(exports),
		Notifications: handler.NewNotificationHandler(notifications),
		Users:         handler.NewUserHandler(access),
		Auth:          handler.NewAuthHandler(auth),
	}.Register(r.Group(cfg.APIPrefix), middleware.JWT(auth))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	if err := persistence.Drain(shutdownCtx); err != nil {
		logr.Warn("persistence queue not drained", zap.Error(err))
	}
	persistence.Stop()
}
