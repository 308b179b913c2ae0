package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/godilite/cafeteria-survey/internal/config"
	handler "github.com/godilite/cafeteria-survey/internal/grpc"
	"github.com/godilite/cafeteria-survey/internal/httpapi"
	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/service"
	"github.com/godilite/cafeteria-survey/pkg/cache"
	dbbuilder "github.com/godilite/cafeteria-survey/pkg/database"
	grpcsrv "github.com/godilite/cafeteria-survey/pkg/grpc/server"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger     *zap.Logger
	dbPool     *sql.DB
	cache      *cache.Cache
	httpServer *http.Server
	grpcServer *grpcsrv.Server
}

// databaseOptions returns the pool settings for cfg. An in-memory store lives
// only as long as its single connection, so that connection is never reaped.
func databaseOptions(cfg *config.Config) []dbbuilder.Option {
	opts := []dbbuilder.Option{
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DataSource()),
	}
	if cfg.DBPath == ":memory:" {
		return append(opts,
			dbbuilder.WithMaxOpenConns(1),
			dbbuilder.WithMaxIdleConns(1),
			dbbuilder.WithConnMaxIdleTime(0),
			dbbuilder.WithConnMaxLifetime(0),
		)
	}
	return append(opts, dbbuilder.WithPragmas("PRAGMA journal_mode=WAL"))
}

// OpenDatabase opens the configured store and brings its schema up to date.
func OpenDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dbPool, err := dbbuilder.New(databaseOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	if err := repository.Migrate(ctx, dbPool); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))
	return dbPool, nil
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg.JWTSecret == config.DevJWTSecret && !cfg.IsProduction() {
		logger.Warn("JWT_SECRET is not set, signing sessions with the development secret")
	}
	if cfg.JWTSecret == config.DevJWTSecret && cfg.IsProduction() {
		return nil, errors.New("JWT_SECRET must be set in production")
	}

	dbPool, err := OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	cacheClient, err := cache.New(ctx,
		cache.WithAddress(cfg.RedisAddr),
		cache.WithPassword(cfg.RedisPassword),
		cache.WithDB(cfg.RedisDB),
	)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("session store init failed: %w", err)
	}
	logger.Info("Session store initialized", zap.String("addr", cfg.RedisAddr))

	catalogRepo := repository.NewCatalogRepository(dbPool)
	responseRepo := repository.NewResponseRepository(dbPool)
	staffRepo := repository.NewStaffRepository(dbPool)

	configs := service.NewSurveyConfigService(catalogRepo, logger)
	if err := configs.Ensure(ctx); err != nil {
		cacheClient.Close()
		dbPool.Close()
		return nil, fmt.Errorf("survey config init failed: %w", err)
	}

	auth := service.NewAuthService(staffRepo, cacheClient, []byte(cfg.JWTSecret), cfg.SessionTTL, logger)
	recorder := service.NewRecorderService(catalogRepo, responseRepo, configs, cfg.Location, logger)
	reporting := service.NewReportingService(responseRepo, catalogRepo, cfg.Location, logger)
	catalog := service.NewCatalogService(catalogRepo, responseRepo, cfg.Location, logger)

	web, err := httpapi.NewHandler(httpapi.Config{
		Logger:        logger,
		Recorder:      recorder,
		Configs:       configs,
		Reporter:      reporting,
		Auth:          auth,
		Catalog:       catalog,
		Location:      cfg.Location,
		SecureCookies: cfg.IsProduction(),
	})
	if err != nil {
		cacheClient.Close()
		dbPool.Close()
		return nil, fmt.Errorf("failed to create HTTP handler: %w", err)
	}

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithLogging(true),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithAuth(handler.StaffAuth(auth)),
	)
	if err != nil {
		cacheClient.Close()
		dbPool.Close()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	reportingHandlers := handler.NewReportingHandlers(reporting, logger)
	grpcServer.RegisterServiceWithHealth(handler.ReportingServiceName, func(s *grpc.Server) {
		handler.RegisterReportingServer(s, reportingHandlers)
	})

	return &App{
		logger: logger,
		dbPool: dbPool,
		cache:  cacheClient,
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           web.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		grpcServer: grpcServer,
	}, nil
}

// Run starts both servers and blocks until a shutdown signal is received or
// either server fails.
func (a *App) Run() error {
	a.logger.Info("application starting")

	grpcErr := a.grpcServer.Start()

	httpErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
		close(httpErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		a.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-httpErr:
		runErr = fmt.Errorf("http server: %w", err)
	case err := <-grpcErr:
		runErr = fmt.Errorf("grpc server: %w", err)
	}

	a.logger.Info("application shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP shutdown error", zap.Error(err))
	}
	if err := a.grpcServer.Shutdown(ctx); err != nil {
		a.logger.Error("gRPC shutdown error", zap.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("session store shutdown error", zap.Error(err))
	}
	if err := a.dbPool.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}

	if ctx.Err() == context.DeadlineExceeded {
		a.logger.Warn("shutdown completed but deadline exceeded")
	} else {
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return runErr
}
