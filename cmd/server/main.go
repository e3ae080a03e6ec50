package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	appconv "github.com/erp/conversion/internal/application/conversion"
	"github.com/erp/conversion/internal/domain/conversion"
	"github.com/erp/conversion/internal/infrastructure/config"
	infraconv "github.com/erp/conversion/internal/infrastructure/conversion"
	"github.com/erp/conversion/internal/infrastructure/logger"
	"github.com/erp/conversion/internal/infrastructure/persistence"
	"github.com/erp/conversion/internal/infrastructure/telemetry"
	"github.com/erp/conversion/internal/interfaces/http/handler"
	"github.com/erp/conversion/internal/interfaces/http/middleware"
	"github.com/erp/conversion/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/erp/conversion/docs"
)

//	@title			Conversion Service API
//	@version		1.0
//	@description	Converts values between runtime types through a catalog of registered and synthesized converters.

//	@BasePath	/api/v1

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting conversion service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Metrics
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down metrics", zap.Error(err))
		}
	}()

	// Tracing
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracing", zap.Error(err))
		}
	}()

	metrics, err := telemetry.NewConversionMetrics(meterProvider.Meter("conversion"))
	if err != nil {
		log.Fatal("Failed to create conversion metrics", zap.Error(err))
	}

	// Converter catalog
	types := infraconv.NewTypeRegistryWithDefaults()
	infraconv.RegisterType[reflect.Type](types, "type", "class")

	catalog, err := newCatalog(cfg.Conversion, types, metrics, log)
	if err != nil {
		log.Fatal("Failed to initialize converter catalog", zap.Error(err))
	}
	registration, err := metrics.ObserveCatalog(catalog)
	if err != nil {
		log.Fatal("Failed to observe converter catalog", zap.Error(err))
	}
	defer func() {
		_ = registration.Unregister()
	}()

	service := appconv.NewService(catalog,
		appconv.WithLogger(logger.Named(log, logger.ServiceComponent)),
		appconv.WithMaxNestingDepth(cfg.Conversion.MaxNestingDepth),
		appconv.WithRecorder(metrics),
	)

	// Struct fields tagged serializer:conversion are stored through the service
	persistence.RegisterConversionSerializer(service, conversion.Hints{
		conversion.HintDateFormatPattern: cfg.Conversion.DateFormatPattern,
		conversion.HintZoneID:            cfg.Conversion.ZoneID,
		conversion.HintClassLoader:       types,
	})

	// Conversion history store
	db, err := persistence.NewDatabase(persistence.DatabaseConfig{
		DSN:            cfg.Database.DSN,
		LogLevel:       cfg.Database.LogLevel,
		SlowThreshold:  cfg.Database.SlowThreshold,
		TracerProvider: tracerProvider.Provider(),
	}, log)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	history := persistence.NewGormConversionHistoryRepository(db.DB, cfg.Database.HistoryRetention)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	httpLog := logger.Named(log, logger.HTTPComponent)
	httpMetrics, err := middleware.HTTPMetrics(meterProvider)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics middleware", zap.Error(err))
	}

	engine := gin.New()
	engine.Use(logger.RequestID())
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, tracerProvider.Provider())...)
	engine.Use(
		logger.Recovery(httpLog),
		logger.AccessLog(httpLog),
		httpMetrics,
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)
	systemRoutes := router.NewDomainGroup("/system").
		GET("/ping", systemHandler.Ping).
		GET("/info", systemHandler.GetSystemInfo)

	routes := router.NewRouter(engine).
		Register(systemRoutes).
		Register(handler.NewConversionHandler(catalog, service, types, handler.WithHistory(history))).
		Unversioned("/health", systemHandler.Health).
		Unversioned("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler)).
		Setup()
	log.Info("Routes registered", zap.Int("count", len(routes)))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}

func newCatalog(cfg config.ConversionConfig, types *infraconv.TypeRegistry, metrics *telemetry.ConversionMetrics, log *zap.Logger) (*infraconv.Catalog, error) {
	catalog := infraconv.NewCatalog(infraconv.CatalogConfig{
		Logger:                logger.Named(log, logger.CatalogComponent),
		MaxNestingDepth:       cfg.MaxNestingDepth,
		NegativeCacheCapacity: cfg.NegativeCacheCapacity,
		Metrics:               metrics,
	})
	if !cfg.RegisterDefaults {
		return catalog, nil
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if err := infraconv.RegisterDefaults(catalog, infraconv.DefaultsConfig{
		DateFormatPattern: cfg.DateFormatPattern,
		Location:          loc,
		Types:             types,
	}); err != nil {
		return nil, err
	}
	return catalog, nil
}
