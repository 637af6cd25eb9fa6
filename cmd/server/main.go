package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"sosline/internal/config"
	handlers "sosline/internal/handlers/shared"
	"sosline/internal/metrics"
	"sosline/internal/middleware"
	"sosline/internal/repositories/interfaces"
	"sosline/internal/repositories/memory"
	mongorepo "sosline/internal/repositories/mongodb"
	"sosline/internal/repositories/sqlite"
	"sosline/internal/services"
	"sosline/internal/utils"
	"sosline/pkg/cache"
	"sosline/pkg/database"
	"sosline/pkg/logger"
	"sosline/pkg/maps"
	"sosline/pkg/push"
	"sosline/pkg/sms"
	"sosline/pkg/websocket"
	"sosline/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.Log.Level),
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Caller:  cfg.Log.Caller,
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checks := make(map[string]routes.HealthChecker)
	var closers []func() error

	sosRepo, closeStore, err := openStore(ctx, cfg, appLogger, checks)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to open event store")
	}
	closers = append(closers, closeStore)

	if cfg.Store.RollbackRequested() {
		if cfg.Store.Driver == "mongodb" {
			appLogger.Infof("Store rolled back to version %d", cfg.Store.RollbackTo)
		} else {
			appLogger.Warnf("Rollback only applies to mongodb; %s store left as is", cfg.Store.Driver)
		}
		if err := closeStore(); err != nil {
			appLogger.WithError(err).Warn("Failed to release resource")
		}
		return
	}

	hub := websocket.NewHub()
	policy := services.NewRoleAccessPolicy(cfg.Security.ResponderRoles, sosRepo)

	var (
		dedup     services.OfferDeduplicator
		publisher services.RoomPublisher
		relay     *services.ClusterRelay
	)
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to redis")
		}
		closers = append(closers, redisCache.Close)
		checks["redis"] = redisCache.Ping

		dedup = services.NewRedisOfferDeduplicator(redisCache, cfg.Redis.OfferTTL)
		relay = services.NewClusterRelay(redisCache, cfg.Redis.Channel, cfg.App.InstanceID, hub, appLogger, m)
		publisher = relay
	} else {
		dedup = services.NewMemoryOfferDeduplicator(cfg.Redis.OfferTTL)
	}

	notifier := services.NewNotificationService(notificationOptions(ctx, cfg, appLogger), appLogger, m)
	sosService := services.NewSOSService(hub, sosRepo, policy, notifier, dedup, publisher, appLogger, m)

	wsHandler := websocket.NewHandler(hub, sosService, websocket.Config{
		ReadBufferSize:    cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:   cfg.WebSocket.WriteBufferSize,
		SendBufferSize:    cfg.WebSocket.SendBufferSize,
		MaxMessageSize:    cfg.WebSocket.MaxMessageSize,
		HandshakeTimeout:  cfg.WebSocket.HandshakeTimeout,
		WriteWait:         cfg.WebSocket.WriteWait,
		PongWait:          cfg.WebSocket.PongTimeout,
		PingPeriod:        cfg.WebSocket.PingInterval,
		EnableCompression: cfg.WebSocket.EnableCompression,
		AllowedOrigins:    cfg.WebSocket.AllowedOrigins,
	}, utils.Validator(), appLogger)
	sosHandler := handlers.NewSOSHandler(sosService, appLogger)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))
	router.Use(m.GinMiddleware())

	auth := middleware.AuthRequired(cfg.Security.JWTSecret, appLogger)

	v1 := router.Group("/api/v1")
	{
		routes.SetupSOSRoutes(v1, sosHandler, auth, middleware.ResponderRequired(policy))
	}
	routes.SetupWebSocketRoutes(router, cfg.WebSocket.Path, wsHandler, auth)
	routes.SetupHealthRoutes(router, cfg.App.Version, hub, m.Handler(), checks)

	if relay != nil {
		go func() {
			if err := relay.Run(ctx); err != nil {
				appLogger.WithError(err).Error("Cluster relay stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	// Hijacked websocket connections outlive srv.Shutdown.
	if err := hub.CloseAll(shutdownCtx); err != nil {
		appLogger.WithError(err).Warn("Sessions still open at shutdown")
	}
	if err := notifier.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Warn("Pending notifications abandoned")
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			appLogger.WithError(err).Warn("Failed to release resource")
		}
	}
}

// openStore connects the configured event store and registers its health
// check. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, checks map[string]routes.HealthChecker) (interfaces.SOSRepository, func() error, error) {
	switch cfg.Store.Driver {
	case "mongodb":
		db, err := database.NewMongoDB(ctx, &database.DatabaseConfig{
			URI:            cfg.Database.URI,
			Database:       cfg.Database.Database,
			MaxPoolSize:    cfg.Database.MaxPoolSize,
			MinPoolSize:    cfg.Database.MinPoolSize,
			ConnectTimeout: cfg.Database.ConnectTimeout,
			SocketTimeout:  cfg.Database.SocketTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		migrator := database.NewMigrator(db.Database, appLogger)
		switch {
		case cfg.Store.RollbackRequested():
			err = migrator.Down(ctx, cfg.Store.RollbackTo)
		case cfg.Store.Migrate:
			err = migrator.Up(ctx)
		}
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		checks["mongodb"] = db.Ping
		appLogger.Infof("Using MongoDB event store %s", cfg.Database.Database)
		return mongorepo.NewSOSRepository(db.Database), db.Close, nil

	case "sqlite":
		db, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		checks["sqlite"] = db.PingContext
		appLogger.Infof("Using SQLite event store %s", cfg.Store.SQLitePath)
		return sqlite.NewSOSRepository(db), db.Close, nil

	case "memory":
		appLogger.Warn("Using in-memory event store; records are lost on restart")
		return memory.NewSOSRepository(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// notificationOptions builds the side-channel providers. A provider that
// fails to initialize is logged and left out; live delivery does not
// depend on it.
func notificationOptions(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) services.NotificationOptions {
	opts := services.NotificationOptions{
		OnCallNumbers: cfg.SMS.OnCallNumbers,
	}

	switch cfg.Push.Provider {
	case "fcm":
		provider, err := push.NewFCMProvider(ctx, cfg.Push.FCM.ProjectID, cfg.Push.FCM.Credentials)
		if err != nil {
			appLogger.WithError(err).Error("Failed to initialize FCM")
			break
		}
		opts.Push = provider
		opts.PushTopic = cfg.Push.Topic
	case "apns":
		provider, err := push.NewAPNSProvider(cfg.Push.APNS.KeyFile, cfg.Push.APNS.KeyID, cfg.Push.APNS.TeamID, cfg.Push.APNS.BundleID, cfg.Push.APNS.Production)
		if err != nil {
			appLogger.WithError(err).Error("Failed to initialize APNS")
			break
		}
		opts.Push = provider
		opts.DeviceTokens = cfg.Push.APNS.DeviceTokens
	}

	switch cfg.SMS.Provider {
	case "twilio":
		opts.SMS = sms.NewTwilioProvider(cfg.SMS.Twilio.AccountSID, cfg.SMS.Twilio.AuthToken, cfg.SMS.Twilio.FromNumber)
	case "aws":
		provider, err := sms.NewAWSSNSProvider(ctx, cfg.SMS.AWS.Region)
		if err != nil {
			appLogger.WithError(err).Error("Failed to initialize AWS SNS")
			break
		}
		opts.SMS = provider
	}

	if cfg.Maps.Provider == "google" {
		provider, err := maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey, cfg.Maps.GoogleMaps.Language)
		if err != nil {
			appLogger.WithError(err).Error("Failed to initialize Google Maps")
		} else {
			opts.Geocoder = provider
		}
	}

	return opts
}
