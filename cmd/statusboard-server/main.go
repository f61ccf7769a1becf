package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/statusboard/statusboard/internal/config"
	"github.com/statusboard/statusboard/internal/status"
)

// AppState holds all application services
type AppState struct {
	StatusService status.StatusManager
	Store         status.StatusStore
	Logger        *zap.Logger
	Config        *config.Config
}

func main() {
	// Load configuration
	config.Load()

	// Initialize logger with config
	logger := initLogger()
	logger.Info("Configuration loaded", zap.String("store_driver", config.Store().Driver))

	// Initialize application state
	as, closeStore, err := newAppState(logger)
	if err != nil {
		logger.Fatal("Failed to initialize application state", zap.Error(err))
	}

	// Create HTTP server
	router := setupRouter(as)

	// Server configuration from config
	addr := fmt.Sprintf("%s:%d", config.Http().Host, config.Http().Port)

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start the expired-status sweeper
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	startExpirySweeper(sweeperCtx, as)

	// Setup graceful shutdown
	done := setupSignalHandler(server, stopSweeper, closeStore, logger)

	// Start server
	logger.Info("Starting statusboard server", zap.String("address", addr))

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	<-done
	logger.Info("Server shutdown complete")
}

// newAppState creates and initializes the application state. The returned
// close function releases the store's resources on shutdown.
func newAppState(logger *zap.Logger) (*AppState, func() error, error) {
	store, closeStore, err := newStore(logger)
	if err != nil {
		return nil, nil, err
	}

	statusService := status.NewService(store)

	return &AppState{
		StatusService: statusService,
		Store:         store,
		Logger:        logger,
		Config:        config.Get(),
	}, closeStore, nil
}

// newStore builds the storage backend selected by store.driver
func newStore(logger *zap.Logger) (status.StatusStore, func() error, error) {
	driver := config.Store().Driver

	switch driver {
	case "postgres":
		pgConfig := config.Postgres()
		logger.Info("Database configuration",
			zap.String("host", pgConfig.Host),
			zap.Int("port", pgConfig.Port),
			zap.String("database", pgConfig.Database),
			zap.String("user", pgConfig.User))

		db, err := status.NewPostgresDB(pgConfig.DSN(), pgConfig.MaxOpenConnections)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres database: %w", err)
		}

		store := status.NewPostgresStore(db)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		return store, db.Close, nil

	case "sqlite":
		path := config.Sqlite().Path
		logger.Info("Database configuration", zap.String("sqlite_path", path))

		store, err := status.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}

		return store, store.Close, nil

	case "memory":
		logger.Warn("Using in-memory store, statuses will not survive a restart")
		return status.NewInMemoryStore(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q (expected postgres, sqlite or memory)", driver)
	}
}

func initLogger() *zap.Logger {
	logConfig := config.Logger()

	var config zap.Config
	if logConfig.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	// Set log level
	switch logConfig.Level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

// RequestIDMiddleware tags every request and response with a request ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// APIKeyMiddleware enforces the static API key when one is configured
func APIKeyMiddleware(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		expectedKey := config.Auth().APIKey
		if expectedKey == "" {
			c.Next()
			return
		}

		// Health endpoint stays open for probes
		if strings.HasPrefix(c.Request.URL.Path, "/health") {
			c.Next()
			return
		}

		if !isValidAPIKey(c.GetHeader("Authorization"), expectedKey) {
			as.Logger.Warn("Unauthorized request",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("remote_addr", c.Request.RemoteAddr))

			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "API key required",
				"hint":  "Use 'Authorization: Bearer <key>' or 'Authorization: Api-Key <key>' header",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// isValidAPIKey validates the Authorization header against the configured key
func isValidAPIKey(authHeader, expectedKey string) bool {
	if authHeader == "" {
		return false
	}

	// Accept either Bearer or Api-Key format
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ") == expectedKey
	}

	if strings.HasPrefix(authHeader, "Api-Key ") {
		return strings.TrimPrefix(authHeader, "Api-Key ") == expectedKey
	}

	return false
}

func setupRouter(as *AppState) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add CORS middleware
	router.Use(cors.Default())

	// Add logging middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(RequestIDMiddleware())

	// Health endpoint
	router.GET("/health", func(c *gin.Context) {
		ctx := c.Request.Context()

		if err := as.Store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"timestamp": time.Now().Format(time.RFC3339),
				"error":     err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"services": gin.H{
				"store": "healthy",
			},
		})
	})

	router.Use(APIKeyMiddleware(as))

	api := router.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.PUT("/:userId/status", setUserStatus(as))
			users.GET("/:userId/status", getUserStatus(as))
			users.DELETE("/:userId/status", deleteUserStatus(as))
		}

		api.GET("/statuses", listStatuses(as))
	}

	return router
}

// startExpirySweeper periodically removes statuses whose clear time elapsed.
// A cleanup interval of zero disables the sweeper.
func startExpirySweeper(ctx context.Context, as *AppState) {
	interval := config.Status().CleanupInterval
	if interval <= 0 {
		as.Logger.Info("Expired-status sweeper disabled")
		return
	}

	ticker := time.NewTicker(time.Duration(interval) * time.Second)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				deleted, err := as.Store.DeleteExpired(sweepCtx, time.Now())
				cancel()

				if err != nil {
					as.Logger.Error("Failed to sweep expired statuses", zap.Error(err))
					continue
				}

				if deleted > 0 {
					as.Logger.Info("Swept expired statuses", zap.Int64("deleted", deleted))
				}
			}
		}
	}()

	as.Logger.Info("Expired-status sweeper started", zap.Int("interval_seconds", interval))
}

func setupSignalHandler(server *http.Server, stopSweeper context.CancelFunc, closeStore func() error, logger *zap.Logger) chan struct{} {
	done := make(chan struct{}, 1)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signalCh

		logger.Info("Shutting down server...")

		stopSweeper()

		// Create context with timeout for graceful shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Shutdown server
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Error during server shutdown", zap.Error(err))
		}

		// Close storage backend
		if err := closeStore(); err != nil {
			logger.Error("Error closing store", zap.Error(err))
		}

		done <- struct{}{}
	}()

	return done
}

// setStatusBody is the wire shape for status writes. The clear time comes in
// as integer epoch seconds.
type setStatusBody struct {
	StatusType string  `json:"status_type"`
	StatusIcon *string `json:"status_icon,omitempty"`
	Message    *string `json:"message,omitempty"`
	ClearAt    *int64  `json:"clear_at,omitempty"`
}

// statusResponse renders a status record with created_at as RFC3339 and
// clear_at as epoch seconds
func statusResponse(s *status.UserStatus) gin.H {
	resp := gin.H{
		"user_id":     s.UserID,
		"status_type": string(s.StatusType),
		"created_at":  s.CreatedAt.Format(time.RFC3339),
	}

	if s.StatusIcon != nil {
		resp["status_icon"] = *s.StatusIcon
	}
	if s.Message != nil {
		resp["message"] = *s.Message
	}
	if s.ClearAt != nil {
		resp["clear_at"] = s.ClearAt.Unix()
	}

	return resp
}

// Status handlers

func setUserStatus(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId parameter is required"})
			return
		}

		var body setStatusBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		req := &status.SetStatusRequest{
			UserID:     userID,
			StatusType: status.StatusType(body.StatusType),
			StatusIcon: body.StatusIcon,
			Message:    body.Message,
		}

		if body.ClearAt != nil {
			clearAt := time.Unix(*body.ClearAt, 0)
			req.ClearAt = &clearAt
		}

		record, err := as.StatusService.SetStatus(c.Request.Context(), req)
		if err != nil {
			var validationErr *status.ValidationError
			if errors.As(err, &validationErr) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": validationErr.Message,
					"field": validationErr.Field,
				})
				return
			}

			as.Logger.Error("Failed to set status", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set status"})
			return
		}

		c.JSON(http.StatusOK, statusResponse(record))
	}
}

func getUserStatus(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId parameter is required"})
			return
		}

		record, err := as.StatusService.FindByUserID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, status.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Status not found"})
				return
			}

			as.Logger.Error("Failed to get status", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get status"})
			return
		}

		c.JSON(http.StatusOK, statusResponse(record))
	}
}

func deleteUserStatus(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId parameter is required"})
			return
		}

		deleted, err := as.StatusService.RemoveUserStatus(c.Request.Context(), userID)
		if err != nil {
			as.Logger.Error("Failed to delete status", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete status"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	}
}

func listStatuses(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := &status.ListStatusesRequest{}

		if limitStr := c.Query("limit"); limitStr != "" {
			if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
				req.Limit = limit
			}
		}

		if offsetStr := c.Query("offset"); offsetStr != "" {
			if offset, err := strconv.Atoi(offsetStr); err == nil && offset > 0 {
				req.Offset = offset
			}
		}

		statuses, err := as.StatusService.FindAll(c.Request.Context(), req)
		if err != nil {
			as.Logger.Error("Failed to list statuses", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list statuses"})
			return
		}

		responses := make([]gin.H, len(statuses))
		for i, s := range statuses {
			responses[i] = statusResponse(s)
		}

		c.JSON(http.StatusOK, gin.H{
			"statuses": responses,
			"count":    len(responses),
		})
	}
}
