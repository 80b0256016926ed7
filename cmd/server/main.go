package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"catalog-sync-service/internal/api"
	"catalog-sync-service/internal/auth"
	"catalog-sync-service/internal/catalog"
	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/database"
	"catalog-sync-service/internal/logger"
	"catalog-sync-service/internal/notify"
	"catalog-sync-service/internal/remote"
	"catalog-sync-service/internal/store"
	"catalog-sync-service/internal/sync"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load Config
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Init Logger
	if err := logger.InitLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Log.Info("Starting catalog sync service", zap.String("config", configPath))

	ctx := context.Background()

	// Local catalog
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to open local database", zap.Error(err))
	}
	defer db.Close()

	if err := catalog.Migrate(ctx, db); err != nil {
		logger.Log.Fatal("Failed to migrate local database", zap.Error(err))
	}

	// Init State Store
	stateDB := db
	if cfg.StateStorage != cfg.Database {
		stateDB, err = database.NewDatabase(cfg.StateStorage)
		if err != nil {
			logger.Log.Fatal("Failed to open state storage", zap.Error(err))
		}
		defer stateDB.Close()
	}

	stateStore, err := store.NewSQLStore(ctx, stateDB)
	if err != nil {
		logger.Log.Fatal("Failed to init state store", zap.Error(err))
	}

	productTable, userTable, err := remoteTables(ctx, cfg.Remote)
	if err != nil {
		logger.Log.Fatal("Failed to init remote tables", zap.Error(err))
	}

	notifier, closeNotifier := buildNotifier(cfg.Notify)
	defer closeNotifier()

	products := catalog.NewProductRepository(db)
	users := catalog.NewUserRepository(db)

	// Init Sync Manager
	syncManager := sync.NewManager(cfg, sync.Dependencies{
		Products:     products,
		Users:        users,
		ProductTable: productTable,
		UserTable:    userTable,
		Store:        stateStore,
		Notifier:     notifier,
	})
	if err := syncManager.Start(); err != nil {
		logger.Log.Fatal("Failed to start sync manager", zap.Error(err))
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = randomSecret()
		logger.Log.Warn("auth.jwt_secret is not set; using a random secret, sessions end on restart")
	}
	authService := auth.NewService(users, auth.NewPasswordHasher(0), auth.NewTokenManager(cfg.Auth))

	// Init API
	handler := api.NewHandler(cfg.Server, syncManager, products, authService)
	router := handler.Routes()

	// Start Server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
	}

	go func() {
		logger.Log.Info("Server listening", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server shutdown failed", zap.Error(err))
	}

	syncManager.Stop()
}

func remoteTables(ctx context.Context, cfg config.RemoteConfig) (remote.Table, remote.Table, error) {
	switch cfg.Driver {
	case "memory":
		logger.Log.Warn("Using in-memory remote tables; data is lost on exit")
		return remote.NewMemoryTable(cfg.ProductsTable, remote.AttrProductCode),
			remote.NewMemoryTable(cfg.UsersTable, remote.AttrUserID), nil
	default:
		client, err := remote.NewDynamoClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return newDynamoTable(client, cfg.ProductsTable), newDynamoTable(client, cfg.UsersTable), nil
	}
}

func newDynamoTable(client *dynamodb.Client, name string) remote.Table {
	logger.Log.Info("Using DynamoDB table", zap.String("table", name))
	return remote.NewDynamoTable(client, name)
}

func buildNotifier(cfg config.NotifyConfig) (notify.Notifier, func()) {
	if !cfg.Redis.Enabled {
		return notify.LogNotifier{}, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Log.Info("Publishing sync notifications to Redis",
		zap.String("addr", cfg.Redis.Addr),
		zap.String("channel", cfg.Redis.Channel),
	)

	notifier := notify.Multi{notify.LogNotifier{}, notify.NewRedisNotifier(client, cfg.Redis.Channel)}
	return notifier, func() {
		if err := client.Close(); err != nil {
			logger.Log.Warn("Failed to close redis client", zap.Error(err))
		}
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logger.Log.Fatal("Failed to generate jwt secret", zap.Error(err))
	}
	return hex.EncodeToString(b)
}
