package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/chat"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/server"
	"github.com/example/storefront/pkg/service"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting storefront",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	// Open MySQL and migrate
	db, err := repository.Open(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}

	// Redis for session carts and the product cache
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()

	ctx := context.Background()
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}

	// MongoDB for audit logs; the store degrades to no auditing without it
	var auditor service.Auditor
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Warn("MongoDB connection failed, audit logging disabled", zap.Error(err))
	} else {
		auditor = mongoRepo
		defer mongoRepo.Close(ctx)
	}

	// Repositories
	users := repository.NewUserRepository(db)
	products := repository.NewProductRepository(db)
	carts := repository.NewCartRepository(db)
	orders := repository.NewOrderRepository(db)
	chats := repository.NewChatRepository(db)

	// Chat infrastructure: hub fan-out plus the persistence actor
	hub := chat.NewHub(logger.Named("chat-hub"))
	persister, err := chat.NewPersister(chats, logger.Named("chat-persist"))
	if err != nil {
		logger.Fatal("Failed to start chat persister", zap.Error(err))
	}
	defer persister.Shutdown()

	// Services
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	userSvc := service.NewUserService(users, tokens, logger.Named("users"))
	catalogSvc := service.NewCatalogService(products, redisRepo, logger.Named("catalog"))
	cartSvc := service.NewCartService(carts, products, redisRepo, logger.Named("carts"))
	orderSvc := service.NewOrderService(orders, auditor, logger.Named("orders"))
	chatSvc := service.NewChatService(chats, orders, logger.Named("chat"))

	srv := server.NewServer(cfg, logger, tokens,
		userSvc, catalogSvc, cartSvc, orderSvc, chatSvc, hub, persister)
	srv.SetupRoutes()

	// Register in etcd; a missing etcd is not fatal for a single instance
	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd)
	if err != nil {
		logger.Warn("Failed to connect to etcd, skipping registration", zap.Error(err))
		sd = nil
	} else {
		defer sd.Close()
		srv.AttachDiscovery(sd)
		if err := sd.Register(ctx, instance); err != nil {
			logger.Warn("Failed to register service", zap.Error(err))
		} else {
			logger.Info("Service registered in etcd",
				zap.String("name", cfg.Server.Name),
				zap.String("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))
		}
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	if sd != nil {
		if err := sd.Deregister(ctx, instance); err != nil {
			logger.Error("Failed to deregister service", zap.Error(err))
		}
	}

	logger.Info("Service stopped")
}
