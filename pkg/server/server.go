// Package server is the HTTP and WebSocket surface of the storefront.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/chat"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// InstanceLister reports the instances registered under a service name.
type InstanceLister interface {
	Discover(ctx context.Context, serviceName string) ([]*discovery.ServiceInstance, error)
}

type Server struct {
	config *config.Config
	logger *zap.Logger
	router *gin.Engine

	tokens  *auth.TokenManager
	users   *service.UserService
	catalog *service.CatalogService
	carts   *service.CartService
	orders  *service.OrderService
	chats   *service.ChatService

	hub     *chat.Hub
	persist *chat.Persister

	instances InstanceLister
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	tokens *auth.TokenManager,
	users *service.UserService,
	catalog *service.CatalogService,
	carts *service.CartService,
	orders *service.OrderService,
	chats *service.ChatService,
	hub *chat.Hub,
	persist *chat.Persister,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Server{
		config:  cfg,
		logger:  logger,
		router:  router,
		tokens:  tokens,
		users:   users,
		catalog: catalog,
		carts:   carts,
		orders:  orders,
		chats:   chats,
		hub:     hub,
		persist: persist,
	}
}

func (s *Server) SetupRoutes() {
	// Health check
	s.router.GET("/health", s.health)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	v1.Use(s.identityMiddleware())
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", s.register)
			authGroup.POST("/login", s.login)
		}

		v1.GET("/products", s.listProducts)
		v1.GET("/products/:slug", s.getProduct)
		v1.GET("/categories", s.listCategories)

		cart := v1.Group("/cart")
		{
			cart.GET("", s.getCart)
			cart.POST("/items/:productID", s.addCartItem)
			cart.PUT("/items/:productID", s.updateCartItem)
			cart.DELETE("/items/:productID", s.removeCartItem)
			cart.POST("/clear", s.clearCart)
			cart.POST("/validate", s.requireAuth(), s.validateCart)
		}

		orders := v1.Group("/orders", s.requireAuth())
		{
			orders.POST("", s.createOrder)
			orders.GET("", s.listOrders)
			orders.GET("/:id", s.getOrder)
			orders.POST("/:id/cancel", s.cancelOrder)
		}

		chatGroup := v1.Group("/chat", s.requireAuth())
		{
			chatGroup.GET("/rooms", s.listChatRooms)
			chatGroup.POST("/orders/:id/room", s.openChatRoom)
		}

		admin := v1.Group("/admin", s.requireAdmin())
		{
			admin.POST("/products", s.adminCreateProduct)
			admin.PUT("/products/:id", s.adminUpdateProduct)
			admin.DELETE("/products/:id", s.adminDeleteProduct)
			admin.POST("/products/:id/images", s.adminAddProductImage)
			admin.DELETE("/products/:id/images/:imageID", s.adminDeleteProductImage)
			admin.GET("/orders", s.adminListOrders)
			admin.GET("/orders/:id/audit", s.adminOrderAudit)
			admin.PUT("/orders/:id/status", s.adminUpdateOrderStatus)
			admin.PUT("/orders/:id/items", s.adminUpdateQuote)
			admin.POST("/chat/rooms/:id/close", s.adminCloseChatRoom)
		}
	}

	// Chat socket; access is checked in the handler before the upgrade.
	s.router.GET("/ws/chat/:roomID", s.identityMiddleware(), s.chatSocket)

	// Swagger
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// AttachDiscovery lets the health endpoint report the instances registered
// under this service's name.
func (s *Server) AttachDiscovery(l InstanceLister) {
	s.instances = l
}

// health reports liveness; with discovery attached it also lists the
// registered instances so an operator can see the whole fleet from any node.
func (s *Server) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if s.instances != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if instances, err := s.instances.Discover(ctx, s.config.Server.Name); err == nil {
			addrs := make([]string, 0, len(instances))
			for _, instance := range instances {
				addrs = append(addrs, fmt.Sprintf("%s:%d", instance.Host, instance.Port))
			}
			resp["instances"] = addrs
		} else {
			s.logger.Warn("Instance discovery failed", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Info("Storefront starting", zap.String("address", addr))
	return s.router.Run(addr)
}

// Router exposes the engine for httptest-driven tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
