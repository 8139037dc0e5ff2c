package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"storefront-chat-service/internal/auth"
	"storefront-chat-service/internal/config"
	"storefront-chat-service/internal/db"
	"storefront-chat-service/internal/handlers"
	"storefront-chat-service/internal/middleware"
	"storefront-chat-service/internal/notifier"
	"storefront-chat-service/internal/observability"
	"storefront-chat-service/internal/rabbitmq"
	"storefront-chat-service/internal/repositories"
	"storefront-chat-service/internal/telemetry"
	"storefront-chat-service/internal/ws"
)

const serviceName = "storefront-chat-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.DevLogging)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), serviceName, cfg.OTLPAddr)
	if err != nil {
		sugar.Fatalw("setup tracing", "err", err)
	}
	defer shutdownTracing(context.Background())

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		sugar.Fatalw("connect db", "err", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.Exchange, sugar)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditKey, serviceName, cfg.Environment, sugar)

	if wsPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange); err == nil {
		observability.SetPublisher(wsPublisher)
		defer wsPublisher.Close()
	} else {
		sugar.Infow("ws event publishing disabled", "reason", err)
	}

	verifier := auth.NewTokenVerifier(cfg.JWTSecret)

	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	userRepo := repositories.NewUserRepo(database)
	orderRepo := repositories.NewOrderRepo(database)

	hub := ws.NewHub(sugar)
	presence := ws.NewPresence()
	orderNotifier := notifier.New(hub, presence, sugar)

	chatHandler := handlers.NewChatHandler(chatRepo, messageRepo, userRepo, presence)
	orderHandler := handlers.NewOrderHandler(orderRepo, orderNotifier, audit)
	socketHandler := ws.NewSocketHandler(hub, presence, chatRepo, messageRepo, userRepo, verifier, sugar)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(otelgin.Middleware(serviceName))

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/chat/rooms", authMiddleware, chatHandler.ListRooms)
	router.POST("/chat/rooms", authMiddleware, chatHandler.CreateRoom)
	router.GET("/chat/rooms/:chat_id/messages", authMiddleware, chatHandler.GetMessages)
	router.GET("/chat/unread", authMiddleware, chatHandler.UnreadCount)

	router.POST("/orders", authMiddleware, orderHandler.CreateOrder)
	router.PATCH("/orders/:order_id/status", authMiddleware, orderHandler.UpdateOrderStatus)

	router.GET("/ws", socketHandler.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	sugar.Infow("server starting", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		sugar.Fatalw("server error", "err", err)
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
