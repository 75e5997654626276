package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/db"
	"messaging-service/internal/handlers"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

func main() {
	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing := observability.SetupTracing(context.Background(), "messaging-service", getEnv("OTLP_ENDPOINT", ""))
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "platform.events"))
	defer publisher.Close()
	if mode := rabbitmq.PublisherMode(publisher); mode == "noop" {
		log.Printf("audit publisher mode=%s reason=%q", mode, rabbitmq.PublisherNoopReason(publisher))
	} else {
		log.Printf("audit publisher mode=%s", mode)
	}

	emitter := telemetry.NewAuditEmitter(
		publisher,
		getEnv("AUDIT_ROUTING_KEY", "audit.messaging"),
		"messaging-service",
		getEnv("ENVIRONMENT", "development"),
	)

	conversationRepo := repositories.NewConversationRepo(database)
	participantRepo := repositories.NewParticipantRepo(database)
	messageRepo := repositories.NewMessageRepo(database, participantRepo)
	userRepo := repositories.NewUserRepo(database)

	messagingHandler := handlers.NewMessagingHandler(conversationRepo, participantRepo, messageRepo, userRepo, emitter)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("messaging-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(getEnv("JWT_SECRET", "dev-secret"))

	router.GET("/messages", authMiddleware, messagingHandler.ListConversations)
	router.POST("/messages", authMiddleware, messagingHandler.StartConversation)
	router.GET("/messages/unread/count", authMiddleware, messagingHandler.GetUnreadSummary)
	router.GET("/messages/:conversation_id", authMiddleware, messagingHandler.GetConversation)
	router.PATCH("/messages/:conversation_id/settings", authMiddleware, messagingHandler.UpdateSettings)
	router.GET("/messages/:conversation_id/messages", authMiddleware, messagingHandler.ListMessages)
	router.POST("/messages/:conversation_id/messages", authMiddleware, messagingHandler.SendMessage)
	router.PATCH("/messages/:conversation_id/messages/:message_id", authMiddleware, messagingHandler.EditMessage)
	router.DELETE("/messages/:conversation_id/messages/:message_id", authMiddleware, messagingHandler.DeleteMessage)
	router.POST("/messages/:conversation_id/read", authMiddleware, messagingHandler.MarkRead)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, emitter, getEnv("DEBUG_ROUTES", "false") == "true")

	port := getEnv("PORT", "8086")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
