package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chatroom-service/internal/db"
	"chatroom-service/internal/handlers"
	"chatroom-service/internal/observability"
	"chatroom-service/internal/rabbitmq"
	"chatroom-service/internal/repositories"
	"chatroom-service/internal/telemetry"
	"chatroom-service/internal/ws"
)

const serviceName = "chatroom-service"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using environment variables")
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.InitTracing(ctx, serviceName, getEnv("OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	amqpURL := getEnv("AMQP_URL", "")
	amqpExchange := getEnv("AMQP_EXCHANGE", "chatroom_events")
	if amqpURL != "" {
		publisher, err := observability.NewAMQPPublisher(amqpURL, amqpExchange)
		if err != nil {
			log.Printf("amqp publisher disabled: %v", err)
		} else {
			observability.SetPublisher(publisher)
			defer publisher.Close()
		}
	}

	auditPublisher := rabbitmq.NewPublisher(amqpURL, amqpExchange)
	defer auditPublisher.Close()
	audit := telemetry.NewAuditEmitter(auditPublisher, "audit.chatroom", serviceName, getEnv("ENVIRONMENT", "development"))

	database, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Client().Disconnect(ctx)

	userRepo := repositories.NewUserRepo(database)
	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	hub := ws.NewHub()

	userHandler := handlers.NewUserHandler(userRepo, audit)
	roomHandler := handlers.NewRoomHandler(roomRepo, userRepo)
	messageHandler := handlers.NewMessageHandler(messageRepo, userRepo, hub, audit)
	channelHandler := ws.NewChannelHandler(hub, userRepo, messageRepo)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(otelgin.Middleware(serviceName))

	users := router.Group("/users")
	{
		users.POST("/register", userHandler.Register)
		users.POST("/login", userHandler.Login)
	}

	chat := router.Group("/chat")
	{
		chat.POST("/newChatRoom", roomHandler.CreateRoom)
		chat.GET("/check/:username", roomHandler.CheckUser)
		chat.GET("/chatRoom/:userId", roomHandler.ListRoomsForUser)
		chat.GET("/members/:roomId", roomHandler.ListMembers)
		chat.POST("/updateMember/:roomId", roomHandler.AddMember)
		chat.POST("/removeMember/:roomId", roomHandler.RemoveMember)

		chat.GET("/messages/:roomId", messageHandler.ListMessages)
		chat.GET("/message/:messageId", messageHandler.GetMessage)
		chat.DELETE("/message/:messageId", messageHandler.DeleteMessage)
		chat.GET("/images/:chatRoomId", messageHandler.ListImages)
		chat.GET("/health", messageHandler.Health)
	}

	router.GET("/ws", channelHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	port := getEnv("PORT", "8000")
	log.Printf("server starting on port %s", port)
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
