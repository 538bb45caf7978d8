package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"wardrobe-chat-service/internal/cache"
	"wardrobe-chat-service/internal/config"
	"wardrobe-chat-service/internal/db"
	"wardrobe-chat-service/internal/handlers"
	"wardrobe-chat-service/internal/middleware"
	"wardrobe-chat-service/internal/observability"
	"wardrobe-chat-service/internal/push"
	"wardrobe-chat-service/internal/rabbitmq"
	"wardrobe-chat-service/internal/ratelimit"
	"wardrobe-chat-service/internal/repositories"
	"wardrobe-chat-service/internal/telemetry"
	"wardrobe-chat-service/internal/ws"
)

const serviceName = "wardrobe-chat-service"

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing.OTLPEndpoint, serviceName, cfg.Tracing.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}

	database, err := db.Connect(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	audit := telemetry.NewAuditEmitter(publisher, "audit.chat", serviceName, cfg.Tracing.Environment)

	var store cache.Cache = cache.Noop{}
	if cfg.Redis.Address != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Cache.TTL)
		if err != nil {
			log.Printf("redis disabled, using noop cache: %v", err)
		} else {
			defer redisCache.Close()
			store = redisCache
		}
	}

	messageRepo := repositories.NewMessageRepo(database)
	contextRepo := repositories.NewContextRepo(database)
	userRepo := repositories.NewUserRepo(database)

	hub := ws.NewHub()
	gateway := push.NewExpoGateway(cfg.Push.GatewayURL, cfg.Push.Timeout)
	notifier := push.NewNotifier(userRepo, gateway)
	limiter := ratelimit.NewLimiter(cfg.RateLimit.SendBurst, cfg.RateLimit.SendInterval)

	chatHandler := handlers.NewChatHandler(messageRepo, contextRepo, userRepo, hub, notifier, store, cfg.Cache.Prefix, audit)
	chatWS := ws.NewChatSocketHandler(hub, messageRepo, userRepo, notifier, limiter, cfg.Auth.JWTSecret)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, cfg.Debug)

	authMiddleware := middleware.AuthMiddleware(cfg.Auth.JWTSecret)

	chat := router.Group("/chat", authMiddleware)
	chat.GET("/conversations/list", chatHandler.ListConversations)
	chat.POST("/send", middleware.SendRateLimit(limiter), chatHandler.SendMessage)
	chat.PUT("/mark-read/:counterpart_id", chatHandler.MarkThreadRead)
	chat.DELETE("/conversations/:counterpart_id", chatHandler.DeleteThread)
	chat.POST("/context", chatHandler.UpsertContext)
	chat.GET("/context/:counterpart_id", chatHandler.GetContext)
	chat.GET("/:counterpart_id", chatHandler.GetThread)

	router.GET("/ws/chat", chatWS.Handle)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("listening on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("tracing shutdown error: %v", err)
	}
}
