package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hotelbooking/internal/config"
	"hotelbooking/internal/middleware"
	"hotelbooking/internal/notifier"
	"hotelbooking/internal/rabbitmq"
	"hotelbooking/internal/redis"
	"hotelbooking/internal/ws"
	"hotelbooking/pkg/log"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	log.Init(log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})

	if err := redis.Init(cfg); err != nil {
		log.WithError(err).Fatal("Failed to initialize redis")
	}
	defer redis.Close()

	mq, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect rabbitmq")
	}
	defer mq.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub(redis.GetClient(), cfg.WS.WriteTimeout)
	go hub.Run(ctx)

	listener := notifier.NewListener(mq, hub, "booking-notifier")
	go runListener(ctx, listener)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      setupRouter(cfg, hub, mq),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("Starting notifier HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notifier...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Notifier exited")
}

// runListener keeps the outcome consumer alive across broker reconnects.
func runListener(ctx context.Context, l *notifier.Listener) {
	for {
		if err := l.Run(ctx); err != nil {
			log.WithError(err).Error("Notification listener stopped")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func setupRouter(cfg *config.Config, hub *ws.Hub, mq *rabbitmq.Client) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.WS.AllowedOrigins))

	handler := ws.NewHandler(hub, cfg.WS)

	// handshakes are throttled per client IP
	router.GET("/ws", middleware.IPRateLimit(cfg.WS.ConnectRate, cfg.WS.ConnectBurst), handler.Serve)

	api := router.Group("/api/websocket")
	{
		api.GET("/stats", handler.Stats)
		api.POST("/broadcast", handler.Broadcast)
		api.POST("/send/:userId", handler.SendToUser)
	}

	router.GET("/health", func(c *gin.Context) {
		redisErr := redis.Health()
		mqErr := mq.Health()

		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"websocket": gin.H{
				"activeUsers":   hub.ActiveUsers(),
				"totalSessions": hub.TotalSessions(),
			},
			"services": gin.H{
				"redis":    healthEntry(redisErr),
				"rabbitmq": healthEntry(mqErr),
			},
		}

		if redisErr != nil || mqErr != nil {
			health["status"] = "error"
			c.JSON(http.StatusServiceUnavailable, health)
			return
		}
		c.JSON(http.StatusOK, health)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func healthEntry(err error) gin.H {
	if err != nil {
		return gin.H{"healthy": false, "error": err.Error()}
	}
	return gin.H{"healthy": true}
}
