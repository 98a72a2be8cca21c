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
	"hotelbooking/internal/consumer"
	"hotelbooking/internal/discount"
	"hotelbooking/internal/idempotency"
	"hotelbooking/internal/middleware"
	"hotelbooking/internal/orchestrator"
	"hotelbooking/internal/rabbitmq"
	"hotelbooking/internal/redis"
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

	discountClient, err := discount.NewClient(cfg.Discount)
	if err != nil {
		log.WithError(err).Fatal("Failed to dial discount service")
	}
	defer discountClient.Close()

	guard := idempotency.NewGuard(redis.GetClient(), cfg.Idempotency.TTL)
	publisher := rabbitmq.NewOutcomePublisher(mq)
	svc := orchestrator.NewService(guard, discountClient, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bookingConsumer := consumer.NewBookingConsumer(mq, svc, "booking-orchestrator")
	go runConsumer(ctx, bookingConsumer)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      setupRouter(mq, discountClient),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("Starting orchestrator HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down orchestrator...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Orchestrator exited")
}

// runConsumer keeps the delivery loop alive across broker reconnects.
func runConsumer(ctx context.Context, c *consumer.BookingConsumer) {
	for {
		if err := c.Run(ctx); err != nil {
			log.WithError(err).Error("Booking consumer stopped")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func setupRouter(mq *rabbitmq.Client, discountClient *discount.Client) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	router.GET("/health", func(c *gin.Context) {
		redisErr := redis.Health()
		mqErr := mq.Health()

		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"services": gin.H{
				"redis":    healthEntry(redisErr),
				"rabbitmq": healthEntry(mqErr),
				"discount": gin.H{
					"breaker": discountClient.BreakerState().String(),
				},
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
