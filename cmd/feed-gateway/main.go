package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"escrow-auction/internal/config"
	"escrow-auction/internal/domain"
	"escrow-auction/internal/infrastructure/redis"
	"escrow-auction/internal/infrastructure/websocket"
	"escrow-auction/pkg/logger"
)

// feed-gateway fans auction lifecycle events out to websocket clients. It
// subscribes to the Redis event channel and broadcasts each event to the
// connections watching that auction.
func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	statusCache := redis.NewRedisStatusCache(rdb)
	subscriber := redis.NewRedisEventSubscriber(rdb, log)
	connManager := websocket.NewConnectionManager(log)
	feedHandler := websocket.NewFeedHandler(statusCache, connManager, log)

	subCtx, stopSubscriber := context.WithCancel(context.Background())
	defer stopSubscriber()

	go func() {
		err := subscriber.SubscribeToAuctionEvents(subCtx, func(event *domain.AuctionEvent) error {
			if event.Type == domain.AuctionSettledUp {
				defer connManager.CloseAndUnregisterConnections(event.AuctionID)
			}
			return connManager.BroadcastToAuction(event.AuctionID, event)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event subscription ended", "error", err)
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/ws/auctions/{auctionID}", feedHandler.HandleConnection)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "ok",
			"service":   "feed-gateway",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.FeedPort)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	log.Info("Starting feed gateway", "address", serverAddr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down feed gateway...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stopSubscriber()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Feed gateway stopped")
}
