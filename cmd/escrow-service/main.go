package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"escrow-auction/internal/api/handlers"
	"escrow-auction/internal/config"
	"escrow-auction/internal/domain"
	"escrow-auction/internal/engine"
	"escrow-auction/internal/escrow"
	"escrow-auction/internal/infrastructure/custody"
	"escrow-auction/internal/infrastructure/leader"
	"escrow-auction/internal/infrastructure/mysql"
	"escrow-auction/internal/infrastructure/redis"
	"escrow-auction/internal/services"
	"escrow-auction/pkg/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	instanceID := cfg.Instance.ID
	if instanceID == "" {
		instanceID = "escrow-service-" + uuid.NewString()
	}

	// Initialize Redis
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

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", "error", err)
		os.Exit(1)
	}

	// Initialize repositories and adapters
	auctionRepo := mysql.NewMySQLAuctionRepository(db)
	bidRepo := mysql.NewMySQLBidRepository(db)
	statusCache := redis.NewRedisStatusCache(rdb)
	eventPublisher := redis.NewRedisEventPublisher(rdb)
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)

	assetCustody := custody.NewRegistry()
	valueEscrow := escrow.NewLedger()
	sink := services.NewStatusMirror(eventPublisher, statusCache, log)

	// Initialize engine and replay durable state
	eng := engine.New(
		assetCustody,
		valueEscrow,
		sink,
		auctionRepo,
		bidRepo,
		domain.SystemClock{},
		cfg.Escrow.Account,
		log,
	)

	if err := eng.Restore(context.Background()); err != nil {
		log.Error("Failed to restore engine state", "error", err)
		os.Exit(1)
	}

	// Initialize deadline sweeper
	sweeper := services.NewDeadlineSweeper(
		auctionRepo,
		statusCache,
		eventPublisher,
		leaderElection,
		domain.SystemClock{},
		instanceID,
		cfg.Escrow.SweepInterval,
		log,
	)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","host":"${host}","method":"${method}","uri":"${uri}","user_agent":"${user_agent}","status":${status},"error":"${error}","latency":${latency},"latency_human":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
	}))

	auctionHandler := handlers.NewAuctionHandler(eng, log)

	api := e.Group("/api/v1")
	api.POST("/auctions", auctionHandler.Deposit)
	api.GET("/auctions/count", auctionHandler.GetAuctionCount)
	api.GET("/auctions/:id", auctionHandler.GetAuction)
	api.GET("/auctions/:id/bids", auctionHandler.GetAuctionBids)
	api.GET("/auctions/:id/bids/:bidder", auctionHandler.GetBidderAmount)
	api.POST("/auctions/:id/bids", auctionHandler.PlaceBid)
	api.POST("/auctions/:id/end", auctionHandler.EndAuction)
	api.POST("/auctions/:id/withdrawals", auctionHandler.Withdraw)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "escrow-service",
			"timestamp": time.Now().Format(time.RFC3339),
			"auctions":  eng.AuctionCount(),
		})
	})

	// Start background services
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go func() {
		if err := sweeper.Start(sweepCtx); err != nil {
			log.Error("Failed to start sweeper", "error", err)
		}
	}()

	// Try to become leader
	go func() {
		for {
			became, err := leaderElection.BecomeLeader(context.Background(), instanceID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("Became sweeper leader", "instance_id", instanceID)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting escrow auction service", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down escrow auction service...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := sweeper.Stop(); err != nil {
		log.Error("Failed to stop sweeper", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(shutdownCtx, instanceID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Escrow auction service stopped")
}
