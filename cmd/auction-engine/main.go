package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"collectible-auction-engine/internal/adapters/broadcaster"
	"collectible-auction-engine/internal/adapters/db"
	"collectible-auction-engine/internal/adapters/notifier"
	"collectible-auction-engine/internal/adapters/redis"
	"collectible-auction-engine/internal/adapters/scheduler"
	"collectible-auction-engine/internal/adapters/ws"
	"collectible-auction-engine/internal/app"
	"collectible-auction-engine/internal/config"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting Collectible Auction Engine...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	if err := dbConn.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	log.Info().Msg("Database connection established")

	// Create storage adapters
	store := db.NewAuctionStore(dbConn)
	wallet := db.NewWallet(dbConn)
	inventory := db.NewInventory(dbConn)

	log.Info().Msg("Database adapters initialized")

	// Create Redis client
	redisClient := redis.NewClient(cfg)
	if err := redis.PingRedis(redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	// Create Redis broadcaster
	redisBroadcaster := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})
	log.Info().Msg("Redis broadcaster initialized")

	// Create async notifier
	asyncNotifier := notifier.NewAsyncNotifier(notifier.AsyncNotifierParams{
		Workers:  cfg.Notifier.Workers,
		Capacity: cfg.Notifier.Capacity,
		Sender:   notifier.NewLogSender(log.Logger),
		Logger:   log.Logger,
	})
	defer asyncNotifier.Close()

	// Create business services
	settler := app.NewSettler(app.SettlerParams{
		Store:       store,
		Notifier:    asyncNotifier,
		Broadcaster: redisBroadcaster,
		Logger:      log.Logger,
	})

	// Create settlement sweeper
	sweeper := scheduler.NewSettlementSweeper(scheduler.SettlementSweeperParams{
		RedisClient: redisClient,
		Settler:     settler,
		Interval:    cfg.Auction.SweepInterval,
		Logger:      log.Logger,
	})

	// Sweeper needs the settler, settler needs the sweeper as scheduler
	settler.SetScheduler(sweeper)

	biddingEngine := app.NewBiddingEngine(app.BiddingEngineParams{
		Store:       store,
		Settler:     settler,
		Notifier:    asyncNotifier,
		Broadcaster: redisBroadcaster,
		Scheduler:   sweeper,
		BidTimeout:  cfg.Auction.BidTimeout,
		Logger:      log.Logger,
	})

	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		Store:       store,
		Inventory:   inventory,
		Settler:     settler,
		Scheduler:   sweeper,
		Broadcaster: redisBroadcaster,
		Logger:      log.Logger,
	})

	log.Info().Msg("Business services initialized")

	// Start settlement sweeper (runs a recovery scan first)
	sweeper.Start()
	log.Info().Msg("Settlement sweeper started")

	wsServer := ws.NewServer(ws.ServerParams{
		Config:            cfg,
		AuctionService:    auctionService,
		BiddingService:    biddingEngine,
		SettlementService: settler,
		Wallet:            wallet,
		Broadcaster:       redisBroadcaster,
		Logger:            log.Logger,
	})

	log.Info().Msg("WebSocket server initialized")

	// Start WebSocket server
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting WebSocket server")
		if err := wsServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start WebSocket server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop settlement sweeper
	sweeper.Stop()
	log.Info().Msg("Settlement sweeper stopped")

	// Stop WebSocket server
	if err := wsServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping WebSocket server")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.Logging.Format == "json" {
		// JSON format (default)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global logger
	zerolog.DefaultContextLogger = &log.Logger
}
