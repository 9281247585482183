package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"collectible-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// deadlineKey is the Redis sorted set holding auction deadlines, scored by
// expiry unix time
const deadlineKey = "auction:deadlines"

// How many ticks between authoritative store scans. The scan catches
// anything the Redis index lost (flush, restart, missed Schedule call).
const fullScanEvery = 30

// SettlementService is the part of the engine the sweeper drives
type SettlementService interface {
	Finalize(ctx context.Context, auctionID uuid.UUID) (*shared.SettlementResult, error)
	FinalizeExpired(ctx context.Context) ([]shared.SettlementResult, error)
}

// SettlementSweeper finds expired active auctions and finalizes them. It
// keeps a Redis sorted-set index of deadlines as a fast path and falls back
// to a periodic store scan, so the store stays the unit of truth. It also
// implements the engine's DeadlineScheduler port.
type SettlementSweeper struct {
	redis    *redis.Client
	settler  SettlementService
	interval time.Duration
	logger   zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	ticks    int
}

type SettlementSweeperParams struct {
	RedisClient *redis.Client
	Settler     SettlementService
	Interval    time.Duration
	Logger      zerolog.Logger
}

// NewSettlementSweeper creates a new settlement sweeper
func NewSettlementSweeper(params SettlementSweeperParams) *SettlementSweeper {
	ctx, cancel := context.WithCancel(context.Background())

	interval := params.Interval
	if interval <= 0 {
		interval = time.Second
	}

	return &SettlementSweeper{
		redis:    params.RedisClient,
		settler:  params.Settler,
		interval: interval,
		logger:   params.Logger.With().Str("component", "settlement_sweeper").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Schedule records or moves an auction's deadline in the index
func (s *SettlementSweeper) Schedule(ctx context.Context, auctionID uuid.UUID, endTime time.Time) error {
	err := s.redis.ZAdd(ctx, deadlineKey, redis.Z{
		Score:  float64(endTime.Unix()),
		Member: auctionID.String(),
	}).Err()

	if err != nil {
		return fmt.Errorf("failed to schedule auction deadline: %w", err)
	}

	s.logger.Debug().
		Str("auction_id", auctionID.String()).
		Time("end_time", endTime).
		Msg("Auction deadline scheduled")

	return nil
}

// Cancel drops an auction from the index
func (s *SettlementSweeper) Cancel(ctx context.Context, auctionID uuid.UUID) error {
	if err := s.redis.ZRem(ctx, deadlineKey, auctionID.String()).Err(); err != nil {
		return fmt.Errorf("failed to drop auction deadline: %w", err)
	}
	return nil
}

// Start begins the sweeper loop. One authoritative store scan runs
// immediately so auctions that expired while the process was down settle
// right away.
func (s *SettlementSweeper) Start() {
	s.logger.Info().Dur("interval", s.interval).Msg("Starting settlement sweeper")

	s.wg.Add(1)
	go s.sweepLoop()
}

// Stop gracefully stops the sweeper
func (s *SettlementSweeper) Stop() {
	s.logger.Info().Msg("Stopping settlement sweeper")
	s.cancel()
	s.wg.Wait()
}

// sweepLoop runs the main sweeping loop
func (s *SettlementSweeper) sweepLoop() {
	defer s.wg.Done()

	// Startup catch-up pass.
	s.fullScan()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.ctx.Done():
			s.logger.Info().Msg("Sweeper loop stopped")
			return
		}
	}
}

func (s *SettlementSweeper) tick() {
	s.ticks++
	if s.ticks%fullScanEvery == 0 {
		s.fullScan()
		return
	}
	s.checkDueAuctions()
}

// checkDueAuctions finalizes the auctions the Redis index says are due
func (s *SettlementSweeper) checkDueAuctions() {
	now := time.Now().Unix()

	due, err := s.redis.ZRangeByScore(s.ctx, deadlineKey, &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(now, 10),
		Count: 10, // Process max 10 at a time
	}).Result()

	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get due auctions")
		return
	}

	for _, member := range due {
		auctionID, err := uuid.Parse(member)
		if err != nil {
			s.logger.Error().Err(err).Str("member", member).Msg("Invalid auction ID in deadline index")
			s.redis.ZRem(s.ctx, deadlineKey, member)
			continue
		}

		if _, err := s.settler.Finalize(s.ctx, auctionID); err != nil {
			// ErrAuctionNotExpired means a later bid moved the deadline
			// after this index entry was written; re-scheduling on every
			// accepted bid keeps the index converging.
			if !errors.Is(err, shared.ErrAuctionNotExpired) {
				s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to finalize auction")
			}
			continue
		}

		s.redis.ZRem(s.ctx, deadlineKey, member)
	}
}

// fullScan runs the authoritative store-backed settlement pass
func (s *SettlementSweeper) fullScan() {
	results, err := s.settler.FinalizeExpired(s.ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Settlement store scan failed")
		return
	}
	if len(results) > 0 {
		s.logger.Info().Int("count", len(results)).Msg("Settled auctions in store scan")
	}
}
