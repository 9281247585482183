package app

import (
	"context"
	"errors"
	"time"

	"collectible-auction-engine/internal/domain/bid"
	"collectible-auction-engine/internal/domain/shared"
	"collectible-auction-engine/internal/ports/inbound"
	"collectible-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BiddingEngine implements the bid placement use case. The whole
// read-validate-move-funds-append sequence runs inside the store's
// per-auction atomic unit, so no other bid or finalize on the same auction
// can interleave with it.
type BiddingEngine struct {
	store       outbound.AuctionStore
	settler     inbound.SettlementService
	notifier    outbound.Notifier
	broadcaster outbound.Broadcaster
	scheduler   outbound.DeadlineScheduler
	bidTimeout  time.Duration
	logger      zerolog.Logger
}

type BiddingEngineParams struct {
	Store       outbound.AuctionStore
	Settler     inbound.SettlementService
	Notifier    outbound.Notifier
	Broadcaster outbound.Broadcaster
	Scheduler   outbound.DeadlineScheduler
	BidTimeout  time.Duration
	Logger      zerolog.Logger
}

// NewBiddingEngine creates a new bidding engine
func NewBiddingEngine(params BiddingEngineParams) *BiddingEngine {
	return &BiddingEngine{
		store:       params.Store,
		settler:     params.Settler,
		notifier:    params.Notifier,
		broadcaster: params.Broadcaster,
		scheduler:   params.Scheduler,
		bidTimeout:  params.BidTimeout,
		logger:      params.Logger.With().Str("component", "bidding_engine").Logger(),
	}
}

// outbidNotice is queued inside the atomic unit and delivered after commit
type outbidNotice struct {
	bidderID uuid.UUID
	amount   int64
}

// PlaceBid places a new bid on an auction
func (e *BiddingEngine) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*inbound.BidView, error) {
	e.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Int64("amount", req.Amount).
		Msg("Attempting to place bid")

	// Settle anything overdue first so the target auction, if expired, is
	// rejected in its final state rather than as a stale active record.
	if e.settler != nil {
		if _, err := e.settler.FinalizeExpired(ctx); err != nil {
			e.logger.Error().Err(err).Msg("Pre-bid settlement sweep failed")
		}
	}

	var placed *bid.Bid
	var outbid *outbidNotice
	var newEndTime time.Time

	err := e.store.WithAuction(ctx, req.AuctionID, func(tx outbound.AuctionTx) error {
		a := tx.Auction()
		now := time.Now()

		if !a.IsActive() || a.Expired(now) {
			return shared.ErrAuctionExpired
		}

		leading, err := tx.LeadingBid(ctx)
		if err != nil && !errors.Is(err, shared.ErrNoBidsFound) {
			return err
		}

		// Price floor: first bid must reach the minimum price, later bids
		// must strictly exceed the leading one. Ties regress and are rejected.
		if leading != nil {
			if !leading.OutbidBy(req.Amount) {
				return &shared.BidTooLowError{CurrentMin: leading.Amount + 1}
			}
		} else if req.Amount < a.MinPrice {
			return &shared.BidTooLowError{CurrentMin: a.MinPrice}
		}

		wallet := tx.Wallet()
		if leading != nil && leading.BidderID == req.BidderID {
			// Raising own standing bid: the escrowed amount counts as
			// available, only the delta moves.
			if err := wallet.Debit(ctx, req.BidderID, req.Amount-leading.Amount); err != nil {
				return err
			}
		} else {
			if err := wallet.Debit(ctx, req.BidderID, req.Amount); err != nil {
				return err
			}
			if leading != nil {
				if err := wallet.Credit(ctx, leading.BidderID, leading.Amount); err != nil {
					return err
				}
				outbid = &outbidNotice{bidderID: leading.BidderID, amount: leading.Amount}
			}
		}

		newBid := &bid.Bid{
			ID:        uuid.New(),
			AuctionID: a.ID,
			BidderID:  req.BidderID,
			Amount:    req.Amount,
			CreatedAt: now,
		}
		if err := tx.AppendBid(ctx, newBid); err != nil {
			return err
		}

		// Anti-snipe: reset the countdown to a full window from now,
		// regardless of how far away the previous deadline was.
		newEndTime = now.Add(e.bidTimeout)
		if err := tx.ExtendDeadline(ctx, newEndTime); err != nil {
			return err
		}

		placed = newBid
		return nil
	})

	if err != nil {
		if tooLow, ok := shared.IsBidTooLow(err); ok {
			e.logger.Warn().
				Str("auction_id", req.AuctionID.String()).
				Int64("amount", req.Amount).
				Int64("current_min", tooLow.CurrentMin).
				Msg("Bid amount too low")
			return nil, err
		}
		e.logger.Warn().Err(err).
			Str("auction_id", req.AuctionID.String()).
			Str("bidder_id", req.BidderID.String()).
			Msg("Bid rejected")
		return nil, err
	}

	e.afterBidCommitted(ctx, req.AuctionID, placed, outbid, newEndTime)

	e.logger.Info().
		Str("bid_id", placed.ID.String()).
		Str("auction_id", placed.AuctionID.String()).
		Str("bidder_id", placed.BidderID.String()).
		Int64("amount", placed.Amount).
		Time("new_end_time", newEndTime).
		Msg("Bid placed successfully")

	return &inbound.BidView{
		ID:        placed.ID,
		AuctionID: placed.AuctionID,
		BidderID:  placed.BidderID,
		Amount:    placed.Amount,
		CreatedAt: placed.CreatedAt,
	}, nil
}

// afterBidCommitted performs the best-effort side effects of an accepted
// bid: re-scheduling the deadline, notifying the outbid user and
// broadcasting the bid event. None of them can fail the bid.
func (e *BiddingEngine) afterBidCommitted(ctx context.Context, auctionID uuid.UUID, placed *bid.Bid, outbid *outbidNotice, endTime time.Time) {
	if e.scheduler != nil {
		if err := e.scheduler.Schedule(ctx, auctionID, endTime); err != nil {
			e.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to reschedule auction deadline")
		}
	}

	if outbid != nil && e.notifier != nil {
		e.notifier.Notify(ctx, outbid.bidderID, outbidMessage(auctionID, placed.Amount))
	}

	if e.broadcaster != nil {
		event := outbound.Event{
			Type:      outbound.EventTypeBidPlaced,
			AuctionID: auctionID,
			Data: map[string]interface{}{
				"bid_id":    placed.ID,
				"bidder_id": placed.BidderID,
				"amount":    placed.Amount,
				"end_time":  endTime.Unix(),
			},
			Timestamp: placed.CreatedAt.Unix(),
		}
		if err := e.broadcaster.Publish(ctx, auctionID, event); err != nil {
			e.logger.Error().Err(err).Str("bid_id", placed.ID.String()).Msg("Failed to broadcast bid event")
		}
	}
}
