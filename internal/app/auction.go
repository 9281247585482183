package app

import (
	"context"
	"time"

	"collectible-auction-engine/internal/domain/auction"
	"collectible-auction-engine/internal/domain/shared"
	"collectible-auction-engine/internal/ports/inbound"
	"collectible-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuctionService implements auction creation and the read-only views. Reads
// opportunistically sweep expired auctions first so stale "active" records
// are never shown as biddable past their deadline.
type AuctionService struct {
	store       outbound.AuctionStore
	inventory   outbound.InventoryReserve
	settler     inbound.SettlementService
	scheduler   outbound.DeadlineScheduler
	broadcaster outbound.Broadcaster
	logger      zerolog.Logger
}

type AuctionServiceParams struct {
	Store       outbound.AuctionStore
	Inventory   outbound.InventoryReserve
	Settler     inbound.SettlementService
	Scheduler   outbound.DeadlineScheduler
	Broadcaster outbound.Broadcaster
	Logger      zerolog.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	return &AuctionService{
		store:       params.Store,
		inventory:   params.Inventory,
		settler:     params.Settler,
		scheduler:   params.Scheduler,
		broadcaster: params.Broadcaster,
		logger:      params.Logger.With().Str("component", "auction_service").Logger(),
	}
}

// CreateAuction reserves one unit of the item from the seller and opens a
// new auction for it. No funds move at creation. Creation is all-or-nothing:
// if the auction record cannot be written, the reservation is rolled back.
func (service *AuctionService) CreateAuction(ctx context.Context, req inbound.CreateAuctionRequest) (uuid.UUID, error) {
	service.logger.Info().
		Str("seller_id", req.SellerID.String()).
		Str("item_id", req.ItemID.String()).
		Int64("min_price", req.MinPrice).
		Dur("duration", req.Duration).
		Msg("Attempting to create auction")

	if req.MinPrice <= 0 {
		return uuid.Nil, shared.ErrInvalidMinPrice
	}
	if req.Duration <= 0 {
		return uuid.Nil, shared.ErrInvalidDuration
	}

	service.sweep(ctx)

	if err := service.inventory.ReserveOne(ctx, req.SellerID, req.ItemID); err != nil {
		service.logger.Warn().Err(err).
			Str("seller_id", req.SellerID.String()).
			Str("item_id", req.ItemID.String()).
			Msg("Failed to reserve item for auction")
		return uuid.Nil, err
	}

	now := time.Now()
	a := &auction.Auction{
		ID:        uuid.New(),
		ItemID:    req.ItemID,
		SellerID:  req.SellerID,
		MinPrice:  req.MinPrice,
		StartTime: now,
		EndTime:   now.Add(req.Duration),
		Status:    auction.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := service.store.CreateAuction(ctx, a); err != nil {
		service.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to save auction, rolling back reservation")
		if rbErr := service.inventory.ReturnOne(ctx, req.SellerID, req.ItemID); rbErr != nil {
			// The unit is now neither in the seller's inventory nor backed
			// by an auction row; this needs operator attention.
			service.logger.Error().Err(rbErr).
				Str("seller_id", req.SellerID.String()).
				Str("item_id", req.ItemID.String()).
				Msg("Failed to roll back item reservation")
		}
		return uuid.Nil, err
	}

	if service.scheduler != nil {
		if err := service.scheduler.Schedule(ctx, a.ID, a.EndTime); err != nil {
			service.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to schedule auction deadline")
		}
	}

	if service.broadcaster != nil {
		event := outbound.Event{
			Type:      outbound.EventTypeAuctionCreated,
			AuctionID: a.ID,
			Data: map[string]interface{}{
				"item_id":   a.ItemID,
				"seller_id": a.SellerID,
				"min_price": a.MinPrice,
				"end_time":  a.EndTime.Unix(),
			},
			Timestamp: now.Unix(),
		}
		if err := service.broadcaster.Publish(ctx, a.ID, event); err != nil {
			service.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to broadcast auction created event")
		}
	}

	service.logger.Info().
		Str("auction_id", a.ID.String()).
		Time("end_time", a.EndTime).
		Msg("Auction created successfully")

	return a.ID, nil
}

// GetAuction retrieves a single auction's detail
func (service *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*inbound.AuctionView, error) {
	service.sweep(ctx)

	a, err := service.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	return &inbound.AuctionView{
		ID:         a.ID,
		ItemID:     a.ItemID,
		SellerID:   a.SellerID,
		MinPrice:   a.MinPrice,
		StartTime:  a.StartTime,
		EndTime:    a.EndTime,
		Status:     string(a.Status),
		WinnerID:   a.WinnerID,
		FinalPrice: a.FinalPrice,
		Settled:    a.Settled,
	}, nil
}

// ListActiveAuctions retrieves active auctions with their remaining time
func (service *AuctionService) ListActiveAuctions(ctx context.Context, limit int) ([]inbound.AuctionSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	service.sweep(ctx)

	auctions, err := service.store.ListActive(ctx, limit)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summaries := make([]inbound.AuctionSummary, 0, len(auctions))
	for _, a := range auctions {
		summaries = append(summaries, inbound.AuctionSummary{
			ID:        a.ID,
			ItemID:    a.ItemID,
			MinPrice:  a.MinPrice,
			EndTime:   a.EndTime,
			Remaining: a.RemainingTime(now),
		})
	}

	return summaries, nil
}

// ListTopBids retrieves the highest bids for an auction
func (service *AuctionService) ListTopBids(ctx context.Context, auctionID uuid.UUID, limit int) ([]inbound.BidView, error) {
	if limit <= 0 {
		limit = 5
	}

	service.sweep(ctx)

	if _, err := service.store.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}

	bids, err := service.store.TopBids(ctx, auctionID, limit)
	if err != nil {
		return nil, err
	}

	views := make([]inbound.BidView, 0, len(bids))
	for _, b := range bids {
		views = append(views, inbound.BidView{
			ID:        b.ID,
			AuctionID: b.AuctionID,
			BidderID:  b.BidderID,
			Amount:    b.Amount,
			CreatedAt: b.CreatedAt,
		})
	}

	return views, nil
}

// sweep runs an opportunistic settlement pass. It is a soft consistency
// convenience, so errors are logged and swallowed.
func (service *AuctionService) sweep(ctx context.Context) {
	if service.settler == nil {
		return
	}
	if _, err := service.settler.FinalizeExpired(ctx); err != nil {
		service.logger.Error().Err(err).Msg("Opportunistic settlement sweep failed")
	}
}
