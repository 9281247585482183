package app

import (
	"context"
	"errors"
	"time"

	"collectible-auction-engine/internal/domain/shared"
	"collectible-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Settler finalizes expired auctions exactly once. All triggers (the
// periodic sweeper, manual recovery, opportunistic pre-query sweeps) funnel
// into the same Finalize primitive, gated by the persisted settlement
// markers, so running it twice or concurrently produces the same end state
// with no second fund or item movement.
type Settler struct {
	store       outbound.AuctionStore
	notifier    outbound.Notifier
	broadcaster outbound.Broadcaster
	scheduler   outbound.DeadlineScheduler
	logger      zerolog.Logger
}

type SettlerParams struct {
	Store       outbound.AuctionStore
	Notifier    outbound.Notifier
	Broadcaster outbound.Broadcaster
	Scheduler   outbound.DeadlineScheduler
	Logger      zerolog.Logger
}

// NewSettler creates a new settler
func NewSettler(params SettlerParams) *Settler {
	return &Settler{
		store:       params.Store,
		notifier:    params.Notifier,
		broadcaster: params.Broadcaster,
		scheduler:   params.Scheduler,
		logger:      params.Logger.With().Str("component", "settler").Logger(),
	}
}

// SetScheduler wires the deadline scheduler after construction. The sweeper
// needs the settler to exist first, so the dependency is closed here.
func (s *Settler) SetScheduler(scheduler outbound.DeadlineScheduler) {
	s.scheduler = scheduler
}

// notice is a queued post-commit notification
type notice struct {
	userID  uuid.UUID
	message string
}

// FinalizeExpired finalizes every active auction whose deadline has passed.
// Each auction is its own unit of work; a failure on one never aborts the
// others.
func (s *Settler) FinalizeExpired(ctx context.Context) ([]shared.SettlementResult, error) {
	ids, err := s.store.ListExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list expired auctions")
		return nil, err
	}

	var results []shared.SettlementResult
	for _, id := range ids {
		result, err := s.Finalize(ctx, id)
		if err != nil {
			s.logger.Error().Err(err).Str("auction_id", id.String()).Msg("Failed to finalize auction")
			continue
		}
		if result != nil {
			results = append(results, *result)
		}
	}

	return results, nil
}

// Finalize settles a single expired auction: records the outcome, then
// applies the item half and the funds half, each gated by its own persisted
// marker so a retry after a partial failure performs only the missing half.
func (s *Settler) Finalize(ctx context.Context, auctionID uuid.UUID) (*shared.SettlementResult, error) {
	var result *shared.SettlementResult
	var notices []notice

	err := s.store.WithAuction(ctx, auctionID, func(tx outbound.AuctionTx) error {
		a := tx.Auction()
		now := time.Now()

		if a.Settled {
			result = &shared.SettlementResult{
				AuctionID:  a.ID,
				Outcome:    shared.OutcomeAlreadySettled,
				WinnerID:   a.WinnerID,
				FinalPrice: a.FinalPrice,
			}
			return nil
		}

		if a.IsActive() && !a.Expired(now) {
			return shared.ErrAuctionNotExpired
		}

		leading, err := tx.LeadingBid(ctx)
		if err != nil && !errors.Is(err, shared.ErrNoBidsFound) {
			return err
		}

		if leading == nil {
			// Unsold: the reserved item goes back to the seller, no funds move.
			if err := tx.RecordOutcome(ctx, nil, nil); err != nil {
				return err
			}
			if !a.ItemGranted {
				if err := tx.Inventory().ReturnOne(ctx, a.SellerID, a.ItemID); err != nil {
					return err
				}
				if err := tx.MarkItemGranted(ctx); err != nil {
					return err
				}
			}
			if !a.SellerPaid {
				// Nothing is owed, the marker just completes settlement.
				if err := tx.MarkSellerPaid(ctx); err != nil {
					return err
				}
			}
			result = &shared.SettlementResult{AuctionID: a.ID, Outcome: shared.OutcomeUnsold}
			notices = append(notices, notice{a.SellerID, unsoldMessage(a.ID)})
			return nil
		}

		// The winner's funds were escrowed when the bid was accepted, so
		// settlement never debits the winner again.
		winnerID := leading.BidderID
		finalPrice := leading.Amount
		if err := tx.RecordOutcome(ctx, &winnerID, &finalPrice); err != nil {
			return err
		}
		if !a.ItemGranted {
			if err := tx.Inventory().GrantOne(ctx, winnerID, a.ItemID); err != nil {
				return err
			}
			if err := tx.MarkItemGranted(ctx); err != nil {
				return err
			}
		}
		if !a.SellerPaid {
			if err := tx.Wallet().Credit(ctx, a.SellerID, finalPrice); err != nil {
				return err
			}
			if err := tx.MarkSellerPaid(ctx); err != nil {
				return err
			}
		}

		result = &shared.SettlementResult{
			AuctionID:  a.ID,
			Outcome:    shared.OutcomeSold,
			WinnerID:   &winnerID,
			FinalPrice: &finalPrice,
		}
		notices = append(notices,
			notice{winnerID, wonMessage(a.ID, finalPrice)},
			notice{a.SellerID, soldMessage(a.ID, finalPrice)})
		return nil
	})

	if err != nil {
		return nil, err
	}

	if result.Outcome != shared.OutcomeAlreadySettled {
		s.afterSettlement(ctx, auctionID, result, notices)
	}

	return result, nil
}

// ManualClaim re-applies the item half of settlement alone. Safe to invoke
// redundantly after automatic settlement already ran.
func (s *Settler) ManualClaim(ctx context.Context, auctionID uuid.UUID) error {
	s.logger.Info().Str("auction_id", auctionID.String()).Msg("Manual claim requested")

	return s.store.WithAuction(ctx, auctionID, func(tx outbound.AuctionTx) error {
		a := tx.Auction()
		if !a.IsFinished() {
			return shared.ErrAuctionNotFinished
		}
		if a.WinnerID == nil {
			return shared.ErrNoWinner
		}
		if a.ItemGranted {
			return shared.ErrAlreadyApplied
		}
		if err := tx.Inventory().GrantOne(ctx, *a.WinnerID, a.ItemID); err != nil {
			return err
		}
		return tx.MarkItemGranted(ctx)
	})
}

// ManualCredit re-applies the funds half of settlement alone
func (s *Settler) ManualCredit(ctx context.Context, auctionID uuid.UUID) error {
	s.logger.Info().Str("auction_id", auctionID.String()).Msg("Manual credit requested")

	return s.store.WithAuction(ctx, auctionID, func(tx outbound.AuctionTx) error {
		a := tx.Auction()
		if !a.IsFinished() {
			return shared.ErrAuctionNotFinished
		}
		if a.FinalPrice == nil {
			return shared.ErrNoFinalPrice
		}
		if a.SellerPaid {
			return shared.ErrAlreadyApplied
		}
		if err := tx.Wallet().Credit(ctx, a.SellerID, *a.FinalPrice); err != nil {
			return err
		}
		return tx.MarkSellerPaid(ctx)
	})
}

// afterSettlement performs the best-effort side effects of a completed
// settlement: dropping the deadline index entry, notifying the parties and
// broadcasting the finished event.
func (s *Settler) afterSettlement(ctx context.Context, auctionID uuid.UUID, result *shared.SettlementResult, notices []notice) {
	if s.scheduler != nil {
		if err := s.scheduler.Cancel(ctx, auctionID); err != nil {
			s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to drop auction from deadline index")
		}
	}

	if s.notifier != nil {
		for _, n := range notices {
			s.notifier.Notify(ctx, n.userID, n.message)
		}
	}

	if s.broadcaster != nil {
		data := map[string]interface{}{
			"auction_id": auctionID.String(),
			"outcome":    string(result.Outcome),
		}
		if result.WinnerID != nil {
			data["winner_id"] = result.WinnerID.String()
		}
		if result.FinalPrice != nil {
			data["final_price"] = *result.FinalPrice
		}
		event := outbound.Event{
			Type:      outbound.EventTypeAuctionFinished,
			AuctionID: auctionID,
			Data:      data,
			Timestamp: time.Now().Unix(),
		}
		if err := s.broadcaster.Publish(ctx, auctionID, event); err != nil {
			s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to broadcast auction finished event")
		}
	}

	log := s.logger.Info().Str("auction_id", auctionID.String()).Str("outcome", string(result.Outcome))
	if result.WinnerID != nil {
		log = log.Str("winner_id", result.WinnerID.String())
	}
	if result.FinalPrice != nil {
		log = log.Int64("final_price", *result.FinalPrice)
	}
	log.Msg("Auction settled")
}
