package shared

import "github.com/google/uuid"

// SettlementOutcome describes how a finalized auction ended
type SettlementOutcome string

const (
	OutcomeSold           SettlementOutcome = "sold"
	OutcomeUnsold         SettlementOutcome = "unsold"
	OutcomeAlreadySettled SettlementOutcome = "already_settled"
)

// SettlementResult represents the result of finalizing one auction
type SettlementResult struct {
	AuctionID  uuid.UUID
	Outcome    SettlementOutcome
	WinnerID   *uuid.UUID
	FinalPrice *int64
}
