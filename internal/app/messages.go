package app

import (
	"fmt"

	"github.com/google/uuid"
)

// User-facing notification texts. Delivery is best-effort and happens only
// after the state change they describe has committed.

func outbidMessage(auctionID uuid.UUID, newHighest int64) string {
	return fmt.Sprintf("You have been outbid on auction %s. New highest bid: %d.", auctionID, newHighest)
}

func wonMessage(auctionID uuid.UUID, finalPrice int64) string {
	return fmt.Sprintf("You won auction %s with %d! The item has been added to your inventory.", auctionID, finalPrice)
}

func soldMessage(auctionID uuid.UUID, finalPrice int64) string {
	return fmt.Sprintf("Your auction %s sold for %d. The proceeds have been credited to your balance.", auctionID, finalPrice)
}

func unsoldMessage(auctionID uuid.UUID) string {
	return fmt.Sprintf("Your auction %s ended with no bids. The item has been returned to your inventory.", auctionID)
}
