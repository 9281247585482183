package broadcaster

import (
	"context"
	"testing"

	"collectible-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsubscribe_LeavesEventChannelOpen(t *testing.T) {
	b := NewBroadcaster(RedisBroadcasterParams{Logger: zerolog.Nop()})

	clientID := "client-1"
	auctionID := uuid.New()
	eventChan := make(chan outbound.Event, 1)

	b.mu.Lock()
	b.subscribers[clientID] = eventChan
	b.clientsToAuction[clientID] = map[string]bool{auctionID.String(): true}
	b.mu.Unlock()

	// Dropping the last auction removes the broadcaster's references but
	// never closes the channel; the gateway handler owns it and closes it
	// exactly once on disconnect.
	require.NoError(t, b.Unsubscribe(context.Background(), auctionID, clientID))

	b.mu.RLock()
	_, stillTracked := b.subscribers[clientID]
	b.mu.RUnlock()
	assert.False(t, stillTracked)

	// Both would panic if Unsubscribe had closed the channel
	eventChan <- outbound.Event{Type: outbound.EventTypeBidPlaced}
	close(eventChan)
}

func TestUnsubscribe_UnknownClientIsANoOp(t *testing.T) {
	b := NewBroadcaster(RedisBroadcasterParams{Logger: zerolog.Nop()})

	assert.NoError(t, b.Unsubscribe(context.Background(), uuid.New(), "nobody"))
}
