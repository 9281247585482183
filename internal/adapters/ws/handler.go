package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"collectible-auction-engine/internal/domain/shared"
	"collectible-auction-engine/internal/ports/inbound"
	"collectible-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WsHandler manages WebSocket connections and routes client messages to the
// engine services
type WsHandler struct {
	clients       map[string]*WsClient // clientID -> Client
	clientsMu     sync.RWMutex
	eventChannels map[string]chan outbound.Event // clientID -> local event channel
	channelsMu    sync.RWMutex
	upgrader      websocket.Upgrader
	auctions      inbound.AuctionService
	bidding       inbound.BiddingService
	settlement    inbound.SettlementService
	wallet        outbound.Wallet
	broadcaster   outbound.Broadcaster
	logger        zerolog.Logger
}

type WsHandlerParams struct {
	Upgrader          websocket.Upgrader
	AuctionService    inbound.AuctionService
	BiddingService    inbound.BiddingService
	SettlementService inbound.SettlementService
	Wallet            outbound.Wallet
	Broadcaster       outbound.Broadcaster
	Logger            zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients:       make(map[string]*WsClient),
		eventChannels: make(map[string]chan outbound.Event),
		upgrader:      params.Upgrader,
		auctions:      params.AuctionService,
		bidding:       params.BiddingService,
		settlement:    params.SettlementService,
		wallet:        params.Wallet,
		broadcaster:   params.Broadcaster,
		logger:        params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket handles WebSocket connection upgrades
func (h *WsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userIDStr := r.URL.Query().Get("user_id")
	if userIDStr == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "invalid user_id format", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(WsClientParams{
		UserID:  userID,
		Conn:    conn,
		Handler: h,
		Logger:  h.logger,
	})

	h.registerClient(client)
	h.createEventChannel(client.id)
	client.Start()
	go h.listenForClientEvents(client)

	go func() {
		<-client.ctx.Done()
		h.unregisterClient(client)
	}()

	h.logger.Info().Str("client_id", client.id).Str("user_id", client.userID.String()).Msg("WebSocket client connected")
}

func (h *WsHandler) createEventChannel(clientID string) chan outbound.Event {
	h.channelsMu.Lock()
	defer h.channelsMu.Unlock()

	if eventChan, exists := h.eventChannels[clientID]; exists {
		return eventChan
	}

	eventChan := make(chan outbound.Event, 100)
	h.eventChannels[clientID] = eventChan
	return eventChan
}

func (h *WsHandler) getEventChannel(clientID string) chan outbound.Event {
	h.channelsMu.RLock()
	defer h.channelsMu.RUnlock()

	return h.eventChannels[clientID]
}

func (h *WsHandler) removeEventChannel(clientID string) {
	h.channelsMu.Lock()
	defer h.channelsMu.Unlock()

	if eventChan, exists := h.eventChannels[clientID]; exists {
		close(eventChan)
		delete(h.eventChannels, clientID)
	}
}

func (h *WsHandler) registerClient(client *WsClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[client.id] = client
}

func (h *WsHandler) unregisterClient(client *WsClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	delete(h.clients, client.id)
	client.Stop()
	h.removeEventChannel(client.id)

	h.logger.Info().Str("client_id", client.id).Str("user_id", client.userID.String()).Int("total_clients", len(h.clients)).Msg("WebSocket client disconnected")
}

// listenForClientEvents forwards broadcast events to the client socket
func (h *WsHandler) listenForClientEvents(client *WsClient) {
	eventChan := h.getEventChannel(client.id)
	if eventChan == nil {
		h.logger.Error().Str("client_id", client.id).Msg("No event channel found for client")
		return
	}

	for {
		select {
		case event := <-eventChan:
			if err := client.Send(h.convertEventToMessage(event)); err != nil {
				h.logger.Error().Err(err).Str("client_id", client.id).Msg("Failed to send event to WebSocket client")
			}

		case <-client.ctx.Done():
			return
		}
	}
}

func (h *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) error {
	switch msg.Type {
	case MessageTypeSubscribe:
		return h.handleSubscribe(client, msg)

	case MessageTypeUnsubscribe:
		return h.handleUnsubscribe(client, msg)

	case MessageTypePlaceBid:
		return h.handlePlaceBid(client, msg)

	case MessageTypeCreateAuction:
		return h.handleCreateAuction(client, msg)

	case MessageTypeGetAuction:
		return h.handleGetAuction(client, msg)

	case MessageTypeListAuctions:
		return h.handleListAuctions(client, msg)

	case MessageTypeTopBids:
		return h.handleTopBids(client, msg)

	case MessageTypeClaim:
		return h.handleClaim(client, msg)

	case MessageTypeCredit:
		return h.handleCredit(client, msg)

	case MessageTypeBalance:
		return h.handleBalance(client, msg)

	default:
		h.logger.Warn().Str("client_id", client.id).Str("message_type", string(msg.Type)).Msg("Unknown message type from client")
		return shared.ErrUnknownMessageType
	}
}

func (h *WsHandler) convertEventToMessage(event outbound.Event) *ServerMessage {
	switch event.Type {
	case outbound.EventTypeBidPlaced:
		return &ServerMessage{
			Type:      MessageTypeBidPlaced,
			AuctionID: &event.AuctionID,
			Data:      event.Data,
			Timestamp: event.Timestamp,
		}
	case outbound.EventTypeAuctionFinished:
		return &ServerMessage{
			Type:      MessageTypeAuctionFinished,
			AuctionID: &event.AuctionID,
			Data:      event.Data,
			Timestamp: event.Timestamp,
		}
	default:
		return &ServerMessage{
			Type:      MessageTypeAuctionUpdate,
			AuctionID: &event.AuctionID,
			Data:      event.Data,
			Timestamp: event.Timestamp,
		}
	}
}

func (h *WsHandler) handleSubscribe(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	eventChan := h.getEventChannel(client.id)
	if eventChan == nil {
		return shared.ErrClientEventChannelNotFound
	}

	if err := h.broadcaster.Subscribe(ctx, *msg.AuctionID, client.id, eventChan); err != nil {
		h.logger.Error().Err(err).Str("client_id", client.id).Str("auction_id", msg.AuctionID.String()).Msg("Failed to subscribe to auction")
		return err
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "subscribed"
	return client.Send(response)
}

func (h *WsHandler) handleUnsubscribe(client *WsClient, msg *ClientMessage) error {
	if err := h.broadcaster.Unsubscribe(context.Background(), *msg.AuctionID, client.id); err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "unsubscribed"
	return client.Send(response)
}

func (h *WsHandler) handlePlaceBid(client *WsClient, msg *ClientMessage) error {
	amount, ok := msg.Data["amount"].(float64)
	if !ok {
		return shared.ErrInvalidAmount
	}

	placed, err := h.bidding.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: *msg.AuctionID,
		BidderID:  client.userID,
		Amount:    int64(amount),
	})
	if err != nil {
		return client.Send(bidErrorMessage(err, msg.AuctionID))
	}

	response := NewServerMessage(MessageTypeBidPlaced)
	response.AuctionID = msg.AuctionID
	response.Data["bid_id"] = placed.ID
	response.Data["amount"] = placed.Amount
	return client.Send(response)
}

// bidErrorMessage enriches bid rejections so the client can retry correctly
func bidErrorMessage(err error, auctionID *uuid.UUID) *ServerMessage {
	errorMsg := NewErrorMessage(err.Error(), auctionID)
	if tooLow, ok := shared.IsBidTooLow(err); ok {
		errorMsg.Data = map[string]interface{}{"current_min": tooLow.CurrentMin}
	}
	return errorMsg
}

func (h *WsHandler) handleCreateAuction(client *WsClient, msg *ClientMessage) error {
	itemIDStr, ok := msg.Data["item_id"].(string)
	if !ok {
		return shared.ErrItemIDRequired
	}

	itemID, err := uuid.Parse(itemIDStr)
	if err != nil {
		return shared.ErrInvalidItemIDFormat
	}

	minPrice, ok := msg.Data["min_price"].(float64)
	if !ok {
		return shared.ErrMinPriceRequired
	}

	durationSeconds, ok := msg.Data["duration_seconds"].(float64)
	if !ok {
		return shared.ErrDurationRequired
	}

	auctionID, err := h.auctions.CreateAuction(context.Background(), inbound.CreateAuctionRequest{
		SellerID: client.userID,
		ItemID:   itemID,
		MinPrice: int64(minPrice),
		Duration: time.Duration(durationSeconds) * time.Second,
	})
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), nil))
	}

	response := NewServerMessage(MessageTypeAuctionCreated)
	response.AuctionID = &auctionID
	response.Data["auction_id"] = auctionID
	return client.Send(response)
}

func (h *WsHandler) handleGetAuction(client *WsClient, msg *ClientMessage) error {
	view, err := h.auctions.GetAuction(context.Background(), *msg.AuctionID)
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["auction"] = view
	return client.Send(response)
}

func (h *WsHandler) handleListAuctions(client *WsClient, msg *ClientMessage) error {
	limit := 20
	if limitVal, ok := msg.Data["limit"].(float64); ok {
		limit = int(limitVal)
	}

	summaries, err := h.auctions.ListActiveAuctions(context.Background(), limit)
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), nil))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.Data["auctions"] = summaries
	response.Data["count"] = len(summaries)
	return client.Send(response)
}

func (h *WsHandler) handleTopBids(client *WsClient, msg *ClientMessage) error {
	limit := 5
	if limitVal, ok := msg.Data["limit"].(float64); ok {
		limit = int(limitVal)
	}

	bids, err := h.auctions.ListTopBids(context.Background(), *msg.AuctionID, limit)
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["bids"] = bids
	response.Data["count"] = len(bids)
	return client.Send(response)
}

func (h *WsHandler) handleBalance(client *WsClient, msg *ClientMessage) error {
	balance, err := h.wallet.Balance(context.Background(), client.userID)
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), nil))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.Data["balance"] = balance
	return client.Send(response)
}

func (h *WsHandler) handleClaim(client *WsClient, msg *ClientMessage) error {
	if err := h.settlement.ManualClaim(context.Background(), *msg.AuctionID); err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "item_granted"
	return client.Send(response)
}

func (h *WsHandler) handleCredit(client *WsClient, msg *ClientMessage) error {
	if err := h.settlement.ManualCredit(context.Background(), *msg.AuctionID); err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "seller_credited"
	return client.Send(response)
}
