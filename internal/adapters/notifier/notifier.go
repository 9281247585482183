package notifier

import (
	"context"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sender delivers one notification to one user. The surrounding
// application plugs its own transport in here (chat message, push, ...).
type Sender interface {
	Send(ctx context.Context, userID uuid.UUID, message string) error
}

// SenderFunc adapts a function to the Sender interface
type SenderFunc func(ctx context.Context, userID uuid.UUID, message string) error

func (f SenderFunc) Send(ctx context.Context, userID uuid.UUID, message string) error {
	return f(ctx, userID, message)
}

// AsyncNotifier is a best-effort, fire-and-forget notifier. Deliveries run
// on a worker pool off the engine's critical path; failures are logged and
// swallowed, never escalated. The engine only calls Notify after the state
// change the message describes has committed.
type AsyncNotifier struct {
	pool   *pond.WorkerPool
	sender Sender
	logger zerolog.Logger
}

type AsyncNotifierParams struct {
	Workers  int
	Capacity int
	Sender   Sender
	Logger   zerolog.Logger
}

// NewAsyncNotifier creates a new async notifier
func NewAsyncNotifier(params AsyncNotifierParams) *AsyncNotifier {
	workers := params.Workers
	if workers <= 0 {
		workers = 4
	}
	capacity := params.Capacity
	if capacity <= 0 {
		capacity = 256
	}

	return &AsyncNotifier{
		pool:   pond.New(workers, capacity, pond.Strategy(pond.Balanced())),
		sender: params.Sender,
		logger: params.Logger.With().Str("component", "notifier").Logger(),
	}
}

// Notify queues a notification for delivery and returns immediately
func (n *AsyncNotifier) Notify(ctx context.Context, userID uuid.UUID, message string) {
	submitted := n.pool.TrySubmit(func() {
		if err := n.sender.Send(context.Background(), userID, message); err != nil {
			n.logger.Warn().Err(err).
				Str("user_id", userID.String()).
				Msg("Notification delivery failed")
		}
	})
	if !submitted {
		n.logger.Warn().
			Str("user_id", userID.String()).
			Msg("Notifier queue full, dropping notification")
	}
}

// Close drains the pending notifications and stops the pool
func (n *AsyncNotifier) Close() {
	n.pool.StopAndWait()
}

// NewLogSender returns a sender that just logs deliveries. It stands in for
// the real transport in local runs.
func NewLogSender(logger zerolog.Logger) Sender {
	log := logger.With().Str("component", "log_sender").Logger()
	return SenderFunc(func(ctx context.Context, userID uuid.UUID, message string) error {
		log.Info().
			Str("user_id", userID.String()).
			Str("message", message).
			Msg("Notification delivered")
		return nil
	})
}
