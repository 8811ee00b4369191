package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	pkgkafka "github.com/VishalVrk/rfid-cart/pkg/kafka"
)

// CartService defines the interface required by the event consumer.
type CartService interface {
	ClearCart(ctx context.Context) domain.CartState
}

// Consumer processes incoming Kafka events for the storefront.
type Consumer struct {
	cart   CartService
	logger *slog.Logger
}

// NewConsumer creates a new event consumer.
func NewConsumer(cart CartService, logger *slog.Logger) *Consumer {
	return &Consumer{
		cart:   cart,
		logger: logger,
	}
}

// HandlePaymentStatusChanged clears the cart once its payment is completed.
// Other transitions are acknowledged without side effects.
func (c *Consumer) HandlePaymentStatusChanged(ctx context.Context, event *pkgkafka.Event) error {
	var data PaymentStatusChangedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal payment.status_changed data: %w", err)
	}

	if data.Status != domain.PaymentStatusCompleted || data.PreviousStatus == domain.PaymentStatusCompleted {
		c.logger.DebugContext(ctx, "ignoring payment status change",
			slog.String("payment_id", data.ID),
			slog.String("status", data.Status),
		)
		return nil
	}

	state := c.cart.ClearCart(ctx)

	c.logger.InfoContext(ctx, "cart cleared after completed payment",
		slog.String("payment_id", data.ID),
		slog.Float64("amount", data.Amount),
		slog.Bool("feed_synced", state.FeedSynced),
	)
	return nil
}

// PaymentStatusHandler wraps HandlePaymentStatusChanged so redelivered events
// are processed once.
func (c *Consumer) PaymentStatusHandler(store pkgkafka.IdempotencyStore) pkgkafka.Handler {
	return pkgkafka.IdempotentHandler(store, c.HandlePaymentStatusChanged, c.logger)
}
