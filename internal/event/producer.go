package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	pkgkafka "github.com/VishalVrk/rfid-cart/pkg/kafka"
	"github.com/VishalVrk/rfid-cart/pkg/logger"
)

// Kafka topic constants for storefront events.
const (
	TopicCartUpdated          = pkgkafka.TopicPrefix + ".cart.updated"
	TopicCartCleared          = pkgkafka.TopicPrefix + ".cart.cleared"
	TopicPaymentCreated       = pkgkafka.TopicPrefix + ".payment.created"
	TopicPaymentStatusChanged = pkgkafka.TopicPrefix + ".payment.status_changed"
)

// Aggregate type constants.
const (
	AggregateTypeCart    = "cart"
	AggregateTypePayment = "payment"
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "trolley-storefront"

// CartAggregateID identifies the single trolley cart on the bus.
const CartAggregateID = "smart-trolley"

// Cart operations carried in cart.updated events.
const (
	CartOpAddItem     = "add_item"
	CartOpRemoveItem  = "remove_item"
	CartOpSetQuantity = "set_quantity"
)

// Publisher is the part of pkgkafka.Producer the event producer depends on.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// CartLine is one cart item in an event payload.
type CartLine struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	Operation  string     `json:"operation"`
	ProductID  string     `json:"product_id"`
	Quantity   int        `json:"quantity"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
	Items      []CartLine `json:"items"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	ItemsRemoved int     `json:"items_removed"`
	PriceRemoved float64 `json:"price_removed"`
}

// PaymentCreatedData is the payload for a payment.created event.
type PaymentCreatedData struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	UPIID    string  `json:"upi_id"`
	Items    int     `json:"items"`
}

// PaymentStatusChangedData is the payload for a payment.status_changed event.
type PaymentStatusChangedData struct {
	ID             string  `json:"id"`
	PreviousStatus string  `json:"previous_status"`
	Status         string  `json:"status"`
	Amount         float64 `json:"amount"`
	Notes          string  `json:"notes,omitempty"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event carrying the cart after op.
func (p *Producer) PublishCartUpdated(ctx context.Context, op, productID string, state domain.CartState) error {
	data := CartUpdatedData{
		Operation:  op,
		ProductID:  productID,
		TotalItems: state.TotalItems,
		TotalPrice: state.TotalPrice,
		Items:      make([]CartLine, 0, len(state.Items)),
	}
	for _, it := range state.Items {
		if it.ID == productID {
			data.Quantity = it.Quantity
		}
		data.Items = append(data.Items, CartLine{
			ProductID: it.ID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}

	return p.publish(ctx, TopicCartUpdated, CartAggregateID, AggregateTypeCart, data,
		slog.String("operation", op),
		slog.String("product_id", productID),
	)
}

// PublishCartCleared publishes a cart.cleared event. previous is the cart
// before it was cleared.
func (p *Producer) PublishCartCleared(ctx context.Context, previous domain.CartState) error {
	data := CartClearedData{
		ItemsRemoved: previous.TotalItems,
		PriceRemoved: previous.TotalPrice,
	}
	return p.publish(ctx, TopicCartCleared, CartAggregateID, AggregateTypeCart, data,
		slog.Int("items_removed", previous.TotalItems),
	)
}

// PublishPaymentCreated publishes a payment.created event.
func (p *Producer) PublishPaymentCreated(ctx context.Context, payment *domain.Payment) error {
	data := PaymentCreatedData{
		ID:       payment.ID,
		Amount:   payment.Amount,
		Currency: payment.Currency,
		UPIID:    payment.UPIID,
		Items:    len(payment.Items),
	}
	return p.publish(ctx, TopicPaymentCreated, payment.ID, AggregateTypePayment, data,
		slog.String("payment_id", payment.ID),
	)
}

// PublishPaymentStatusChanged publishes a payment.status_changed event.
func (p *Producer) PublishPaymentStatusChanged(ctx context.Context, payment *domain.Payment, previous string) error {
	data := PaymentStatusChangedData{
		ID:             payment.ID,
		PreviousStatus: previous,
		Status:         payment.Status,
		Amount:         payment.Amount,
		Notes:          payment.Notes,
	}
	return p.publish(ctx, TopicPaymentStatusChanged, payment.ID, AggregateTypePayment, data,
		slog.String("payment_id", payment.ID),
		slog.String("status", payment.Status),
	)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any, attrs ...any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published "+topic+" event", attrs...)
	return nil
}
