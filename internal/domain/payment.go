package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Payment status constants. Any status may follow any other; the admin
// console is what keeps the pending -> completed/failed convention.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// DefaultCurrency is the currency UPI transfers are denominated in.
const DefaultCurrency = "INR"

// Payment is a manual UPI payment raised at checkout and confirmed by an admin.
type Payment struct {
	ID        string        `json:"id"`
	Amount    float64       `json:"amount"`
	Currency  string        `json:"currency"`
	Status    string        `json:"status"`
	Items     []PaymentItem `json:"items"`
	UPIID     string        `json:"upi_id"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// PaymentItem is a snapshot of one cart line at checkout time.
type PaymentItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// PaymentItemsFromCart snapshots the cart lines for a payment record.
func PaymentItemsFromCart(c CartState) []PaymentItem {
	items := make([]PaymentItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, PaymentItem{
			ProductID: it.ID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}
	return items
}

// ValidPaymentStatuses returns all valid payment statuses.
func ValidPaymentStatuses() []string {
	return []string{
		PaymentStatusPending,
		PaymentStatusCompleted,
		PaymentStatusFailed,
	}
}

// IsValidPaymentStatus checks whether the given status is a valid payment status.
func IsValidPaymentStatus(status string) bool {
	for _, s := range ValidPaymentStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// PaymentAccount is a UPI account customers are asked to pay into.
type PaymentAccount struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UPIID     string `json:"upi_id"`
	IsDefault bool   `json:"is_default"`
}

// PaymentLinks are the deep links a customer opens to pay.
type PaymentLinks struct {
	UPI       string `json:"upi"`
	GooglePay string `json:"google_pay"`
}

const googlePayBaseURL = "https://pay.google.com/gp/v/send"

// NewPaymentLinks builds the UPI intent and Google Pay links for an amount.
func NewPaymentLinks(upiID, merchant string, amount float64, note string) PaymentLinks {
	q := url.Values{}
	q.Set("pa", upiID)
	q.Set("pn", merchant)
	q.Set("am", strconv.FormatFloat(amount, 'f', 2, 64))
	q.Set("cu", DefaultCurrency)
	q.Set("tn", note)
	query := q.Encode()

	return PaymentLinks{
		UPI:       fmt.Sprintf("upi://pay?%s", query),
		GooglePay: fmt.Sprintf("%s?%s", googlePayBaseURL, query),
	}
}
