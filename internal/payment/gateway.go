// Package payment talks to the card payment gateway: creating orders,
// verifying checkout signatures and reading captured amounts.
package payment

import (
	"context"
	"errors"
	"strings"
)

// ErrGateway wraps every failure to reach or be understood by the gateway.
var ErrGateway = errors.New("payment gateway error")

// ErrAmountTooLarge is returned when the gateway refuses an order because
// of its amount.
var ErrAmountTooLarge = errors.New("amount exceeds the maximum payment limit")

// OrderRequest describes an order to create.  AmountMinor is in paise.
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Order is a created gateway order.
type Order struct {
	ID          string `json:"id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
}

// Gateway is the subset of the payment provider the booking flow needs.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	// FetchCapturedAmount returns the captured amount in minor units.
	FetchCapturedAmount(ctx context.Context, paymentID string) (int64, error)
}

// FriendlyFailureMessage turns a checkout failure reported by the gateway
// into a message for the organizer.
func FriendlyFailureMessage(code, description string) string {
	desc := strings.ToLower(description)
	switch {
	case code == "BAD_REQUEST_ERROR" && strings.Contains(desc, "amount"):
		return "Payment failed: The transaction amount exceeds your card's limit. Try using a credit card or contact your bank to increase your limit."
	case strings.Contains(desc, "card declined") || strings.Contains(desc, "payment authorization failed"):
		return "Payment failed: Your card was declined. Please try a different payment method or contact your bank."
	case description == "":
		return "Payment failed: Payment process was interrupted"
	}
	return "Payment failed: " + description
}
