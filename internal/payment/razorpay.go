package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// Razorpay is the Gateway backed by the Razorpay orders API.
type Razorpay struct {
	client *razorpay.Client
	secret string
}

// NewRazorpay returns a gateway using the given key pair.
func NewRazorpay(keyID, keySecret string) *Razorpay {
	return &Razorpay{client: razorpay.NewClient(keyID, keySecret), secret: keySecret}
}

// The SDK calls are blocking and take no context, so each one runs in its
// own goroutine and the caller stops waiting when ctx ends.
func call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	type result struct {
		body map[string]interface{}
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		body, err := fn()
		ch <- result{body, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.body, r.err
	}
}

func (g *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	notes := map[string]interface{}{}
	for k, v := range req.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":          req.AmountMinor,
		"currency":        req.Currency,
		"receipt":         req.Receipt,
		"payment_capture": 1,
		"notes":           notes,
	}
	body, err := call(ctx, func() (map[string]interface{}, error) {
		return g.client.Order.Create(data, nil)
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "amount exceeds maximum") {
			return Order{}, fmt.Errorf("%w: %w", ErrGateway, ErrAmountTooLarge)
		}
		return Order{}, fmt.Errorf("%w: create order: %v", ErrGateway, err)
	}
	id, _ := body["id"].(string)
	if id == "" {
		return Order{}, fmt.Errorf("%w: create order: response without id", ErrGateway)
	}
	return Order{ID: id, AmountMinor: req.AmountMinor, Currency: req.Currency}, nil
}

func (g *Razorpay) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	attrs := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(attrs, signature, g.secret)
}

func (g *Razorpay) FetchCapturedAmount(ctx context.Context, paymentID string) (int64, error) {
	body, err := call(ctx, func() (map[string]interface{}, error) {
		return g.client.Payment.Fetch(paymentID, nil, nil)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: fetch payment: %v", ErrGateway, err)
	}
	return amountField(body["amount"])
}

// amountField reads the amount the API returned, which decodes from JSON as
// a float64 but is an integer count of paise.
func amountField(v interface{}) (int64, error) {
	switch a := v.(type) {
	case float64:
		return int64(a), nil
	case int64:
		return a, nil
	case int:
		return int64(a), nil
	case string:
		n, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad amount %q", ErrGateway, a)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: payment without amount", ErrGateway)
}
