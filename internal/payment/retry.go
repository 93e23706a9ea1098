package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Retrying wraps a Gateway so that each network call gets its own timeout
// and is retried once before failing.  Refusals that a retry cannot fix,
// such as an amount over the limit, are returned immediately.
type Retrying struct {
	next    Gateway
	timeout time.Duration
	logger  logrus.FieldLogger
}

// WithRetry decorates g.  A zero timeout means 10s.
func WithRetry(g Gateway, timeout time.Duration, logger logrus.FieldLogger) *Retrying {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Retrying{next: g, timeout: timeout, logger: logger.WithField("component", "payment")}
}

const attempts = 2

func (r *Retrying) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err = fn(callCtx)
		cancel()
		if err == nil || errors.Is(err, ErrAmountTooLarge) || ctx.Err() != nil {
			return err
		}
		r.logger.WithError(err).WithFields(logrus.Fields{"op": op, "attempt": i}).Warn("gateway call failed")
	}
	if !errors.Is(err, ErrGateway) {
		err = errors.Join(ErrGateway, err)
	}
	return err
}

func (r *Retrying) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	var out Order
	err := r.do(ctx, "create_order", func(ctx context.Context) error {
		o, err := r.next.CreateOrder(ctx, req)
		out = o
		return err
	})
	return out, err
}

func (r *Retrying) VerifySignature(orderID, paymentID, signature string) bool {
	return r.next.VerifySignature(orderID, paymentID, signature)
}

func (r *Retrying) FetchCapturedAmount(ctx context.Context, paymentID string) (int64, error) {
	var out int64
	err := r.do(ctx, "fetch_payment", func(ctx context.Context) error {
		n, err := r.next.FetchCapturedAmount(ctx, paymentID)
		out = n
		return err
	})
	return out, err
}
