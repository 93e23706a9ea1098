// Package paymenttest provides a testify mock of payment.Gateway.
package paymenttest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/venuehunt/venuehunt/internal/payment"
)

// Gateway is a mock payment.Gateway.
type Gateway struct {
	mock.Mock
}

// NewGateway returns a mock whose expectations are asserted when t ends.
func NewGateway(t interface {
	mock.TestingT
	Cleanup(func())
}) *Gateway {
	g := &Gateway{}
	g.Mock.Test(t)
	t.Cleanup(func() { g.AssertExpectations(t) })
	return g
}

func (g *Gateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (payment.Order, error) {
	args := g.Called(ctx, req)
	return args.Get(0).(payment.Order), args.Error(1)
}

func (g *Gateway) VerifySignature(orderID, paymentID, signature string) bool {
	return g.Called(orderID, paymentID, signature).Bool(0)
}

func (g *Gateway) FetchCapturedAmount(ctx context.Context, paymentID string) (int64, error) {
	args := g.Called(ctx, paymentID)
	return args.Get(0).(int64), args.Error(1)
}
