package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"unistay/pkg/breaker"
	"unistay/pkg/client"
	"unistay/pkg/config"
	"unistay/pkg/logger"
	"unistay/pkg/model"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	BreakerName = "payment-gateway"
	ordersPath  = "/v1/orders"
)

var ErrGatewayRejected = errors.New("payment gateway rejected the order")

// Gateway creates payment orders with the external payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, bookingID string, amount float64, currency string) (*model.PaymentOrder, error)
}

// New returns the HTTP gateway in production and whenever a gateway URL is
// configured, and the mock gateway otherwise.
func New(cfg *config.Config) Gateway {
	if cfg.PaymentGatewayURL == "" && !cfg.IsProduction() {
		cfg.Log.Info("PAYMENT_GATEWAY_URL not set, using mock payment orders")
		return NewMockGateway(cfg.PaymentKeyID)
	}
	return NewHTTPGateway(cfg)
}

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type HTTPGateway struct {
	client *client.HttpClient
	cb     *gobreaker.CircuitBreaker[*model.PaymentOrder]
	keyID  string
	log    *logger.Logger
}

func NewHTTPGateway(cfg *config.Config) *HTTPGateway {
	return &HTTPGateway{
		client: client.NewHttpClient(cfg.PaymentGatewayURL).
			WithBasicAuth(cfg.PaymentKeyID, cfg.PaymentKeySecret).
			WithTimeout(cfg.RequestTimeout),
		cb: breaker.New[*model.PaymentOrder](breaker.Settings{
			Name:        BreakerName,
			MaxFailures: cfg.BreakerMaxFailures,
			OpenTimeout: cfg.BreakerOpenTimeout,
		}, cfg.Log),
		keyID: cfg.PaymentKeyID,
		log:   cfg.Log,
	}
}

// CreateOrder sends the amount in minor units, keyed so a retried request
// for the same booking does not open a second order. Failures count towards the
// breaker; while it is open calls fail fast with gobreaker.ErrOpenState.
func (g *HTTPGateway) CreateOrder(ctx context.Context, bookingID string, amount float64, currency string) (*model.PaymentOrder, error) {
	return g.cb.Execute(func() (*model.PaymentOrder, error) {
		resp, err := g.client.PostJSON(ctx, ordersPath, orderRequest{
			Amount:   ToMinorUnits(amount),
			Currency: currency,
			Receipt:  bookingID,
		}, map[string]string{"Idempotency-Key": "order-" + bookingID})
		if err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, resp.ErrorMessage())
		}

		var order orderResponse
		if err := resp.DecodeJSON(&order); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		if order.ID == "" {
			return nil, fmt.Errorf("%w: empty order id", ErrGatewayRejected)
		}

		g.log.Info("Payment order created", "booking_id", bookingID, "order_id", order.ID)
		return &model.PaymentOrder{
			OrderID:   order.ID,
			Amount:    FromMinorUnits(order.Amount),
			Currency:  order.Currency,
			BookingID: bookingID,
			KeyID:     g.keyID,
		}, nil
	})
}

// MockGateway issues local order ids. Used outside production when no
// gateway is configured.
type MockGateway struct {
	keyID string
}

func NewMockGateway(keyID string) *MockGateway {
	return &MockGateway{keyID: keyID}
}

func (g *MockGateway) CreateOrder(_ context.Context, bookingID string, amount float64, currency string) (*model.PaymentOrder, error) {
	return &model.PaymentOrder{
		OrderID:   "order_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Amount:    amount,
		Currency:  currency,
		BookingID: bookingID,
		KeyID:     g.keyID,
		Mock:      true,
	}, nil
}

func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
