// Package razorpay implements the payment.Gateway interface against the
// Razorpay Orders API.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Nandusuresh61/fabrico-checkout/internal/domain/payment"
)

const defaultBaseURL = "https://api.razorpay.com"

var _ payment.Gateway = (*Client)(nil)

// Config holds the gateway credentials.
type Config struct {
	// KeyID is the public key the checkout widget is initialized with.
	KeyID string
	// KeySecret signs API requests and payment callbacks.
	KeySecret string
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// Client talks to the Razorpay Orders API over HTTPS with basic auth.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a gateway client with the given credentials.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateOrder registers a gateway-side order. Razorpay amounts are in
// the currency's minor unit, so rupees are converted to paise.
func (c *Client) CreateOrder(ctx context.Context, receipt string, amount decimal.Decimal, currency string) (*payment.GatewayOrder, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode order request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call gateway")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, errors.Errorf("gateway returned %d: %s", resp.StatusCode, data)
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode order response")
	}

	return &payment.GatewayOrder{
		ID:       out.ID,
		Amount:   decimal.NewFromInt(out.Amount).Div(decimal.NewFromInt(100)),
		Currency: out.Currency,
	}, nil
}

// VerifySignature checks the callback signature: HMAC-SHA256 of
// "<gateway_order_id>|<gateway_payment_id>" keyed with the secret,
// compared in constant time.
func (c *Client) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.cfg.KeySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// CheckoutKey returns the public key id for the widget.
func (c *Client) CheckoutKey() string {
	return c.cfg.KeyID
}
