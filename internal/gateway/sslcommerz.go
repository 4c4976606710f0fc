// Package gateway implements the SSLCommerz hosted-checkout client: session
// creation, callback signature verification and the server-side validation
// call that must precede trusting any success callback.
package gateway

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skillhub/marketplace-api/internal/config"
)

const (
	sessionPath   = "/gwprocess/v4/api.php"
	validatorPath = "/validator/api/validationserverAPI.php"
)

// ErrRejected is returned when the gateway answers with a FAILED session or
// an invalid validation status.
var ErrRejected = errors.New("gateway rejected request")

type Client struct {
	cfg  config.GatewayConfig
	http *http.Client
}

func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// NewTranID generates the merchant transaction id sent to the gateway. It is
// the sole correlation key for callbacks.
func NewTranID() string {
	buf := make([]byte, 4)
	rand.Read(buf)
	return fmt.Sprintf("TXN_%s_%d", strings.ToUpper(hex.EncodeToString(buf)), time.Now().Unix())
}

// SessionParams carries everything the hosted checkout needs to render.
type SessionParams struct {
	TranID        string
	Amount        decimal.Decimal
	OrderID       string
	PaymentID     string
	ProductName   string
	CustomerName  string
	CustomerEmail string
}

// SessionResult is the parsed create-session response.
type SessionResult struct {
	SessionKey  string
	GatewayURL  string
	RedirectURL string
}

type sessionResponse struct {
	Status         string `json:"status"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
	FailedReason   string `json:"failedreason"`
}

func (c *Client) CreateSession(ctx context.Context, p SessionParams) (*SessionResult, error) {
	amount := p.Amount.StringFixed(2)

	form := url.Values{}
	form.Set("store_id", c.cfg.StoreID)
	form.Set("store_passwd", c.cfg.StorePassword)
	form.Set("total_amount", amount)
	form.Set("currency", c.cfg.Currency)
	form.Set("tran_id", p.TranID)
	form.Set("hash", c.signRequest(p.TranID, amount, c.cfg.Currency))
	form.Set("success_url", c.cfg.SuccessURL)
	form.Set("fail_url", c.cfg.FailURL)
	form.Set("cancel_url", c.cfg.CancelURL)
	form.Set("ipn_url", c.cfg.IPNURL)
	form.Set("shipping_method", "NO")
	form.Set("product_name", p.ProductName)
	form.Set("product_category", "Service")
	form.Set("product_profile", "general")
	form.Set("num_of_item", "1")
	form.Set("cus_name", p.CustomerName)
	form.Set("cus_email", p.CustomerEmail)
	form.Set("cus_add1", "N/A")
	form.Set("cus_city", "N/A")
	form.Set("cus_country", "Bangladesh")
	form.Set("cus_phone", "N/A")
	form.Set("ship_name", p.CustomerName)
	form.Set("ship_add1", "N/A")
	form.Set("ship_city", "N/A")
	form.Set("ship_country", "Bangladesh")
	// passthroughs for debugging only, never used for correlation
	form.Set("value_a", p.OrderID)
	form.Set("value_b", p.PaymentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+sessionPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create gateway session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read session response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway session: unexpected status %d", resp.StatusCode)
	}

	var sr sessionResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	if !strings.EqualFold(sr.Status, "SUCCESS") || sr.GatewayPageURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrRejected, sr.FailedReason)
	}
	return &SessionResult{
		SessionKey:  sr.SessionKey,
		GatewayURL:  sr.GatewayPageURL,
		RedirectURL: sr.GatewayPageURL,
	}, nil
}

// ValidationResult is the parsed validator response for a val_id.
type ValidationResult struct {
	Status     string
	TranID     string
	ValID      string
	Amount     decimal.Decimal
	Currency   string
	BankTranID string
	CardType   string
	CardNo     string
	CardIssuer string
	CardBrand  string
	RiskLevel  string
	RiskTitle  string
}

// Valid reports whether the gateway vouches for the transaction.
func (v *ValidationResult) Valid() bool {
	return strings.EqualFold(v.Status, "VALID") || strings.EqualFold(v.Status, "VALIDATED")
}

type validationResponse struct {
	Status     string `json:"status"`
	TranID     string `json:"tran_id"`
	ValID      string `json:"val_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	BankTranID string `json:"bank_tran_id"`
	CardType   string `json:"card_type"`
	CardNo     string `json:"card_no"`
	CardIssuer string `json:"card_issuer"`
	CardBrand  string `json:"card_brand"`
	RiskLevel  string `json:"risk_level"`
	RiskTitle  string `json:"risk_title"`
}

// ValidatePayment asks the validator API about a val_id received in a
// callback. Success callbacks are never trusted without it.
func (c *Client) ValidatePayment(ctx context.Context, valID string) (*ValidationResult, error) {
	q := url.Values{}
	q.Set("val_id", valID)
	q.Set("store_id", c.cfg.StoreID)
	q.Set("store_passwd", c.cfg.StorePassword)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+validatorPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validate payment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway validation: unexpected status %d", resp.StatusCode)
	}

	var vr validationResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("decode validation response: %w", err)
	}

	amount := decimal.Zero
	if vr.Amount != "" {
		amount, err = decimal.NewFromString(vr.Amount)
		if err != nil {
			return nil, fmt.Errorf("parse validated amount %q: %w", vr.Amount, err)
		}
	}
	return &ValidationResult{
		Status:     vr.Status,
		TranID:     vr.TranID,
		ValID:      vr.ValID,
		Amount:     amount,
		Currency:   vr.Currency,
		BankTranID: vr.BankTranID,
		CardType:   vr.CardType,
		CardNo:     vr.CardNo,
		CardIssuer: vr.CardIssuer,
		CardBrand:  vr.CardBrand,
		RiskLevel:  vr.RiskLevel,
		RiskTitle:  vr.RiskTitle,
	}, nil
}

// signRequest computes the keyed sha512 digest the gateway expects over the
// store password, tran_id, amount and currency. Outbound sessions carry it as
// the hash field; callbacks echo the same digest back.
func (c *Client) signRequest(tranID, amount, currency string) string {
	sum := sha512.Sum512([]byte(c.cfg.StorePassword + tranID + amount + currency))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks the digest a callback carries.
func (c *Client) VerifySignature(tranID, amount, currency, signature string) bool {
	return c.signRequest(tranID, amount, currency) == strings.ToLower(signature)
}
