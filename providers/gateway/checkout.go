package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CheckoutSession mirrors the hosted-checkout session object returned by the
// external processor. Metadata carries the account code and chip package the
// session was created for.
type CheckoutSession struct {
	ID            string            `json:"id"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   float64           `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// Paid sessions are the only ones eligible for crediting.
func (s *CheckoutSession) Paid() bool { return s.PaymentStatus == "paid" }

// CheckoutClient talks to the hosted-checkout API. Crediting always re-fetches
// the session server side; the return URL is never trusted on its own.
type CheckoutClient interface {
	CreateSession(accountCode, packageCode string, amount float64, successURL string) (*CheckoutSession, error)
	GetSession(id string) (*CheckoutSession, error)
}

// RESTCheckout is a thin client for a Stripe-style checkout REST API.
type RESTCheckout struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewRESTCheckout(baseURL, apiKey string) *RESTCheckout {
	return &RESTCheckout{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *RESTCheckout) CreateSession(accountCode, packageCode string, amount float64, successURL string) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", successURL)
	form.Set("amount_total", fmt.Sprintf("%.2f", amount))
	form.Set("metadata[account_code]", accountCode)
	form.Set("metadata[package]", packageCode)

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	return c.do(req)
}

func (c *RESTCheckout) GetSession(id string) (*CheckoutSession, error) {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+"/v1/checkout/sessions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	return c.do(req)
}

func (c *RESTCheckout) do(req *http.Request) (*CheckoutSession, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("checkout API status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sess CheckoutSession
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &sess, nil
}
