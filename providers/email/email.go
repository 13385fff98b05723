// Package email wraps the transactional-email delivery API. The core never
// builds SMTP or raw API calls; it only sends templated messages through
// Client.
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Client interface {
	SendTemplated(to, templateKey string, substitutions map[string]string) error
}

// HTTPClient posts templated sends to the delivery provider.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	From    string
	HTTP    *http.Client
}

func NewHTTPClient(baseURL, apiKey, from string) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		From:    from,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) SendTemplated(to, templateKey string, substitutions map[string]string) error {
	payload := map[string]any{
		"from":          c.From,
		"to":            to,
		"template":      templateKey,
		"substitutions": substitutions,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/v3/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email API status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

// Disabled drops every send; used when no delivery API is configured.
type Disabled struct{}

func (Disabled) SendTemplated(to, templateKey string, substitutions map[string]string) error {
	logrus.WithFields(logrus.Fields{"to": to, "template": templateKey}).
		Debug("email delivery disabled, dropping message")
	return nil
}
