// Package oddsfeed pulls events and prices from the external odds-data API.
package oddsfeed

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// FeedEvent is one upcoming fixture as the feed reports it; Odds is keyed by
// team code.
type FeedEvent struct {
	Ref      string             `json:"ref"`
	Sport    string             `json:"sport"`
	HomeTeam string             `json:"home_team"`
	AwayTeam string             `json:"away_team"`
	StartsAt time.Time          `json:"starts_at"`
	Odds     map[string]float64 `json:"odds"`
}

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 20 * time.Second},
	}
}

// FetchUpcoming returns the feed's current upcoming fixtures with prices.
func (c *Client) FetchUpcoming() ([]FeedEvent, error) {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+"/v1/events/upcoming", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("odds feed status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		Events []FeedEvent `json:"events"`
		Error  string      `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode odds feed: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("odds feed error: %s", result.Error)
	}
	return result.Events, nil
}
