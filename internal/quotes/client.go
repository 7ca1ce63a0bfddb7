// Package quotes fetches random quotes for the scripted bot.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Client calls a quote provider that answers GET with a JSON array of quote
// objects. Only the first entry's text is used.
type Client struct {
	url    string
	client *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type quote struct {
	Quote string `json:"q"`
}

func (c *Client) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("build quote request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("quote provider responded with %s", resp.Status)
	}

	var list []quote
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", fmt.Errorf("decode quote response: %w", err)
	}
	if len(list) == 0 || list[0].Quote == "" {
		return "", errors.New("quote provider returned no quotes")
	}
	return list[0].Quote, nil
}
