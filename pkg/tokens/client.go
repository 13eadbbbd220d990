package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dauTT/astroport-dca/internal/asset"
)

// Client queries token-contract balances and allowances over HTTP.
type Client struct {
	url        string
	httpClient http.Client
	logger     *logrus.Logger
}

func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: http.Client{Timeout: 5 * time.Second},
		logger:     logrus.WithField("service", "token-client").Logger,
	}
}

func (c *Client) bodyCloser(body io.ReadCloser) {
	if body != nil {
		if err := body.Close(); err != nil {
			c.logger.Error("Failed to close body,err:", err)
		}
	}
}

type balanceResponse struct {
	Balance asset.Amount `json:"balance"`
}

type allowanceResponse struct {
	Allowance asset.Amount `json:"allowance"`
}

func (c *Client) Balance(ctx context.Context, contract, address string) (asset.Amount, error) {
	url := fmt.Sprintf("%s/v1/tokens/%s/balance/%s", c.url, contract, address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return asset.Amount{}, fmt.Errorf("fail to build balance request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return asset.Amount{}, fmt.Errorf("fail to query balance: %w", err)
	}
	defer c.bodyCloser(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return asset.Amount{}, fmt.Errorf("fail to query balance: %s", resp.Status)
	}

	var out balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return asset.Amount{}, fmt.Errorf("fail to decode balance response: %w", err)
	}
	return out.Balance, nil
}

func (c *Client) Allowance(ctx context.Context, contract, owner, spender string) (asset.Amount, error) {
	url := fmt.Sprintf("%s/v1/tokens/%s/allowance/%s/%s", c.url, contract, owner, spender)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return asset.Amount{}, fmt.Errorf("fail to build allowance request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return asset.Amount{}, fmt.Errorf("fail to query allowance: %w", err)
	}
	defer c.bodyCloser(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return asset.Amount{}, fmt.Errorf("fail to query allowance: %s", resp.Status)
	}

	var out allowanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return asset.Amount{}, fmt.Errorf("fail to decode allowance response: %w", err)
	}
	return out.Allowance, nil
}
