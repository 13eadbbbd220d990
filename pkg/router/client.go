package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dauTT/astroport-dca/internal/asset"
	"github.com/dauTT/astroport-dca/internal/types"
)

// SwapRequest is the body posted to the router service. The router resolves
// each hop to a pair, executes the chained swaps and asserts the spread.
type SwapRequest struct {
	Operations []types.SwapOperation `json:"operations" validate:"required"`
	Offer      asset.Asset           `json:"offer_asset" validate:"required"`
	MaxSpread  string                `json:"max_spread" validate:"required"`
	Recipient  string                `json:"to" validate:"required"`
}

type swapResponse struct {
	ReturnAmount asset.Amount `json:"return_amount"`
}

type simulateResponse struct {
	Amount asset.Amount `json:"amount"`
}

// Client talks to the AMM router over HTTP.
type Client struct {
	url        string
	httpClient http.Client
	logger     *logrus.Logger
}

func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: http.Client{Timeout: 15 * time.Second},
		logger:     logrus.WithField("service", "router-client").Logger,
	}
}

func (c *Client) bodyCloser(body io.ReadCloser) {
	if body != nil {
		if err := body.Close(); err != nil {
			c.logger.Error("Failed to close body,err:", err)
		}
	}
}

// Swap executes the hop route spending offer and returns the amount of the
// final ask asset credited to the recipient. A non-2xx response means the
// router rejected or reverted the swap and nothing moved.
func (c *Client) Swap(ctx context.Context, hops []types.SwapOperation, offer asset.Asset, maxSpread string, recipient string) (asset.Amount, error) {
	url := c.url + "/v1/swap"

	jsonData, err := json.Marshal(SwapRequest{
		Operations: hops,
		Offer:      offer,
		MaxSpread:  maxSpread,
		Recipient:  recipient,
	})
	if err != nil {
		return asset.Amount{}, fmt.Errorf("fail to marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return asset.Amount{}, fmt.Errorf("fail to build swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("fail to execute swap:", "error", err)
		return asset.Amount{}, fmt.Errorf("fail to execute swap: %w", err)
	}
	defer c.bodyCloser(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return asset.Amount{}, fmt.Errorf("fail to execute swap: %s", resp.Status)
	}

	var out swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return asset.Amount{}, fmt.Errorf("fail to decode swap response: %w", err)
	}
	return out.ReturnAmount, nil
}

// SimulateSwap prices the route without executing it. The worker runs it
// before a purchase attempt so an unpriceable route never burns a swap call.
func (c *Client) SimulateSwap(ctx context.Context, hops []types.SwapOperation, offer asset.Asset) (asset.Amount, error) {
	url := c.url + "/v1/simulate"

	jsonData, err := json.Marshal(SwapRequest{
		Operations: hops,
		Offer:      offer,
	})
	if err != nil {
		return asset.Amount{}, fmt.Errorf("fail to marshal simulate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return asset.Amount{}, fmt.Errorf("fail to build simulate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return asset.Amount{}, fmt.Errorf("fail to simulate swap: %w", err)
	}
	defer c.bodyCloser(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return asset.Amount{}, fmt.Errorf("fail to simulate swap: %s", resp.Status)
	}

	var out simulateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return asset.Amount{}, fmt.Errorf("fail to decode simulate response: %w", err)
	}
	return out.Amount, nil
}
