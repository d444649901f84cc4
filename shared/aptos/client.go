// Package aptos is a minimal REST client for an Aptos-compatible fullnode
// (Movement Bedrock testnet). It covers the two endpoints the payment flow
// needs: transaction lookup by hash and the ledger info connectivity probe.
package aptos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrTransactionNotFound is returned when the fullnode has no transaction for
// the requested hash. The transaction may simply not be on chain yet.
var ErrTransactionNotFound = errors.New("transaction not found")

// Config holds fullnode client configuration
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Client talks to an Aptos fullnode REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new fullnode client
func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// TransactionByHash fetches a transaction from the fullnode by its hash.
// Returns ErrTransactionNotFound when the node responds 404.
func (c *Client) TransactionByHash(ctx context.Context, txHash string) (*Transaction, error) {
	url := fmt.Sprintf("%s/transactions/by_hash/%s", c.baseURL, txHash)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var tx Transaction
		if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		return &tx, nil

	case http.StatusNotFound:
		return nil, ErrTransactionNotFound

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Unexpected fullnode response",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return nil, fmt.Errorf("fullnode returned status %d", resp.StatusCode)
	}
}

// LedgerInfo fetches chain metadata from the fullnode
func (c *Client) LedgerInfo(ctx context.Context) (*LedgerInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fullnode returned status %d", resp.StatusCode)
	}

	var info LedgerInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode ledger info: %w", err)
	}

	return &info, nil
}

// Connected reports whether the fullnode is reachable
func (c *Client) Connected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.LedgerInfo(ctx)
	return err == nil
}
