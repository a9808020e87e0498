// Package verify resolves membership hits against an authoritative balance
// source and records them in per-outcome logs.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/screa/entropy-audit/pkg/types"
)

// DefaultEsploraURL is the public Blockstream API.
const DefaultEsploraURL = "https://blockstream.info/api"

// ErrStatus is wrapped when the balance endpoint answers with a non-200
// status.
var ErrStatus = errors.New("unexpected balance endpoint status")

// BalanceChecker returns the balance of an address in the chain's smallest
// unit.
type BalanceChecker interface {
	Balance(ctx context.Context, address string) (int64, error)
}

// EsploraClient queries an Esplora-compatible REST API.
type EsploraClient struct {
	baseURL string
	client  *http.Client
}

// NewEsploraClient returns a client for baseURL. Per-call deadlines come
// from the context passed to Balance.
func NewEsploraClient(baseURL string, client *http.Client) *EsploraClient {
	if baseURL == "" {
		baseURL = DefaultEsploraURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &EsploraClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type addressStats struct {
	ChainStats struct {
		FundedTxoSum int64 `json:"funded_txo_sum"`
		SpentTxoSum  int64 `json:"spent_txo_sum"`
	} `json:"chain_stats"`
}

// Balance returns the confirmed, unspent balance of address.
func (c *EsploraClient) Balance(ctx context.Context, address string) (int64, error) {
	u := fmt.Sprintf("%s/address/%s", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}
	var stats addressStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return 0, fmt.Errorf("decode balance: %w", err)
	}
	return stats.ChainStats.FundedTxoSum - stats.ChainStats.SpentTxoSum, nil
}

// Classify asks checker for the balance of address under a timeout and maps
// the answer to an outcome: an error is unverified, a positive balance is
// confirmed and zero is empty. It never retries.
func Classify(ctx context.Context, checker BalanceChecker, address string, timeout time.Duration) types.Verification {
	if checker == nil {
		return types.Verification{Outcome: types.OutcomeUnverified, Reason: "verification disabled"}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	balance, err := checker.Balance(ctx, address)
	switch {
	case err != nil:
		return types.Verification{Outcome: types.OutcomeUnverified, Reason: err.Error()}
	case balance > 0:
		return types.Verification{Outcome: types.OutcomeConfirmed, Balance: balance}
	default:
		return types.Verification{Outcome: types.OutcomeEmpty}
	}
}
