package rail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "treasury-agent/internal/errors"
	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
	"treasury-agent/pkg/utils"
)

// LiveRail talks to a custody provider's HTTP API.
type LiveRail struct {
	baseURL   string
	apiKey    string
	apiSecret string
	accountID string
	client    *http.Client
	retry     utils.RetryConfig
}

// LiveRailConfig holds configuration for the live rail client.
type LiveRailConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	AccountID string
	Timeout   time.Duration
}

// NewLiveRail creates a custody API client.
func NewLiveRail(cfg LiveRailConfig) (*LiveRail, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, apperrors.ErrRailUnavailable
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &LiveRail{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		accountID: cfg.AccountID,
		client:    &http.Client{Timeout: timeout},
		retry:     utils.DefaultRetryConfig(),
	}, nil
}

func (r *LiveRail) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding rail request: %w", err)
		}
	}

	return utils.Retry(ctx, r.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", r.apiKey)
		req.Header.Set("X-API-Secret", r.apiSecret)

		resp, err := r.client.Do(req)
		if err != nil {
			return apperrors.NewRailError(method, path, "", "", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return apperrors.NewRailError(method, path, "", "",
				fmt.Errorf("custody API returned %d", resp.StatusCode))
		}
		if out != nil {
			return json.NewDecoder(resp.Body).Decode(out)
		}
		return nil
	})
}

type balanceResponse struct {
	BalanceMicros int64 `json:"balance_micros"`
}

// Balance returns one bucket's balance.
func (r *LiveRail) Balance(ctx context.Context, bucket models.Bucket) (money.Money6, error) {
	var out balanceResponse
	path := fmt.Sprintf("/v1/accounts/%s/buckets/%s", r.accountID, bucket)
	if err := r.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return money.FromMicros(out.BalanceMicros), nil
}

// Balances returns the three cash bucket balances.
func (r *LiveRail) Balances(ctx context.Context) (models.BucketBalances, error) {
	var balances models.BucketBalances

	liq, err := r.Balance(ctx, models.BucketLiquidity)
	if err != nil {
		return balances, err
	}
	res, err := r.Balance(ctx, models.BucketReserve)
	if err != nil {
		return balances, err
	}
	yld, err := r.Balance(ctx, models.BucketYield)
	if err != nil {
		return balances, err
	}

	balances.Liquidity = liq
	balances.Reserve = res
	balances.Yield = yld
	return balances, nil
}

type transferRequest struct {
	From         string `json:"from"`
	To           string `json:"to"`
	AmountMicros int64  `json:"amount_micros"`
}

type transferResponse struct {
	Ref string `json:"ref"`
}

// Transfer moves funds between buckets or out to an external recipient.
func (r *LiveRail) Transfer(ctx context.Context, from models.Bucket, to string, amount money.Money6) (string, error) {
	if amount <= 0 {
		return "", apperrors.NewRailError("transfer", string(from), to, amount.String(),
			fmt.Errorf("amount must be positive"))
	}

	var out transferResponse
	path := fmt.Sprintf("/v1/accounts/%s/transfers", r.accountID)
	req := transferRequest{From: string(from), To: to, AmountMicros: amount.Micros()}
	if err := r.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return "", err
	}
	return out.Ref, nil
}

// Ensure LiveRail implements the Rail interface
var _ Rail = (*LiveRail)(nil)
