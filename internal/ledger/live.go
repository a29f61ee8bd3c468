package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	apperrors "treasury-agent/internal/errors"
	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
	"treasury-agent/pkg/utils"
)

// LiveLedger talks to the ledger contract through an RPC bridge service.
// The bridge owns signing and gas handling; this client only exchanges
// JSON method calls.
type LiveLedger struct {
	rpcURL   string
	contract string
	signer   string
	client   *http.Client
	retry    utils.RetryConfig
}

// LiveLedgerConfig holds configuration for the live ledger client.
type LiveLedgerConfig struct {
	RPCURL          string
	ContractAddress string
	SignerKey       string
	Timeout         time.Duration
}

// NewLiveLedger creates a ledger client for the given RPC bridge.
func NewLiveLedger(cfg LiveLedgerConfig) (*LiveLedger, error) {
	if cfg.RPCURL == "" {
		return nil, apperrors.ErrLedgerUnavailable
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &LiveLedger{
		rpcURL:   cfg.RPCURL,
		contract: cfg.ContractAddress,
		signer:   cfg.SignerKey,
		client:   &http.Client{Timeout: timeout},
		retry:    utils.DefaultRetryConfig(),
	}, nil
}

type rpcRequest struct {
	Method   string                 `json:"method"`
	Contract string                 `json:"contract,omitempty"`
	Params   map[string]interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	TxRef  string          `json:"tx_ref"`
	Error  string          `json:"error"`
}

// call posts a method to the bridge with retry on transient failures.
func (l *LiveLedger) call(ctx context.Context, method string, params map[string]interface{}) (*rpcResponse, error) {
	body, err := json.Marshal(rpcRequest{Method: method, Contract: l.contract, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", method, err)
	}

	return utils.RetryWithResult(ctx, l.retry, func() (*rpcResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.rpcURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if l.signer != "" {
			req.Header.Set("X-Signer-Key", l.signer)
		}

		resp, err := l.client.Do(req)
		if err != nil {
			return nil, apperrors.NewLedgerError(method, "", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, apperrors.NewLedgerError(method, "", fmt.Errorf("bridge returned %d", resp.StatusCode))
		}

		var out rpcResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, apperrors.NewLedgerError(method, "", err)
		}
		if out.Error != "" {
			return nil, apperrors.NewLedgerError(method, "", fmt.Errorf("%s", out.Error))
		}
		return &out, nil
	})
}

type userStateWire struct {
	Collateral string `json:"collateral"` // 18-decimal, decimal string
	DebtMicros int64  `json:"debt_micros"`
}

// GetUserState fetches a borrower's collateral and debt.
func (l *LiveLedger) GetUserState(ctx context.Context, borrowerID string) (UserState, error) {
	resp, err := l.call(ctx, "getUserState", map[string]interface{}{"borrower": borrowerID})
	if err != nil {
		return UserState{}, err
	}

	var wire userStateWire
	if err := json.Unmarshal(resp.Result, &wire); err != nil {
		return UserState{}, apperrors.NewLedgerError("getUserState", borrowerID, err)
	}

	collateral, ok := new(big.Int).SetString(wire.Collateral, 10)
	if !ok {
		return UserState{}, apperrors.NewLedgerError("getUserState", borrowerID,
			fmt.Errorf("bad collateral amount %q", wire.Collateral))
	}

	return UserState{
		BorrowerID: borrowerID,
		Collateral: collateral,
		Debt:       money.FromMicros(wire.DebtMicros),
	}, nil
}

type policyWire struct {
	LTVBps                 int64   `json:"ltv_bps"`
	MinHealthBps           int64   `json:"min_health_bps"`
	EmergencyHealthBps     int64   `json:"emergency_health_bps"`
	TargetHealthBps        int64   `json:"target_health_bps"`
	LiquidityMinMicros     int64   `json:"liquidity_min_micros"`
	MaxPerTxMicros         int64   `json:"max_per_tx_micros"`
	MaxDailyMicros         int64   `json:"max_daily_micros"`
	TargetLiquidityBps     int64   `json:"target_liquidity_bps"`
	TargetReserveBps       int64   `json:"target_reserve_bps"`
	VolatilityThresholdPct float64 `json:"volatility_threshold_pct"`
}

// GetPolicy fetches the contract policy. Zero fields mean unset.
func (l *LiveLedger) GetPolicy(ctx context.Context) (models.Policy, error) {
	resp, err := l.call(ctx, "getPolicy", nil)
	if err != nil {
		return models.Policy{}, err
	}

	var wire policyWire
	if err := json.Unmarshal(resp.Result, &wire); err != nil {
		return models.Policy{}, apperrors.NewLedgerError("getPolicy", "", err)
	}

	return models.Policy{
		LTVBps:                 wire.LTVBps,
		MinHealthBps:           wire.MinHealthBps,
		EmergencyHealthBps:     wire.EmergencyHealthBps,
		TargetHealthBps:        wire.TargetHealthBps,
		LiquidityMin:           money.FromMicros(wire.LiquidityMinMicros),
		MaxPerTx:               money.FromMicros(wire.MaxPerTxMicros),
		MaxDaily:               money.FromMicros(wire.MaxDailyMicros),
		TargetLiquidityBps:     wire.TargetLiquidityBps,
		TargetReserveBps:       wire.TargetReserveBps,
		VolatilityThresholdPct: wire.VolatilityThresholdPct,
	}, nil
}

// SetOracleSnapshot pushes the observed price to the contract's snapshot slot.
func (l *LiveLedger) SetOracleSnapshot(ctx context.Context, price float64, ts time.Time) error {
	_, err := l.call(ctx, "setOracleSnapshot", map[string]interface{}{
		"price":        price,
		"timestamp_ms": ts.UnixMilli(),
	})
	return err
}

// RecordBorrow records a borrow against the credit facility.
func (l *LiveLedger) RecordBorrow(ctx context.Context, borrowerID string, amount money.Money6) (string, error) {
	resp, err := l.call(ctx, "recordBorrow", map[string]interface{}{
		"borrower":      borrowerID,
		"amount_micros": amount.Micros(),
	})
	if err != nil {
		return "", err
	}
	return resp.TxRef, nil
}

// RecordRepay records a repayment.
func (l *LiveLedger) RecordRepay(ctx context.Context, borrowerID string, amount money.Money6) (string, error) {
	resp, err := l.call(ctx, "recordRepay", map[string]interface{}{
		"borrower":      borrowerID,
		"amount_micros": amount.Micros(),
	})
	if err != nil {
		return "", err
	}
	return resp.TxRef, nil
}

// RecordRebalance records a bucket-to-bucket move.
func (l *LiveLedger) RecordRebalance(ctx context.Context, borrowerID string, from, to models.Bucket, amount money.Money6) (string, error) {
	resp, err := l.call(ctx, "recordRebalance", map[string]interface{}{
		"borrower":      borrowerID,
		"from":          string(from),
		"to":            string(to),
		"amount_micros": amount.Micros(),
	})
	if err != nil {
		return "", err
	}
	return resp.TxRef, nil
}

// RecordPayment records an external payment release.
func (l *LiveLedger) RecordPayment(ctx context.Context, borrowerID, recipient string, amount money.Money6) (string, error) {
	resp, err := l.call(ctx, "recordPayment", map[string]interface{}{
		"borrower":      borrowerID,
		"recipient":     recipient,
		"amount_micros": amount.Micros(),
	})
	if err != nil {
		return "", err
	}
	return resp.TxRef, nil
}

// LogDecision records an audit entry for a tick decision.
func (l *LiveLedger) LogDecision(ctx context.Context, snapshotJSON []byte, actionTag, rationaleHash string) (string, error) {
	resp, err := l.call(ctx, "logDecision", map[string]interface{}{
		"snapshot":       json.RawMessage(snapshotJSON),
		"action":         actionTag,
		"rationale_hash": rationaleHash,
	})
	if err != nil {
		return "", err
	}
	return resp.TxRef, nil
}

// Ensure LiveLedger implements the Ledger interface
var _ Ledger = (*LiveLedger)(nil)
