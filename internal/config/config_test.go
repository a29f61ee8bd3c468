package config

import (
	"testing"

	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
)

func TestMergePolicyPrecedence(t *testing.T) {
	cfg := &Config{
		Policy: PolicyOverlay{
			MinHealth: 1.6,
			MaxPerTx:  2500,
		},
	}

	contract := models.Policy{
		LTVBps:       5000,
		MinHealthBps: 13000,
		MaxPerTx:     money.FromDollars(8000),
	}

	p := cfg.MergePolicy(contract)

	// Contract beats defaults.
	if p.LTVBps != 5000 {
		t.Errorf("LTVBps = %d, want contract 5000", p.LTVBps)
	}
	// Overlay beats contract.
	if p.MinHealthBps != 16000 {
		t.Errorf("MinHealthBps = %d, want overlay 16000", p.MinHealthBps)
	}
	if p.MaxPerTx != money.FromDollars(2500) {
		t.Errorf("MaxPerTx = %s, want overlay $2500", p.MaxPerTx)
	}
	// Untouched fields fall back to defaults.
	if p.TargetHealthBps != 15000 {
		t.Errorf("TargetHealthBps = %d, want default 15000", p.TargetHealthBps)
	}
	if p.LiquidityMin != money.FromDollars(500) {
		t.Errorf("LiquidityMin = %s, want default $500", p.LiquidityMin)
	}
}

func TestMergePolicyZeroContractUsesDefaults(t *testing.T) {
	cfg := &Config{}
	p := cfg.MergePolicy(models.Policy{})
	def := models.DefaultPolicy()
	if p != def {
		t.Errorf("MergePolicy(zero) = %+v, want defaults %+v", p, def)
	}
}

func TestValidateRejectsInvertedThresholds(t *testing.T) {
	cfg := &Config{
		Controller: ControllerConfig{Mode: "sim", TickIntervalSeconds: 30},
		Policy: PolicyOverlay{
			MinHealth:       1.3,
			EmergencyHealth: 1.5,
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("emergency above minimum should fail validation")
	}
}

func TestValidateLiveModeRequiresCredentials(t *testing.T) {
	cfg := &Config{
		Controller: ControllerConfig{Mode: "live", TickIntervalSeconds: 30},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("live mode without credentials should fail validation")
	}

	cfg.Credentials.Rail.APIKey = "key"
	cfg.Credentials.Rail.BaseURL = "https://custody.example.com"
	cfg.Credentials.Ledger.RPCURL = "https://bridge.example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("live mode with credentials should validate, got %v", err)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := &Config{Controller: ControllerConfig{Mode: "paper", TickIntervalSeconds: 30}}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown mode should fail validation")
	}
}
