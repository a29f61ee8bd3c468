package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Treasury Controller Configuration

[controller]
# Backend mode: "live" or "sim"
mode = "sim"
# Tick cadence in seconds
tick_interval_seconds = 30
# Borrower identifiers the loop operates on, in order
borrowers = ["default"]
# Dollars withheld per bucket when repaying, so a bucket is never drained
gas_reserve = 5.0
# SQLite database path (defaults to the config directory)
database_path = ""

[policy]
# Operator overlay for the on-chain policy. Values left at zero fall back
# to the ledger contract, then to built-in safe constants.
ltv_bps = 0
min_health = 0.0
emergency_health = 0.0
target_health = 0.0
liquidity_min = 0.0
max_per_tx = 0.0
max_daily = 0.0
target_liquidity_bps = 0
target_reserve_bps = 0
volatility_threshold_pct = 0.0

[sim]
# Simulated backend seed state, used when mode = "sim"
collateral_tokens = 5.0
initial_debt = 0.0
oracle_price = 2000.0
liquidity = 1500.0
reserve = 3000.0
yield = 0.0
credit_facility = 50000.0

[notifications]
enabled = false
# Notification level: all, risk_only, errors_only
level = "risk_only"

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""
`

const credentialsTemplate = `# Treasury Controller Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[rail]
base_url = ""
api_key = ""
api_secret = ""
account_id = ""

[ledger]
rpc_url = ""
contract_address = ""
signer_key = ""

[oracle]
url = ""
source = "chainlink"
`

// createTemplateConfig writes a template config.toml to the config directory.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

// createTemplateCredentials writes a template credentials.toml with 0600 perms.
func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}
