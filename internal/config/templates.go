package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Tradegate Configuration

[detector]
# Consecutive losses before a loss-streak trigger fires
loss_streak_medium = 2
loss_streak_high = 4
# Overtrading lookback window and trade counts
overtrading_window = "2h"
overtrading_medium = 6
overtrading_high = 10
# Window after a loss in which a same-symbol same-direction order
# counts as revenge trading
revenge_window = "10m"
# Trades averaged for the performance-dip rule and the low/medium boundary
performance_dip_trades = 3
performance_dip_low = -50.0

[cooldown]
# Minimum wait before a session may expire. Expiry does not release the
# block; completing exercises or skipping does.
duration = "20m"

[cooldown.exercises]
loss_streak = ["breathing", "journal"]
overtrading = ["breathing", "risk_visualization"]
revenge_trade = ["breathing", "past_mistakes", "journal"]
performance_dip = ["journal"]
unauthorized_trade = ["past_mistakes", "journal"]
outside_hours = ["journal"]
manual = ["breathing"]

[approval]
# How long an issued approval stays valid
window = "3m"

[scoring]
completed_delta = 2.0
skipped_delta = -5.0
executed_delta = 0.5
expired_delta = -1.0

[history]
# Lookback window for trigger detection
window = "24h"
# Journal store read timeout
read_timeout = "2s"

[server]
host = "127.0.0.1"
port = 8090
read_timeout = "10s"
write_timeout = "10s"
idle_timeout = "60s"

[notifications]
enabled = false
# Notification level: all, violations_only, errors_only
level = "violations_only"

[notifications.webhook]
enabled = false
url = ""

[log]
level = "info"
console = true
file = true
`

// createTemplateConfig writes a template config file for the user to edit.
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
