package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validConfig = `
environment: development
nats:
  url: nats://127.0.0.1:4222
  subject_prefix: ic42n
badger:
  directory: /tmp/settlement
engine:
  authority: resolver-authority
  base_fee_bps: 500
  min_fee_bps: 100
  rollover_fee_step_bps: 100
  stake_cutoff_ticks: 150
  genesis_unix: 1735689600
  ticks_per_epoch: 432000
  tick_interval_millis: 400
  tier_defaults:
    ticket_reward_bps: 1000
    tickets_per_recipient: 1
  tiers:
    - id: 1
      min_stake: 1000
      max_stake: 100000
    - id: 2
      min_stake: 100000
      max_stake: 1000000
      tickets_per_recipient: 2
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, uint16(500), cfg.Engine.BaseFeeBps)
	require.Len(t, cfg.Engine.Tiers, 2)

	// defaults merged into tiers that did not set the field
	assert.Equal(t, uint8(1), cfg.Engine.Tiers[0].TicketsPerRecipient)
	assert.Equal(t, uint16(1000), cfg.Engine.Tiers[0].TicketRewardBps)
	// explicit values win over defaults
	assert.Equal(t, uint8(2), cfg.Engine.Tiers[1].TicketsPerRecipient)
}

func TestLoadRejectsMinFeeAboveBase(t *testing.T) {
	body := `
environment: development
nats:
  url: nats://127.0.0.1:4222
  subject_prefix: ic42n
badger:
  directory: /tmp/settlement
engine:
  authority: a
  base_fee_bps: 100
  min_fee_bps: 500
  stake_cutoff_ticks: 150
  genesis_unix: 1735689600
  ticks_per_epoch: 432000
  tick_interval_millis: 400
  tiers:
    - id: 1
      min_stake: 1
      max_stake: 100
`
	_, err := Load(writeConfig(t, body))
	assert.ErrorContains(t, err, "min_fee_bps")
}

func TestLoadRejectsBadTierBounds(t *testing.T) {
	body := `
environment: development
nats:
  url: nats://127.0.0.1:4222
  subject_prefix: ic42n
badger:
  directory: /tmp/settlement
engine:
  authority: a
  base_fee_bps: 100
  stake_cutoff_ticks: 150
  genesis_unix: 1735689600
  ticks_per_epoch: 432000
  tick_interval_millis: 400
  tiers:
    - id: 1
      min_stake: 100
      max_stake: 1
`
	_, err := Load(writeConfig(t, body))
	assert.ErrorContains(t, err, "stake bounds")
}

func TestLoadRejectsShortCutoff(t *testing.T) {
	body := `
environment: development
nats:
  url: nats://127.0.0.1:4222
  subject_prefix: ic42n
badger:
  directory: /tmp/settlement
engine:
  authority: a
  base_fee_bps: 100
  stake_cutoff_ticks: 5
  genesis_unix: 1735689600
  ticks_per_epoch: 432000
  tick_interval_millis: 400
  tiers:
    - id: 1
      min_stake: 1
      max_stake: 100
`
	_, err := Load(writeConfig(t, body))
	assert.Error(t, err)
}
