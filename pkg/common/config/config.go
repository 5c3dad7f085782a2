package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/imdario/mergo"
)

var validate = validator.New()

type Config struct {
	Environment string       `yaml:"environment" validate:"required,oneof=production development"`
	NATS        NatsConfig   `yaml:"nats"        validate:"required"`
	Badger      BadgerConfig `yaml:"badger"      validate:"required"`
	Engine      EngineConfig `yaml:"engine"      validate:"required"`
}

type NatsConfig struct {
	URL           string    `yaml:"url"            validate:"required"`
	SubjectPrefix string    `yaml:"subject_prefix" validate:"required"`
	Username      string    `yaml:"username"`
	Password      string    `yaml:"password"`
	TLS           TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
	CACert     string `yaml:"ca_cert"`
}

type BadgerConfig struct {
	Directory string `yaml:"directory" validate:"required"`
	Prefix    string `yaml:"prefix"`
}

// EngineConfig carries the settlement parameters applied when the engine is
// bootstrapped. After bootstrap the persisted settings are authoritative;
// changes go through the admin operations, not this file.
type EngineConfig struct {
	Authority          string        `yaml:"authority"             validate:"required"`
	BaseFeeBps         uint16        `yaml:"base_fee_bps"          validate:"required,max=10000"`
	MinFeeBps          uint16        `yaml:"min_fee_bps"           validate:"max=10000"`
	RolloverFeeStepBps uint16        `yaml:"rollover_fee_step_bps"`
	StakeCutoffTicks   uint64        `yaml:"stake_cutoff_ticks"    validate:"required,min=21"`
	GenesisUnix        int64         `yaml:"genesis_unix"          validate:"required"`
	TicksPerEpoch      uint64        `yaml:"ticks_per_epoch"       validate:"required,min=1"`
	TickIntervalMillis uint64        `yaml:"tick_interval_millis"  validate:"required,min=1"`
	TierDefaults       TierConfig    `yaml:"tier_defaults"`
	Tiers              []TierConfig  `yaml:"tiers"                 validate:"required,min=1,max=5,dive"`
}

type TierConfig struct {
	ID                  uint8  `yaml:"id"                    validate:"required,min=1,max=5"`
	MinStake            uint64 `yaml:"min_stake"`
	MaxStake            uint64 `yaml:"max_stake"`
	TicketRewardBps     uint16 `yaml:"ticket_reward_bps"`
	TicketRewardMax     uint16 `yaml:"ticket_reward_max"`
	TicketsPerRecipient uint8  `yaml:"tickets_per_recipient"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	// merge tier defaults
	for i := range cfg.Engine.Tiers {
		if err := mergo.Merge(&cfg.Engine.Tiers[i], cfg.Engine.TierDefaults); err != nil {
			return cfg, err
		}
	}

	// validate
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("struct validation failed: %w", err)
	}
	if err := cfg.Engine.checkFeeBounds(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (e EngineConfig) checkFeeBounds() error {
	if e.MinFeeBps > e.BaseFeeBps {
		return fmt.Errorf("min_fee_bps %d exceeds base_fee_bps %d", e.MinFeeBps, e.BaseFeeBps)
	}
	for _, t := range e.Tiers {
		if t.MaxStake == 0 || t.MinStake > t.MaxStake {
			return fmt.Errorf("tier %d: invalid stake bounds [%d, %d]", t.ID, t.MinStake, t.MaxStake)
		}
	}
	return nil
}
