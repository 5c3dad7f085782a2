package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/fystack/settlement-engine/pkg/common/config"
	"github.com/fystack/settlement-engine/pkg/events"
	"github.com/fystack/settlement-engine/pkg/kvstore"
)

// Engine is the settlement core. Every operation runs inside a single store
// transaction: it validates fully, then mutates, and any error discards all
// writes. Events are emitted only after the transaction commits.
type Engine struct {
	store   *kvstore.Store
	clock   EpochClock
	emitter events.Emitter
}

func New(store *kvstore.Store, clock EpochClock, emitter events.Emitter) *Engine {
	return &Engine{store: store, clock: clock, emitter: emitter}
}

// Bootstrap seeds the persisted settings and treasury from the config file.
// Idempotent: an already-bootstrapped store is left untouched, so config file
// edits never silently override admin operations.
func (e *Engine) Bootstrap(cfg config.EngineConfig) error {
	et := e.clock.Now()
	return e.store.Update(func(tx *kvstore.Txn) error {
		var existing Settings
		found, err := tx.Get(settingsKey, &existing)
		if err != nil {
			return err
		}
		if found {
			return nil
		}

		settings := Settings{
			Authority:          cfg.Authority,
			BaseFeeBps:         cfg.BaseFeeBps,
			MinFeeBps:          cfg.MinFeeBps,
			RolloverFeeStepBps: cfg.RolloverFeeStepBps,
			StakeCutoffTicks:   cfg.StakeCutoffTicks,
			StartedAt:          time.Now().UTC().Unix(),
			StartedEpoch:       et.Epoch,
		}
		for _, t := range cfg.Tiers {
			settings.Tiers = append(settings.Tiers, TierSettings{
				ID:                  t.ID,
				MinStake:            t.MinStake,
				MaxStake:            t.MaxStake,
				TicketRewardBps:     t.TicketRewardBps,
				TicketRewardMax:     t.TicketRewardMax,
				TicketsPerRecipient: t.TicketsPerRecipient,
			})
		}
		if err := tx.Insert(settingsKey, &settings); err != nil {
			return err
		}
		return tx.Insert(treasuryKey, &Treasury{})
	})
}

func getSettings(tx *kvstore.Txn) (*Settings, error) {
	var s Settings
	found, err := tx.Get(settingsKey, &s)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("settings: %w", kvstore.ErrKeyNotFound)
	}
	return &s, nil
}

func getTreasury(tx *kvstore.Txn) (*Treasury, error) {
	var t Treasury
	found, err := tx.Get(treasuryKey, &t)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("treasury: %w", kvstore.ErrKeyNotFound)
	}
	return &t, nil
}

func getPool(tx *kvstore.Txn, tier uint8) (*Pool, error) {
	var p Pool
	found, err := tx.Get(poolKey(tier), &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("pool for tier %d: %w", tier, ErrInactiveTier)
	}
	return &p, nil
}

func (s *Settings) requireAuthority(caller string) error {
	if caller == "" || caller != s.Authority {
		return ErrUnauthorized
	}
	return nil
}

// insertErr maps the store's duplicate-key error to a domain sentinel.
func insertErr(err, duplicate error) error {
	if errors.Is(err, kvstore.ErrKeyExists) {
		return duplicate
	}
	return err
}

// --- read-only queries ---

func (e *Engine) GetSettings() (*Settings, error) {
	var out *Settings
	err := e.store.View(func(tx *kvstore.Txn) error {
		s, err := getSettings(tx)
		out = s
		return err
	})
	return out, err
}

func (e *Engine) GetTreasury() (*Treasury, error) {
	var out *Treasury
	err := e.store.View(func(tx *kvstore.Txn) error {
		t, err := getTreasury(tx)
		out = t
		return err
	})
	return out, err
}

func (e *Engine) GetPool(tier uint8) (*Pool, error) {
	var out *Pool
	err := e.store.View(func(tx *kvstore.Txn) error {
		p, err := getPool(tx, tier)
		out = p
		return err
	})
	return out, err
}

func (e *Engine) GetRound(epoch uint64, tier uint8) (*Round, error) {
	var r Round
	err := e.store.View(func(tx *kvstore.Txn) error {
		found, err := tx.Get(roundKey(epoch, tier), &r)
		if err != nil {
			return err
		}
		if !found {
			return ErrRoundNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (e *Engine) GetPrediction(player string, chainEpoch uint64, tier uint8) (*Prediction, error) {
	var p Prediction
	err := e.store.View(func(tx *kvstore.Txn) error {
		found, err := tx.Get(predictionKey(player, chainEpoch, tier), &p)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("prediction: %w", kvstore.ErrKeyNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (e *Engine) GetProfile(player string) (*Profile, error) {
	var p Profile
	err := e.store.View(func(tx *kvstore.Txn) error {
		found, err := tx.Get(profileKey(player), &p)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("profile: %w", kvstore.ErrKeyNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
