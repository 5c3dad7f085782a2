package events

import (
	"encoding/json"
	"time"

	"github.com/fystack/settlement-engine/pkg/common/logger"
	"github.com/fystack/settlement-engine/pkg/retry"
	"github.com/nats-io/nats.go"
)

const (
	TypeStakePlaced      = "stake_placed"
	TypeStakeIncreased   = "stake_increased"
	TypeSelectionChanged = "selection_changed"
	TypeRoundInitialized = "round_initialized"
	TypeRoundFinalized   = "round_finalized"
	TypeRoundRolledOver  = "round_rolled_over"
	TypeClaimPaid        = "claim_paid"
)

type SettlementEvent struct {
	Type      string `json:"type"`
	Epoch     uint64 `json:"epoch"`
	Tier      uint8  `json:"tier"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type Emitter interface {
	Emit(event SettlementEvent)
	Close()
}

type natsEmitter struct {
	nc            *nats.Conn
	subjectPrefix string
}

func NewEmitter(nc *nats.Conn, subjectPrefix string) Emitter {
	return &natsEmitter{
		nc:            nc,
		subjectPrefix: subjectPrefix,
	}
}

// Emit publishes the event, retrying transient NATS failures. Events are
// observability output; a publish failure is logged and never propagated
// back into the settlement transaction that produced it.
func (e *natsEmitter) Emit(event SettlementEvent) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UTC().Unix()
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Marshal settlement event failed", "type", event.Type, "err", err)
		return
	}

	subject := e.subjectPrefix + ".settlement." + event.Type
	err = retry.Constant(func() error {
		return e.nc.Publish(subject, data)
	}, retry.DefaultInterval, retry.DefaultMaxAttempts)
	if err != nil {
		logger.Error("Emit settlement event failed", "subject", subject, "err", err)
	}
}

func (e *natsEmitter) Close() {
	if e.nc != nil {
		e.nc.Flush()
	}
}

// NopEmitter discards events. Used when the daemon runs without NATS and by
// tests.
type NopEmitter struct{}

func (NopEmitter) Emit(SettlementEvent) {}
func (NopEmitter) Close()               {}
