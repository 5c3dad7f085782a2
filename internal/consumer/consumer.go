package consumer

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fystack/settlement-engine/internal/engine"
	"github.com/fystack/settlement-engine/pkg/common/logger"
	"github.com/fystack/settlement-engine/pkg/infra"
)

// ConsumerName is the durable JetStream consumer identity; command subjects
// are <queue>.<ConsumerName>.<command>.
const ConsumerName = "engine"

// Command subjects (the last token of the full subject).
const (
	CmdInitRound    = "init_round"
	CmdReprocess    = "reprocess_round"
	CmdFinalize     = "finalize_round"
	CmdRollover     = "rollover_round"
	CmdAwardTickets = "award_tickets"
)

// Command is the wire envelope for resolver commands. Hash-sized fields
// travel as hex strings; the results pointer as UTF-8, padded to its fixed
// width on decode.
type Command struct {
	Epoch         uint64 `json:"epoch"`
	Tier          uint8  `json:"tier"`
	WinningNumber uint8  `json:"winning_number,omitempty"`
	RngTick       uint64 `json:"rng_tick,omitempty"`
	RngSeed       string `json:"rng_seed,omitempty"`

	ProtocolFee    uint64 `json:"protocol_fee,omitempty"`
	NetPrizePool   uint64 `json:"net_prize_pool,omitempty"`
	TotalWinners   uint32 `json:"total_winners,omitempty"`
	MerkleRoot     string `json:"merkle_root,omitempty"`
	ResultsPointer string `json:"results_pointer,omitempty"`

	Player  string `json:"player,omitempty"`
	Tickets uint32 `json:"tickets,omitempty"`
}

// Consumer dequeues resolver commands and applies them to the engine.
// Commands are processed one at a time (MaxAckPending=1): settlement is
// strictly ordered per stream, so a failed command blocks its successors
// instead of racing them.
type Consumer struct {
	engine    *engine.Engine
	queue     infra.MessageQueue
	authority string
}

func New(eng *engine.Engine, queue infra.MessageQueue, authority string) *Consumer {
	return &Consumer{engine: eng, queue: queue, authority: authority}
}

// Start begins consuming. Domain rejections are acked and logged - they are
// deterministic and redelivery cannot fix them. Everything else (store I/O,
// decode of a truncated message) is nacked for redelivery.
func (c *Consumer) Start() error {
	return c.queue.Dequeue(func(subject string, message []byte) error {
		cmd := subject[strings.LastIndex(subject, ".")+1:]
		err := c.handle(cmd, message)
		if err == nil {
			return nil
		}
		if isDomainRejection(err) {
			logger.Warn("Command rejected", "command", cmd, "err", err)
			return nil
		}
		return err
	})
}

func (c *Consumer) Stop() {
	c.queue.Close()
}

func (c *Consumer) handle(cmd string, message []byte) error {
	var body Command
	if err := json.Unmarshal(message, &body); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}

	switch cmd {
	case CmdInitRound:
		seed, err := decodeHash32(body.RngSeed)
		if err != nil {
			return err
		}
		_, err = c.engine.InitRound(engine.InitRoundParams{
			Authority:     c.authority,
			Epoch:         body.Epoch,
			Tier:          body.Tier,
			WinningNumber: body.WinningNumber,
			RngTick:       body.RngTick,
			RngSeed:       seed,
		})
		return err

	case CmdReprocess:
		_, err := c.engine.ReprocessRound(c.authority, body.Epoch, body.Tier)
		return err

	case CmdFinalize:
		root, err := decodeHash32(body.MerkleRoot)
		if err != nil {
			return err
		}
		pointer, err := decodePointer(body.ResultsPointer)
		if err != nil {
			return err
		}
		_, err = c.engine.FinalizeRound(engine.FinalizeRoundParams{
			Authority:      c.authority,
			Epoch:          body.Epoch,
			Tier:           body.Tier,
			ProtocolFee:    body.ProtocolFee,
			NetPrizePool:   body.NetPrizePool,
			TotalWinners:   body.TotalWinners,
			MerkleRoot:     root,
			ResultsPointer: pointer,
		})
		return err

	case CmdRollover:
		seed, err := decodeHash32(body.RngSeed)
		if err != nil {
			return err
		}
		_, err = c.engine.RolloverRound(engine.RolloverRoundParams{
			Authority:     c.authority,
			Epoch:         body.Epoch,
			Tier:          body.Tier,
			WinningNumber: body.WinningNumber,
			RngTick:       body.RngTick,
			RngSeed:       seed,
		})
		return err

	case CmdAwardTickets:
		if body.Tickets > 0 {
			return c.engine.GrantTickets(c.authority, body.Player, body.Tickets)
		}
		return c.engine.AwardTierTickets(c.authority, body.Player, body.Tier)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func decodeHash32(s string) ([32]byte, error) {
	var out [32]byte
	if s == "" {
		return out, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("decode hash: %w", err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("decode hash: want 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

func decodePointer(s string) ([engine.ResultsPointerLen]byte, error) {
	var out [engine.ResultsPointerLen]byte
	if len(s) > engine.ResultsPointerLen {
		return out, fmt.Errorf("results pointer longer than %d bytes", engine.ResultsPointerLen)
	}
	copy(out[:], s)
	return out, nil
}

// isDomainRejection reports whether the engine refused the command for a
// reason redelivery cannot change. ErrRoundExists in particular is the
// normal outcome of an idempotent redelivery and must not poison the stream.
func isDomainRejection(err error) bool {
	for _, sentinel := range []error{
		engine.ErrUnauthorized,
		engine.ErrEpochMismatch,
		engine.ErrTierMismatch,
		engine.ErrUnknownTier,
		engine.ErrInactiveTier,
		engine.ErrRoundExists,
		engine.ErrRoundNotFound,
		engine.ErrRoundSettled,
		engine.ErrRoundNotSettling,
		engine.ErrEpochNotComplete,
		engine.ErrNoStakesToSettle,
		engine.ErrInvalidWinningNumber,
		engine.ErrEmptyResultsPointer,
		engine.ErrFeeMismatch,
		engine.ErrPotMismatch,
		engine.ErrInvalidCarryOver,
		engine.ErrCarryNotAllowed,
		engine.ErrTooManyWinners,
		engine.ErrInvalidTicketGrant,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
