package explore

import (
	"context"
	"errors"

	"myrmex/internal/model"
)

// ErrProtocol marks a malformed or unexpected inter-process message. It is
// fatal for the run: all processes must stay in lock-step, so no partial
// recovery is attempted.
var ErrProtocol = errors.New("explore: protocol failure")

// Dispatch is one root-to-worker workload message: either a shard to
// evaluate this generation, or a stop notice ending the run. Reason is set
// on stop notices only.
type Dispatch struct {
	Stop   bool
	Reason model.StopReason
	Shard  []string
}

// Transport is the process-group capability the coordinator runs on:
// point-to-point dispatch, a variable-count gather into the root, and a
// root-to-all broadcast. The blocking calls are the only suspension points
// of a run; cancellation is cooperative through the context and is observed
// only at these calls.
//
// Rank 0 is the root. Implementations must deliver gathered records in rank
// order so the root can reassemble the global population order.
type Transport interface {
	Rank() int
	Size() int

	// SendDispatch is called by the root only.
	SendDispatch(ctx context.Context, to int, d Dispatch) error

	// RecvDispatch is called by workers only.
	RecvDispatch(ctx context.Context) (Dispatch, error)

	// GatherRecords collects every rank's variable-length record list at
	// the root, contiguously in rank order. The root passes its own local
	// records plus the expected per-rank counts and receives the
	// reassembled sequence; workers pass their records with nil counts and
	// receive nil.
	GatherRecords(ctx context.Context, local []model.GenerationRecord, counts []int) ([]model.GenerationRecord, error)

	// BroadcastFlag distributes the root's termination flag. Every rank
	// returns the root's value; the call acts as a full barrier at the
	// generation boundary.
	BroadcastFlag(ctx context.Context, flag bool) (bool, error)
}
