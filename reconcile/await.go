package reconcile

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/psetup/psetup/resource"
)

// OperationStatus is the observed state of a long-running operation.
// Transitions only move forward; an operation never resurrects a prior
// state. A poll payload that drops the completion flag after it has been
// seen keeps the last known status.
type OperationStatus int

// Operation statuses, in transition order.
const (
	StatusUnknown OperationStatus = iota
	Running
	DoneOK
	DoneError
)

// String implements fmt.Stringer.
func (s OperationStatus) String() string {
	switch s {
	case Running:
		return "running"
	case DoneOK:
		return "done"
	case DoneError:
		return "error"
	default:
		return "unknown"
	}
}

// Default poll parameters, matching the remote APIs' recommended cadence.
const (
	DefaultPeriod  = 5 * time.Second
	DefaultTimeout = 60 * time.Second
)

// An Awaiter polls a long-running operation to a terminal state.
//
// The wait is split into two independently timed phases: first until the
// operation payload carries a completion flag at all, then until the flag
// becomes true. Each phase is bounded by ceil(Timeout/Period) polls, so the
// worst case wall time per operation is roughly twice the timeout.
type Awaiter struct {
	// Period is the interval between two consecutive polls. Defaults to
	// DefaultPeriod.
	Period time.Duration

	// Timeout bounds each phase of the wait. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Sleep is called between polls. If not set, time.Sleep is used.
	// Tests replace it to make the poll loop deterministic.
	Sleep func(time.Duration)

	// Logger logs poll progress. If not set, logs are discarded.
	Logger *zap.Logger
}

// Await drives op to a terminal state and returns the resulting resource.
//
// An initial payload that is already done is classified immediately,
// without sleeping. The caller's context is checked between iterations,
// never mid-sleep; cancellation returns a CancelledError, distinct from
// the timeout errors.
func (w *Awaiter) Await(ctx context.Context, a OperationPoller, id resource.Identity, op Operation) (*Candidate, error) {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("kind", a.Kind()), zap.Stringer("identity", id))

	period := w.Period
	if period == 0 {
		period = DefaultPeriod
	}
	timeout := w.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	sleep := w.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	// Iteration bound per phase. Deliberately ceil(timeout/period), so a
	// 60s timeout with a 5s period allows exactly 12 polls.
	polls := int((timeout + period - 1) / period)

	c := a.Classify(op)
	if !c.StatusKnown && op.Name == "" {
		return nil, &MalformedOperationError{
			Kind: a.Kind(), ID: id, Op: op,
			Reason: "payload carries neither a name nor a status",
		}
	}

	status := StatusUnknown

	// Phase A: wait for the payload to carry a completion flag at all.
	for i := 0; !c.StatusKnown; i++ {
		if i >= polls {
			return nil, &StatusUnavailableError{Kind: a.Kind(), ID: id, Op: op, Polls: i}
		}
		if err := ctx.Err(); err != nil {
			return nil, &CancelledError{Kind: a.Kind(), ID: id, Cause: err}
		}
		sleep(period)
		var err error
		op, err = a.FetchOperation(ctx, op.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch operation %s for %s %s", op.Name, a.Kind(), id)
		}
		c = a.Classify(op)
	}
	if status < Running {
		status = Running
		logger.Debug("Operation status visible", zap.String("operation", op.Name))
	}

	// Phase B: wait for completion.
	for i := 0; !c.Done; i++ {
		if i >= polls {
			return nil, &CompletionTimeoutError{Kind: a.Kind(), ID: id, Op: op, Polls: i}
		}
		if err := ctx.Err(); err != nil {
			return nil, &CancelledError{Kind: a.Kind(), ID: id, Cause: err}
		}
		sleep(period)
		var err error
		op, err = a.FetchOperation(ctx, op.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch operation %s for %s %s", op.Name, a.Kind(), id)
		}
		next := a.Classify(op)
		// Forward-only: a payload that drops the flag does not regress the
		// status, and the loop keeps polling for completion.
		if next.StatusKnown {
			c = next
		}
	}

	if c.Failure != nil {
		status = DoneError
		logger.Debug("Operation failed", zap.Stringer("status", status))
		return nil, &OperationFailedError{Kind: a.Kind(), ID: id, Op: op, Failure: c.Failure}
	}
	status = DoneOK
	logger.Debug("Operation done", zap.Stringer("status", status))

	if c.Result == nil {
		if c.NoResponseBody {
			return nil, nil
		}
		return nil, &MalformedOperationError{
			Kind: a.Kind(), ID: id, Op: op,
			Reason: "operation is done without an error but carries no response",
		}
	}
	return c.Result, nil
}
