package reconcile

import (
	"fmt"
	"strings"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"

	"github.com/psetup/psetup/resource"
)

// The error taxonomy for a reconciliation. Zero matches is not an error;
// everything below is, and aborts the current resource's reconciliation.
// Every error names the resource kind and identity, and carries the last
// seen raw payload where one exists, so an operator can diagnose a failure
// without re-running.

// An AmbiguousError is returned when more than one existing resource
// matches a declared identity. It is never auto-resolved; the conflicting
// resource names are listed for the operator.
type AmbiguousError struct {
	Kind       string
	ID         resource.Identity
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf(
		"%s %s: %d resources match: %s",
		e.Kind, e.ID, len(e.Candidates), strings.Join(e.Candidates, ", "),
	)
}

// A StatusUnavailableError is returned when an operation's payload never
// carries a completion flag within the awaiter's timeout.
type StatusUnavailableError struct {
	Kind  string
	ID    resource.Identity
	Op    Operation
	Polls int
}

func (e *StatusUnavailableError) Error() string {
	return fmt.Sprintf(
		"%s %s: timeout before operation status is available (%d polls, last payload: %v)",
		e.Kind, e.ID, e.Polls, e.Op.Raw,
	)
}

// A CompletionTimeoutError is returned when an operation reports a status
// but never completes within the awaiter's timeout.
type CompletionTimeoutError struct {
	Kind  string
	ID    resource.Identity
	Op    Operation
	Polls int
}

func (e *CompletionTimeoutError) Error() string {
	return fmt.Sprintf(
		"%s %s: timeout before operation %s is done (%d polls, last payload: %v)",
		e.Kind, e.ID, e.Op.Name, e.Polls, e.Op.Raw,
	)
}

// An OperationFailedError is returned when the remote system reports an
// error on a completed operation. Failure carries the raw error payload.
type OperationFailedError struct {
	Kind    string
	ID      resource.Identity
	Op      Operation
	Failure interface{}
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("%s %s: operation ended in error: %v", e.Kind, e.ID, e.Failure)
}

// A MalformedOperationError is returned when an operation payload violates
// the provider's protocol, for example a done operation with neither an
// error nor a response.
type MalformedOperationError struct {
	Kind   string
	ID     resource.Identity
	Op     Operation
	Reason string
}

func (e *MalformedOperationError) Error() string {
	return fmt.Sprintf("%s %s: malformed operation: %s (payload: %v)", e.Kind, e.ID, e.Reason, e.Op.Raw)
}

// A CancelledError is returned when the caller's context is cancelled
// between poll iterations. It marks caller intent, not a remote failure,
// and is distinct from the timeout errors.
type CancelledError struct {
	Kind  string
	ID    resource.Identity
	Cause error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%s %s: reconciliation cancelled: %v", e.Kind, e.ID, e.Cause)
}

func (e *CancelledError) Unwrap() error { return e.Cause }

// Fatal returns true for error classes that must not be retried: the remote
// state needs operator attention (Ambiguous, OperationFailed, Malformed),
// the caller asked to stop (Cancelled), or the adapter marked the remote
// call permanent (backoff.Permanent for 4xx responses). The cause is
// unwrapped first, so the classification survives wrapping on the way up.
// Timeouts are retryable by re-running the whole reconciliation from
// scratch.
func Fatal(err error) bool {
	switch errors.Cause(err).(type) {
	case *AmbiguousError, *OperationFailedError, *MalformedOperationError, *CancelledError:
		return true
	case *backoff.PermanentError:
		return true
	}
	return false
}
