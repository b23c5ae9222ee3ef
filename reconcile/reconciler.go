package reconcile

import (
	"context"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/psetup/psetup/resource"
)

// Action describes what a reconciliation did to the resource.
type Action string

// Reconciliation outcomes.
const (
	Unchanged Action = "unchanged" // existing resource already converged
	Created   Action = "created"
	Updated   Action = "updated"
)

// A Result is the outcome of one reconciliation.
type Result struct {
	// Name is the fully qualified remote name of the resource. Dependent
	// descriptors reference it, for example a pool's name becomes a
	// provider's parent.
	Name string

	// State is the resource's attributes after reconciliation. Nil only
	// for kinds whose mutating success contract has no response body.
	State resource.Descriptor

	// Action records whether the resource was created, updated or left
	// untouched.
	Action Action
}

// A Reconciler drives a declared resource to its desired state.
//
// Reconcilers hold no per-resource state and are safe for concurrent use;
// each call receives its own context and adapter. See package doc for the
// reconciliation sequence.
type Reconciler struct {
	// Awaiter waits on long-running operations. The zero value polls with
	// the default period and timeout.
	Awaiter Awaiter

	// Logger logs reconciliation progress. If not set, logs are discarded.
	Logger *zap.Logger

	// Backoff, if set, retries the whole reconciliation from scratch on
	// retryable failures. Fatal classes (ambiguity, failed or malformed
	// operations, cancellation) are never retried. If not set, every
	// failure surfaces immediately.
	Backoff func() backoff.BackOff
}

// Reconcile drives the declared resource to convergence: find an existing
// resource matching the declared identity, diff, create or patch, await the
// resulting operation, and return the final resource.
//
// A found resource with an empty diff is a true no-op: the mutator is not
// invoked and no further remote calls are made.
func (r *Reconciler) Reconcile(ctx context.Context, a Adapter, desired resource.Descriptor) (*Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(
		zap.String("kind", a.Kind()),
		zap.Stringer("identity", desired.Identity()),
		zap.String("run_id", ksuid.New().String()),
	)

	if r.Backoff == nil {
		return r.reconcile(ctx, logger, a, desired)
	}

	var res *Result
	op := func() error {
		var err error
		res, err = r.reconcile(ctx, logger, a, desired)
		if err != nil && Fatal(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(r.Backoff(), ctx)); err != nil {
		if perm, ok := err.(*backoff.PermanentError); ok {
			return nil, perm.Err
		}
		return nil, err
	}
	return res, nil
}

func (r *Reconciler) reconcile(ctx context.Context, logger *zap.Logger, a Adapter, desired resource.Descriptor) (*Result, error) {
	logger.Info("Reconcile")

	id := desired.Identity()

	existing, err := Find(ctx, a, id)
	if err != nil {
		return nil, err
	}

	awaiter := r.Awaiter
	if awaiter.Logger == nil {
		awaiter.Logger = logger
	}

	if existing == nil {
		logger.Debug("No existing resource, creating")
		op, err := a.Create(ctx, desired)
		if err != nil {
			return nil, errors.Wrapf(err, "create %s %s", a.Kind(), id)
		}
		final, err := awaiter.Await(ctx, a, id, op)
		if err != nil {
			return nil, err
		}
		logger.Info("Resource created", zap.String("name", resultName(final)))
		return &Result{Name: resultName(final), State: resultState(final), Action: Created}, nil
	}

	if h, ok := a.(Hydrator); ok {
		*existing, err = h.Hydrate(ctx, *existing)
		if err != nil {
			return nil, errors.Wrapf(err, "hydrate %s %s", a.Kind(), existing.Name)
		}
	}

	mask, err := resource.Diff(desired, existing.State)
	if err != nil {
		return nil, errors.Wrapf(err, "diff %s %s", a.Kind(), id)
	}
	if mask.Empty() {
		logger.Info("Resource up to date", zap.String("name", existing.Name))
		return &Result{Name: existing.Name, State: existing.State, Action: Unchanged}, nil
	}

	logger.Debug("Updating resource", zap.Strings("mask", mask))
	op, err := a.Patch(ctx, *existing, mask, desired)
	if err != nil {
		return nil, errors.Wrapf(err, "patch %s %s", a.Kind(), existing.Name)
	}
	final, err := awaiter.Await(ctx, a, id, op)
	if err != nil {
		return nil, err
	}
	if final == nil {
		// Success contract with no response body; keep the matched name.
		final = existing
	}
	logger.Info("Resource updated", zap.String("name", final.Name), zap.Strings("mask", mask))
	return &Result{Name: final.Name, State: final.State, Action: Updated}, nil
}

func resultName(c *Candidate) string {
	if c == nil {
		return ""
	}
	return c.Name
}

func resultState(c *Candidate) resource.Descriptor {
	if c == nil {
		return nil
	}
	return c.State
}
