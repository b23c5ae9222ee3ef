// Package mock provides a scriptable in-memory adapter for testing the
// reconcile engine without a remote system.
package mock

import (
	"context"
	"sync"

	"github.com/psetup/psetup/reconcile"
	"github.com/psetup/psetup/resource"
)

// Payload is the mock's raw operation shape, standing in for a provider's
// operation message.
type Payload struct {
	HasDone bool
	Done    bool
	Err     interface{}
	Result  *reconcile.Candidate
	NoBody  bool
}

// Op builds a pending operation with the given name and payload.
func Op(name string, p *Payload) reconcile.Operation {
	if p == nil {
		return reconcile.Operation{Name: name}
	}
	return reconcile.Operation{Name: name, Raw: p}
}

// An Event describes one remote call the adapter served.
type Event struct {
	Op     string // list / create / patch / fetch / getpolicy / setpolicy
	Detail string // operation name, resource name or page token
}

// Adapter is a scriptable fake implementing reconcile.Adapter. Every call
// is recorded in Events; tests assert on the call sequence to verify the
// engine's no-op and short-circuit guarantees.
type Adapter struct {
	KindName string

	// Existing resources returned by List, paginated by PageSize (one page
	// holding everything if zero).
	Existing []reconcile.Candidate
	PageSize int
	ListErr  error

	// MatchFn overrides the exact-match predicate. Defaults to comparing
	// the candidate state's identity to the declared identity.
	MatchFn func(item reconcile.Candidate, id resource.Identity) bool

	// Scripted mutating calls.
	CreateOp  reconcile.Operation
	CreateErr error
	PatchOp   reconcile.Operation
	PatchErr  error

	// Fetches are consumed one per FetchOperation call; the last entry
	// repeats once the script is exhausted.
	Fetches  []reconcile.Operation
	FetchErr error

	// Policies by resource name.
	Policies map[string]reconcile.Policy

	mu       sync.Mutex
	fetchIdx int
	Events   []Event
}

var _ reconcile.Adapter = (*Adapter)(nil)

func (a *Adapter) record(op, detail string) {
	a.mu.Lock()
	a.Events = append(a.Events, Event{Op: op, Detail: detail})
	a.mu.Unlock()
}

// Kind implements reconcile.Adapter.
func (a *Adapter) Kind() string {
	if a.KindName == "" {
		return "mock"
	}
	return a.KindName
}

// List implements reconcile.Adapter.
func (a *Adapter) List(ctx context.Context, id resource.Identity, pageToken string) ([]reconcile.Candidate, string, error) {
	a.record("list", pageToken)
	if a.ListErr != nil {
		return nil, "", a.ListErr
	}
	if a.PageSize <= 0 || len(a.Existing) <= a.PageSize {
		return a.Existing, "", nil
	}
	start := 0
	if pageToken != "" {
		for i, c := range a.Existing {
			if c.Name == pageToken {
				start = i
				break
			}
		}
	}
	end := start + a.PageSize
	if end >= len(a.Existing) {
		return a.Existing[start:], "", nil
	}
	return a.Existing[start:end], a.Existing[end].Name, nil
}

// Matches implements reconcile.Adapter.
func (a *Adapter) Matches(item reconcile.Candidate, id resource.Identity) bool {
	if a.MatchFn != nil {
		return a.MatchFn(item, id)
	}
	return item.State != nil && item.State.Identity() == id
}

// Create implements reconcile.Adapter.
func (a *Adapter) Create(ctx context.Context, desc resource.Descriptor) (reconcile.Operation, error) {
	a.record("create", desc.Identity().String())
	return a.CreateOp, a.CreateErr
}

// Patch implements reconcile.Adapter.
func (a *Adapter) Patch(ctx context.Context, existing reconcile.Candidate, mask resource.Mask, desc resource.Descriptor) (reconcile.Operation, error) {
	a.record("patch", existing.Name)
	return a.PatchOp, a.PatchErr
}

// FetchOperation implements reconcile.Adapter.
func (a *Adapter) FetchOperation(ctx context.Context, name string) (reconcile.Operation, error) {
	a.record("fetch", name)
	if a.FetchErr != nil {
		return reconcile.Operation{}, a.FetchErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.Fetches) == 0 {
		return reconcile.Operation{Name: name}, nil
	}
	i := a.fetchIdx
	if i >= len(a.Fetches) {
		i = len(a.Fetches) - 1
	}
	a.fetchIdx++
	return a.Fetches[i], nil
}

// Classify implements reconcile.Adapter.
func (a *Adapter) Classify(op reconcile.Operation) reconcile.Classified {
	p, ok := op.Raw.(*Payload)
	if !ok || p == nil {
		return reconcile.Classified{}
	}
	return reconcile.Classified{
		StatusKnown:    p.HasDone,
		Done:           p.Done,
		Failure:        p.Err,
		Result:         p.Result,
		NoResponseBody: p.NoBody,
	}
}

// GetPolicy implements reconcile.Adapter.
func (a *Adapter) GetPolicy(ctx context.Context, resourceName string) (reconcile.Policy, error) {
	a.record("getpolicy", resourceName)
	a.mu.Lock()
	defer a.mu.Unlock()
	p := reconcile.Policy{}
	p.Merge(a.Policies[resourceName])
	return p, nil
}

// SetPolicy implements reconcile.Adapter.
func (a *Adapter) SetPolicy(ctx context.Context, resourceName string, p reconcile.Policy) error {
	a.record("setpolicy", resourceName)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Policies == nil {
		a.Policies = make(map[string]reconcile.Policy)
	}
	stored := reconcile.Policy{}
	stored.Merge(p)
	a.Policies[resourceName] = stored
	return nil
}

// Calls returns the recorded event ops, in order.
func (a *Adapter) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ops := make([]string, len(a.Events))
	for i, e := range a.Events {
		ops[i] = e.Op
	}
	return ops
}

// Mutations counts the create and patch calls served.
func (a *Adapter) Mutations() int {
	n := 0
	for _, op := range a.Calls() {
		if op == "create" || op == "patch" {
			n++
		}
	}
	return n
}
