package reconcile

import (
	"context"

	"github.com/psetup/psetup/resource"
)

// A Candidate is one existing remote resource, as decoded by an adapter.
type Candidate struct {
	// Name is the fully qualified remote name, for example
	// "projects/root-42" or "organizations/123/roles/builder".
	Name string

	// State holds the decoded attributes, as a descriptor of the same kind
	// as the declared resource. Diffed against the declaration to compute
	// the update mask.
	State resource.Descriptor
}

// An Operation is the raw payload returned by a mutating call or an
// operation poll. The engine never interprets Raw; it is carried for
// diagnostics and handed back to the adapter's Classify.
type Operation struct {
	// Name identifies the operation for polling. Empty when the call
	// completed synchronously.
	Name string

	// Raw is the provider payload as returned by the remote API.
	Raw interface{}
}

// Classified is the adapter-normalized view of an operation payload,
// consumed by the awaiter. Adapters map their provider's field names onto
// this shape; the awaiter holds no resource-specific knowledge.
type Classified struct {
	// StatusKnown reports whether the payload carried a completion flag at
	// all. Some providers omit the flag until the operation is scheduled.
	StatusKnown bool

	// Done reports completion. Only meaningful when StatusKnown is true.
	Done bool

	// Failure holds the provider's error payload for a failed operation,
	// nil otherwise.
	Failure interface{}

	// Result holds the decoded resource for a successful operation.
	Result *Candidate

	// NoResponseBody marks kinds whose success contract has no response
	// payload. For all other kinds a done operation without a result is a
	// protocol violation.
	NoResponseBody bool
}

// An OperationPoller is the part of an adapter the awaiter consumes. Any
// remote surface with pollable operations can satisfy it without carrying
// the full reconcile contract.
type OperationPoller interface {
	// Kind returns the kind name, used in errors and logs.
	Kind() string

	// FetchOperation re-fetches a pending operation by name.
	FetchOperation(ctx context.Context, name string) (Operation, error)

	// Classify normalizes an operation payload for the awaiter.
	Classify(op Operation) Classified
}

// An Adapter maps the generic engine onto one resource kind's remote API.
// Adapters perform all remote calls and return already-decoded structures;
// the engine fixes no wire format of its own.
//
// Adapters must be safe for concurrent use by independent reconciliations.
type Adapter interface {
	OperationPoller

	// List returns one page of existing resources under the identity's
	// scope. The engine accumulates all pages before matching; adapters
	// may pre-filter server-side but must not assume the filter is exact.
	List(ctx context.Context, id resource.Identity, pageToken string) (items []Candidate, next string, err error)

	// Matches reports whether the item is the resource the identity
	// declares. Applied client-side to every listed item; must be exact.
	Matches(item Candidate, id resource.Identity) bool

	// Create issues the single creating call for the declared resource.
	Create(ctx context.Context, desc resource.Descriptor) (Operation, error)

	// Patch issues the single updating call for the masked attributes.
	Patch(ctx context.Context, existing Candidate, mask resource.Mask, desc resource.Descriptor) (Operation, error)

	// GetPolicy returns the resource's current access policy.
	GetPolicy(ctx context.Context, resourceName string) (Policy, error)

	// SetPolicy replaces the resource's access policy.
	SetPolicy(ctx context.Context, resourceName string, p Policy) error
}

// A Hydrator is an optional adapter extension for kinds whose list calls
// return partial items. When the matcher has settled on a single candidate,
// the engine hydrates it before diffing, so attributes the list omits do
// not show up as spurious updates.
type Hydrator interface {
	Hydrate(ctx context.Context, item Candidate) (Candidate, error)
}
