package reconcile

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// A Binding grants a role to a set of members.
type Binding struct {
	Role    string
	Members []string
}

// A Policy maps a role to the set of members granted that role. Role keys
// are unique by construction: declaring the same role twice unions the
// members rather than overwriting them.
//
// Member and role identifiers are opaque strings; the engine only ever
// compares them for set membership, never parses their structure.
type Policy map[string][]string

// NewPolicy builds a policy from bindings, unioning members of repeated
// roles.
func NewPolicy(bindings ...Binding) Policy {
	p := Policy{}
	for _, b := range bindings {
		p.Add(b.Role, b.Members...)
	}
	return p
}

// Add unions members into the role's member set, creating the role entry if
// needed. Members are kept sorted and deduplicated.
func (p Policy) Add(role string, members ...string) {
	have := make(map[string]bool, len(p[role]))
	for _, m := range p[role] {
		have[m] = true
	}
	for _, m := range members {
		if !have[m] {
			p[role] = append(p[role], m)
			have[m] = true
		}
	}
	sort.Strings(p[role])
}

// Merge unions every binding of other into p. Roles and members already in
// p are never dropped.
func (p Policy) Merge(other Policy) {
	for role, members := range other {
		p.Add(role, members...)
	}
}

// Bindings returns the policy as a role-sorted binding list, the wire shape
// the remote policy APIs use.
func (p Policy) Bindings() []Binding {
	roles := make([]string, 0, len(p))
	for role := range p {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	bb := make([]Binding, len(roles))
	for i, role := range roles {
		members := append([]string(nil), p[role]...)
		bb[i] = Binding{Role: role, Members: members}
	}
	return bb
}

// A PolicyReconciler applies or extends a resource's access policy.
//
// Extend has an inherent read-modify-write race window: the underlying
// policy contract carries no concurrency token. The reconciler serializes
// concurrent Extend calls against the same resource name; calls against
// different resources proceed independently.
//
// The lock map holds one entry per resource name ever extended and is
// never pruned. Scope a PolicyReconciler to one run rather than keeping
// one alive across unbounded resource sets.
type PolicyReconciler struct {
	// Logger logs policy updates. If not set, logs are discarded.
	Logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (r *PolicyReconciler) lock(resourceName string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks == nil {
		r.locks = make(map[string]*sync.Mutex)
	}
	l, ok := r.locks[resourceName]
	if !ok {
		l = &sync.Mutex{}
		r.locks[resourceName] = l
	}
	return l
}

func (r *PolicyReconciler) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Apply wholesale replaces the resource's policy with declared. Use for
// resources whose declared policy is authoritative.
func (r *PolicyReconciler) Apply(ctx context.Context, a Adapter, resourceName string, declared Policy) error {
	if err := a.SetPolicy(ctx, resourceName, declared); err != nil {
		return errors.Wrapf(err, "set policy on %s %s", a.Kind(), resourceName)
	}
	r.logger().Info("Policy applied",
		zap.String("kind", a.Kind()),
		zap.String("resource", resourceName),
		zap.Int("roles", len(declared)),
	)
	return nil
}

// Extend unions extra's bindings into the resource's current policy and
// writes the merged result back. Roles and members not mentioned in extra
// are never dropped. The current policy is read fresh on every call and
// discarded after the write.
func (r *PolicyReconciler) Extend(ctx context.Context, a Adapter, resourceName string, extra Policy) error {
	l := r.lock(resourceName)
	l.Lock()
	defer l.Unlock()

	current, err := a.GetPolicy(ctx, resourceName)
	if err != nil {
		return errors.Wrapf(err, "get policy on %s %s", a.Kind(), resourceName)
	}
	if current == nil {
		current = Policy{}
	}
	current.Merge(extra)

	if err := a.SetPolicy(ctx, resourceName, current); err != nil {
		return errors.Wrapf(err, "set policy on %s %s", a.Kind(), resourceName)
	}
	r.logger().Info("Policy extended",
		zap.String("kind", a.Kind()),
		zap.String("resource", resourceName),
		zap.Int("roles", len(current)),
	)
	return nil
}
