package gcloud

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	iam "google.golang.org/api/iam/v1"

	"github.com/psetup/psetup/reconcile"
	"github.com/psetup/psetup/resource"
)

// A Role is a custom organization role, matched on parent and role id.
//
// The permission list is set-like: the remote system stores permissions in
// its own order, which must never register as drift.
type Role struct {
	// Parent organization name, "organizations/123".
	Parent string `validate:"required,prefix=organizations/"`

	// RoleID is the final component of the role name.
	RoleID string `validate:"required,min=3,max=64"`

	// Title is the user-friendly name for the role.
	Title string `attr:"title" validate:"max=100"`

	// Description of the role.
	Description string `attr:"description" validate:"max=256"`

	// Stage of release, for example "GA" or "BETA".
	Stage string `attr:"stage" validate:"oneof=ALPHA BETA GA DEPRECATED DISABLED EAP"`

	// IncludedPermissions bound to the role.
	IncludedPermissions []string `attr:"includedPermissions,set"`
}

// Kind implements resource.Descriptor.
func (r *Role) Kind() string { return "gcloud_role" }

// Identity implements resource.Descriptor.
func (r *Role) Identity() resource.Identity {
	return resource.Identity{Scope: r.Parent, Key: r.RoleID}
}

// Name returns the fully qualified role name.
func (r *Role) Name() string { return r.Parent + "/roles/" + r.RoleID }

// RoleAdapter reconciles custom organization roles. Role mutations are
// synchronous.
//
// The list call omits included permissions, only get returns them, so the
// adapter hydrates the matched candidate before the engine diffs it.
type RoleAdapter struct {
	svc *Service
}

// Roles returns the role adapter.
func (s *Service) Roles() *RoleAdapter { return &RoleAdapter{svc: s} }

var (
	_ reconcile.Adapter  = (*RoleAdapter)(nil)
	_ reconcile.Hydrator = (*RoleAdapter)(nil)
)

// Kind implements reconcile.Adapter.
func (a *RoleAdapter) Kind() string { return (&Role{}).Kind() }

// List implements reconcile.Adapter.
func (a *RoleAdapter) List(ctx context.Context, id resource.Identity, pageToken string) ([]reconcile.Candidate, string, error) {
	resp, err := a.svc.iam.Organizations.Roles.List(id.Scope).
		PageToken(pageToken).
		Context(ctx).
		Do()
	if err != nil {
		return nil, "", handleCallError(err)
	}
	items := make([]reconcile.Candidate, len(resp.Roles))
	for i, r := range resp.Roles {
		items[i] = roleCandidate(id.Scope, r)
	}
	return items, resp.NextPageToken, nil
}

// Matches implements reconcile.Adapter.
func (a *RoleAdapter) Matches(item reconcile.Candidate, id resource.Identity) bool {
	r, ok := item.State.(*Role)
	return ok && r.Parent == id.Scope && r.RoleID == id.Key
}

// Hydrate implements reconcile.Hydrator by re-fetching the matched role;
// only the get call renders included permissions.
func (a *RoleAdapter) Hydrate(ctx context.Context, item reconcile.Candidate) (reconcile.Candidate, error) {
	r, ok := item.State.(*Role)
	if !ok {
		return item, errors.Errorf("candidate %s is not a role", item.Name)
	}
	full, err := a.svc.iam.Organizations.Roles.Get(item.Name).Context(ctx).Do()
	if err != nil {
		return item, handleCallError(err)
	}
	return roleCandidate(r.Parent, full), nil
}

// Create implements reconcile.Adapter.
func (a *RoleAdapter) Create(ctx context.Context, desc resource.Descriptor) (reconcile.Operation, error) {
	r := desc.(*Role)
	created, err := a.svc.iam.Organizations.Roles.Create(r.Parent, &iam.CreateRoleRequest{
		RoleId: r.RoleID,
		Role: &iam.Role{
			Title:               r.Title,
			Description:         r.Description,
			Stage:               r.Stage,
			IncludedPermissions: r.IncludedPermissions,
		},
	}).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return reconcile.Operation{Raw: withParent(r.Parent, created)}, nil
}

// Patch implements reconcile.Adapter.
func (a *RoleAdapter) Patch(ctx context.Context, existing reconcile.Candidate, mask resource.Mask, desc resource.Descriptor) (reconcile.Operation, error) {
	r := desc.(*Role)
	patched, err := a.svc.iam.Organizations.Roles.Patch(existing.Name, &iam.Role{
		Title:               r.Title,
		Description:         r.Description,
		Stage:               r.Stage,
		IncludedPermissions: r.IncludedPermissions,
	}).UpdateMask(strings.Join(mask, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return reconcile.Operation{Raw: withParent(r.Parent, patched)}, nil
}

// FetchOperation implements reconcile.Adapter. Role mutations complete
// synchronously, so there is never an operation to poll.
func (a *RoleAdapter) FetchOperation(ctx context.Context, name string) (reconcile.Operation, error) {
	return reconcile.Operation{}, errors.Errorf("roles have no long-running operations (got %q)", name)
}

// Classify implements reconcile.Adapter.
func (a *RoleAdapter) Classify(op reconcile.Operation) reconcile.Classified {
	r, ok := op.Raw.(*parentedRole)
	if !ok || r == nil {
		return reconcile.Classified{}
	}
	c := roleCandidate(r.parent, r.role)
	return reconcile.Classified{StatusKnown: true, Done: true, Result: &c}
}

// GetPolicy implements reconcile.Adapter. Organization roles carry no
// policy of their own; they are granted through their parent's policy.
func (a *RoleAdapter) GetPolicy(ctx context.Context, resourceName string) (reconcile.Policy, error) {
	return nil, errors.Errorf("roles carry no access policy (got %q)", resourceName)
}

// SetPolicy implements reconcile.Adapter.
func (a *RoleAdapter) SetPolicy(ctx context.Context, resourceName string, policy reconcile.Policy) error {
	return errors.Errorf("roles carry no access policy (got %q)", resourceName)
}

// parentedRole carries the organization alongside the API role, which only
// reports its full name.
type parentedRole struct {
	parent string
	role   *iam.Role
}

func withParent(parent string, r *iam.Role) *parentedRole {
	return &parentedRole{parent: parent, role: r}
}

func roleCandidate(parent string, r *iam.Role) reconcile.Candidate {
	return reconcile.Candidate{
		Name: r.Name,
		State: &Role{
			Parent:              parent,
			RoleID:              lastSegment(r.Name),
			Title:               r.Title,
			Description:         r.Description,
			Stage:               r.Stage,
			IncludedPermissions: r.IncludedPermissions,
		},
	}
}
