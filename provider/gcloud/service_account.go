package gcloud

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	iam "google.golang.org/api/iam/v1"

	"github.com/psetup/psetup/reconcile"
	"github.com/psetup/psetup/resource"
)

// A ServiceAccount is an IAM service account in a project, matched on
// project and account id.
type ServiceAccount struct {
	// Project resource name hosting the account, "projects/my-project".
	Project string `validate:"required,prefix=projects/"`

	// AccountID becomes the local part of the account's email address.
	AccountID string `validate:"required,min=6,max=30"`

	// DisplayName is the user-friendly name for the account.
	DisplayName string `attr:"displayName" validate:"max=100"`

	// Description of the account.
	Description string `attr:"description" validate:"max=256"`

	// Email is computed by the remote system; never declared.
	Email string
}

// Kind implements resource.Descriptor.
func (s *ServiceAccount) Kind() string { return "gcloud_service_account" }

// Identity implements resource.Descriptor.
func (s *ServiceAccount) Identity() resource.Identity {
	return resource.Identity{Scope: s.Project, Key: s.AccountID}
}

// ServiceAccountAdapter reconciles service accounts. The IAM API mutates
// accounts synchronously; every operation is already done when returned.
//
// PolicyMode: PolicyExtend. The account's policy delegates impersonation
// to federated principals and may carry grants added by operators; the
// structure only adds its own workloadIdentityUser bindings.
type ServiceAccountAdapter struct {
	svc *Service
}

// ServiceAccounts returns the service account adapter.
func (s *Service) ServiceAccounts() *ServiceAccountAdapter { return &ServiceAccountAdapter{svc: s} }

var _ reconcile.Adapter = (*ServiceAccountAdapter)(nil)

// Kind implements reconcile.Adapter.
func (a *ServiceAccountAdapter) Kind() string { return (&ServiceAccount{}).Kind() }

// PolicyMode returns how declared account policies are reconciled.
func (a *ServiceAccountAdapter) PolicyMode() PolicyMode { return PolicyExtend }

// List implements reconcile.Adapter.
func (a *ServiceAccountAdapter) List(ctx context.Context, id resource.Identity, pageToken string) ([]reconcile.Candidate, string, error) {
	resp, err := a.svc.iam.Projects.ServiceAccounts.List(id.Scope).
		PageToken(pageToken).
		Context(ctx).
		Do()
	if err != nil {
		return nil, "", handleCallError(err)
	}
	items := make([]reconcile.Candidate, len(resp.Accounts))
	for i, sa := range resp.Accounts {
		items[i] = serviceAccountCandidate(sa)
	}
	return items, resp.NextPageToken, nil
}

// Matches implements reconcile.Adapter.
func (a *ServiceAccountAdapter) Matches(item reconcile.Candidate, id resource.Identity) bool {
	sa, ok := item.State.(*ServiceAccount)
	return ok && sa.Project == id.Scope && sa.AccountID == id.Key
}

// Create implements reconcile.Adapter.
func (a *ServiceAccountAdapter) Create(ctx context.Context, desc resource.Descriptor) (reconcile.Operation, error) {
	s := desc.(*ServiceAccount)
	sa, err := a.svc.iam.Projects.ServiceAccounts.Create(s.Project, &iam.CreateServiceAccountRequest{
		AccountId: s.AccountID,
		ServiceAccount: &iam.ServiceAccount{
			DisplayName: s.DisplayName,
			Description: s.Description,
		},
	}).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return reconcile.Operation{Raw: sa}, nil
}

// Patch implements reconcile.Adapter.
func (a *ServiceAccountAdapter) Patch(ctx context.Context, existing reconcile.Candidate, mask resource.Mask, desc resource.Descriptor) (reconcile.Operation, error) {
	s := desc.(*ServiceAccount)
	sa, err := a.svc.iam.Projects.ServiceAccounts.Patch(existing.Name, &iam.PatchServiceAccountRequest{
		ServiceAccount: &iam.ServiceAccount{
			DisplayName: s.DisplayName,
			Description: s.Description,
		},
		UpdateMask: strings.Join(mask, ","),
	}).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return reconcile.Operation{Raw: sa}, nil
}

// FetchOperation implements reconcile.Adapter. Service account mutations
// complete synchronously, so there is never an operation to poll.
func (a *ServiceAccountAdapter) FetchOperation(ctx context.Context, name string) (reconcile.Operation, error) {
	return reconcile.Operation{}, errors.Errorf("service accounts have no long-running operations (got %q)", name)
}

// Classify implements reconcile.Adapter.
func (a *ServiceAccountAdapter) Classify(op reconcile.Operation) reconcile.Classified {
	sa, ok := op.Raw.(*iam.ServiceAccount)
	if !ok || sa == nil {
		return reconcile.Classified{}
	}
	c := serviceAccountCandidate(sa)
	return reconcile.Classified{StatusKnown: true, Done: true, Result: &c}
}

// GetPolicy implements reconcile.Adapter.
func (a *ServiceAccountAdapter) GetPolicy(ctx context.Context, resourceName string) (reconcile.Policy, error) {
	p, err := a.svc.iam.Projects.ServiceAccounts.GetIamPolicy(resourceName).Context(ctx).Do()
	if err != nil {
		return nil, handleCallError(err)
	}
	return fromIAMPolicy(p), nil
}

// SetPolicy implements reconcile.Adapter.
func (a *ServiceAccountAdapter) SetPolicy(ctx context.Context, resourceName string, policy reconcile.Policy) error {
	_, err := a.svc.iam.Projects.ServiceAccounts.SetIamPolicy(resourceName, &iam.SetIamPolicyRequest{
		Policy: toIAMPolicy(policy),
	}).Context(ctx).Do()
	return handleCallError(err)
}

func serviceAccountCandidate(sa *iam.ServiceAccount) reconcile.Candidate {
	account := sa.Email
	if at := strings.Index(account, "@"); at >= 0 {
		account = account[:at]
	}
	return reconcile.Candidate{
		Name: sa.Name,
		State: &ServiceAccount{
			Project:     "projects/" + sa.ProjectId,
			AccountID:   account,
			DisplayName: sa.DisplayName,
			Description: sa.Description,
			Email:       sa.Email,
		},
	}
}

func fromIAMPolicy(p *iam.Policy) reconcile.Policy {
	policy := reconcile.Policy{}
	if p == nil {
		return policy
	}
	for _, b := range p.Bindings {
		policy.Add(b.Role, b.Members...)
	}
	return policy
}

func toIAMPolicy(p reconcile.Policy) *iam.Policy {
	out := &iam.Policy{}
	for _, b := range p.Bindings() {
		out.Bindings = append(out.Bindings, &iam.Binding{
			Role:    b.Role,
			Members: b.Members,
		})
	}
	return out
}
