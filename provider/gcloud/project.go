package gcloud

import (
	"context"
	"fmt"
	"strings"

	cloudresourcemanager "google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/googleapi"

	"github.com/psetup/psetup/reconcile"
	"github.com/psetup/psetup/resource"
)

// A Project is a Google Cloud project hosted under an organization or a
// folder.
//
// Projects are matched on parent and display name: the project id carries
// a random suffix chosen at creation time, so it identifies nothing across
// runs.
type Project struct {
	// Parent resource name, "organizations/123" or "folders/456".
	Parent string `validate:"required"`

	// DisplayName is the user-friendly name and the stable identity of the
	// project within its parent.
	DisplayName string `validate:"required,min=4,max=30"`

	// ProjectID is the unique id used at creation. Immutable; never
	// diffed.
	ProjectID string

	// Labels on the project.
	Labels map[string]string `attr:"labels"`
}

// Kind implements resource.Descriptor.
func (p *Project) Kind() string { return "gcloud_project" }

// Identity implements resource.Descriptor.
func (p *Project) Identity() resource.Identity {
	return resource.Identity{Scope: p.Parent, Key: p.DisplayName}
}

// ProjectAdapter reconciles projects through the Resource Manager API.
//
// PolicyMode: PolicyApply. The structure owns its projects; the declared
// policy is authoritative (the executive group keeps roles/owner).
type ProjectAdapter struct {
	svc *Service
}

// Projects returns the project adapter.
func (s *Service) Projects() *ProjectAdapter { return &ProjectAdapter{svc: s} }

var _ reconcile.Adapter = (*ProjectAdapter)(nil)

// Kind implements reconcile.Adapter.
func (a *ProjectAdapter) Kind() string { return (&Project{}).Kind() }

// PolicyMode returns how declared project policies are reconciled.
func (a *ProjectAdapter) PolicyMode() PolicyMode { return PolicyApply }

// List implements reconcile.Adapter. The search query narrows the listing
// to active projects under the parent; exact identity matching stays
// client-side since search matches more broadly than equality.
func (a *ProjectAdapter) List(ctx context.Context, id resource.Identity, pageToken string) ([]reconcile.Candidate, string, error) {
	query := fmt.Sprintf("parent=%s AND state=ACTIVE", id.Scope)
	resp, err := a.svc.crm.Projects.Search().
		Query(query).
		PageToken(pageToken).
		Context(ctx).
		Do()
	if err != nil {
		return nil, "", handleCallError(err)
	}
	items := make([]reconcile.Candidate, len(resp.Projects))
	for i, p := range resp.Projects {
		items[i] = projectCandidate(p)
	}
	return items, resp.NextPageToken, nil
}

// Matches implements reconcile.Adapter.
func (a *ProjectAdapter) Matches(item reconcile.Candidate, id resource.Identity) bool {
	p, ok := item.State.(*Project)
	return ok && p.Parent == id.Scope && p.DisplayName == id.Key
}

// Create implements reconcile.Adapter.
func (a *ProjectAdapter) Create(ctx context.Context, desc resource.Descriptor) (reconcile.Operation, error) {
	p := desc.(*Project)
	op, err := a.svc.crm.Projects.Create(&cloudresourcemanager.Project{
		Parent:      p.Parent,
		ProjectId:   p.ProjectID,
		DisplayName: p.DisplayName,
		Labels:      p.Labels,
	}).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return crmOperation(op), nil
}

// Patch implements reconcile.Adapter.
func (a *ProjectAdapter) Patch(ctx context.Context, existing reconcile.Candidate, mask resource.Mask, desc resource.Descriptor) (reconcile.Operation, error) {
	p := desc.(*Project)
	body := &cloudresourcemanager.Project{}
	if mask.Contains("labels") {
		body.Labels = p.Labels
	}
	op, err := a.svc.crm.Projects.Patch(existing.Name, body).
		UpdateMask(strings.Join(mask, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return crmOperation(op), nil
}

// FetchOperation implements reconcile.Adapter.
func (a *ProjectAdapter) FetchOperation(ctx context.Context, name string) (reconcile.Operation, error) {
	op, err := a.svc.crm.Operations.Get(name).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return crmOperation(op), nil
}

// Classify implements reconcile.Adapter.
func (a *ProjectAdapter) Classify(op reconcile.Operation) reconcile.Classified {
	return classifyCRM(op, func(msg googleapi.RawMessage) *reconcile.Candidate {
		var p cloudresourcemanager.Project
		if !decodeInto(msg, &p) {
			return nil
		}
		c := projectCandidate(&p)
		return &c
	})
}

// GetPolicy implements reconcile.Adapter.
func (a *ProjectAdapter) GetPolicy(ctx context.Context, resourceName string) (reconcile.Policy, error) {
	p, err := a.svc.crm.Projects.GetIamPolicy(resourceName, &cloudresourcemanager.GetIamPolicyRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return nil, handleCallError(err)
	}
	return fromCRMPolicy(p), nil
}

// SetPolicy implements reconcile.Adapter.
func (a *ProjectAdapter) SetPolicy(ctx context.Context, resourceName string, policy reconcile.Policy) error {
	_, err := a.svc.crm.Projects.SetIamPolicy(resourceName, &cloudresourcemanager.SetIamPolicyRequest{
		Policy: toCRMPolicy(policy),
	}).Context(ctx).Do()
	return handleCallError(err)
}

func projectCandidate(p *cloudresourcemanager.Project) reconcile.Candidate {
	return reconcile.Candidate{
		Name: p.Name,
		State: &Project{
			Parent:      p.Parent,
			DisplayName: p.DisplayName,
			ProjectID:   p.ProjectId,
			Labels:      p.Labels,
		},
	}
}

func fromCRMPolicy(p *cloudresourcemanager.Policy) reconcile.Policy {
	policy := reconcile.Policy{}
	if p == nil {
		return policy
	}
	for _, b := range p.Bindings {
		policy.Add(b.Role, b.Members...)
	}
	return policy
}

func toCRMPolicy(p reconcile.Policy) *cloudresourcemanager.Policy {
	out := &cloudresourcemanager.Policy{}
	for _, b := range p.Bindings() {
		out.Bindings = append(out.Bindings, &cloudresourcemanager.Binding{
			Role:    b.Role,
			Members: b.Members,
		})
	}
	return out
}
