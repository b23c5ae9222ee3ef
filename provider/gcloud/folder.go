package gcloud

import (
	"context"
	"strings"

	cloudresourcemanager "google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/googleapi"

	"github.com/psetup/psetup/reconcile"
	"github.com/psetup/psetup/resource"
)

// A Folder groups projects under an organization or another folder,
// matched on parent and display name.
type Folder struct {
	// Parent resource name, "organizations/123" or "folders/456".
	Parent string `validate:"required"`

	// DisplayName is the folder's name within its parent.
	DisplayName string `validate:"required,min=3,max=30"`
}

// Kind implements resource.Descriptor.
func (f *Folder) Kind() string { return "gcloud_folder" }

// Identity implements resource.Descriptor.
func (f *Folder) Identity() resource.Identity {
	return resource.Identity{Scope: f.Parent, Key: f.DisplayName}
}

// FolderAdapter reconciles folders.
//
// PolicyMode: PolicyExtend. The workspace folder carries grants owned by
// other teams; the structure only adds the builder's project-creator
// bindings and must not drop the rest.
type FolderAdapter struct {
	svc *Service
}

// Folders returns the folder adapter.
func (s *Service) Folders() *FolderAdapter { return &FolderAdapter{svc: s} }

var _ reconcile.Adapter = (*FolderAdapter)(nil)

// Kind implements reconcile.Adapter.
func (a *FolderAdapter) Kind() string { return (&Folder{}).Kind() }

// PolicyMode returns how declared folder policies are reconciled.
func (a *FolderAdapter) PolicyMode() PolicyMode { return PolicyExtend }

// List implements reconcile.Adapter.
func (a *FolderAdapter) List(ctx context.Context, id resource.Identity, pageToken string) ([]reconcile.Candidate, string, error) {
	resp, err := a.svc.crm.Folders.List().
		Parent(id.Scope).
		PageToken(pageToken).
		Context(ctx).
		Do()
	if err != nil {
		return nil, "", handleCallError(err)
	}
	items := make([]reconcile.Candidate, len(resp.Folders))
	for i, f := range resp.Folders {
		items[i] = folderCandidate(f)
	}
	return items, resp.NextPageToken, nil
}

// Matches implements reconcile.Adapter.
func (a *FolderAdapter) Matches(item reconcile.Candidate, id resource.Identity) bool {
	f, ok := item.State.(*Folder)
	return ok && f.Parent == id.Scope && f.DisplayName == id.Key
}

// Create implements reconcile.Adapter.
func (a *FolderAdapter) Create(ctx context.Context, desc resource.Descriptor) (reconcile.Operation, error) {
	f := desc.(*Folder)
	op, err := a.svc.crm.Folders.Create(&cloudresourcemanager.Folder{
		Parent:      f.Parent,
		DisplayName: f.DisplayName,
	}).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return crmOperation(op), nil
}

// Patch implements reconcile.Adapter. Folders have no mutable attributes
// beyond identity, so a non-empty mask can only come from a future field;
// the call is still wired for it.
func (a *FolderAdapter) Patch(ctx context.Context, existing reconcile.Candidate, mask resource.Mask, desc resource.Descriptor) (reconcile.Operation, error) {
	f := desc.(*Folder)
	op, err := a.svc.crm.Folders.Patch(existing.Name, &cloudresourcemanager.Folder{
		DisplayName: f.DisplayName,
	}).UpdateMask(strings.Join(mask, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return crmOperation(op), nil
}

// FetchOperation implements reconcile.Adapter.
func (a *FolderAdapter) FetchOperation(ctx context.Context, name string) (reconcile.Operation, error) {
	op, err := a.svc.crm.Operations.Get(name).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return crmOperation(op), nil
}

// Classify implements reconcile.Adapter.
func (a *FolderAdapter) Classify(op reconcile.Operation) reconcile.Classified {
	return classifyCRM(op, func(msg googleapi.RawMessage) *reconcile.Candidate {
		var f cloudresourcemanager.Folder
		if !decodeInto(msg, &f) {
			return nil
		}
		c := folderCandidate(&f)
		return &c
	})
}

// GetPolicy implements reconcile.Adapter.
func (a *FolderAdapter) GetPolicy(ctx context.Context, resourceName string) (reconcile.Policy, error) {
	p, err := a.svc.crm.Folders.GetIamPolicy(resourceName, &cloudresourcemanager.GetIamPolicyRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return nil, handleCallError(err)
	}
	return fromCRMPolicy(p), nil
}

// SetPolicy implements reconcile.Adapter.
func (a *FolderAdapter) SetPolicy(ctx context.Context, resourceName string, policy reconcile.Policy) error {
	_, err := a.svc.crm.Folders.SetIamPolicy(resourceName, &cloudresourcemanager.SetIamPolicyRequest{
		Policy: toCRMPolicy(policy),
	}).Context(ctx).Do()
	return handleCallError(err)
}

func folderCandidate(f *cloudresourcemanager.Folder) reconcile.Candidate {
	return reconcile.Candidate{
		Name: f.Name,
		State: &Folder{
			Parent:      f.Parent,
			DisplayName: f.DisplayName,
		},
	}
}
