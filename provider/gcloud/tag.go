package gcloud

import (
	"context"
	"strings"

	cloudresourcemanager "google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/googleapi"

	"github.com/psetup/psetup/reconcile"
	"github.com/psetup/psetup/resource"
)

// A TagKey is an organization-level tag key, matched on parent and short
// name. Only the description is mutable.
type TagKey struct {
	// Parent organization name, "organizations/123".
	Parent string `validate:"required,prefix=organizations/"`

	// ShortName is the key's display name within the organization.
	ShortName string `validate:"required,max=63"`

	// Description of the key.
	Description string `attr:"description" validate:"max=256"`
}

// Kind implements resource.Descriptor.
func (k *TagKey) Kind() string { return "gcloud_tag_key" }

// Identity implements resource.Descriptor.
func (k *TagKey) Identity() resource.Identity {
	return resource.Identity{Scope: k.Parent, Key: k.ShortName}
}

// A TagValue is a value under a tag key, matched on the key's name and the
// value's short name.
type TagValue struct {
	// Parent tag key name, "tagKeys/123".
	Parent string `validate:"required,prefix=tagKeys/"`

	// ShortName is the value's display name under its key.
	ShortName string `validate:"required,max=63"`

	// Description of the value.
	Description string `attr:"description" validate:"max=256"`
}

// Kind implements resource.Descriptor.
func (v *TagValue) Kind() string { return "gcloud_tag_value" }

// Identity implements resource.Descriptor.
func (v *TagValue) Identity() resource.Identity {
	return resource.Identity{Scope: v.Parent, Key: v.ShortName}
}

// TagKeyAdapter reconciles tag keys.
//
// PolicyMode: PolicyApply.
type TagKeyAdapter struct {
	svc *Service
}

// TagKeys returns the tag key adapter.
func (s *Service) TagKeys() *TagKeyAdapter { return &TagKeyAdapter{svc: s} }

var _ reconcile.Adapter = (*TagKeyAdapter)(nil)

// Kind implements reconcile.Adapter.
func (a *TagKeyAdapter) Kind() string { return (&TagKey{}).Kind() }

// PolicyMode returns how declared tag key policies are reconciled.
func (a *TagKeyAdapter) PolicyMode() PolicyMode { return PolicyApply }

// List implements reconcile.Adapter.
func (a *TagKeyAdapter) List(ctx context.Context, id resource.Identity, pageToken string) ([]reconcile.Candidate, string, error) {
	resp, err := a.svc.crm.TagKeys.List().
		Parent(id.Scope).
		PageToken(pageToken).
		Context(ctx).
		Do()
	if err != nil {
		return nil, "", handleCallError(err)
	}
	items := make([]reconcile.Candidate, len(resp.TagKeys))
	for i, k := range resp.TagKeys {
		items[i] = tagKeyCandidate(k)
	}
	return items, resp.NextPageToken, nil
}

// Matches implements reconcile.Adapter.
func (a *TagKeyAdapter) Matches(item reconcile.Candidate, id resource.Identity) bool {
	k, ok := item.State.(*TagKey)
	return ok && k.Parent == id.Scope && k.ShortName == id.Key
}

// Create implements reconcile.Adapter.
func (a *TagKeyAdapter) Create(ctx context.Context, desc resource.Descriptor) (reconcile.Operation, error) {
	k := desc.(*TagKey)
	op, err := a.svc.crm.TagKeys.Create(&cloudresourcemanager.TagKey{
		Parent:      k.Parent,
		ShortName:   k.ShortName,
		Description: k.Description,
	}).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return crmOperation(op), nil
}

// Patch implements reconcile.Adapter.
func (a *TagKeyAdapter) Patch(ctx context.Context, existing reconcile.Candidate, mask resource.Mask, desc resource.Descriptor) (reconcile.Operation, error) {
	k := desc.(*TagKey)
	body := &cloudresourcemanager.TagKey{}
	if mask.Contains("description") {
		body.Description = k.Description
		body.ForceSendFields = append(body.ForceSendFields, "Description")
	}
	op, err := a.svc.crm.TagKeys.Patch(existing.Name, body).
		UpdateMask(strings.Join(mask, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return crmOperation(op), nil
}

// FetchOperation implements reconcile.Adapter.
func (a *TagKeyAdapter) FetchOperation(ctx context.Context, name string) (reconcile.Operation, error) {
	op, err := a.svc.crm.Operations.Get(name).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return crmOperation(op), nil
}

// Classify implements reconcile.Adapter.
func (a *TagKeyAdapter) Classify(op reconcile.Operation) reconcile.Classified {
	return classifyCRM(op, func(msg googleapi.RawMessage) *reconcile.Candidate {
		var k cloudresourcemanager.TagKey
		if !decodeInto(msg, &k) {
			return nil
		}
		c := tagKeyCandidate(&k)
		return &c
	})
}

// GetPolicy implements reconcile.Adapter.
func (a *TagKeyAdapter) GetPolicy(ctx context.Context, resourceName string) (reconcile.Policy, error) {
	p, err := a.svc.crm.TagKeys.GetIamPolicy(resourceName, &cloudresourcemanager.GetIamPolicyRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return nil, handleCallError(err)
	}
	return fromCRMPolicy(p), nil
}

// SetPolicy implements reconcile.Adapter.
func (a *TagKeyAdapter) SetPolicy(ctx context.Context, resourceName string, policy reconcile.Policy) error {
	_, err := a.svc.crm.TagKeys.SetIamPolicy(resourceName, &cloudresourcemanager.SetIamPolicyRequest{
		Policy: toCRMPolicy(policy),
	}).Context(ctx).Do()
	return handleCallError(err)
}

func tagKeyCandidate(k *cloudresourcemanager.TagKey) reconcile.Candidate {
	return reconcile.Candidate{
		Name: k.Name,
		State: &TagKey{
			Parent:      k.Parent,
			ShortName:   k.ShortName,
			Description: k.Description,
		},
	}
}

// TagValueAdapter reconciles tag values.
//
// PolicyMode: PolicyApply. The root tag value's policy is exactly the
// builder account's viewer grant.
type TagValueAdapter struct {
	svc *Service
}

// TagValues returns the tag value adapter.
func (s *Service) TagValues() *TagValueAdapter { return &TagValueAdapter{svc: s} }

var _ reconcile.Adapter = (*TagValueAdapter)(nil)

// Kind implements reconcile.Adapter.
func (a *TagValueAdapter) Kind() string { return (&TagValue{}).Kind() }

// PolicyMode returns how declared tag value policies are reconciled.
func (a *TagValueAdapter) PolicyMode() PolicyMode { return PolicyApply }

// List implements reconcile.Adapter.
func (a *TagValueAdapter) List(ctx context.Context, id resource.Identity, pageToken string) ([]reconcile.Candidate, string, error) {
	resp, err := a.svc.crm.TagValues.List().
		Parent(id.Scope).
		PageToken(pageToken).
		Context(ctx).
		Do()
	if err != nil {
		return nil, "", handleCallError(err)
	}
	items := make([]reconcile.Candidate, len(resp.TagValues))
	for i, v := range resp.TagValues {
		items[i] = tagValueCandidate(v)
	}
	return items, resp.NextPageToken, nil
}

// Matches implements reconcile.Adapter.
func (a *TagValueAdapter) Matches(item reconcile.Candidate, id resource.Identity) bool {
	v, ok := item.State.(*TagValue)
	return ok && v.Parent == id.Scope && v.ShortName == id.Key
}

// Create implements reconcile.Adapter.
func (a *TagValueAdapter) Create(ctx context.Context, desc resource.Descriptor) (reconcile.Operation, error) {
	v := desc.(*TagValue)
	op, err := a.svc.crm.TagValues.Create(&cloudresourcemanager.TagValue{
		Parent:      v.Parent,
		ShortName:   v.ShortName,
		Description: v.Description,
	}).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return crmOperation(op), nil
}

// Patch implements reconcile.Adapter.
func (a *TagValueAdapter) Patch(ctx context.Context, existing reconcile.Candidate, mask resource.Mask, desc resource.Descriptor) (reconcile.Operation, error) {
	v := desc.(*TagValue)
	body := &cloudresourcemanager.TagValue{}
	if mask.Contains("description") {
		body.Description = v.Description
		body.ForceSendFields = append(body.ForceSendFields, "Description")
	}
	op, err := a.svc.crm.TagValues.Patch(existing.Name, body).
		UpdateMask(strings.Join(mask, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return crmOperation(op), nil
}

// FetchOperation implements reconcile.Adapter.
func (a *TagValueAdapter) FetchOperation(ctx context.Context, name string) (reconcile.Operation, error) {
	op, err := a.svc.crm.Operations.Get(name).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return crmOperation(op), nil
}

// Classify implements reconcile.Adapter.
func (a *TagValueAdapter) Classify(op reconcile.Operation) reconcile.Classified {
	return classifyCRM(op, func(msg googleapi.RawMessage) *reconcile.Candidate {
		var v cloudresourcemanager.TagValue
		if !decodeInto(msg, &v) {
			return nil
		}
		c := tagValueCandidate(&v)
		return &c
	})
}

// GetPolicy implements reconcile.Adapter.
func (a *TagValueAdapter) GetPolicy(ctx context.Context, resourceName string) (reconcile.Policy, error) {
	p, err := a.svc.crm.TagValues.GetIamPolicy(resourceName, &cloudresourcemanager.GetIamPolicyRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return nil, handleCallError(err)
	}
	return fromCRMPolicy(p), nil
}

// SetPolicy implements reconcile.Adapter.
func (a *TagValueAdapter) SetPolicy(ctx context.Context, resourceName string, policy reconcile.Policy) error {
	_, err := a.svc.crm.TagValues.SetIamPolicy(resourceName, &cloudresourcemanager.SetIamPolicyRequest{
		Policy: toCRMPolicy(policy),
	}).Context(ctx).Do()
	return handleCallError(err)
}

func tagValueCandidate(v *cloudresourcemanager.TagValue) reconcile.Candidate {
	return reconcile.Candidate{
		Name: v.Name,
		State: &TagValue{
			Parent:      v.Parent,
			ShortName:   v.ShortName,
			Description: v.Description,
		},
	}
}
