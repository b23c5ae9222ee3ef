package gcloud

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	iam "google.golang.org/api/iam/v1"
	"google.golang.org/api/googleapi"

	"github.com/psetup/psetup/reconcile"
	"github.com/psetup/psetup/resource"
)

// A WorkloadIdentityPool federates external identities into the project,
// matched on project and pool id.
type WorkloadIdentityPool struct {
	// Project resource name hosting the pool, "projects/my-project".
	Project string `validate:"required,prefix=projects/"`

	// PoolID is the final component of the pool name.
	PoolID string `validate:"required,min=4,max=32"`

	// DisplayName is the user-friendly name for the pool.
	DisplayName string `attr:"displayName" validate:"max=32"`

	// Description of the pool.
	Description string `attr:"description" validate:"max=256"`

	// Disabled pools deliver no tokens. Managed: a pool found disabled is
	// re-enabled rather than left alone.
	Disabled bool `attr:"disabled,managed"`
}

// Kind implements resource.Descriptor.
func (p *WorkloadIdentityPool) Kind() string { return "gcloud_workload_identity_pool" }

// Identity implements resource.Descriptor.
func (p *WorkloadIdentityPool) Identity() resource.Identity {
	return resource.Identity{Scope: p.Project + "/locations/global", Key: p.PoolID}
}

// A WorkloadIdentityProvider is an OIDC provider inside a pool, matched on
// the pool name and provider id. The pool name is a relationship: callers
// feed it from the pool's reconciliation result.
type WorkloadIdentityProvider struct {
	// Pool is the full parent pool name,
	// "projects/p/locations/global/workloadIdentityPools/pool".
	Pool string `validate:"required"`

	// ProviderID is the final component of the provider name.
	ProviderID string `validate:"required,min=4,max=32"`

	// DisplayName is the user-friendly name for the provider.
	DisplayName string `attr:"displayName" validate:"max=32"`

	// Description of the provider.
	Description string `attr:"description" validate:"max=256"`

	// Disabled providers deliver no tokens. Managed, like the pool flag.
	Disabled bool `attr:"disabled,managed"`

	// AttributeCondition restricts which assertions may federate.
	AttributeCondition string `attr:"attributeCondition"`

	// AttributeMapping maps assertion claims to attributes.
	AttributeMapping map[string]string `attr:"attributeMapping"`

	// IssuerURI of the OIDC issuer.
	IssuerURI string `attr:"oidc.issuerUri"`

	// AllowedAudiences accepted from the issuer's tokens.
	AllowedAudiences []string `attr:"oidc.allowedAudiences,set"`
}

// Kind implements resource.Descriptor.
func (p *WorkloadIdentityProvider) Kind() string { return "gcloud_workload_identity_provider" }

// Identity implements resource.Descriptor.
func (p *WorkloadIdentityProvider) Identity() resource.Identity {
	return resource.Identity{Scope: p.Pool, Key: p.ProviderID}
}

// WorkloadIdentityPoolAdapter reconciles workload identity pools.
//
// Pools carry no access policy of their own: federated access is granted
// on the impersonated service account through principalSet members.
type WorkloadIdentityPoolAdapter struct {
	svc *Service
}

// WorkloadIdentityPools returns the pool adapter.
func (s *Service) WorkloadIdentityPools() *WorkloadIdentityPoolAdapter {
	return &WorkloadIdentityPoolAdapter{svc: s}
}

var _ reconcile.Adapter = (*WorkloadIdentityPoolAdapter)(nil)

// Kind implements reconcile.Adapter.
func (a *WorkloadIdentityPoolAdapter) Kind() string { return (&WorkloadIdentityPool{}).Kind() }

// List implements reconcile.Adapter.
func (a *WorkloadIdentityPoolAdapter) List(ctx context.Context, id resource.Identity, pageToken string) ([]reconcile.Candidate, string, error) {
	resp, err := a.svc.iam.Projects.Locations.WorkloadIdentityPools.List(id.Scope).
		PageToken(pageToken).
		Context(ctx).
		Do()
	if err != nil {
		return nil, "", handleCallError(err)
	}
	items := make([]reconcile.Candidate, len(resp.WorkloadIdentityPools))
	for i, p := range resp.WorkloadIdentityPools {
		items[i] = poolCandidate(p)
	}
	return items, resp.NextPageToken, nil
}

// Matches implements reconcile.Adapter.
func (a *WorkloadIdentityPoolAdapter) Matches(item reconcile.Candidate, id resource.Identity) bool {
	p, ok := item.State.(*WorkloadIdentityPool)
	return ok && p.Identity() == id
}

// Create implements reconcile.Adapter.
func (a *WorkloadIdentityPoolAdapter) Create(ctx context.Context, desc resource.Descriptor) (reconcile.Operation, error) {
	p := desc.(*WorkloadIdentityPool)
	op, err := a.svc.iam.Projects.Locations.WorkloadIdentityPools.Create(p.Project+"/locations/global", &iam.WorkloadIdentityPool{
		DisplayName: p.DisplayName,
		Description: p.Description,
		Disabled:    p.Disabled,
	}).WorkloadIdentityPoolId(p.PoolID).
		Context(ctx).
		Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return iamOperation(op), nil
}

// Patch implements reconcile.Adapter.
func (a *WorkloadIdentityPoolAdapter) Patch(ctx context.Context, existing reconcile.Candidate, mask resource.Mask, desc resource.Descriptor) (reconcile.Operation, error) {
	p := desc.(*WorkloadIdentityPool)
	body := &iam.WorkloadIdentityPool{
		DisplayName: p.DisplayName,
		Description: p.Description,
		Disabled:    p.Disabled,
	}
	if mask.Contains("disabled") {
		body.ForceSendFields = append(body.ForceSendFields, "Disabled")
	}
	op, err := a.svc.iam.Projects.Locations.WorkloadIdentityPools.Patch(existing.Name, body).
		UpdateMask(strings.Join(mask, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return iamOperation(op), nil
}

// FetchOperation implements reconcile.Adapter.
func (a *WorkloadIdentityPoolAdapter) FetchOperation(ctx context.Context, name string) (reconcile.Operation, error) {
	op, err := a.svc.iam.Projects.Locations.WorkloadIdentityPools.Operations.Get(name).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return iamOperation(op), nil
}

// Classify implements reconcile.Adapter.
func (a *WorkloadIdentityPoolAdapter) Classify(op reconcile.Operation) reconcile.Classified {
	return classifyIAM(op, func(msg googleapi.RawMessage) *reconcile.Candidate {
		var p iam.WorkloadIdentityPool
		if !decodeInto(msg, &p) {
			return nil
		}
		c := poolCandidate(&p)
		return &c
	})
}

// GetPolicy implements reconcile.Adapter.
func (a *WorkloadIdentityPoolAdapter) GetPolicy(ctx context.Context, resourceName string) (reconcile.Policy, error) {
	return nil, errors.Errorf("workload identity pools carry no access policy (got %q)", resourceName)
}

// SetPolicy implements reconcile.Adapter.
func (a *WorkloadIdentityPoolAdapter) SetPolicy(ctx context.Context, resourceName string, policy reconcile.Policy) error {
	return errors.Errorf("workload identity pools carry no access policy (got %q)", resourceName)
}

func poolCandidate(p *iam.WorkloadIdentityPool) reconcile.Candidate {
	// Pool names have the form
	// projects/{number}/locations/global/workloadIdentityPools/{id}.
	project := p.Name
	if i := strings.Index(project, "/locations/"); i >= 0 {
		project = project[:i]
	}
	return reconcile.Candidate{
		Name: p.Name,
		State: &WorkloadIdentityPool{
			Project:     project,
			PoolID:      lastSegment(p.Name),
			DisplayName: p.DisplayName,
			Description: p.Description,
			Disabled:    p.Disabled,
		},
	}
}

// WorkloadIdentityProviderAdapter reconciles OIDC providers inside a pool.
type WorkloadIdentityProviderAdapter struct {
	svc *Service
}

// WorkloadIdentityProviders returns the provider adapter.
func (s *Service) WorkloadIdentityProviders() *WorkloadIdentityProviderAdapter {
	return &WorkloadIdentityProviderAdapter{svc: s}
}

var _ reconcile.Adapter = (*WorkloadIdentityProviderAdapter)(nil)

// Kind implements reconcile.Adapter.
func (a *WorkloadIdentityProviderAdapter) Kind() string {
	return (&WorkloadIdentityProvider{}).Kind()
}

// List implements reconcile.Adapter.
func (a *WorkloadIdentityProviderAdapter) List(ctx context.Context, id resource.Identity, pageToken string) ([]reconcile.Candidate, string, error) {
	resp, err := a.svc.iam.Projects.Locations.WorkloadIdentityPools.Providers.List(id.Scope).
		PageToken(pageToken).
		Context(ctx).
		Do()
	if err != nil {
		return nil, "", handleCallError(err)
	}
	items := make([]reconcile.Candidate, len(resp.WorkloadIdentityPoolProviders))
	for i, p := range resp.WorkloadIdentityPoolProviders {
		items[i] = providerCandidate(p)
	}
	return items, resp.NextPageToken, nil
}

// Matches implements reconcile.Adapter.
func (a *WorkloadIdentityProviderAdapter) Matches(item reconcile.Candidate, id resource.Identity) bool {
	p, ok := item.State.(*WorkloadIdentityProvider)
	return ok && p.Identity() == id
}

// Create implements reconcile.Adapter.
func (a *WorkloadIdentityProviderAdapter) Create(ctx context.Context, desc resource.Descriptor) (reconcile.Operation, error) {
	p := desc.(*WorkloadIdentityProvider)
	op, err := a.svc.iam.Projects.Locations.WorkloadIdentityPools.Providers.Create(p.Pool, providerBody(p)).
		WorkloadIdentityPoolProviderId(p.ProviderID).
		Context(ctx).
		Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return iamOperation(op), nil
}

// Patch implements reconcile.Adapter.
func (a *WorkloadIdentityProviderAdapter) Patch(ctx context.Context, existing reconcile.Candidate, mask resource.Mask, desc resource.Descriptor) (reconcile.Operation, error) {
	p := desc.(*WorkloadIdentityProvider)
	body := providerBody(p)
	if mask.Contains("disabled") {
		body.ForceSendFields = append(body.ForceSendFields, "Disabled")
	}
	op, err := a.svc.iam.Projects.Locations.WorkloadIdentityPools.Providers.Patch(existing.Name, body).
		UpdateMask(strings.Join(mask, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return iamOperation(op), nil
}

// FetchOperation implements reconcile.Adapter.
func (a *WorkloadIdentityProviderAdapter) FetchOperation(ctx context.Context, name string) (reconcile.Operation, error) {
	op, err := a.svc.iam.Projects.Locations.WorkloadIdentityPools.Providers.Operations.Get(name).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return iamOperation(op), nil
}

// Classify implements reconcile.Adapter.
func (a *WorkloadIdentityProviderAdapter) Classify(op reconcile.Operation) reconcile.Classified {
	return classifyIAM(op, func(msg googleapi.RawMessage) *reconcile.Candidate {
		var p iam.WorkloadIdentityPoolProvider
		if !decodeInto(msg, &p) {
			return nil
		}
		c := providerCandidate(&p)
		return &c
	})
}

// GetPolicy implements reconcile.Adapter.
func (a *WorkloadIdentityProviderAdapter) GetPolicy(ctx context.Context, resourceName string) (reconcile.Policy, error) {
	return nil, errors.Errorf("workload identity providers carry no access policy (got %q)", resourceName)
}

// SetPolicy implements reconcile.Adapter.
func (a *WorkloadIdentityProviderAdapter) SetPolicy(ctx context.Context, resourceName string, policy reconcile.Policy) error {
	return errors.Errorf("workload identity providers carry no access policy (got %q)", resourceName)
}

func providerBody(p *WorkloadIdentityProvider) *iam.WorkloadIdentityPoolProvider {
	return &iam.WorkloadIdentityPoolProvider{
		DisplayName:        p.DisplayName,
		Description:        p.Description,
		Disabled:           p.Disabled,
		AttributeCondition: p.AttributeCondition,
		AttributeMapping:   p.AttributeMapping,
		Oidc: &iam.Oidc{
			IssuerUri:        p.IssuerURI,
			AllowedAudiences: p.AllowedAudiences,
		},
	}
}

func providerCandidate(p *iam.WorkloadIdentityPoolProvider) reconcile.Candidate {
	pool := p.Name
	if i := strings.Index(pool, "/providers/"); i >= 0 {
		pool = pool[:i]
	}
	state := &WorkloadIdentityProvider{
		Pool:               pool,
		ProviderID:         lastSegment(p.Name),
		DisplayName:        p.DisplayName,
		Description:        p.Description,
		Disabled:           p.Disabled,
		AttributeCondition: p.AttributeCondition,
		AttributeMapping:   p.AttributeMapping,
	}
	if p.Oidc != nil {
		state.IssuerURI = p.Oidc.IssuerUri
		state.AllowedAudiences = p.Oidc.AllowedAudiences
	}
	return reconcile.Candidate{Name: p.Name, State: state}
}
