package gcloud

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	iam "google.golang.org/api/iam/v1"

	"github.com/psetup/psetup/reconcile"
	"github.com/psetup/psetup/resource"
)

func TestPoolCandidate(t *testing.T) {
	got := poolCandidate(&iam.WorkloadIdentityPool{
		Name:        "projects/831/locations/global/workloadIdentityPools/github",
		DisplayName: "GitHub",
		Description: "CI federation",
		Disabled:    true,
	})
	want := reconcile.Candidate{
		Name: "projects/831/locations/global/workloadIdentityPools/github",
		State: &WorkloadIdentityPool{
			Project:     "projects/831",
			PoolID:      "github",
			DisplayName: "GitHub",
			Description: "CI federation",
			Disabled:    true,
		},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("poolCandidate() (-got +want)\n%s", diff)
	}
}

func TestProviderCandidate(t *testing.T) {
	got := providerCandidate(&iam.WorkloadIdentityPoolProvider{
		Name:               "projects/831/locations/global/workloadIdentityPools/github/providers/oidc",
		DisplayName:        "GitHub OIDC",
		AttributeCondition: `assertion.repository_owner == "example"`,
		AttributeMapping:   map[string]string{"google.subject": "assertion.sub"},
		Oidc: &iam.Oidc{
			IssuerUri:        "https://token.actions.githubusercontent.com",
			AllowedAudiences: []string{"https://example.com"},
		},
	})
	want := reconcile.Candidate{
		Name: "projects/831/locations/global/workloadIdentityPools/github/providers/oidc",
		State: &WorkloadIdentityProvider{
			Pool:               "projects/831/locations/global/workloadIdentityPools/github",
			ProviderID:         "oidc",
			DisplayName:        "GitHub OIDC",
			AttributeCondition: `assertion.repository_owner == "example"`,
			AttributeMapping:   map[string]string{"google.subject": "assertion.sub"},
			IssuerURI:          "https://token.actions.githubusercontent.com",
			AllowedAudiences:   []string{"https://example.com"},
		},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("providerCandidate() (-got +want)\n%s", diff)
	}
}

func TestProviderCandidate_noOIDC(t *testing.T) {
	got := providerCandidate(&iam.WorkloadIdentityPoolProvider{
		Name: "projects/831/locations/global/workloadIdentityPools/github/providers/oidc",
	})
	p := got.State.(*WorkloadIdentityProvider)
	if p.IssuerURI != "" || p.AllowedAudiences != nil {
		t.Errorf("providerCandidate() without oidc = %+v, want empty issuer", p)
	}
}

func TestWorkloadIdentityPool_diffManagedDisabled(t *testing.T) {
	declared := &WorkloadIdentityPool{
		Project:     "projects/831",
		PoolID:      "github",
		DisplayName: "GitHub",
	}
	disabled := &WorkloadIdentityPool{
		Project:     "projects/831",
		PoolID:      "github",
		DisplayName: "GitHub",
		Disabled:    true,
	}

	// Disabled is managed: the declared false value re-enables a pool
	// found disabled instead of being skipped as unset.
	mask, err := resource.Diff(declared, disabled)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	want := resource.Mask{"disabled"}
	if diff := cmp.Diff(mask, want); diff != "" {
		t.Errorf("Diff() (-got +want)\n%s", diff)
	}
}

func TestWorkloadIdentityProvider_identityFromPool(t *testing.T) {
	p := &WorkloadIdentityProvider{
		Pool:       "projects/831/locations/global/workloadIdentityPools/github",
		ProviderID: "oidc",
	}
	want := resource.Identity{
		Scope: "projects/831/locations/global/workloadIdentityPools/github",
		Key:   "oidc",
	}
	if got := p.Identity(); got != want {
		t.Errorf("Identity() = %v, want %v", got, want)
	}
}
