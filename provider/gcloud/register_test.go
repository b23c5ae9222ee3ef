package gcloud

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/psetup/psetup/resource"
	"github.com/psetup/psetup/resource/validation"
)

func TestRegister(t *testing.T) {
	reg := &resource.Registry{}
	Register(reg)

	got := reg.Kinds()
	want := []string{
		"gcloud_folder",
		"gcloud_project",
		"gcloud_role",
		"gcloud_service_account",
		"gcloud_tag_key",
		"gcloud_tag_value",
		"gcloud_workload_identity_pool",
		"gcloud_workload_identity_provider",
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Kinds() (-got +want)\n%s", diff)
	}
}

func TestValidateDescriptors(t *testing.T) {
	v := validation.New()
	validation.AddBuiltin(v)

	valid := []resource.Descriptor{
		&Project{Parent: "organizations/123", DisplayName: "root-42"},
		&Folder{Parent: "organizations/123", DisplayName: "Production"},
		&ServiceAccount{Project: "projects/root-42-a1b2", AccountID: "deployer"},
		&Role{Parent: "organizations/123", RoleID: "executive", Stage: "GA"},
		&WorkloadIdentityPool{Project: "projects/root-42-a1b2", PoolID: "github"},
		&WorkloadIdentityProvider{
			Pool:       "projects/831/locations/global/workloadIdentityPools/github",
			ProviderID: "oidc",
		},
	}
	for _, desc := range valid {
		if err := v.Descriptor(desc); err != nil {
			t.Errorf("Descriptor(%s) error = %v, want valid", desc.Kind(), err)
		}
	}

	invalid := []struct {
		desc resource.Descriptor
		want string
	}{
		{&Project{DisplayName: "root-42"}, "Parent"},
		{&Project{Parent: "organizations/123", DisplayName: "abc"}, "DisplayName"},
		{&ServiceAccount{Project: "root-42-a1b2", AccountID: "deployer"}, "Project"},
		{&ServiceAccount{Project: "projects/root-42-a1b2", AccountID: "ci"}, "AccountID"},
		{&Role{Parent: "organizations/123", RoleID: "executive", Stage: "LIVE"}, "stage"},
	}
	for _, tt := range invalid {
		err := v.Descriptor(tt.desc)
		if err == nil {
			t.Errorf("Descriptor(%s) error = nil, want failure on %s", tt.desc.Kind(), tt.want)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("Descriptor(%s) error = %v, want mention of %s", tt.desc.Kind(), err, tt.want)
		}
	}
}
