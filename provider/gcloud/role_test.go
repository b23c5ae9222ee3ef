package gcloud

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	iam "google.golang.org/api/iam/v1"

	"github.com/psetup/psetup/reconcile"
	"github.com/psetup/psetup/resource"
)

func TestRole_Name(t *testing.T) {
	r := &Role{Parent: "organizations/123", RoleID: "executive"}
	if got, want := r.Name(), "organizations/123/roles/executive"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
}

func TestRoleCandidate(t *testing.T) {
	got := roleCandidate("organizations/123", &iam.Role{
		Name:                "organizations/123/roles/executive",
		Title:               "Executive",
		Stage:               "GA",
		IncludedPermissions: []string{"resourcemanager.folders.list"},
	})
	want := reconcile.Candidate{
		Name: "organizations/123/roles/executive",
		State: &Role{
			Parent:              "organizations/123",
			RoleID:              "executive",
			Title:               "Executive",
			Stage:               "GA",
			IncludedPermissions: []string{"resourcemanager.folders.list"},
		},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("roleCandidate() (-got +want)\n%s", diff)
	}
}

func TestRole_diffPermissionsAsSet(t *testing.T) {
	declared := &Role{
		Parent: "organizations/123",
		RoleID: "executive",
		Title:  "Executive",
		Stage:  "GA",
		IncludedPermissions: []string{
			"resourcemanager.folders.list",
			"billing.accounts.list",
		},
	}

	// The remote system reorders permissions; order is not drift.
	reordered := &Role{
		Parent: "organizations/123",
		RoleID: "executive",
		Title:  "Executive",
		Stage:  "GA",
		IncludedPermissions: []string{
			"billing.accounts.list",
			"resourcemanager.folders.list",
		},
	}
	mask, err := resource.Diff(declared, reordered)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if !mask.Empty() {
		t.Errorf("Diff() = %v, want no drift for reordered permissions", mask)
	}

	// A missing permission is drift.
	narrowed := &Role{
		Parent:              "organizations/123",
		RoleID:              "executive",
		Title:               "Executive",
		Stage:               "GA",
		IncludedPermissions: []string{"billing.accounts.list"},
	}
	mask, err = resource.Diff(declared, narrowed)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	want := resource.Mask{"includedPermissions"}
	if diff := cmp.Diff(mask, want); diff != "" {
		t.Errorf("Diff() (-got +want)\n%s", diff)
	}
}

func TestRoleAdapter_Classify(t *testing.T) {
	a := &RoleAdapter{}

	c := a.Classify(reconcile.Operation{Raw: withParent("organizations/123", &iam.Role{
		Name:  "organizations/123/roles/executive",
		Title: "Executive",
	})})
	if !c.StatusKnown || !c.Done {
		t.Fatalf("Classify() = %+v, want a done status", c)
	}
	r := c.Result.State.(*Role)
	if r.Parent != "organizations/123" || r.RoleID != "executive" {
		t.Errorf("Classify() role = %+v, want organizations/123 executive", r)
	}
}
