package gcloud

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	cloudresourcemanager "google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/googleapi"
	iam "google.golang.org/api/iam/v1"

	"github.com/psetup/psetup/reconcile"
)

func TestClassifyCRM(t *testing.T) {
	decode := func(msg googleapi.RawMessage) *reconcile.Candidate {
		var p cloudresourcemanager.Project
		if !decodeInto(msg, &p) {
			return nil
		}
		c := projectCandidate(&p)
		return &c
	}

	tests := []struct {
		name   string
		op     reconcile.Operation
		decode func(googleapi.RawMessage) *reconcile.Candidate
		want   reconcile.Classified
	}{
		{
			name: "Running",
			op:   crmOperation(&cloudresourcemanager.Operation{Name: "operations/cp.1"}),
			want: reconcile.Classified{StatusKnown: true},
		},
		{
			name: "Failed",
			op: crmOperation(&cloudresourcemanager.Operation{
				Name: "operations/cp.1",
				Done: true,
				Error: &cloudresourcemanager.Status{
					Code:    7,
					Message: "The caller does not have permission",
				},
			}),
			want: reconcile.Classified{
				StatusKnown: true,
				Done:        true,
				Failure: &cloudresourcemanager.Status{
					Code:    7,
					Message: "The caller does not have permission",
				},
			},
		},
		{
			name: "DoneWithResponse",
			op: crmOperation(&cloudresourcemanager.Operation{
				Name:     "operations/cp.1",
				Done:     true,
				Response: googleapi.RawMessage(`{"name":"projects/999","parent":"organizations/123","displayName":"root-42","projectId":"root-42-a1b2"}`),
			}),
			decode: decode,
			want: reconcile.Classified{
				StatusKnown: true,
				Done:        true,
				Result: &reconcile.Candidate{
					Name: "projects/999",
					State: &Project{
						Parent:      "organizations/123",
						DisplayName: "root-42",
						ProjectID:   "root-42-a1b2",
					},
				},
			},
		},
		{
			name: "DoneNoResponseContract",
			op:   crmOperation(&cloudresourcemanager.Operation{Name: "operations/cp.1", Done: true}),
			want: reconcile.Classified{StatusKnown: true, Done: true, NoResponseBody: true},
		},
		{
			name: "ForeignPayload",
			op:   reconcile.Operation{Name: "operations/cp.1", Raw: "not an operation"},
			want: reconcile.Classified{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := tt.decode
			if dec == nil && tt.name != "DoneNoResponseContract" {
				dec = decode
			}
			got := classifyCRM(tt.op, dec)
			if diff := cmp.Diff(got, tt.want); diff != "" {
				t.Errorf("classifyCRM() (-got +want)\n%s", diff)
			}
		})
	}
}

func TestClassifyIAM(t *testing.T) {
	decode := func(msg googleapi.RawMessage) *reconcile.Candidate {
		var p iam.WorkloadIdentityPool
		if !decodeInto(msg, &p) {
			return nil
		}
		c := poolCandidate(&p)
		return &c
	}

	op := iamOperation(&iam.Operation{
		Name:     "projects/p/locations/global/workloadIdentityPools/pool/operations/1",
		Done:     true,
		Response: googleapi.RawMessage(`{"name":"projects/p/locations/global/workloadIdentityPools/pool","displayName":"Pool"}`),
	})
	got := classifyIAM(op, decode)
	want := reconcile.Classified{
		StatusKnown: true,
		Done:        true,
		Result: &reconcile.Candidate{
			Name: "projects/p/locations/global/workloadIdentityPools/pool",
			State: &WorkloadIdentityPool{
				Project:     "projects/p",
				PoolID:      "pool",
				DisplayName: "Pool",
			},
		},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("classifyIAM() (-got +want)\n%s", diff)
	}

	// A malformed response decodes to no result; the awaiter reports it.
	bad := iamOperation(&iam.Operation{
		Name:     "projects/p/locations/global/workloadIdentityPools/pool/operations/1",
		Done:     true,
		Response: googleapi.RawMessage(`{`),
	})
	if c := classifyIAM(bad, decode); c.Result != nil {
		t.Errorf("classifyIAM() with malformed response = %+v, want no result", c)
	}
}
