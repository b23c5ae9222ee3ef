// Package gcloud provides reconcile adapters for the Google Cloud
// resources of an organization root structure: project, tag key and value,
// folder, service account, organization role, and workload identity pool
// and provider.
//
// Each adapter documents its PolicyMode: whether the declared access policy
// wholesale replaces the resource's policy, or only extends it.
package gcloud

import (
	"context"
	"net/http"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	cloudbilling "google.golang.org/api/cloudbilling/v1"
	cloudresourcemanager "google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/googleapi"
	iam "google.golang.org/api/iam/v1"
	"google.golang.org/api/option"
	serviceusage "google.golang.org/api/serviceusage/v1"
)

// PolicyMode states how a kind's declared access policy is reconciled.
type PolicyMode int

// Policy modes.
const (
	// PolicyApply wholesale replaces the resource's policy; the declared
	// policy is authoritative for the resource.
	PolicyApply PolicyMode = iota

	// PolicyExtend unions declared bindings into the current policy; the
	// resource is shared with grants this structure does not own.
	PolicyExtend
)

// A Service bundles the Google API clients shared by the adapters.
//
// Construct one Service per reconciliation run and pass it to the adapter
// constructors; no client handle is shared mutably across runs.
type Service struct {
	crm     *cloudresourcemanager.Service
	iam     *iam.Service
	usage   *serviceusage.Service
	billing *cloudbilling.APIService
}

// New creates the API clients. Credentials resolve through Application
// Default Credentials unless overridden with options.
func New(ctx context.Context, opts ...option.ClientOption) (*Service, error) {
	crm, err := cloudresourcemanager.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create resource manager client")
	}
	iamSvc, err := iam.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create iam client")
	}
	usage, err := serviceusage.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create service usage client")
	}
	billing, err := cloudbilling.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create billing client")
	}
	return &Service{crm: crm, iam: iamSvc, usage: usage, billing: billing}, nil
}

// handleCallError classifies a remote error for retry purposes: rate
// limits and server errors are retryable, any other client error is
// permanent.
func handleCallError(err error) error {
	if err == nil {
		return nil
	}
	if gerr, ok := err.(*googleapi.Error); ok {
		if gerr.Code == http.StatusTooManyRequests {
			return err
		}
		if gerr.Code >= 400 && gerr.Code < 500 {
			return backoff.Permanent(err)
		}
		return err
	}
	return err
}

// lastSegment returns the final component of a resource name,
// "pool" in "projects/p/locations/global/workloadIdentityPools/pool".
func lastSegment(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			return name[i+1:]
		}
	}
	return name
}
