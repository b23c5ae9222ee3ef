package gcloud

import (
	"encoding/json"

	cloudresourcemanager "google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/googleapi"
	iam "google.golang.org/api/iam/v1"

	"github.com/psetup/psetup/reconcile"
)

// The discovery clients decode operations into typed structs whose done
// flag is defined by contract (absent means still running), so the status
// is always known once a payload exists. The two-phase awaiter still
// guards providers that return operations without any status.

func crmOperation(op *cloudresourcemanager.Operation) reconcile.Operation {
	if op == nil {
		return reconcile.Operation{}
	}
	return reconcile.Operation{Name: op.Name, Raw: op}
}

// classifyCRM normalizes a resource manager operation. decode maps the
// response payload to a candidate; it is nil for kinds whose success
// contract has no response body.
func classifyCRM(raw reconcile.Operation, decode func(googleapi.RawMessage) *reconcile.Candidate) reconcile.Classified {
	op, ok := raw.Raw.(*cloudresourcemanager.Operation)
	if !ok || op == nil {
		return reconcile.Classified{}
	}
	c := reconcile.Classified{StatusKnown: true, Done: op.Done}
	if !op.Done {
		return c
	}
	if op.Error != nil {
		c.Failure = op.Error
		return c
	}
	if decode == nil {
		c.NoResponseBody = true
		return c
	}
	if len(op.Response) > 0 {
		c.Result = decode(op.Response)
	}
	return c
}

func iamOperation(op *iam.Operation) reconcile.Operation {
	if op == nil {
		return reconcile.Operation{}
	}
	return reconcile.Operation{Name: op.Name, Raw: op}
}

// classifyIAM normalizes an iam operation the same way classifyCRM does
// for resource manager operations.
func classifyIAM(raw reconcile.Operation, decode func(googleapi.RawMessage) *reconcile.Candidate) reconcile.Classified {
	op, ok := raw.Raw.(*iam.Operation)
	if !ok || op == nil {
		return reconcile.Classified{}
	}
	c := reconcile.Classified{StatusKnown: true, Done: op.Done}
	if !op.Done {
		return c
	}
	if op.Error != nil {
		c.Failure = op.Error
		return c
	}
	if decode == nil {
		c.NoResponseBody = true
		return c
	}
	if len(op.Response) > 0 {
		c.Result = decode(op.Response)
	}
	return c
}

// decodeInto unmarshals an operation response payload. Returns false when
// the payload cannot be decoded; the awaiter then reports the operation as
// malformed through the missing result.
func decodeInto(msg googleapi.RawMessage, v interface{}) bool {
	return json.Unmarshal(msg, v) == nil
}
