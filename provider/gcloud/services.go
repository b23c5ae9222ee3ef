package gcloud

import (
	"context"

	"github.com/pkg/errors"
	serviceusage "google.golang.org/api/serviceusage/v1"

	"github.com/psetup/psetup/reconcile"
	"github.com/psetup/psetup/resource"
)

// EnableServices enables the listed APIs on the project in one batch and
// waits for the enablement operation to complete with the given awaiter.
// Already-enabled services are a no-op on the remote side.
func (s *Service) EnableServices(ctx context.Context, aw reconcile.Awaiter, project string, services []string) error {
	if len(services) == 0 {
		return nil
	}
	if s.usage == nil {
		return errors.New("service usage client not configured")
	}
	op, err := s.usage.Services.BatchEnable(project, &serviceusage.BatchEnableServicesRequest{
		ServiceIds: services,
	}).Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "batch enable %d services on %s", len(services), project)
	}
	id := resource.Identity{Scope: project, Key: "services"}
	_, err = aw.Await(ctx, &serviceUsagePoller{svc: s.usage}, id, usageOperation(op))
	return err
}

// serviceUsagePoller satisfies the awaiter's poller contract for batch
// enablement operations, whose success response carries no resource body
// the engine needs.
type serviceUsagePoller struct {
	svc *serviceusage.Service
}

var _ reconcile.OperationPoller = (*serviceUsagePoller)(nil)

func (p *serviceUsagePoller) Kind() string { return "gcloud_service_usage" }

func (p *serviceUsagePoller) FetchOperation(ctx context.Context, name string) (reconcile.Operation, error) {
	op, err := p.svc.Operations.Get(name).Context(ctx).Do()
	if err != nil {
		return reconcile.Operation{}, handleCallError(err)
	}
	return usageOperation(op), nil
}

func (p *serviceUsagePoller) Classify(raw reconcile.Operation) reconcile.Classified {
	op, ok := raw.Raw.(*serviceusage.Operation)
	if !ok || op == nil {
		return reconcile.Classified{}
	}
	c := reconcile.Classified{StatusKnown: true, Done: op.Done}
	if op.Done && op.Error != nil {
		c.Failure = op.Error
		return c
	}
	c.NoResponseBody = true
	return c
}

func usageOperation(op *serviceusage.Operation) reconcile.Operation {
	if op == nil {
		return reconcile.Operation{}
	}
	return reconcile.Operation{Name: op.Name, Raw: op}
}
