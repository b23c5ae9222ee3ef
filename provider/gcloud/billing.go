package gcloud

import (
	"context"

	"github.com/pkg/errors"
	cloudbilling "google.golang.org/api/cloudbilling/v1"
)

// LinkBilling links the project to a billing account. The call is
// synchronous and idempotent: linking an already-linked account changes
// nothing.
//
// project is the project id ("my-project-123"), billingAccount the account
// name ("billingAccounts/0000AA-BBBBBB-CCCCCC").
func (s *Service) LinkBilling(ctx context.Context, project, billingAccount string) error {
	if s.billing == nil {
		return errors.New("billing client not configured")
	}
	_, err := s.billing.Projects.UpdateBillingInfo("projects/"+project, &cloudbilling.ProjectBillingInfo{
		BillingAccountName: billingAccount,
	}).Context(ctx).Do()
	return errors.Wrapf(handleCallError(err), "link %s to %s", project, billingAccount)
}
