// Package billing gates workflow creation on the caller's plan.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowdeck/flowdeck/pkg/persistence"
)

// ErrEntitlementDenied indicates the caller's plan does not allow the
// attempted operation.
var ErrEntitlementDenied = errors.New("entitlement denied")

// Entitlements answers whether an owner may create another workflow.
type Entitlements interface {
	AuthorizeWorkflowCreate(ctx context.Context, owner string) error
}

// Unlimited allows everything. Used for self-hosted deployments.
type Unlimited struct{}

func (Unlimited) AuthorizeWorkflowCreate(ctx context.Context, owner string) error {
	return nil
}

// QuotaEntitlements caps the number of workflows per owner.
type QuotaEntitlements struct {
	repository   persistence.WorkflowRepository
	maxWorkflows int
}

// NewQuotaEntitlements caps each owner at maxWorkflows workflows.
func NewQuotaEntitlements(repository persistence.WorkflowRepository, maxWorkflows int) *QuotaEntitlements {
	return &QuotaEntitlements{
		repository:   repository,
		maxWorkflows: maxWorkflows,
	}
}

func (q *QuotaEntitlements) AuthorizeWorkflowCreate(ctx context.Context, owner string) error {
	result, err := q.repository.List(ctx, persistence.ListOptions{
		Owner:    owner,
		Page:     1,
		PageSize: 1,
	})
	if err != nil {
		return fmt.Errorf("counting workflows: %w", err)
	}

	if result.TotalCount >= int64(q.maxWorkflows) {
		return fmt.Errorf("%w: workflow limit of %d reached", ErrEntitlementDenied, q.maxWorkflows)
	}

	return nil
}

// IsEntitlementDenied checks if an error is an entitlement denial.
func IsEntitlementDenied(err error) bool {
	return errors.Is(err, ErrEntitlementDenied)
}
