package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/pkg/billing"
	"github.com/flowdeck/flowdeck/pkg/persistence/file"
)

func TestUnlimited(t *testing.T) {
	err := billing.Unlimited{}.AuthorizeWorkflowCreate(t.Context(), "user-1")
	assert.NoError(t, err)
}

func TestQuotaEntitlements(t *testing.T) {
	persistence := file.NewPersistence(t.TempDir())
	repository := persistence.WorkflowRepository()
	entitlements := billing.NewQuotaEntitlements(repository, 2)

	for range 2 {
		require.NoError(t, entitlements.AuthorizeWorkflowCreate(t.Context(), "user-1"))

		_, err := repository.Create(t.Context(), "user-1")
		require.NoError(t, err)
	}

	err := entitlements.AuthorizeWorkflowCreate(t.Context(), "user-1")
	require.Error(t, err)
	assert.True(t, billing.IsEntitlementDenied(err))

	// Quotas are per owner.
	assert.NoError(t, entitlements.AuthorizeWorkflowCreate(t.Context(), "user-2"))
}
