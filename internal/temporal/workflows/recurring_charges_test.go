package workflows

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/mypropai/manage-api/internal/ledger"
	"github.com/mypropai/manage-api/internal/temporal/activities"
)

func TestRecurringChargeWorkflow(t *testing.T) {
	t.Run("Passes Workflow Time To The Activity", func(t *testing.T) {
		var ts testsuite.WorkflowTestSuite
		env := ts.NewTestWorkflowEnvironment()

		var a *activities.Activities
		env.OnActivity(a.PostRecurringChargesActivity, mock.Anything, mock.AnythingOfType("time.Time")).
			Return(ledger.Summary{Due: 3, Posted: 2, Skipped: 1}, nil)

		env.ExecuteWorkflow(RecurringChargeWorkflow)

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var summary ledger.Summary
		require.NoError(t, env.GetWorkflowResult(&summary))
		assert.Equal(t, 2, summary.Posted)
		assert.Equal(t, 1, summary.Skipped)
	})

	t.Run("Propagates Activity Failure", func(t *testing.T) {
		var ts testsuite.WorkflowTestSuite
		env := ts.NewTestWorkflowEnvironment()

		var a *activities.Activities
		env.OnActivity(a.PostRecurringChargesActivity, mock.Anything, mock.Anything).
			Return(ledger.Summary{}, assert.AnError)
		env.SetTestTimeout(time.Minute)

		env.ExecuteWorkflow(RecurringChargeWorkflow)

		require.True(t, env.IsWorkflowCompleted())
		assert.Error(t, env.GetWorkflowError())
	})
}
