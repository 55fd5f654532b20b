package workflows

import (
	"time"

	"github.com/mypropai/manage-api/internal/ledger"
	"github.com/mypropai/manage-api/internal/temporal"
	"github.com/mypropai/manage-api/internal/temporal/activities"
	"go.temporal.io/sdk/workflow"
)

// RecurringChargeWorkflow is scheduled by cron and runs one daily posting
// pass. The run date comes from workflow.Now so the workflow stays
// deterministic on replay.
func RecurringChargeWorkflow(ctx workflow.Context) (ledger.Summary, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
		HeartbeatTimeout:    30 * time.Second,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	runDate := workflow.Now(ctx).UTC()
	logger.Info("Starting recurring charge workflow", "runDate", runDate.Format("2006-01-02"))

	// The actual implementation is on the worker; this is just a proxy.
	var a *activities.Activities

	var summary ledger.Summary
	err := workflow.ExecuteActivity(ctx, a.PostRecurringChargesActivity, runDate).Get(ctx, &summary)
	if err != nil {
		logger.Error("Recurring charge activity failed.", "error", err)
		return summary, err
	}

	logger.Info("Recurring charge workflow completed.",
		"posted", summary.Posted, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}
