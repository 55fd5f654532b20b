package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/mypropai/manage-api/internal/ledger"
)

type Activities struct {
	Engine *ledger.Engine
}

// PostRecurringChargesActivity runs one posting engine pass for the given
// day. The engine's storage markers make retries of this activity safe.
func (a *Activities) PostRecurringChargesActivity(ctx context.Context, runDate time.Time) (ledger.Summary, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Running recurring charge pass", "runDate", runDate.Format("2006-01-02"))

	summary, err := a.Engine.Run(ctx, runDate)
	if err != nil {
		logger.Error("Recurring charge pass failed", "error", err)
		return summary, err
	}
	return summary, nil
}
