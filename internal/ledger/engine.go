package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mypropai/manage-api/internal/repository"
	"github.com/rs/zerolog"
)

// Summary reports what a single engine run did. Skipped counts charges whose
// posting marker for the day already existed, so reruns of the same day
// produce Skipped == Due with no new ledger entries.
type Summary struct {
	RunID          string    `json:"run_id"`
	RunDate        time.Time `json:"run_date"`
	Due            int       `json:"due"`
	Posted         int       `json:"posted"`
	Skipped        int       `json:"skipped"`
	Failed         int       `json:"failed"`
	LateFeesPosted int       `json:"late_fees_posted"`
	LateFeesFailed int       `json:"late_fees_failed"`
}

// Engine performs the daily recurring charge pass over every active lease.
type Engine struct {
	repo           repository.LedgerRepository
	metrics        *EngineMetrics
	logger         zerolog.Logger
	assessLateFees bool
}

func NewEngine(repo repository.LedgerRepository, metrics *EngineMetrics, logger zerolog.Logger, assessLateFees bool) *Engine {
	return &Engine{
		repo:           repo,
		metrics:        metrics,
		logger:         logger,
		assessLateFees: assessLateFees,
	}
}

// Run posts every recurring charge due on now's day of month. A failure on
// one charge is logged and counted; the run continues with the rest.
func (e *Engine) Run(ctx context.Context, now time.Time) (Summary, error) {
	started := time.Now()
	day := now.Day()
	postedOn := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	summary := Summary{
		RunID:   uuid.NewString(),
		RunDate: postedOn,
	}
	logger := e.logger.With().Str("run_id", summary.RunID).Int("day_of_month", day).Logger()
	logger.Info().Msg("Starting recurring charge run")

	due, err := e.repo.ListDueCharges(ctx, day)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list due charges")
		return summary, err
	}
	summary.Due = len(due)

	for _, charge := range due {
		posted, err := e.repo.PostRecurringCharge(ctx, charge, postedOn)
		switch {
		case err != nil:
			summary.Failed++
			e.metrics.PostingsTotal.WithLabelValues("failed").Inc()
			logger.Error().Err(err).
				Str("lease_id", charge.LeaseID).
				Str("recurring_charge_id", charge.RecurringChargeID).
				Msg("Failed to post recurring charge")
		case posted:
			summary.Posted++
			e.metrics.PostingsTotal.WithLabelValues("posted").Inc()
		default:
			summary.Skipped++
			e.metrics.PostingsTotal.WithLabelValues("skipped").Inc()
		}
	}

	if e.assessLateFees {
		e.runLateFees(ctx, logger, postedOn, &summary)
	}

	e.metrics.RunsTotal.Inc()
	e.metrics.RunDuration.Observe(time.Since(started).Seconds())
	e.metrics.LastRunUnixtime.SetToCurrentTime()

	logger.Info().
		Int("due", summary.Due).
		Int("posted", summary.Posted).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("late_fees_posted", summary.LateFeesPosted).
		Msg("Recurring charge run complete")
	return summary, nil
}

func (e *Engine) runLateFees(ctx context.Context, logger zerolog.Logger, postedOn time.Time, summary *Summary) {
	candidates, err := e.repo.ListLateFeeCandidates(ctx, postedOn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list late fee candidates")
		return
	}

	for _, candidate := range candidates {
		posted, err := e.repo.PostLateFee(ctx, candidate, postedOn)
		if err != nil {
			summary.LateFeesFailed++
			e.metrics.LateFeesTotal.WithLabelValues("failed").Inc()
			logger.Error().Err(err).Str("lease_id", candidate.LeaseID).Msg("Failed to post late fee")
			continue
		}
		if posted {
			summary.LateFeesPosted++
			e.metrics.LateFeesTotal.WithLabelValues("posted").Inc()
		} else {
			e.metrics.LateFeesTotal.WithLabelValues("skipped").Inc()
		}
	}
}
