package handlers

import (
	"net/http"
	"time"

	"github.com/mypropai/manage-api/internal/ledger"
	"github.com/rs/zerolog"
)

// SchedulerHandler exposes an on-demand trigger for the posting engine. The
// cron workflow and this endpoint share the engine, so a manual run on a day
// the cron already covered only produces skips.
type SchedulerHandler struct {
	engine *ledger.Engine
	logger zerolog.Logger
}

func NewSchedulerHandler(engine *ledger.Engine, logger zerolog.Logger) *SchedulerHandler {
	return &SchedulerHandler{engine: engine, logger: logger}
}

func (h *SchedulerHandler) RunRecurringCharges(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.Run(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error().Err(err).Msg("Manual recurring charge run failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
