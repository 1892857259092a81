package handler

import (
	"context"
	"log"
	"net/http"

	"progresstracker/internal/common"
	"progresstracker/internal/notify"
	datasync "progresstracker/internal/sync"

	"github.com/go-chi/chi/v5"
)

// SyncRunner runs a full sync pass over every active student.
type SyncRunner interface {
	SyncAll(ctx context.Context) (datasync.Summary, error)
}

// InactivityRunner scans for inactive students and sends reminders.
type InactivityRunner interface {
	CheckInactiveAndNotify(ctx context.Context) (notify.Summary, error)
}

type SyncHandler struct {
	orchestrator SyncRunner
	notifier     InactivityRunner
}

func NewSyncHandler(orchestrator SyncRunner, notifier InactivityRunner) *SyncHandler {
	return &SyncHandler{orchestrator: orchestrator, notifier: notifier}
}

func (h *SyncHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sync/run", h.runSync)
	r.Post("/notify/run", h.runNotify)
}

func (h *SyncHandler) runSync(w http.ResponseWriter, r *http.Request) {
	summary, err := h.orchestrator.SyncAll(r.Context())
	if err != nil {
		log.Printf("Manual sync failed: %v", err)
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Sync failed: "+err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *SyncHandler) runNotify(w http.ResponseWriter, r *http.Request) {
	summary, err := h.notifier.CheckInactiveAndNotify(r.Context())
	if err != nil {
		log.Printf("Manual inactivity check failed: %v", err)
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Inactivity check failed: "+err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, summary)
}
