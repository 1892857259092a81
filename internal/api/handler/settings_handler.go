package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"progresstracker/internal/common"
	"progresstracker/internal/database"
	"progresstracker/internal/models"

	"github.com/go-chi/chi/v5"
)

// ScheduleUpdater is the slice of the scheduler the settings endpoint needs.
type ScheduleUpdater interface {
	UpdateSchedule(ctx context.Context, timeOfDay string, frequency models.SyncFrequency) error
}

type SettingsHandler struct {
	settingsRepo *database.SettingsRepository
	scheduler    ScheduleUpdater
}

func NewSettingsHandler(settingsRepo *database.SettingsRepository, scheduler ScheduleUpdater) *SettingsHandler {
	return &SettingsHandler{settingsRepo: settingsRepo, scheduler: scheduler}
}

func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.getSettings)
	r.Put("/", h.updateSettings)
}

type settingsRequest struct {
	SyncTime                string               `json:"sync_time"`
	SyncFrequency           models.SyncFrequency `json:"sync_frequency"`
	InactivityThresholdDays *int                 `json:"inactivity_threshold_days"`
	SMTPHost                *string              `json:"smtp_host"`
	SMTPPort                *int                 `json:"smtp_port"`
	SMTPUser                *string              `json:"smtp_user"`
	SMTPPassword            *string              `json:"smtp_password"`
	FromEmail               *string              `json:"from_email"`
}

func (h *SettingsHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsRepo.GetOrCreate(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Failed to fetch settings")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	// Schedule fields are validated and persisted by the scheduler so the
	// recurring job is swapped in the same step.
	if req.SyncTime != "" || req.SyncFrequency != "" {
		current, err := h.settingsRepo.GetOrCreate(r.Context())
		if err != nil {
			common.RespondWithError(w, common.HTTPStatusFromError(err), "Failed to fetch settings")
			return
		}

		syncTime := current.SyncTime
		if req.SyncTime != "" {
			syncTime = req.SyncTime
		}
		frequency := current.SyncFrequency
		if req.SyncFrequency != "" {
			frequency = req.SyncFrequency
		}

		if err := h.scheduler.UpdateSchedule(r.Context(), syncTime, frequency); err != nil {
			if errors.Is(err, common.ErrValidation) {
				common.RespondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			common.RespondWithError(w, common.HTTPStatusFromError(err), "Failed to update schedule")
			return
		}
	}

	settings, err := h.settingsRepo.GetOrCreate(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Failed to fetch settings")
		return
	}

	if req.InactivityThresholdDays != nil {
		if *req.InactivityThresholdDays <= 0 {
			common.RespondWithError(w, http.StatusBadRequest, "Inactivity threshold must be a positive number of days")
			return
		}
		settings.InactivityThresholdDays = *req.InactivityThresholdDays
	}
	if req.SMTPHost != nil {
		settings.SMTPHost = *req.SMTPHost
	}
	if req.SMTPPort != nil {
		settings.SMTPPort = *req.SMTPPort
	}
	if req.SMTPUser != nil {
		settings.SMTPUser = *req.SMTPUser
	}
	if req.SMTPPassword != nil {
		settings.SMTPPassword = *req.SMTPPassword
	}
	if req.FromEmail != nil {
		settings.FromEmail = *req.FromEmail
	}

	if err := h.settingsRepo.Save(r.Context(), settings); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Failed to update settings")
		return
	}

	common.RespondWithJSON(w, http.StatusOK, settings)
}
