package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"payment-schedule/domain"
	"payment-schedule/repository"
	"payment-schedule/service"
)

type ProjectHandler struct {
	service *service.ScheduleService
	logger  *zap.Logger
}

func NewProjectHandler(service *service.ScheduleService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{service: service, logger: logger}
}

type saveScheduleRequest struct {
	Stages domain.PaymentSchedule `json:"stages"`
}

type rejectedResponse struct {
	Error  string                   `json:"error"`
	Errors []domain.ValidationError `json:"errors"`
}

// CreateProject handles POST /projects.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}

	var input domain.ProjectInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	project, err := h.service.CreateProject(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, project)
}

// GetSchedule handles GET /projects/{id}/schedule.
func (h *ProjectHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GetSchedule(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// SaveSchedule handles PUT /projects/{id}/schedule.
func (h *ProjectHandler) SaveSchedule(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}

	var req saveScheduleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	canEdit := hasPermission(r, service.PermissionEditSchedule)
	result, err := h.service.SaveSchedule(r.Context(), r.PathValue("id"), req.Stages, canEdit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// ResetSchedule handles DELETE /projects/{id}/schedule.
func (h *ProjectHandler) ResetSchedule(w http.ResponseWriter, r *http.Request) {
	canEdit := hasPermission(r, service.PermissionEditSchedule)
	result, err := h.service.ResetSchedule(r.Context(), r.PathValue("id"), canEdit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// AddStage handles POST /projects/{id}/schedule/stages.
func (h *ProjectHandler) AddStage(w http.ResponseWriter, r *http.Request) {
	canEdit := hasPermission(r, service.PermissionEditSchedule)
	result, err := h.service.AddStage(r.Context(), r.PathValue("id"), canEdit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// UpdateStage handles PUT /projects/{id}/schedule/stages/{index}. The body
// is a single stage record.
func (h *ProjectHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	index, ok := stageIndex(w, r)
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}

	var record domain.StageRecord
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&record); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	stage, err := record.ToStage()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	canEdit := hasPermission(r, service.PermissionEditSchedule)
	result, err := h.service.UpdateStage(r.Context(), r.PathValue("id"), index, stage, canEdit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// RemoveStage handles DELETE /projects/{id}/schedule/stages/{index}.
func (h *ProjectHandler) RemoveStage(w http.ResponseWriter, r *http.Request) {
	index, ok := stageIndex(w, r)
	if !ok {
		return
	}

	canEdit := hasPermission(r, service.PermissionEditSchedule)
	result, err := h.service.RemoveStage(r.Context(), r.PathValue("id"), index, canEdit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func stageIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "stage index must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}

func (h *ProjectHandler) writeServiceError(w http.ResponseWriter, err error) {
	var rejected *service.ScheduleRejectedError
	switch {
	case errors.As(err, &rejected):
		writeJSON(w, h.logger, http.StatusUnprocessableEntity, rejectedResponse{
			Error:  "schedule rejected",
			Errors: rejected.Errors,
		})
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, repository.ErrProjectNotFound),
		errors.Is(err, domain.ErrStageIndexOutOfRange):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("project request failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
