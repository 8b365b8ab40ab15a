package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"payment-schedule/domain"
	"payment-schedule/service"
)

const maxBodyBytes = 1 << 20

type ScheduleHandler struct {
	service *service.ScheduleService
	logger  *zap.Logger
}

func NewScheduleHandler(service *service.ScheduleService, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{service: service, logger: logger}
}

// Calculate handles POST /schedule/calculate.
func (h *ScheduleHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}

	var input domain.ScheduleInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		h.logger.Debug("decoding request body", zap.Error(err))
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Calculate(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("calculating schedule", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}
