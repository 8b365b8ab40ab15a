package http

import (
	"net/http"

	"go.uber.org/zap"
)

// NewRouter wires every route behind the rate limiter and request logging.
func NewRouter(
	scheduleHandler *ScheduleHandler,
	projectHandler *ProjectHandler,
	limiter *RateLimiter,
	logger *zap.Logger,
) http.Handler {

	limited := func(h http.HandlerFunc) http.Handler {
		return RateLimitMiddleware(limiter, logger, h)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /schedule/calculate", limited(scheduleHandler.Calculate))
	mux.Handle("POST /projects", limited(projectHandler.CreateProject))
	mux.Handle("GET /projects/{id}/schedule", limited(projectHandler.GetSchedule))
	mux.Handle("PUT /projects/{id}/schedule", limited(projectHandler.SaveSchedule))
	mux.Handle("DELETE /projects/{id}/schedule", limited(projectHandler.ResetSchedule))
	mux.Handle("POST /projects/{id}/schedule/stages", limited(projectHandler.AddStage))
	mux.Handle("PUT /projects/{id}/schedule/stages/{index}", limited(projectHandler.UpdateStage))
	mux.Handle("DELETE /projects/{id}/schedule/stages/{index}", limited(projectHandler.RemoveStage))

	return LoggingMiddleware(logger, mux)
}
