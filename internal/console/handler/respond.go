package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/underscore-apis/internal/cat"
	"github.com/xela07ax/underscore-apis/internal/domain"
	"github.com/xela07ax/underscore-apis/internal/engine"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// responder - общая часть обработчиков: классификация ошибок и метрики отказов
type responder struct {
	logger  *zap.Logger
	metrics *engine.Metrics
}

func writeResult(w http.ResponseWriter, res *cat.Result) {
	w.Header().Set("Content-Type", res.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(res.Body)
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// fail разделяет типы ошибок: 422 (валидация), 404 (неизвестный маршрут), 500 (остальное)
func (h responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *cat.ValidationError
	switch {
	case errors.As(err, &verr):
		h.metrics.AdminErrors.WithLabelValues("validation").Inc()
		writeError(w, http.StatusUnprocessableEntity, errorBody{Error: verr.Error(), Field: verr.Field})

	case errors.Is(err, domain.ErrInvalidSettings):
		h.metrics.AdminErrors.WithLabelValues("validation").Inc()
		writeError(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Field: "transient"})

	case errors.Is(err, engine.ErrUnknownRoute):
		h.metrics.AdminErrors.WithLabelValues("not_found").Inc()
		writeError(w, http.StatusNotFound, errorBody{Error: "route not found"})

	default:
		h.metrics.AdminErrors.WithLabelValues("internal").Inc()
		// tip: детали внутренних ошибок только в лог
		h.logger.Error("admin request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
