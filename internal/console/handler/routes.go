package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/underscore-apis/internal/cat"
	"github.com/xela07ax/underscore-apis/internal/console/service"
	"github.com/xela07ax/underscore-apis/internal/engine"
	"github.com/xela07ax/underscore-apis/internal/filterpath"
)

type RoutesHandler struct {
	responder
	service *service.IntrospectionService
}

func NewRoutesHandler(s *service.IntrospectionService, metrics *engine.Metrics, logger *zap.Logger) *RoutesHandler {
	return &RoutesHandler{
		responder: responder{logger: logger.With(zap.String("mod", "routes")), metrics: metrics},
		service:   s,
	}
}

// Routes Маршруты для Chi (монтируются в /_routes)
func (h *RoutesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Route("/{ids}", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/_cancel_tasks", h.CancelTasks) // Отмена задач в обработке
		r.Get("/_settings", h.GetSettings)
		r.Put("/_settings", h.PutSettings)
	})
	return r
}

// params разбирает общие параметры документа: ids, format (json|yaml), pretty, filter_path
func (h *RoutesHandler) params(r *http.Request) (cat.Params, *filterpath.Expressions, error) {
	p, err := cat.ParseQuery(nil, r.URL.Query(), chi.URLParam(r, "ids"), cat.FormatJSON)
	if err != nil {
		return p, nil, err
	}
	if p.Format == cat.FormatText {
		return p, nil, &cat.ValidationError{Field: "format", Value: string(p.Format), Reason: "must be one of json, yaml"}
	}

	exprs, err := filterpath.Compile(p.FilterPath...)
	if err != nil {
		return p, nil, &cat.ValidationError{Field: "filter_path", Value: r.URL.Query().Get("filter_path"), Reason: err.Error()}
	}
	return p, exprs, nil
}

// document прогоняет документ через filter_path и сериализует
func (h *RoutesHandler) document(w http.ResponseWriter, r *http.Request, p cat.Params, exprs *filterpath.Expressions, doc map[string]any) {
	var (
		projected any = doc
		err       error
	)
	// Без filter_path документ отдается как есть, включая пустые секции
	if len(p.FilterPath) > 0 {
		if projected, err = exprs.Apply(doc); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	res := &cat.Result{}
	switch p.Format {
	case cat.FormatYAML:
		res.ContentType = cat.ContentTypeYAML
		res.Body, err = cat.MarshalYAML(projected)
	default:
		res.ContentType = cat.ContentTypeJSON
		res.Body, err = cat.MarshalJSON(projected, p.Pretty)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeResult(w, res)
}

// List возвращает таблицу маршрутов хоста
// GET /_routes[/{ids}]
func (h *RoutesHandler) List(w http.ResponseWriter, r *http.Request) {
	p, exprs, err := h.params(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.document(w, r, p, exprs, h.service.Routes(p.IDs))
}

// CancelTasks отменяет все задачи маршрутов, находящиеся в обработке
// POST /_routes/{ids}/_cancel_tasks
func (h *RoutesHandler) CancelTasks(w http.ResponseWriter, r *http.Request) {
	ids, err := cat.ParseIDs(chi.URLParam(r, "ids"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.service.CancelTasks(ids); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings возвращает transient и defaults настройки маршрутов
// GET /_routes/{ids}/_settings
func (h *RoutesHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	p, exprs, err := h.params(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	doc, err := h.service.Settings(p.IDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.document(w, r, p, exprs, doc)
}

type settingsRequest struct {
	Transient map[string]any `json:"transient"`
}

// PutSettings сливает тело {"transient": {...}} в настройки маршрутов
// PUT /_routes/{ids}/_settings
func (h *RoutesHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	ids, err := cat.ParseIDs(chi.URLParam(r, "ids"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	for key := range raw {
		if key != "transient" {
			h.fail(w, r, &cat.ValidationError{Field: key, Value: key, Reason: "only transient settings can be changed"})
			return
		}
	}

	var req settingsRequest
	if body, ok := raw["transient"]; ok {
		if err := json.Unmarshal(body, &req.Transient); err != nil {
			h.fail(w, r, &cat.ValidationError{Field: "transient", Value: string(body), Reason: "must be an object"})
			return
		}
	}
	if req.Transient == nil {
		h.fail(w, r, &cat.ValidationError{Field: "transient", Reason: "is required"})
		return
	}

	if err := h.service.ApplySettings(r.Context(), ids, req.Transient); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
