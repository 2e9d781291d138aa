package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/underscore-apis/internal/cat"
	"github.com/xela07ax/underscore-apis/internal/console/service"
	"github.com/xela07ax/underscore-apis/internal/engine"
)

const catIndex = `=^.^=
/_cat/routes
/_cat/routes/{route_ids}
/_cat/tasks
/_cat/tasks/{task_ids}
`

type CatHandler struct {
	responder
	service *service.IntrospectionService
}

func NewCatHandler(s *service.IntrospectionService, metrics *engine.Metrics, logger *zap.Logger) *CatHandler {
	return &CatHandler{
		responder: responder{logger: logger.With(zap.String("mod", "cat")), metrics: metrics},
		service:   s,
	}
}

// Routes Маршруты для Chi (монтируются в /_cat)
func (h *CatHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Index)

	routes := h.table(service.RoutesModel, h.service.RouteRows)
	r.Get("/routes", routes)
	r.Get("/routes/", routes)
	r.Get("/routes/{ids}", routes)

	tasks := h.table(service.TasksModel, h.service.TaskRows)
	r.Get("/tasks", tasks)
	r.Get("/tasks/", tasks)
	r.Get("/tasks/{ids}", tasks)
	return r
}

// Index - список доступных _cat эндпоинтов
// GET /_cat
func (h *CatHandler) Index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", cat.ContentTypeText)
	w.Write([]byte(catIndex))
}

// table строит обработчик табличного ресурса: разбор параметров -> конвейер QueryEngine
// GET /_cat/{kind}[/{ids}]?help&v&s=&h=&format=
func (h *CatHandler) table(model *cat.Model, rows func() []cat.Row) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cat.ParseQuery(model, r.URL.Query(), chi.URLParam(r, "ids"), cat.FormatText)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		// Таблицы проецируются через h, filter_path есть только у документов _routes
		if len(p.FilterPath) > 0 {
			h.fail(w, r, &cat.ValidationError{
				Field:  "filter_path",
				Value:  r.URL.Query().Get("filter_path"),
				Reason: "not supported by _cat tables, use h",
			})
			return
		}

		res, err := cat.Query(model, rows(), p)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeResult(w, res)
	}
}
