package domain

// NoRoute - route_id задач, не связанных с запросом (фоновые воркеры)
const NoRoute int64 = -1

// Task - снимок состояния задачи (запроса в обработке или фоновой горутины)
type Task struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Handler    string `json:"handler"`
	Done       bool   `json:"done"`
	Cancelled  bool   `json:"cancelled"`
	Cancelling int    `json:"cancelling"` // Число запросов на отмену, полученных за время работы задачи
	RouteID    int64  `json:"route_id"`
}
