package journal

import "time"

// Record - запись журнала о завершенном запросе к маршруту хоста
type Record struct {
	TraceID   string        `json:"trace_id"`  // Сквозной ID запроса
	RouteID   int64         `json:"route_id"`  // Маршрут, обработавший запрос
	Method    string        `json:"method"`    // HTTP-метод
	Path      string        `json:"path"`      // Фактический путь запроса
	Status    int           `json:"status"`    // Код ответа
	Preempted bool          `json:"preempted"` // Ответ выдан перехватчиком
	Duration  time.Duration `json:"duration"`  // Время обработки
	Timestamp time.Time     `json:"timestamp"` // Момент завершения
}
