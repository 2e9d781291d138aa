package domain

// Route - зарегистрированный маршрут хост-приложения
type Route struct {
	ID      int64  `json:"-"`       // Уникален в пределах процесса, не переиспользуется
	Name    string `json:"name"`    // Человекочитаемое имя (может быть пустым)
	Method  string `json:"method"`  // GET, POST, ...
	Pattern string `json:"path"`    // Шаблон chi, например /items/{id}
	Handler string `json:"handler"` // Полное имя функции-обработчика
}

// Key - ключ маршрута, одинаковый на всех инстансах ("GET /items/{id}")
func (r Route) Key() string {
	return r.Method + " " + r.Pattern
}
