package cat

// Column описывает одну колонку ресурса.
type Column struct {
	Name    string
	Default bool // Показывать, если заголовки не заданы явно
	Help    string
}

// Model - закрытый упорядоченный набор колонок для вида ресурса ("routes", "tasks").
// Порядок объявления используется и для колонок по умолчанию, и для раскрытия glob.
type Model struct {
	Kind     string
	IDColumn string
	Columns  []Column
}

// Names возвращает имена колонок в порядке объявления
func (m *Model) Names() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

// Defaults возвращает колонки, видимые по умолчанию
func (m *Model) Defaults() []string {
	var names []string
	for _, c := range m.Columns {
		if c.Default {
			names = append(names, c.Name)
		}
	}
	return names
}

func (m *Model) Has(name string) bool {
	for _, c := range m.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Help возвращает пары (имя, описание) для ?help
func (m *Model) Help() [][2]string {
	pairs := make([][2]string, len(m.Columns))
	for i, c := range m.Columns {
		pairs[i] = [2]string{c.Name, c.Help}
	}
	return pairs
}
