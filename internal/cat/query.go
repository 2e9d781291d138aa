package cat

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Row - одна строка ресурса: имя колонки -> скалярное значение.
// Строки собираются заново на каждый запрос и не кэшируются.
type Row map[string]any

// NullableFloat - значение, которое может отсутствовать (например, среднее без данных).
// Реализуется stats.Average.
type NullableFloat interface {
	Value() (float64, bool)
}

// Result - отрендеренный ответ
type Result struct {
	Body        []byte
	ContentType string
}

// Query прогоняет строки через конвейер: help -> фильтр по id -> сортировка -> выбор колонок -> рендер.
func Query(m *Model, rows []Row, p Params) (*Result, error) {
	if p.Help {
		return renderHelp(m), nil
	}

	for _, k := range p.Sort {
		if !m.Has(k.Column) {
			return nil, &ValidationError{Field: "s", Value: k.Column, Reason: "unknown column"}
		}
	}

	table := FilterIDs(m, rows, p.IDs)
	SortRows(table, p.Sort)

	patterns := p.Headers
	if patterns == nil {
		patterns = m.Defaults()
	}
	headers := ExpandAll(patterns, m.Names())

	switch p.Format {
	case FormatJSON:
		return renderJSON(headers, table, p.Pretty)
	case FormatYAML:
		return renderYAML(headers, table)
	case FormatText, "":
		return renderText(headers, table, p.Verbose), nil
	}
	return nil, &ValidationError{Field: "format", Value: string(p.Format), Reason: "must be one of text, json, yaml"}
}

// FilterIDs оставляет строки, чей id входит в ids. Пустое множество - без фильтрации.
func FilterIDs(m *Model, rows []Row, ids map[int64]struct{}) []Row {
	table := make([]Row, 0, len(rows))
	for _, row := range rows {
		if len(ids) > 0 {
			id, ok := asInt64(row[m.IDColumn])
			if !ok {
				continue
			}
			if _, found := ids[id]; !found {
				continue
			}
		}
		table = append(table, row)
	}
	return table
}

// SortRows выполняет устойчивую многоключевую сортировку.
// Ключи применяются в обратном порядке приоритета: каждый следующий проход
// сохраняет порядок, установленный предыдущими.
func SortRows(rows []Row, keys []SortKey) {
	for i := len(keys) - 1; i >= 0; i-- {
		k := keys[i]
		slices.SortStableFunc(rows, func(a, b Row) int {
			c := Compare(a[k.Column], b[k.Column])
			if k.Order == Desc {
				return -c
			}
			return c
		})
	}
}

// Compare сравнивает два значения одной колонки. NaN и отсутствие данных считаются -Inf
// при любом направлении сортировки.
func Compare(a, b any) int {
	if ia, ok := a.(int64); ok {
		if ib, ok := b.(int64); ok {
			return cmp.Compare(ia, ib)
		}
	}
	if fa, ok := sortNumber(a); ok {
		if fb, ok := sortNumber(b); ok {
			return cmp.Compare(fa, fb)
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			return cmp.Compare(boolRank(x), boolRank(y))
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sortNumber(v any) (float64, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	if math.IsNaN(f) {
		return math.Inf(-1), true
	}
	return f, true
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case NullableFloat:
		f, ok := x.Value()
		if !ok {
			return math.NaN(), true
		}
		return f, true
	}
	return 0, false
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint64:
		return int64(x), true
	}
	return 0, false
}

// project выбирает значения колонок строки в порядке headers
func project(row Row, headers []string) []any {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = row[h]
	}
	return values
}
