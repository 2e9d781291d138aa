package filterpath

/*
Файл filterpath.go - проекция вложенных структур по выражениям filter_path
в стиле Elasticsearch:

	filterpath.Filter(v, "*.ba*")         // оставить
	filterpath.Filter(v, "-**.password")  // исключить

Исключающие выражения применяются первыми ко всему дереву, затем включающие -
к промежуточному результату, поэтому исключение всегда имеет последнее слово.
*/

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsupportedType - на вход подали не map[string]any и не []any
var ErrUnsupportedType = errors.New("filterpath: only map[string]any and []any are supported")

// Matcher проверяет полный путь листа (ключи через точку)
type Matcher func(path string) bool

// Expressions - скомпилированные выражения, разделенные на группы.
// Матчеры обеих групп отвечают "путь совпал с выражением".
type Expressions struct {
	Include []Matcher
	Exclude []Matcher
}

// Compile разбирает выражения; порядок внутри групп сохраняется
func Compile(exprs ...string) (*Expressions, error) {
	e := &Expressions{}
	for _, expr := range exprs {
		m, exclude, err := compileOne(expr)
		if err != nil {
			return nil, err
		}
		if exclude {
			e.Exclude = append(e.Exclude, m)
		} else {
			e.Include = append(e.Include, m)
		}
	}
	return e, nil
}

func compileOne(expr string) (Matcher, bool, error) {
	exclude := strings.HasPrefix(expr, "-")

	keys := strings.Split(strings.TrimLeft(expr, "+-"), ".")
	for i, key := range keys {
		if key == "" {
			keys[i] = ".*"
			continue
		}
		// "**" пересекает сегменты, "*" - только внутри сегмента
		chunks := strings.Split(key, "**")
		for j, chunk := range chunks {
			parts := strings.Split(chunk, "*")
			for k, part := range parts {
				parts[k] = regexp.QuoteMeta(part)
			}
			chunks[j] = strings.Join(parts, `[^.]*`)
		}
		keys[i] = strings.Join(chunks, ".*")
	}

	re, err := regexp.Compile("^" + strings.Join(keys, `\.`) + `(?:\..+)?$`)
	if err != nil {
		return nil, false, fmt.Errorf("filterpath: invalid expression %q: %w", expr, err)
	}

	return re.MatchString, exclude, nil
}

// Filter возвращает новую структуру, содержащую только пути, прошедшие фильтрацию.
// Если ничего не осталось - новая пустая структура того же вида. Исходное значение не изменяется.
func Filter(value any, exprs ...string) (any, error) {
	e, err := Compile(exprs...)
	if err != nil {
		return nil, err
	}
	return e.Apply(value)
}

// Apply применяет скомпилированные выражения к value
func (e *Expressions) Apply(value any) (any, error) {
	switch value.(type) {
	case map[string]any, []any:
	default:
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedType, value)
	}

	current := value
	if len(e.Exclude) > 0 {
		// Лист выживает, только если не совпал ни с одним исключением
		filtered, ok := filter(current, func(path string) bool {
			return !matchAny(e.Exclude, path)
		}, "")
		if !ok {
			return empty(value), nil
		}
		current = filtered
	}

	filtered, ok := filter(current, func(path string) bool {
		return len(e.Include) == 0 || matchAny(e.Include, path)
	}, "")
	if !ok {
		return empty(value), nil
	}
	return filtered, nil
}

func matchAny(matchers []Matcher, path string) bool {
	for _, m := range matchers {
		if m(path) {
			return true
		}
	}
	return false
}

func empty(value any) any {
	if _, ok := value.([]any); ok {
		return []any{}
	}
	return map[string]any{}
}

// filter рекурсивно строит отфильтрованную копию. ok == false означает "узел не нужен".
// Элементы последовательности разделяют путь самой последовательности.
func filter(value any, keep Matcher, path string) (any, bool) {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			if filtered, ok := filter(child, keep, childPath); ok {
				out[key] = filtered
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true

	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			if filtered, ok := filter(item, keep, path); ok {
				out = append(out, filtered)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	}

	if keep(path) {
		return value, true
	}
	return nil, false
}
