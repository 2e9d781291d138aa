package cat

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Format - формат ответа
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Order - направление сортировки
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// SortKey - один ключ сортировки; первый в списке имеет наивысший приоритет
type SortKey struct {
	Column string
	Order  Order
}

// Params - параметры запроса, живут в рамках одного запроса.
type Params struct {
	IDs     map[int64]struct{}
	Help    bool
	Format  Format
	Verbose bool
	Pretty  bool
	Sort    []SortKey
	// Headers == nil означает колонки по умолчанию; пустой не-nil срез - пустая выборка
	Headers    []string
	FilterPath []string
}

// ValidationError - ошибка клиентского ввода (отличается от внутренних ошибок сервера)
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// IsValidation проверяет, что ошибка вызвана вводом клиента
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

var (
	truthy = map[string]struct{}{"": {}, "t": {}, "true": {}, "on": {}, "y": {}, "yes": {}, "1": {}}
	falsy  = map[string]struct{}{"f": {}, "false": {}, "off": {}, "n": {}, "no": {}, "0": {}}
)

// ParseIDs разбирает "1,2,3" в множество. Пустая строка - пустое множество.
func ParseIDs(raw string) (map[int64]struct{}, error) {
	ids := make(map[int64]struct{})
	if raw == "" {
		return ids, nil
	}
	for _, part := range strings.Split(raw, ",") {
		if part == "" || strings.Trim(part, "0123456789") != "" {
			return nil, &ValidationError{Field: "ids", Value: raw, Reason: "expected comma-separated non-negative integers"}
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, &ValidationError{Field: "ids", Value: raw, Reason: err.Error()}
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

// ParseBool разбирает флаг; присутствие без значения (?v) означает true
func ParseBool(field, raw string) (bool, error) {
	v := strings.ToLower(raw)
	if _, ok := truthy[v]; ok {
		return true, nil
	}
	if _, ok := falsy[v]; ok {
		return false, nil
	}
	return false, &ValidationError{Field: field, Value: raw, Reason: "not a valid boolean"}
}

func ParseFormat(raw string) (Format, error) {
	switch f := Format(raw); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", &ValidationError{Field: "format", Value: raw, Reason: "must be one of text, json, yaml"}
}

// ParseSort разбирает "col[:asc|desc],..." с проверкой колонок по модели
func ParseSort(m *Model, raw string) ([]SortKey, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	keys := make([]SortKey, 0, len(parts))
	for _, part := range parts {
		fields := strings.Split(part, ":")
		if len(fields) > 2 {
			return nil, &ValidationError{Field: "s", Value: part, Reason: "expected column[:asc|desc]"}
		}
		if !m.Has(fields[0]) {
			return nil, &ValidationError{Field: "s", Value: part, Reason: "unknown column"}
		}
		key := SortKey{Column: fields[0], Order: Asc}
		if len(fields) == 2 {
			switch o := Order(fields[1]); o {
			case Asc, Desc:
				key.Order = o
			default:
				return nil, &ValidationError{Field: "s", Value: part, Reason: "direction must be asc or desc"}
			}
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ParseHeaders разбирает список glob-шаблонов. Каждый должен совпасть хотя бы с одной колонкой.
func ParseHeaders(m *Model, raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	names := m.Names()
	patterns := strings.Split(raw, ",")
	for _, p := range patterns {
		if !MatchesAny(p, names) {
			return nil, &ValidationError{Field: "h", Value: p, Reason: "does not match any column"}
		}
	}
	return patterns, nil
}

// ParseFilterPath разбирает список выражений filter_path (проверка синтаксиса - у вызывающего)
func ParseFilterPath(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// ParseQuery собирает Params из query-string и сегмента ids пути.
func ParseQuery(m *Model, q url.Values, rawIDs string, defaultFormat Format) (Params, error) {
	p := Params{Format: defaultFormat}

	ids, err := ParseIDs(rawIDs)
	if err != nil {
		return p, err
	}
	p.IDs = ids

	flags := []struct {
		name string
		dst  *bool
	}{{"help", &p.Help}, {"v", &p.Verbose}, {"pretty", &p.Pretty}}
	for _, f := range flags {
		if !q.Has(f.name) {
			continue
		}
		if *f.dst, err = ParseBool(f.name, q.Get(f.name)); err != nil {
			return p, err
		}
	}

	if q.Has("format") {
		if p.Format, err = ParseFormat(q.Get("format")); err != nil {
			return p, err
		}
	}

	if m != nil {
		if p.Sort, err = ParseSort(m, q.Get("s")); err != nil {
			return p, err
		}
		if q.Has("h") {
			if p.Headers, err = ParseHeaders(m, q.Get("h")); err != nil {
				return p, err
			}
		}
	}

	p.FilterPath = ParseFilterPath(q.Get("filter_path"))
	return p, nil
}
