package cat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeJSON = "application/json"
	ContentTypeYAML = "application/x-yaml"
)

func renderHelp(m *Model) *Result {
	rows := make([][]any, 0, len(m.Columns))
	for _, pair := range m.Help() {
		rows = append(rows, []any{pair[0], pair[1]})
	}
	return &Result{
		Body:        Table(nil, rows),
		ContentType: ContentTypeText,
	}
}

func renderText(headers []string, table []Row, verbose bool) *Result {
	rows := make([][]any, 0, len(table))
	if len(headers) > 0 {
		for _, row := range table {
			rows = append(rows, project(row, headers))
		}
	}
	var shown []string
	if verbose {
		shown = headers
	}
	return &Result{Body: Table(shown, rows), ContentType: ContentTypeText}
}

// Table рендерит выровненную таблицу: колонки через два пробела, числовые колонки
// выровнены вправо, остальные влево. headers == nil - без строки заголовков.
func Table(headers []string, rows [][]any) []byte {
	width := len(headers)
	for _, r := range rows {
		width = max(width, len(r))
	}

	cells := make([][]string, len(rows))
	numeric := make([]bool, width)
	for c := range numeric {
		numeric[c] = len(rows) > 0
	}
	for i, r := range rows {
		cells[i] = make([]string, width)
		for c := 0; c < width; c++ {
			var v any
			if c < len(r) {
				v = r[c]
			}
			cells[i][c] = FormatCell(v)
			if _, ok := asFloat(v); !ok {
				numeric[c] = false
			}
		}
	}

	widths := make([]int, width)
	for c, h := range headers {
		widths[c] = len(h)
	}
	for _, r := range cells {
		for c, s := range r {
			widths[c] = max(widths[c], len(s))
		}
	}

	var buf bytes.Buffer
	writeLine := func(line []string) {
		parts := make([]string, width)
		for c := 0; c < width; c++ {
			s := ""
			if c < len(line) {
				s = line[c]
			}
			pad := strings.Repeat(" ", widths[c]-len(s))
			if numeric[c] {
				parts[c] = pad + s
			} else {
				parts[c] = s + pad
			}
		}
		buf.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		buf.WriteByte('\n')
	}

	if len(headers) > 0 {
		writeLine(headers)
	}
	for _, r := range cells {
		writeLine(r)
	}
	if buf.Len() == 0 {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// FormatCell форматирует скаляр для текстовой таблицы; float - 6 знаков после запятой
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case NullableFloat:
		f, ok := x.Value()
		if !ok {
			return "nan"
		}
		return formatFloat(f)
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "nan"
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// structuredValue приводит значение к виду, пригодному для JSON/YAML (NaN и NoData -> null)
func structuredValue(v any) any {
	switch x := v.(type) {
	case NullableFloat:
		f, ok := x.Value()
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case float32:
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
	}
	return v
}

// orderedObject сохраняет порядок ключей при сериализации в JSON
type orderedObject struct {
	keys   []string
	values []any
}

func newOrderedObject(headers []string, row Row) orderedObject {
	obj := orderedObject{}
	seen := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		// Дубликат колонки в объекте встречается один раз, на первой позиции
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		obj.keys = append(obj.keys, h)
		obj.values = append(obj.values, structuredValue(row[h]))
	}
	return obj
}

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func objects(headers []string, table []Row) []orderedObject {
	out := make([]orderedObject, 0, len(table))
	if len(headers) == 0 {
		return out
	}
	for _, row := range table {
		out = append(out, newOrderedObject(headers, row))
	}
	return out
}

func renderJSON(headers []string, table []Row, pretty bool) (*Result, error) {
	body, err := MarshalJSON(objects(headers, table), pretty)
	if err != nil {
		return nil, err
	}
	return &Result{Body: body, ContentType: ContentTypeJSON}, nil
}

// MarshalJSON сериализует v с завершающим переводом строки; pretty - с отступами
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	var (
		body []byte
		err  error
	)
	if pretty {
		body, err = json.MarshalIndent(v, "", "  ")
	} else {
		body, err = json.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return append(body, '\n'), nil
}

func renderYAML(headers []string, table []Row) (*Result, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, obj := range objects(headers, table) {
		mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for i, k := range obj.keys {
			keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
			valNode := &yaml.Node{}
			if err := valNode.Encode(obj.values[i]); err != nil {
				return nil, fmt.Errorf("yaml encode column %s: %w", k, err)
			}
			mapping.Content = append(mapping.Content, keyNode, valNode)
		}
		seq.Content = append(seq.Content, mapping)
	}
	if len(seq.Content) == 0 {
		seq.Style = yaml.FlowStyle
	}

	body, err := MarshalYAML(seq)
	if err != nil {
		return nil, err
	}
	return &Result{Body: body, ContentType: ContentTypeYAML}, nil
}

// MarshalYAML сериализует значение или *yaml.Node
func MarshalYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("yaml encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yaml encode: %w", err)
	}
	return buf.Bytes(), nil
}
