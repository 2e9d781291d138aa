package filterpath

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webApp = `{"web-app": {
  "servlet": [
    {"servlet-name": "cofaxCDS", "servlet-class": "org.cofax.cds.CDSServlet",
     "init-param": {"templatePath": "templates", "useJSP": false, "maxUrlLength": 500}},
    {"servlet-name": "cofaxEmail", "servlet-class": "org.cofax.cds.EmailServlet",
     "init-param": {"mailHost": "mail1", "mailHostOverride": "mail2"}},
    {"servlet-name": "cofaxAdmin", "servlet-class": "org.cofax.cds.AdminServlet"},
    {"servlet-name": "fileServlet", "servlet-class": "org.cofax.cds.FileServlet"},
    {"servlet-name": "cofaxTools", "servlet-class": "org.cofax.cms.CofaxToolsServlet",
     "init-param": {"log": 1, "betaServer": true}}],
  "servlet-mapping": {
    "cofaxCDS": "/",
    "cofaxEmail": "/cofaxutil/aemail/*",
    "cofaxAdmin": "/admin/*",
    "fileServlet": "/static/*",
    "cofaxTools": "/tools/*"},
  "taglib": {"taglib-uri": "cofax.tld", "taglib-location": "/WEB-INF/tlds/cofax.tld"}}}`

func loadWebApp(t *testing.T) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(webApp), &v))
	return v
}

func split(exprs string) []string {
	return strings.Split(exprs, ",")
}

func TestFilter_UnsupportedType(t *testing.T) {
	_, err := Filter(1, "")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Filter("x")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFilter_EmptyContainers(t *testing.T) {
	for _, exprs := range []string{"", "*", "-*", ",", ",,", ",+*,-*", ",test,test"} {
		t.Run(exprs, func(t *testing.T) {
			got, err := Filter([]any{}, split(exprs)...)
			require.NoError(t, err)
			assert.Equal(t, []any{}, got)

			got, err = Filter(map[string]any{}, split(exprs)...)
			require.NoError(t, err)
			assert.Equal(t, map[string]any{}, got)
		})
	}
}

func TestFilter_List(t *testing.T) {
	for _, tc := range []struct {
		exprs string
		want  []any
	}{
		{"", []any{1, 2, 3}},
		{"*", []any{1, 2, 3}},
		{"+", []any{1, 2, 3}},
		{"+*", []any{1, 2, 3}},
		{",", []any{1, 2, 3}},
		{",*", []any{1, 2, 3}},
		{",+,", []any{1, 2, 3}},
		{"-", []any{}},
		{"-*", []any{}},
		{" ", []any{}},
		{"*,-*", []any{}},
		{",+*,-*", []any{}},
		{",-*,+*", []any{}},
	} {
		t.Run(tc.exprs, func(t *testing.T) {
			source := []any{1, 2, 3}
			got, err := Filter(source, split(tc.exprs)...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, []any{1, 2, 3}, source)
		})
	}
}

func TestFilter_NoExpressionsCopies(t *testing.T) {
	source := loadWebApp(t)

	for _, exprs := range [][]string{nil, {""}, {"+"}, {"", ""}, {"", "+"}} {
		got, err := Filter(source, exprs...)
		require.NoError(t, err)
		assert.Equal(t, source, got)

		// Копия, а не тот же объект
		got.(map[string]any)["extra"] = true
		assert.NotContains(t, source, "extra")
	}

	for _, exprs := range [][]string{{"-"}, {"-", "-"}} {
		got, err := Filter(source, exprs...)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{}, got)
	}
}

func TestFilter_DoubleAsterisk(t *testing.T) {
	got, err := Filter(loadWebApp(t), "**.servlet-name")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"web-app": map[string]any{
			"servlet": []any{
				map[string]any{"servlet-name": "cofaxCDS"},
				map[string]any{"servlet-name": "cofaxEmail"},
				map[string]any{"servlet-name": "cofaxAdmin"},
				map[string]any{"servlet-name": "fileServlet"},
				map[string]any{"servlet-name": "cofaxTools"},
			},
		},
	}, got)
}

func TestFilter_ExcludeWins(t *testing.T) {
	source := loadWebApp(t)
	for _, exprs := range [][]string{
		{"-*", "**.servlet-name"},
		{"*", "-*", "**.servlet-name"},
		{"-*", "**.servlet-name", "*"},
	} {
		got, err := Filter(source, exprs...)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{}, got)
	}

	got, err := Filter(map[string]any{"a": map[string]any{"b": 1, "c": 2}}, "**.b", "-**.b")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, got)
}

func mapping(t *testing.T, v any) map[string]any {
	t.Helper()
	webApp, ok := v.(map[string]any)["web-app"].(map[string]any)
	require.True(t, ok)
	m, ok := webApp["servlet-mapping"].(map[string]any)
	require.True(t, ok)
	return m
}

func TestFilter_SegmentWildcards(t *testing.T) {
	source := loadWebApp(t)

	got, err := Filter(source, "*.servlet-mapping", "-**.cofax*")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"fileServlet": "/static/*"}, mapping(t, got))

	// Без звездочки сегмент совпадает только целиком
	got, err = Filter(source, "*.servlet-mapping", "-**.cofax")
	require.NoError(t, err)
	assert.Len(t, mapping(t, got), 5)

	got, err = Filter(source, "**.cofax*", "-**.*Email")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"cofaxAdmin": "/admin/*",
		"cofaxCDS":   "/",
		"cofaxTools": "/tools/*",
	}, mapping(t, got))
}

func TestFilter_SingleAsteriskStaysInSegment(t *testing.T) {
	source := map[string]any{
		"foo": map[string]any{"bar": 1, "baz": 2},
		"qux": []any{10, 20, 30},
	}
	got, err := Filter(source, "*.ba*")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"foo": map[string]any{"bar": 1, "baz": 2}}, got)

	got, err = Filter(map[string]any{"a": map[string]any{"x": map[string]any{"bar": 1}}}, "*.ba*")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, got)

	got, err = Filter(map[string]any{
		"a": map[string]any{"name": "x"},
		"b": map[string]any{"c": map[string]any{"name": "y", "other": 1}},
	}, "**.name")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"name": "x"},
		"b": map[string]any{"c": map[string]any{"name": "y"}},
	}, got)
}

func TestFilter_PrefixMatchesSubtree(t *testing.T) {
	got, err := Filter(map[string]any{
		"1": map[string]any{"handler": "h", "path": "/"},
		"2": map[string]any{"handler": "g", "path": "/x"},
	}, "1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"1": map[string]any{"handler": "h", "path": "/"}}, got)
}

func TestFilter_RegexMetaIsLiteral(t *testing.T) {
	got, err := Filter(map[string]any{"a+b": 1, "aab": 2}, "a+b")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a+b": 1}, got)
}

func TestFilter_ExcludesUnion(t *testing.T) {
	got, err := Filter(map[string]any{"a": 1, "b": 2, "c": 3}, "-a", "-b")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"c": 3}, got)

	got, err = Filter(map[string]any{
		"x": map[string]any{"secret": 1, "token": 2, "ok": 3},
	}, "-**.secret", "-**.token")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": map[string]any{"ok": 3}}, got)

	// Исключения поверх включений
	got, err = Filter(loadWebApp(t), "*.servlet-mapping", "-**.cofaxCDS", "-**.cofaxEmail", "-**.cofaxAdmin")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"fileServlet": "/static/*",
		"cofaxTools":  "/tools/*",
	}, mapping(t, got))

	got, err = Filter([]any{map[string]any{"a": 1, "b": 2}, map[string]any{"a": 3}}, "-a", "-b")
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)
}
