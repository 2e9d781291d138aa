package cat

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fruitModel = &Model{
	Kind:     "fruits",
	IDColumn: "id",
	Columns: []Column{
		{Name: "id", Default: true, Help: "Internal identifier"},
		{Name: "apple", Help: "Number of apples"},
		{Name: "banana", Help: "Number of bananas"},
		{Name: "cherry", Help: "Number of cherries"},
	},
}

func TestParseIDs(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want []int64
	}{
		{"", nil},
		{"1", []int64{1}},
		{"01", []int64{1}},
		{"1,2,3", []int64{1, 2, 3}},
		{"42,7,13", []int64{42, 7, 13}},
		{"7,7", []int64{7}},
	} {
		t.Run(tc.raw, func(t *testing.T) {
			ids, err := ParseIDs(tc.raw)
			require.NoError(t, err)
			assert.Len(t, ids, len(tc.want))
			for _, id := range tc.want {
				assert.Contains(t, ids, id)
			}
		})
	}

	for _, raw := range []string{"F", ",", "foo", "1,2,foo", "1,", ",2", "1,,2", "-1", "+1", " 1"} {
		t.Run("invalid_"+raw, func(t *testing.T) {
			_, err := ParseIDs(raw)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestParseBool(t *testing.T) {
	for _, raw := range []string{"", "1", "true", "True", "yes", "on", "t", "Y"} {
		v, err := ParseBool("v", raw)
		require.NoError(t, err, raw)
		assert.True(t, v, raw)
	}
	for _, raw := range []string{"0", "false", "FALSE", "no", "off", "f", "n"} {
		v, err := ParseBool("v", raw)
		require.NoError(t, err, raw)
		assert.False(t, v, raw)
	}
	_, err := ParseBool("v", "maybe")
	assert.True(t, IsValidation(err))
}

func TestParseSort(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want []SortKey
	}{
		{"", nil},
		{"apple", []SortKey{{"apple", Asc}}},
		{"banana:asc", []SortKey{{"banana", Asc}}},
		{"cherry:desc", []SortKey{{"cherry", Desc}}},
		{"apple,apple", []SortKey{{"apple", Asc}, {"apple", Asc}}},
		{"banana:asc,cherry:desc", []SortKey{{"banana", Asc}, {"cherry", Desc}}},
	} {
		t.Run(tc.raw, func(t *testing.T) {
			keys, err := ParseSort(fruitModel, tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, keys)
		})
	}

	for _, raw := range []string{",", ",apple", "apple,", "apple,,banana", "APPLE", "apple:up", "cherry:apple", "apple:asc:desc"} {
		t.Run("invalid_"+raw, func(t *testing.T) {
			_, err := ParseSort(fruitModel, raw)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestParseHeaders(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want []string
	}{
		{"a*,b*", []string{"a*", "b*"}},
		{"banana", []string{"banana"}},
		{"", []string{}},
		{"*", []string{"*"}},
		{"*e*", []string{"*e*"}},
	} {
		t.Run(tc.raw, func(t *testing.T) {
			h, err := ParseHeaders(fruitModel, tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, h)
		})
	}

	for _, raw := range []string{"APPLE", "apple,foo", "ba*,", ",*rry", "a*,,c*", "[a"} {
		t.Run("invalid_"+raw, func(t *testing.T) {
			_, err := ParseHeaders(fruitModel, raw)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestMatchesAny(t *testing.T) {
	names := []string{"foo", "bar", "barista", "bazXqux"}

	for _, p := range []string{"foo", "bar*", "b*ta", "baz?qux"} {
		assert.True(t, MatchesAny(p, names), p)
	}
	for _, p := range []string{"", "fool", "ba", "b?ta", "bazqux", "qu"} {
		assert.False(t, MatchesAny(p, names), p)
	}
}

func TestExpandAll(t *testing.T) {
	names := []string{"ab", "ac", "bb"}
	assert.Equal(t, []string{"ab", "ac", "ab", "bb"}, ExpandAll([]string{"a*", "*b"}, names))
	assert.Empty(t, ExpandAll(nil, names))
}

func TestParseQuery(t *testing.T) {
	q, err := url.ParseQuery("v&s=cherry:desc&h=app*,*na&format=json&filter_path=a.b,-c")
	require.NoError(t, err)

	p, err := ParseQuery(fruitModel, q, "12,34", FormatText)
	require.NoError(t, err)

	assert.Equal(t, map[int64]struct{}{12: {}, 34: {}}, p.IDs)
	assert.False(t, p.Help)
	assert.True(t, p.Verbose)
	assert.False(t, p.Pretty)
	assert.Equal(t, FormatJSON, p.Format)
	assert.Equal(t, []SortKey{{"cherry", Desc}}, p.Sort)
	assert.Equal(t, []string{"app*", "*na"}, p.Headers)
	assert.Equal(t, []string{"a.b", "-c"}, p.FilterPath)

	p, err = ParseQuery(fruitModel, url.Values{}, "", FormatText)
	require.NoError(t, err)
	assert.Empty(t, p.IDs)
	assert.Nil(t, p.Headers)
	assert.Equal(t, FormatText, p.Format)

	_, err = ParseQuery(fruitModel, url.Values{"format": {"xml"}}, "", FormatText)
	assert.True(t, IsValidation(err))

	_, err = ParseQuery(fruitModel, url.Values{"help": {"nope"}}, "", FormatText)
	assert.True(t, IsValidation(err))
}
