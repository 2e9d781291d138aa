package cat

import (
	"regexp"
	"strings"
)

// Шаблоны заголовков в стиле fnmatch: "*", "?", "[seq]", "[!seq]".
// Обратный слэш и "^" в начале набора - обычные символы, незакрытая "[" - литерал.

// Match проверяет имя колонки по пользовательскому glob-шаблону.
// Субъект - известное имя, шаблон - ввод пользователя (как fnmatch(name, pattern)).
func Match(name, pattern string) bool {
	return compileGlob(pattern).MatchString(name)
}

// MatchesAny используется как валидатор: шаблон полезен, только если совпал хоть с одним именем
func MatchesAny(pattern string, candidates []string) bool {
	re := compileGlob(pattern)
	for _, name := range candidates {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Expand раскрывает шаблон в список имен в порядке candidates
func Expand(pattern string, candidates []string) []string {
	re := compileGlob(pattern)
	var out []string
	for _, name := range candidates {
		if re.MatchString(name) {
			out = append(out, name)
		}
	}
	return out
}

// ExpandAll раскрывает шаблоны по очереди и склеивает результаты без дедупликации
func ExpandAll(patterns []string, candidates []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, Expand(p, candidates)...)
	}
	return out
}

// neverMatch - пустой набор символов
const neverMatch = `[^\x00-\x{10FFFF}]`

// compileGlob переводит шаблон в якорное регулярное выражение
func compileGlob(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`(?s)^`)

	r := []rune(pattern)
	for i := 0; i < len(r); {
		c := r[i]
		i++
		switch c {
		case '*':
			for i < len(r) && r[i] == '*' {
				i++
			}
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '[':
			j := i
			if j < len(r) && r[j] == '!' {
				j++
			}
			// "]" сразу после "[" или "[!" входит в набор
			if j < len(r) && r[j] == ']' {
				j++
			}
			for j < len(r) && r[j] != ']' {
				j++
			}
			if j >= len(r) {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(charClass(r[i:j]))
			i = j + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString(`$`)

	re, err := regexp.Compile(b.String())
	if err != nil {
		return regexp.MustCompile(neverMatch)
	}
	return re
}

// charClass собирает набор символов. Обратные диапазоны ("z-a") отбрасываются.
func charClass(set []rune) string {
	negate := len(set) > 0 && set[0] == '!'
	if negate {
		set = set[1:]
	}

	var items strings.Builder
	for k := 0; k < len(set); k++ {
		if k+2 < len(set) && set[k+1] == '-' {
			lo, hi := set[k], set[k+2]
			k += 2
			if lo > hi {
				continue
			}
			items.WriteString(classRune(lo))
			items.WriteByte('-')
			items.WriteString(classRune(hi))
			continue
		}
		items.WriteString(classRune(set[k]))
	}

	switch {
	case items.Len() == 0 && negate:
		return `.`
	case items.Len() == 0:
		return neverMatch
	case negate:
		return `[^` + items.String() + `]`
	}
	return `[` + items.String() + `]`
}

func classRune(r rune) string {
	if strings.ContainsRune(`\]-[^`, r) {
		return `\` + string(r)
	}
	return string(r)
}
