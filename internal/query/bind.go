package query

import (
	"strconv"
	"strings"
)

// PlaceholderStyle selects how named parameters are rewritten for a driver.
type PlaceholderStyle int

const (
	// DollarStyle rewrites to $1, $2, ...; a repeated name reuses its index.
	DollarStyle PlaceholderStyle = iota
	// QuestionStyle rewrites every occurrence to ? and repeats the argument.
	QuestionStyle
)

// token is one :name occurrence in query text.
type token struct {
	start, end int
	name       string
}

// Bind rewrites the :name parameters of text into driver placeholders and
// returns the positional arguments. Every referenced name must exist in
// params, otherwise a BindingError is returned.
func Bind(text string, params Params, style PlaceholderStyle) (string, []any, error) {
	tokens := scanParams(text)
	if len(tokens) == 0 {
		return text, nil, nil
	}

	var (
		b     strings.Builder
		args  []any
		index = map[string]int{}
		last  int
	)
	b.Grow(len(text))

	for _, tok := range tokens {
		v, ok := params[tok.name]
		if !ok {
			return "", nil, &BindingError{Param: tok.name, Reason: "referenced by the query but not supplied"}
		}

		b.WriteString(text[last:tok.start])
		switch style {
		case QuestionStyle:
			b.WriteByte('?')
			args = append(args, v)
		default:
			n, seen := index[tok.name]
			if !seen {
				args = append(args, v)
				n = len(args)
				index[tok.name] = n
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		}
		last = tok.end
	}
	b.WriteString(text[last:])

	return b.String(), args, nil
}

// ReferencedParams returns the distinct parameter names used in text, in
// order of first use.
func ReferencedParams(text string) []string {
	var (
		names []string
		seen  = map[string]bool{}
	)
	for _, tok := range scanParams(text) {
		if !seen[tok.name] {
			seen[tok.name] = true
			names = append(names, tok.name)
		}
	}
	return names
}

// scanParams finds :name tokens outside string literals, quoted identifiers
// and comments. "::" casts and names glued to a preceding word are skipped.
func scanParams(text string) []token {
	var tokens []token
	n := len(text)

	for i := 0; i < n; i++ {
		c := text[i]
		switch {
		case c == '\'' || c == '"':
			i = skipQuoted(text, i, c)
		case c == '-' && i+1 < n && text[i+1] == '-':
			for i < n && text[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				return tokens
			}
			i += end + 3
		case c == ':':
			if i+1 < n && text[i+1] == ':' {
				i++
				continue
			}
			if i > 0 && (isWordByte(text[i-1]) || text[i-1] == ':') {
				continue
			}
			if i+1 >= n || !isNameStart(text[i+1]) {
				continue
			}
			j := i + 1
			for j < n && isWordByte(text[j]) {
				j++
			}
			tokens = append(tokens, token{start: i, end: j, name: text[i+1 : j]})
			i = j - 1
		}
	}
	return tokens
}

// skipQuoted returns the index of the closing quote of the literal opened at
// i. Doubled quotes are escapes.
func skipQuoted(text string, i int, quote byte) int {
	for j := i + 1; j < len(text); j++ {
		if text[j] != quote {
			continue
		}
		if j+1 < len(text) && text[j+1] == quote {
			j++
			continue
		}
		return j
	}
	return len(text)
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordByte(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
