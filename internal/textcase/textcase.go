// Package textcase holds the casing and pluralization rules shared by every
// identifier swaggen derives. All functions are pure.
package textcase

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// RemoveAccents folds accented characters to their base forms ("ação" -> "acao").
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// Words splits s into words on any non-alphanumeric run and on camelCase
// boundaries. Acronyms stay together: "XMLHttpRequest" -> XML, Http, Request.
func Words(s string) []string {
	s = strings.TrimSpace(RemoveAccents(s))
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range nonAlnum.Split(s, -1) {
		if part == "" {
			continue
		}
		out = append(out, splitCamel(part)...)
	}
	return out
}

func splitCamel(s string) []string {
	var (
		parts   []string
		current strings.Builder
	)
	rs := []rune(s)
	for i, r := range rs {
		boundary := false
		if i > 0 && isUpper(r) {
			if !isUpper(rs[i-1]) {
				boundary = true
			} else if i < len(rs)-1 && isLower(rs[i+1]) {
				boundary = true
			}
		}
		if boundary && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

// Pascal converts s to PascalCase. Each word keeps an upper-case first letter
// and a lower-case remainder, so "userID" and "user_id" both give "UserId".
func Pascal(s string) string {
	return joinPascal(Words(s))
}

// Camel converts s to camelCase.
func Camel(s string) string {
	p := Pascal(s)
	if p == "" {
		return ""
	}
	return strings.ToLower(p[:1]) + p[1:]
}

// Singular returns the singular form of the final word of s, in PascalCase.
// "line-items" -> "LineItem", "categories" -> "Category".
func Singular(s string) string {
	words := Words(s)
	if len(words) == 0 {
		return ""
	}
	last := len(words) - 1
	words[last] = inflection.Singular(strings.ToLower(words[last]))
	return joinPascal(words)
}

func joinPascal(words []string) string {
	var b strings.Builder
	for _, w := range words {
		if w == "" {
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
		if len(w) > 1 {
			b.WriteString(strings.ToLower(w[1:]))
		}
	}
	return b.String()
}
