package gen

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// acronyms are kept upper-cased in Go identifiers.
var acronyms = map[string]bool{
	"ID":   true,
	"API":  true,
	"JSON": true,
	"SQL":  true,
	"URL":  true,
	"UUID": true,
}

// words splits camelCase, PascalCase and SNAKE_CASE names.
func words(s string) []string {
	var (
		out []string
		cur []rune
	)
	rs := []rune(s)
	for i, r := range rs {
		switch {
		case r == '_' || r == '-' || r == ' ':
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := rs[i-1]
			next := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && next) {
				out = append(out, string(cur))
				cur = nil
			}
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

// pascal returns the exported Go identifier of a schema name.
//
//	pascal("tenantId")     // TenantID
//	pascal("SYSTEM_ADMIN") // SystemAdmin
func pascal(s string) string {
	// Casers are not safe for concurrent use.
	title := cases.Title(language.Und)
	var b strings.Builder
	for _, w := range words(s) {
		if up := strings.ToUpper(w); acronyms[up] {
			b.WriteString(up)
			continue
		}
		b.WriteString(title.String(strings.ToLower(w)))
	}
	return b.String()
}
