package domain

import (
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// NormalizeIdentifier mantém só [A-Za-z0-9] e coloca em caixa alta,
// so "123.456.789-01" and "12345678901" compare equal. Non-ASCII letters are
// dropped, matching the class used by the history query.
func NormalizeIdentifier(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		}
	}
	return b.String()
}

// NormalizeEmail devolve o email em minúsculas e sem espaços nas bordas.
func NormalizeEmail(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// NormalizeTicket padroniza um código de ticket para comparação.
func NormalizeTicket(v string, ignoreDashes bool) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if ignoreDashes {
		v = strings.Map(func(r rune) rune {
			if r == '-' || unicode.IsSpace(r) {
				return -1
			}
			return r
		}, v)
	}
	return v
}

// ParseList divide uma lista configurada (uma entrada por linha ou vírgula),
// dropping blanks and duplicates.
func ParseList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	entries := lo.Map(fields, func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Uniq(lo.Compact(entries))
}
