package provider

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// EnhanceQuery biases a query toward recent Brazilian content: " Brasil" is
// appended unless the query already names the country, and the current year
// is appended unless the current or previous year is present.
func EnhanceQuery(query string, now time.Time) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	tokens := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	mentionsBrazil := false
	hasRecentYear := false
	year := now.Year()
	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok, "brasil"), tok == "br", tok == "brazil":
			mentionsBrazil = true
		case tok == strconv.Itoa(year), tok == strconv.Itoa(year-1):
			hasRecentYear = true
		}
	}

	var b strings.Builder
	b.WriteString(query)
	if !mentionsBrazil {
		b.WriteString(" Brasil")
	}
	if !hasRecentYear {
		b.WriteString(" ")
		b.WriteString(strconv.Itoa(year))
	}
	return b.String()
}
