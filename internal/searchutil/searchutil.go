package searchutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var normalizeReplacer = strings.NewReplacer(
	"-", " ",
	".", " ",
	"_", " ",
	",", " ",
	":", " ",
	";", " ",
	"!", " ",
	"?", " ",
	"(", " ",
	")", " ",
	"[", " ",
	"]", " ",
	"{", " ",
	"}", " ",
	"'", " ",
	"\"", " ",
	"/", " ",
	"\\", " ",
	"|", " ",
	"+", " ",
	"=", " ",
	"#", " ",
	"&", " ",
	"*", " ",
)

// Letters without a canonical decomposition.
var foldReplacer = strings.NewReplacer(
	"ł", "l",
	"Ł", "l",
	"ø", "o",
	"Ø", "o",
	"ß", "ss",
)

// FoldDiacritics strips combining marks so "Zażółć" and "Zazolc" compare equal.
func FoldDiacritics(value string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), value)
	if err != nil {
		folded = value
	}
	return foldReplacer.Replace(folded)
}

func Normalize(value string) string {
	clean := strings.ToLower(strings.TrimSpace(value))
	if clean == "" {
		return ""
	}
	clean = normalizeReplacer.Replace(FoldDiacritics(clean))
	return strings.Join(strings.Fields(clean), " ")
}

func TokenizeNormalized(normalized string) []string {
	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" {
		return nil
	}

	parts := strings.Fields(trimmed)
	tokens := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if _, exists := seen[part]; exists {
			continue
		}
		seen[part] = struct{}{}
		tokens = append(tokens, part)
	}

	return tokens
}

func MatchesQuery(candidate string, normalizedQuery string, queryTokens []string) bool {
	normalizedCandidate := Normalize(candidate)
	if normalizedCandidate == "" {
		return false
	}

	if normalizedQuery != "" && strings.Contains(normalizedCandidate, normalizedQuery) {
		return true
	}
	if len(queryTokens) == 0 {
		return false
	}

	for _, token := range queryTokens {
		if !strings.Contains(normalizedCandidate, token) {
			return false
		}
	}

	return true
}

// TitleScore ranks how well candidate matches query: 2 for equal normalized
// titles, 1 when every query token appears in the candidate, 0 otherwise.
func TitleScore(candidate string, query string) int {
	normalizedQuery := Normalize(query)
	if normalizedQuery == "" {
		return 0
	}
	if Normalize(candidate) == normalizedQuery {
		return 2
	}
	if MatchesQuery(candidate, normalizedQuery, TokenizeNormalized(normalizedQuery)) {
		return 1
	}
	return 0
}
