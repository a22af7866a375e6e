package db

import (
	"strings"
	"unicode"

	"github.com/zzenonn/talentshard/internal/domain"
)

// Scorer returns a similarity score in [0,1] for a profile and the profile
// skills that matched the query.
type Scorer func(query string, record domain.ProfileRecord) (float64, []string)

// TermOverlapScorer scores a profile by the fraction of distinct query terms
// that appear in its title, headline, skills or searchable content.
func TermOverlapScorer(query string, record domain.ProfileRecord) (float64, []string) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return 0, nil
	}

	haystack := make(map[string]struct{})
	for _, field := range []string{record.JobTitle, record.Headline, record.SearchableContent, record.Industry} {
		for t := range tokenize(field) {
			haystack[t] = struct{}{}
		}
	}

	var skills []string
	lowerQuery := strings.ToLower(query)
	for _, skill := range record.Skills {
		for t := range tokenize(skill) {
			haystack[t] = struct{}{}
		}
		if s := strings.ToLower(strings.TrimSpace(skill)); s != "" && strings.Contains(lowerQuery, s) {
			skills = append(skills, skill)
		}
	}

	hits := 0
	for t := range terms {
		if _, ok := haystack[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(terms)), skills
}

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	}) {
		out[f] = struct{}{}
	}
	return out
}
