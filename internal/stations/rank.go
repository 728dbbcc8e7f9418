package stations

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultLimit is the maximum number of ranked results
const DefaultLimit = 12

// Score weights
const (
	prefixScore    = 100
	containsScore  = 40
	tokenScore     = 15
	maxLengthBonus = 20
)

// Score rates normalized station name n against normalized query q.
// Zero means no match. Apostrophes are optional when matching, so
// "kings cross" scores as if it had been typed "king's cross".
func Score(q, n string) int {
	if q == "" || n == "" {
		return 0
	}
	score := matchScore(q, n)
	if strings.ContainsRune(q, '\'') || strings.ContainsRune(n, '\'') {
		if bare := matchScore(stripApostrophes(q), stripApostrophes(n)); bare > score {
			score = bare
		}
	}
	if score == 0 {
		return 0
	}
	return score + lengthBonus(n)
}

func matchScore(q, n string) int {
	if q == "" {
		return 0
	}
	score := 0
	if strings.HasPrefix(n, q) {
		score += prefixScore
	}
	if strings.Contains(n, q) {
		score += containsScore
	}
	for _, tok := range strings.Fields(q) {
		if strings.Contains(n, tok) {
			score += tokenScore
		}
	}
	return score
}

func stripApostrophes(s string) string {
	return strings.ReplaceAll(s, "'", "")
}

// lengthBonus favours shorter names: max(0, 20 - min(20, len/2))
func lengthBonus(n string) int {
	half := utf8.RuneCountInString(n) / 2
	if half > maxLengthBonus {
		half = maxLengthBonus
	}
	return maxLengthBonus - half
}

type scored struct {
	station Station
	score   int
}

// Rank orders stations by descending score against query, ties broken by
// display name then id, dropping non-matches and truncating to limit.
// query is normalized here, so raw text is accepted.
func Rank(query string, stations []Station, limit int) []Station {
	q := Normalize(query)
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	hits := make([]scored, 0, len(stations))
	for _, s := range stations {
		if sc := Score(q, s.NormalizedName); sc > 0 {
			hits = append(hits, scored{station: s, score: sc})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if hits[i].station.DisplayName != hits[j].station.DisplayName {
			return hits[i].station.DisplayName < hits[j].station.DisplayName
		}
		return hits[i].station.ID < hits[j].station.ID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Station, len(hits))
	for i, h := range hits {
		out[i] = h.station
	}
	return out
}
