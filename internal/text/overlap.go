package text

import "strings"

// minOverlapTokenLen is the shortest token counted by OverlapRatio.
const minOverlapTokenLen = 4

// cardEchoStopwords are frequent words that say nothing about a specific card.
var cardEchoStopwords = map[string]bool{
	"hotel": true, "humano": true, "miraflores": true, "ideal": true,
	"opcion": true, "opciones": true, "habitacion": true, "servicio": true,
	"instalacion": true, "recomendacion": true, "para": true, "como": true,
	"desde": true, "hasta": true, "con": true, "sin": true,
}

func longTokens(s string) []string {
	out := make([]string, 0)
	for _, t := range Tokens(s) {
		if len(t) >= minOverlapTokenLen {
			out = append(out, t)
		}
	}
	return out
}

// LongTokenCount returns how many tokens of s OverlapRatio would count.
func LongTokenCount(s string) int {
	return len(longTokens(s))
}

// OverlapRatio returns the share of a's tokens (4+ chars) that also occur in b.
// It is asymmetric: OverlapRatio(a, b) != OverlapRatio(b, a) in general.
func OverlapRatio(a, b string) float64 {
	tokensA := longTokens(a)
	tokensB := make(map[string]bool)
	for _, t := range longTokens(b) {
		tokensB[t] = true
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	hits := 0
	for _, t := range tokensA {
		if tokensB[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(tokensA))
}

// MeaningfulTokens returns the distinct 4+ char tokens of s that are not card-echo stopwords.
func MeaningfulTokens(s string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, t := range longTokens(s) {
		if cardEchoStopwords[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// SharedMeaningful counts meaningful tokens of b present in a.
func SharedMeaningful(a, b string) int {
	inA := make(map[string]bool)
	for _, t := range MeaningfulTokens(a) {
		inA[t] = true
	}
	hits := 0
	for _, t := range MeaningfulTokens(b) {
		if inA[t] {
			hits++
		}
	}
	return hits
}

// JoinNonEmpty joins the non-blank parts with sep.
func JoinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
