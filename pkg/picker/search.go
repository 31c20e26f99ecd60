// Package picker turns a resolved host registry into an interactive
// fuzzy-search selector and launches the chosen session.
package picker

import (
	"sort"
	"strings"

	"sshpick/pkg/sshconfig"
)

// Match is one ranked search hit; Index points into the registry.
type Match struct {
	Index int
	Score int
}

// searchText builds the lowercased haystack for one host:
// alias, hostname, user and the destination summary.
func searchText(h sshconfig.ResolvedHost) string {
	fields := []string{h.Alias, h.Hostname}
	if h.User != "" {
		fields = append(fields, h.User)
	}
	fields = append(fields, h.Destination())
	return strings.ToLower(strings.Join(fields, " "))
}

// Rank filters and orders the registry against query.
//
// Query tokens are split on whitespace and must all match (AND). An empty
// query keeps every host with a neutral score, ordered alphabetically by
// alias when sortByName, else in registry order. Ties keep registry order.
func Rank(reg *sshconfig.Registry, query string, sortByName bool) []Match {
	targets := make([]string, reg.Len())
	for i := 0; i < reg.Len(); i++ {
		targets[i] = searchText(reg.At(i))
	}

	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		out := make([]Match, reg.Len())
		for i := range out {
			out[i] = Match{Index: i}
		}
		if sortByName {
			sort.SliceStable(out, func(a, b int) bool {
				return reg.At(out[a].Index).Alias < reg.At(out[b].Index).Alias
			})
		}
		return out
	}

	var out []Match
	for i, target := range targets {
		total := 0
		okAll := true
		for _, t := range tokens {
			s, ok := fuzzyScore(t, target)
			if !ok {
				okAll = false
				break
			}
			total += s
		}
		if !okAll {
			continue
		}
		// Shorter targets rank above longer ones at equal match quality, so
		// "web-1" beats "webhook-relay-1" for the query "web1".
		if bonus := 30 - len(target); bonus > 0 {
			total += bonus
		}
		out = append(out, Match{Index: i, Score: total})
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score > out[b].Score
	})
	return out
}

// fuzzyScore performs a subsequence fuzzy match of query against text.
// Returns (score, true) if query is a subsequence of text; otherwise (0, false).
// The score rewards consecutive matches, word boundaries, and early positions.
// Both inputs must already be lowercase.
func fuzzyScore(query, text string) (int, bool) {
	if query == "" {
		return 0, true
	}
	rt := []rune(text)

	ti := 0
	lastPos := -1
	consecutive := 0
	score := 0
	firstPos := -1

	for _, qch := range query {
		found := false
		for i := ti; i < len(rt); i++ {
			if rt[i] != qch {
				continue
			}
			score += 10
			if firstPos == -1 {
				firstPos = i
			}
			if lastPos >= 0 && i == lastPos+1 {
				consecutive++
				score += 5 * consecutive // escalating bonus
			} else {
				consecutive = 0
			}
			if i == 0 || !isAlphaNum(rt[i-1]) {
				score += 10
			}
			lastPos = i
			ti = i + 1
			found = true
			break
		}
		if !found {
			return 0, false
		}
	}
	if firstPos >= 0 {
		if bonus := 20 - firstPos; bonus > 0 {
			score += bonus
		}
	}
	return score, true
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
