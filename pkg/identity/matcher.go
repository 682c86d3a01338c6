package identity

import (
	"strings"
	"sync"
)

// DefaultThreshold is the minimum similarity score (0-100) for a match.
const DefaultThreshold = 60

// Match is a successful resolution of a raw name to a canonical identity.
type Match struct {
	Canonical string
	Score     int // similarity score, 0-100
}

// Matcher resolves raw names against a Directory with memoized results.
//
// The memo cache is keyed on (raw name, directory version, threshold), not
// on the Directory instance: a fresh snapshot built from identical contents
// hits the same cache entries, and a snapshot with different contents can
// never serve stale results. The cache is safe for concurrent use; racing
// first lookups for the same key at worst duplicate the scan, they never
// produce a wrong answer.
type Matcher struct {
	mu   sync.RWMutex
	memo map[memoKey]memoEntry
}

type memoKey struct {
	raw       string
	version   string
	threshold int
}

type memoEntry struct {
	match Match
	ok    bool
}

// NewMatcher creates an empty Matcher.
func NewMatcher() *Matcher {
	return &Matcher{memo: make(map[memoKey]memoEntry)}
}

// Resolve finds the best-scoring canonical identity for raw in dir. It
// returns false when no candidate reaches threshold; that is an expected
// outcome (markets routinely reference events the schedule feed does not
// carry), not an error.
//
// An exact normalized-form match bypasses similarity scoring entirely.
// Otherwise every directory form is scored with an order-independent
// token-sort ratio; if the raw name scores below threshold and has more
// than one token, it is rescored with its trailing token dropped, which
// recovers names carrying a mascot or nickname the directory omits.
func (m *Matcher) Resolve(raw string, dir *Directory, threshold int) (Match, bool) {
	if dir == nil {
		return Match{}, false
	}
	key := memoKey{raw: raw, version: dir.Version(), threshold: threshold}

	m.mu.RLock()
	cached, hit := m.memo[key]
	m.mu.RUnlock()
	if hit {
		return cached.match, cached.ok
	}

	match, ok := resolve(raw, dir, threshold)

	m.mu.Lock()
	m.memo[key] = memoEntry{match: match, ok: ok}
	m.mu.Unlock()

	return match, ok
}

// CacheSize returns the number of memoized results.
func (m *Matcher) CacheSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.memo)
}

func resolve(raw string, dir *Directory, threshold int) (Match, bool) {
	norm := Normalize(raw)
	if norm == "" {
		return Match{}, false
	}

	// Exact form match: no scan needed.
	if canonical, ok := dir.byForm[norm]; ok {
		return Match{Canonical: canonical, Score: 100}, true
	}

	toks := strings.Split(norm, " ")
	query := sortedTokenString(toks)

	best, found := bestCandidate(dir, query, threshold)
	if found {
		return best, true
	}

	// Retry with the trailing token dropped. Raw names often append a
	// mascot or nickname that the canonical entry omits; dropping it is
	// only accepted when it actually clears the threshold, so no
	// maintained suffix list is needed.
	if len(toks) > 1 {
		stripped := sortedTokenString(toks[:len(toks)-1])
		if strippedBest, ok := bestCandidate(dir, stripped, threshold); ok {
			return strippedBest, true
		}
	}

	return Match{}, false
}

// bestCandidate scans the directory for the highest-scoring entry at or
// above threshold. Ties are broken deterministically: an exact token-set
// match beats a superset match, then the shorter canonical name wins,
// then the lexicographically smaller one.
func bestCandidate(dir *Directory, sortedQuery string, threshold int) (Match, bool) {
	var (
		best      Match
		bestExact bool
		found     bool
	)

	for i := range dir.entries {
		e := &dir.entries[i]
		score := ratio(sortedQuery, e.sorted)
		// The directory side can carry the mascot too; score the entry
		// with its trailing token dropped and keep the better result.
		if e.sortedStripped != "" {
			if s := ratio(sortedQuery, e.sortedStripped); s > score {
				score = s
			}
		}
		if score < threshold {
			continue
		}
		exact := e.sorted == sortedQuery

		switch {
		case !found, score > best.Score:
		case score == best.Score && exact && !bestExact:
		case score == best.Score && exact == bestExact && len(e.canonical) < len(best.Canonical):
		case score == best.Score && exact == bestExact && len(e.canonical) == len(best.Canonical) && e.canonical < best.Canonical:
		default:
			continue
		}

		best = Match{Canonical: e.canonical, Score: score}
		bestExact = exact
		found = true
	}

	return best, found
}

// TokenSortRatio scores the similarity of two names on a 0-100 scale.
// Both are normalized and their tokens sorted alphabetically before
// comparison, so token order never affects the score.
func TokenSortRatio(a, b string) int {
	sa := sortedTokenString(Tokens(a))
	sb := sortedTokenString(Tokens(b))
	return ratio(sa, sb)
}

// ratio is a character-level similarity of two strings: twice the length
// of their longest common subsequence over their combined length, scaled
// to 0-100 and rounded to nearest.
func ratio(a, b string) int {
	if a == b {
		return 100
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	common := lcs(a, b)
	return (200*common + (len(a)+len(b))/2) / (len(a) + len(b))
}

// lcs computes the longest-common-subsequence length with a rolling
// single-row table. Inputs are short normalized names, so the quadratic
// scan is cheap.
func lcs(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
