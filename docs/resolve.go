package docs

import (
	"fmt"
	"strings"
)

// MatchKind classifies the outcome of [Index.Resolve].
type MatchKind int

const (
	// Ambiguous means there was no exact match, and not exactly one
	// longer (or, failing that, shorter) match. It also covers no match at all.
	Ambiguous MatchKind = iota
	ExactMatch
	SingleLongerMatch
	SingleShorterMatch
)

func (k MatchKind) String() string {
	switch k {
	case ExactMatch:
		return "exact"
	case SingleLongerMatch:
		return "longer"
	case SingleShorterMatch:
		return "shorter"
	default:
		return "ambiguous"
	}
}

// Resolution is the result of matching a query against the index.
type Resolution struct {
	Kind MatchKind
	// Query is the query as given, before lowercasing.
	Query string
	// Entry is the selected method. It's nil when Kind is Ambiguous.
	Entry *IndexEntry
	// Longer holds entries whose alias contains the query, in index order.
	Longer []*IndexEntry
	// Shorter holds entries whose alias is contained in the query, in
	// index order. It stops growing after the first longer match.
	Shorter []*IndexEntry
}

// Found reports whether a single method was selected.
func (r Resolution) Found() bool {
	return r.Entry != nil
}

// Note describes an inexact single match, or returns an empty string.
func (r Resolution) Note() string {
	switch r.Kind {
	case SingleLongerMatch:
		return fmt.Sprintf(
			"Didn't find an exact match for '%s' but instead found a longer match.",
			r.Query,
		)
	case SingleShorterMatch:
		return fmt.Sprintf(
			"Didn't find an exact match for '%s' but instead found a shorter match.",
			r.Query,
		)
	default:
		return ""
	}
}

// isQualified reports whether s names a container, like `gpu.clear` or
// `image:draw`.
func isQualified(s string) bool {
	return strings.ContainsAny(s, ".:")
}

// Resolve finds the method best matching query.
//
// An alias equal to the (lowercased) query is an exact match and ends the
// scan. Otherwise an alias is compared only if the query is qualified or
// the alias itself is plain, so `clear` matches `clear` and `clearmap`,
// but not `gpu.clear`. An alias containing the query is a longer match. An
// alias contained in the query is a shorter match, but only while no
// longer match has been seen. Several aliases of the same method count as
// one match. A single longer match wins, then a single shorter match;
// anything else is Ambiguous.
func (x *Index) Resolve(query string) Resolution {
	q := strings.ToLower(query)
	qualified := isQualified(q)
	res := Resolution{Query: query}

	for _, key := range x.keys {
		e := x.entries[key]
		if key == q {
			res.Kind = ExactMatch
			res.Entry = e
			return res
		}
		if !qualified && isQualified(key) {
			continue
		}
		if strings.Contains(key, q) {
			res.Longer = appendEntry(res.Longer, e)
		} else if len(res.Longer) == 0 && strings.Contains(q, key) {
			res.Shorter = appendEntry(res.Shorter, e)
		}
	}

	switch {
	case len(res.Longer) == 1:
		res.Kind = SingleLongerMatch
		res.Entry = res.Longer[0]
	case len(res.Longer) == 0 && len(res.Shorter) == 1:
		res.Kind = SingleShorterMatch
		res.Entry = res.Shorter[0]
	default:
		res.Kind = Ambiguous
	}
	return res
}

// appendEntry adds e unless one of its other aliases already matched.
func appendEntry(entries []*IndexEntry, e *IndexEntry) []*IndexEntry {
	for _, existing := range entries {
		if existing == e {
			return entries
		}
	}
	return append(entries, e)
}
