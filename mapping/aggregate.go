package mapping

import (
	"sort"

	"github.com/craftedsignal/attackmap/catalog"
)

// TacticGroup is one tactic's slice of the final mapping set, for display.
// A technique spanning multiple tactics appears in each of its groups.
type TacticGroup struct {
	// Tactic is the tactic name.
	Tactic string `json:"tactic"`

	// Mappings are the tactic's mappings, technique id ascending.
	Mappings []Mapping `json:"mappings"`
}

// Aggregate merges per-chunk mappings into one deduplicated result set for
// a document. Mappings sharing a technique id are merged: confidence is the
// maximum observed across chunks, evidence is the union of quotes in
// chunk-index order without duplicate strings, chunk indices are the sorted
// union, and tactics are resolved fresh from the catalog. A merged mapping
// is Unverified only when every contribution was. The minimum-confidence
// filter runs strictly last, after merging, so weak chunks still contribute
// evidence to techniques another chunk supports strongly.
//
// Output is sorted by first tactic name ascending, then technique id
// ascending, independent of input order. Aggregate is idempotent: feeding
// its output back in yields the same result.
func Aggregate(perChunk [][]Mapping, cat *catalog.Catalog, minConfidence float64) []Mapping {
	merged := make(map[string]*Mapping)
	var order []string

	for _, chunkMappings := range perChunk {
		for _, m := range chunkMappings {
			got, ok := merged[m.TechniqueID]
			if !ok {
				clone := m
				clone.Evidence = append([]Quote(nil), m.Evidence...)
				clone.Chunks = append([]int(nil), m.Chunks...)
				merged[m.TechniqueID] = &clone
				order = append(order, m.TechniqueID)
				continue
			}
			if m.Confidence > got.Confidence {
				got.Confidence = m.Confidence
			}
			got.Evidence = append(got.Evidence, m.Evidence...)
			got.Chunks = append(got.Chunks, m.Chunks...)
			got.Unverified = got.Unverified && m.Unverified
		}
	}

	out := make([]Mapping, 0, len(order))
	for _, id := range order {
		m := merged[id]
		sortEvidence(m.Evidence)
		m.Evidence = dedupeQuotes(m.Evidence)
		m.Chunks = dedupeInts(m.Chunks)

		if tech, err := cat.Get(id); err == nil {
			m.Name = tech.Name
			m.Tactics = append([]string(nil), tech.Tactics...)
		}

		if m.Confidence < minConfidence {
			continue
		}
		out = append(out, *m)
	}

	sort.Slice(out, func(i, j int) bool {
		ti, tj := firstTactic(out[i]), firstTactic(out[j])
		if ti != tj {
			return ti < tj
		}
		return out[i].TechniqueID < out[j].TechniqueID
	})
	return out
}

// GroupByTactic arranges an aggregated mapping set into per-tactic groups,
// tactic name ascending, technique id ascending within each group. Mappings
// with no resolved tactics are grouped under the empty tactic name first.
func GroupByTactic(mappings []Mapping) []TacticGroup {
	byTactic := make(map[string][]Mapping)
	for _, m := range mappings {
		if len(m.Tactics) == 0 {
			byTactic[""] = append(byTactic[""], m)
			continue
		}
		for _, tactic := range m.Tactics {
			byTactic[tactic] = append(byTactic[tactic], m)
		}
	}

	tactics := make([]string, 0, len(byTactic))
	for tactic := range byTactic {
		tactics = append(tactics, tactic)
	}
	sort.Strings(tactics)

	groups := make([]TacticGroup, 0, len(tactics))
	for _, tactic := range tactics {
		ms := byTactic[tactic]
		sort.Slice(ms, func(i, j int) bool {
			return ms[i].TechniqueID < ms[j].TechniqueID
		})
		groups = append(groups, TacticGroup{Tactic: tactic, Mappings: ms})
	}
	return groups
}

// firstTactic returns the alphabetically smallest tactic for sorting.
func firstTactic(m Mapping) string {
	if len(m.Tactics) == 0 {
		return ""
	}
	min := m.Tactics[0]
	for _, t := range m.Tactics[1:] {
		if t < min {
			min = t
		}
	}
	return min
}

// dedupeQuotes removes quotes whose text duplicates an earlier quote,
// preserving order.
func dedupeQuotes(quotes []Quote) []Quote {
	seen := make(map[string]struct{}, len(quotes))
	out := quotes[:0]
	for _, q := range quotes {
		if _, ok := seen[q.Text]; ok {
			continue
		}
		seen[q.Text] = struct{}{}
		out = append(out, q)
	}
	return out
}

// dedupeInts sorts and removes duplicates.
func dedupeInts(xs []int) []int {
	sort.Ints(xs)
	out := xs[:0]
	for i, x := range xs {
		if i > 0 && x == xs[i-1] {
			continue
		}
		out = append(out, x)
	}
	return out
}
