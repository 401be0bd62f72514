package graph

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// mergePrefixRunes is the shared leading substring used to group candidate
// merge sets. Grouping keeps the merge pass cheap: only lexically close
// names are ever compared.
const mergePrefixRunes = 3

// MergeSimilarEntities collapses lexically similar entity names in a single
// pass. Within each prefix group, names sort by descending frequency (ties
// keep insertion order) and the most frequent becomes canonical; variants
// that match the canonical name under the configured strategy are folded
// into it, with frequencies summed, context lists concatenated, and all
// triples rewritten to the canonical name. Triples that collapse into
// duplicates or self-loops after rewriting are dropped. Returns the number
// of variant names folded away.
//
// The pass is non-recursive and idempotent. It does not guarantee globally
// optimal merging: names that are semantically identical but lexically
// dissimilar stay separate.
func (g *Graph) MergeSimilarEntities(threshold float64) int {
	groups := make(map[string][]string)
	var groupOrder []string

	for _, name := range g.order {
		runes := []rune(name)
		if len(runes) < mergePrefixRunes {
			continue
		}
		prefix := string(runes[:mergePrefixRunes])
		if _, ok := groups[prefix]; !ok {
			groupOrder = append(groupOrder, prefix)
		}
		groups[prefix] = append(groups[prefix], name)
	}

	merged := 0
	for _, prefix := range groupOrder {
		group := groups[prefix]
		if len(group) <= 1 {
			continue
		}

		sortByFrequency(g, group)
		canonical := group[0]

		for _, variant := range group[1:] {
			if !g.shouldMerge(canonical, variant, threshold) {
				continue
			}
			g.mergeInto(canonical, variant)
			merged++
		}
	}

	if merged > 0 {
		g.compactOrder()
		g.compactRelations()
	}
	return merged
}

// sortByFrequency orders names by descending frequency, stable so that
// insertion order breaks ties deterministically.
func sortByFrequency(g *Graph, names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return g.entities[names[i]].Frequency > g.entities[names[j]].Frequency
	})
}

func (g *Graph) shouldMerge(canonical, variant string, threshold float64) bool {
	contained := strings.Contains(canonical, variant) || strings.Contains(variant, canonical)
	switch g.cfg.MergeStrategy {
	case MergeLevenshtein:
		return contained || levenshtein.Similarity(canonical, variant, nil) >= threshold
	default:
		return contained
	}
}

func (g *Graph) mergeInto(canonical, variant string) {
	canon := g.entities[canonical]
	vari := g.entities[variant]

	canon.Frequency += vari.Frequency
	for _, c := range vari.Contexts {
		g.appendContext(canon, c)
	}

	for i := range g.relations {
		if g.relations[i].Subject == variant {
			g.relations[i].Subject = canonical
		}
		if g.relations[i].Object == variant {
			g.relations[i].Object = canonical
		}
	}

	delete(g.entities, variant)
}

// compactOrder drops merged-away names from the insertion-order list.
func (g *Graph) compactOrder() {
	kept := g.order[:0]
	for _, name := range g.order {
		if _, ok := g.entities[name]; ok {
			kept = append(kept, name)
		}
	}
	g.order = kept
}

// compactRelations rebuilds the triple list and its dedup keys after a
// rewrite. Rewriting can turn two distinct triples into the same one, or
// into a self-loop; both are dropped here.
func (g *Graph) compactRelations() {
	g.seen = make(map[tripleKey]struct{}, len(g.relations))
	g.relationTypes = make(map[string]struct{})
	kept := g.relations[:0]
	for _, r := range g.relations {
		if r.Subject == r.Object {
			continue
		}
		key := tripleKey{r.Subject, r.Relation, r.Object}
		if _, ok := g.seen[key]; ok {
			continue
		}
		g.seen[key] = struct{}{}
		g.relationTypes[r.Relation] = struct{}{}
		kept = append(kept, r)
	}
	g.relations = kept
}
