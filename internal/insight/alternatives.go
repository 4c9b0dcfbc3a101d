package insight

import (
	"slices"
	"strings"

	"github.com/Benny93/prophet-go/internal/analyzer"
	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/impact"
)

// Alternative is a component that might replace another one.
type Alternative struct {
	ComponentID     string   `json:"component_id"`
	ComponentName   string   `json:"component_name"`
	SimilarityScore float64  `json:"similarity_score"`
	Suppliers       []string `json:"suppliers"`
	Countries       []string `json:"countries"`
}

func wordSet(s string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		words[w] = struct{}{}
	}
	return words
}

// FindAlternativeComponents returns up to limit components whose names
// share at least one word with the named component, ordered by the share
// of common words. Components with an identical name are skipped.
func FindAlternativeComponents(g graph.Reader, componentID string, limit int) []Alternative {
	out := []Alternative{}
	target := g.Node(componentID)
	if target == nil || limit <= 0 {
		return out
	}

	name := target.DisplayName()
	original := wordSet(name)
	for _, n := range g.NodesByKind(graph.KindComponent) {
		if n.ID == componentID || n.DisplayName() == name {
			continue
		}

		candidate := wordSet(n.DisplayName())
		common := 0
		for w := range candidate {
			if _, ok := original[w]; ok {
				common++
			}
		}
		if common == 0 {
			continue
		}

		out = append(out, Alternative{
			ComponentID:     n.ID,
			ComponentName:   n.DisplayName(),
			SimilarityScore: impact.Round(float64(common)/float64(max(len(original), len(candidate))), 2),
			Suppliers:       nonNil(analyzer.SupplierNames(g, n.ID)),
			Countries:       nonNil(analyzer.Countries(g, n.ID)),
		})
	}

	slices.SortStableFunc(out, func(x, y Alternative) int {
		return descending(x.SimilarityScore, y.SimilarityScore)
	})
	return out[:min(limit, len(out))]
}

func descending(x, y float64) int {
	switch {
	case x > y:
		return -1
	case x < y:
		return 1
	}
	return 0
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
