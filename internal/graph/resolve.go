package graph

import (
	"strings"

	"github.com/giraph/engine/internal/models"
)

// Strategy names, also used as metric labels.
const (
	StrategyExact      = "exact"
	StrategyNormalized = "normalized"
	StrategySubstring  = "substring"
)

// Strategy matches a header against candidate nodes. Candidates arrive in
// ascending id order and the first hit wins.
type Strategy struct {
	Name  string
	Match func(header, normalized string, candidates []models.Node) (models.Node, bool)
}

// Match is a successful resolution.
type Match struct {
	Node     models.Node
	Strategy string
}

// DefaultStrategies is exact, then normalized exact, then substring.
var DefaultStrategies = []Strategy{
	{Name: StrategyExact, Match: matchExact},
	{Name: StrategyNormalized, Match: matchNormalized},
	{Name: StrategySubstring, Match: matchSubstring},
}

// NormalizeHeader trims the header and strips one trailing "_<suffix>" token
// added by spreadsheet exports to disambiguate duplicate columns
// ("Midterm_0833AB" becomes "Midterm").
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	if i := strings.LastIndex(h, "_"); i > 0 && i < len(h)-1 {
		return strings.TrimSpace(h[:i])
	}
	return h
}

// Resolve runs strategies in order and returns the first match.
func Resolve(header string, candidates []models.Node, strategies []Strategy) (Match, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Match{}, false
	}
	normalized := NormalizeHeader(header)
	for _, s := range strategies {
		if n, ok := s.Match(header, normalized, candidates); ok {
			return Match{Node: n, Strategy: s.Name}, true
		}
	}
	return Match{}, false
}

func matchExact(header, _ string, candidates []models.Node) (models.Node, bool) {
	for _, n := range candidates {
		if models.SameName(n.Name, header) {
			return n, true
		}
	}
	return models.Node{}, false
}

func matchNormalized(_, normalized string, candidates []models.Node) (models.Node, bool) {
	for _, n := range candidates {
		if models.SameName(n.Name, normalized) {
			return n, true
		}
	}
	return models.Node{}, false
}

func matchSubstring(_, normalized string, candidates []models.Node) (models.Node, bool) {
	needle := models.FoldName(normalized)
	if needle == "" {
		return models.Node{}, false
	}
	for _, n := range candidates {
		if strings.Contains(models.FoldName(n.Name), needle) {
			return n, true
		}
	}
	return models.Node{}, false
}
