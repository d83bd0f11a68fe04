// Package permutation generates look-alike candidates for a registrable
// domain. Each strategy is a pure function over the label; the Engine runs
// the selected strategies and unions their output into a sorted set.
package permutation

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/domain"
)

// NamedStrategy pairs a strategy with the name used in configuration.
type NamedStrategy struct {
	Name string
	Func Strategy
}

var registry = []NamedStrategy{
	{"substitution", Substitution},
	{"insertion", Insertion},
	{"suffix-swap", SuffixSwap},
	{"cyrillic", Cyrillic},
	{"transposition", Transposition},
	{"keyboard-substitution", KeyboardSubstitution},
	{"keyboard-insertion", KeyboardInsertion},
	{"duplication", Duplication},
	{"reversal", Reversal},
	{"omission", Omission},
	{"homoglyph", Homoglyph},
	{"tld-homoglyph", TLDHomoglyph},
	{"ascii-lookalike", ASCIILookalike},
}

// StrategyNames lists every known strategy in execution order.
func StrategyNames() []string {
	names := make([]string, 0, len(registry))
	for _, s := range registry {
		names = append(names, s.Name)
	}
	return names
}

type Engine struct {
	strategies []NamedStrategy
}

// New builds an engine running the named strategies. No names selects all of them.
func New(names ...string) (*Engine, error) {
	if len(names) == 0 {
		return &Engine{strategies: registry}, nil
	}

	byName := make(map[string]NamedStrategy, len(registry))
	for _, s := range registry {
		byName[s.Name] = s
	}

	selected := make([]NamedStrategy, 0, len(names))
	picked := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		s, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown permutation strategy %q (known: %s)",
				name, strings.Join(StrategyNames(), ", "))
		}
		if picked[name] {
			continue
		}
		picked[name] = true
		selected = append(selected, s)
	}
	return &Engine{strategies: selected}, nil
}

// Strategies returns the names of the strategies this engine runs.
func (e *Engine) Strategies() []string {
	names := make([]string, 0, len(e.strategies))
	for _, s := range e.strategies {
		names = append(names, s.Name)
	}
	return names
}

// Generate returns the sorted, duplicate-free candidate set for d. The
// original domain may be part of the result.
func (e *Engine) Generate(d domain.Domain) []string {
	if d.Label == "" || d.Suffix == "" {
		return []string{}
	}

	results := make([][]string, len(e.strategies))
	var g errgroup.Group
	for i, s := range e.strategies {
		g.Go(func() error {
			results[i] = s.Func(d.Label, d.Suffix)
			return nil
		})
	}
	_ = g.Wait()

	return Union(results...)
}

// GenerateByStrategy runs each strategy separately and reports its raw output.
func (e *Engine) GenerateByStrategy(d domain.Domain) map[string][]string {
	out := make(map[string][]string, len(e.strategies))
	for _, s := range e.strategies {
		if d.Label == "" || d.Suffix == "" {
			out[s.Name] = []string{}
			continue
		}
		out[s.Name] = s.Func(d.Label, d.Suffix)
	}
	return out
}

// Union collapses any number of candidate lists into one sorted set.
func Union(lists ...[]string) []string {
	size := 0
	for _, l := range lists {
		size += len(l)
	}

	set := make(map[string]struct{}, size)
	for _, l := range lists {
		for _, c := range l {
			set[c] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
