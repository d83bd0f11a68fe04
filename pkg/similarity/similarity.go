// Package similarity compares a candidate page against the original site's
// HTML by CSS class vocabulary, by document structure, or by both.
package similarity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/twmb/murmur3"
	"golang.org/x/net/html"
)

// ErrNotComputed is returned when a score cannot be produced: checking is
// disabled, the baseline is missing, or the candidate has no HTML.
var ErrNotComputed = errors.New("similarity not computed")

type Mode string

const (
	ModeStyle      Mode = "style"
	ModeStructural Mode = "structural"
	ModeBoth       Mode = "both"
)

// ParseMode accepts style, structural, both, and similarity as an alias for both.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "style", "":
		return ModeStyle, nil
	case "structural", "structure":
		return ModeStructural, nil
	case "both", "similarity", "joint":
		return ModeBoth, nil
	default:
		return "", fmt.Errorf("unknown similarity mode %q", s)
	}
}

// Score is a percentage in [0,100] with two decimals. A Score that was not
// computed encodes as JSON null and never reads as zero.
type Score struct {
	Value    float64
	Computed bool
}

func NotComputed() Score { return Score{} }

func Percent(ratio float64) Score {
	return Score{Value: math.Round(ratio*10000) / 100, Computed: true}
}

func (s Score) String() string {
	if !s.Computed {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", s.Value)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Computed {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Score{}
		return nil
	}
	if err := json.Unmarshal(data, &s.Value); err != nil {
		return fmt.Errorf("decode similarity score: %w", err)
	}
	s.Computed = true
	return nil
}

// MarshalYAML keeps the null sentinel in YAML output as well.
func (s Score) MarshalYAML() (interface{}, error) {
	if !s.Computed {
		return nil, nil
	}
	return s.Value, nil
}

// document is the parsed form of a page reused across comparisons.
type document struct {
	hash    uint64
	classes map[string]struct{}
	tags    []string
}

func parse(raw string) (*document, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	d := &document{
		hash:    murmur3.StringSum64(raw),
		classes: make(map[string]struct{}),
	}
	doc.Find("[class]").Each(func(_ int, sel *goquery.Selection) {
		for _, c := range strings.Fields(sel.AttrOr("class", "")) {
			d.classes[c] = struct{}{}
		}
	})
	d.tags = tagSequence(root)
	return d, nil
}

func tagSequence(root *html.Node) []string {
	var tags []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			tags = append(tags, n.Data)
		case html.CommentNode:
			tags = append(tags, "comment")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return tags
}

// styleRatio is the Jaccard index of the two class sets.
func styleRatio(a, b *document) float64 {
	if len(a.classes) == 0 && len(b.classes) == 0 {
		return 1
	}
	shared := 0
	for c := range a.classes {
		if _, ok := b.classes[c]; ok {
			shared++
		}
	}
	union := len(a.classes) + len(b.classes) - shared
	return float64(shared) / float64(union)
}

// structuralRatio matches the tag sequences without the popular-element
// junk heuristic, so identical documents always score 1.
func structuralRatio(a, b *document) float64 {
	if len(a.tags) == 0 && len(b.tags) == 0 {
		return 1
	}
	m := difflib.NewMatcherWithJunk(a.tags, b.tags, false, nil)
	return m.Ratio()
}

// Scorer holds the baseline document for one scan.
type Scorer struct {
	mode     Mode
	enabled  bool
	baseline *document
}

// NewScorer parses the baseline once. An empty baseline or enabled=false
// yields a scorer that never computes.
func NewScorer(baselineHTML string, mode Mode, enabled bool) *Scorer {
	s := &Scorer{mode: mode, enabled: enabled}
	if !enabled || baselineHTML == "" {
		return s
	}
	if doc, err := parse(baselineHTML); err == nil {
		s.baseline = doc
	}
	return s
}

func (s *Scorer) Mode() Mode { return s.mode }

// Active reports whether Score can return computed values.
func (s *Scorer) Active() bool {
	return s != nil && s.enabled && s.baseline != nil
}

// Score compares candidateHTML with the baseline.
func (s *Scorer) Score(candidateHTML string) Score {
	ratio, err := s.Compare(candidateHTML)
	if err != nil {
		return NotComputed()
	}
	return Percent(ratio)
}

// Compare returns the raw ratio in [0,1] or ErrNotComputed.
func (s *Scorer) Compare(candidateHTML string) (float64, error) {
	if !s.Active() || candidateHTML == "" {
		return 0, ErrNotComputed
	}
	if murmur3.StringSum64(candidateHTML) == s.baseline.hash {
		return 1, nil
	}

	doc, err := parse(candidateHTML)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotComputed, err)
	}

	switch s.mode {
	case ModeStructural:
		return structuralRatio(s.baseline, doc), nil
	case ModeBoth:
		return (styleRatio(s.baseline, doc) + structuralRatio(s.baseline, doc)) / 2, nil
	default:
		return styleRatio(s.baseline, doc), nil
	}
}
