package similarity

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const basePage = `<!DOCTYPE html>
<html><head><title>Example</title></head>
<body class="home">
  <!-- header -->
  <div class="nav main"><a class="link" href="/">Home</a></div>
  <div class="content"><p class="lead">Welcome</p></div>
</body></html>`

func largePage() string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&b, `<div class="row r%d"><span class="cell">%d</span></div>`, i%7, i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestIdenticalDocumentsScoreHundred(t *testing.T) {
	for _, page := range []string{basePage, largePage()} {
		for _, mode := range []Mode{ModeStyle, ModeStructural, ModeBoth} {
			s := NewScorer(page, mode, true)
			score := s.Score(page)
			assert.True(t, score.Computed, mode)
			assert.Equal(t, 100.0, score.Value, mode)
		}
	}
}

func TestIdenticalStructureWithoutHashShortcut(t *testing.T) {
	// Same markup, different text: the fingerprint differs but the ratios do not.
	page := largePage()
	other := strings.ReplaceAll(page, ">1<", ">one<")
	require.NotEqual(t, page, other)

	for _, mode := range []Mode{ModeStyle, ModeStructural, ModeBoth} {
		s := NewScorer(page, mode, true)
		assert.Equal(t, 100.0, s.Score(other).Value, mode)
	}
}

func TestStyleRatio(t *testing.T) {
	s := NewScorer(`<div class="a b"></div>`, ModeStyle, true)

	score := s.Score(`<div class="b c"></div>`)
	require.True(t, score.Computed)
	assert.Equal(t, 33.33, score.Value)

	assert.Equal(t, 0.0, s.Score(`<div class="x"></div>`).Value)
}

func TestStructuralRatioCountsComments(t *testing.T) {
	s := NewScorer(`<p></p><!-- x -->`, ModeStructural, true)
	withComment := s.Score(`<p></p><!-- y -->`)
	withoutComment := s.Score(`<p></p>`)

	assert.Equal(t, 100.0, withComment.Value)
	assert.Less(t, withoutComment.Value, 100.0)
}

func TestBothIsMean(t *testing.T) {
	base := `<div class="a b"><p></p></div>`
	cand := `<div class="b c"><p></p></div>`

	style := NewScorer(base, ModeStyle, true).Score(cand)
	structural := NewScorer(base, ModeStructural, true).Score(cand)
	both := NewScorer(base, ModeBoth, true).Score(cand)

	assert.Equal(t, 100.0, structural.Value)
	assert.InDelta(t, (style.Value+structural.Value)/2, both.Value, 0.01)
}

func TestNotComputed(t *testing.T) {
	tests := []struct {
		name      string
		baseline  string
		enabled   bool
		candidate string
	}{
		{"disabled", basePage, false, basePage},
		{"no baseline", "", true, basePage},
		{"no candidate", basePage, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScorer(tt.baseline, ModeStyle, tt.enabled)
			assert.False(t, s.Score(tt.candidate).Computed)

			_, err := s.Compare(tt.candidate)
			assert.ErrorIs(t, err, ErrNotComputed)
		})
	}
}

func TestScoreEncoding(t *testing.T) {
	data, err := json.Marshal(map[string]Score{
		"missing": NotComputed(),
		"zero":    Percent(0),
		"half":    Percent(0.5),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"missing":null,"zero":0,"half":50}`, string(data))

	var decoded map[string]Score
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.False(t, decoded["missing"].Computed)
	assert.True(t, decoded["zero"].Computed)

	out, err := yaml.Marshal(map[string]Score{"missing": NotComputed()})
	require.NoError(t, err)
	assert.Equal(t, "missing: null\n", string(out))
}

func TestPercentRounding(t *testing.T) {
	assert.Equal(t, 66.67, Percent(2.0/3.0).Value)
	assert.Equal(t, "n/a", NotComputed().String())
	assert.Equal(t, "12.50", Percent(0.125).String())
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"style":      ModeStyle,
		"":           ModeStyle,
		"Structural": ModeStructural,
		"similarity": ModeBoth,
		"both":       ModeBoth,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("visual")
	assert.Error(t, err)
}
