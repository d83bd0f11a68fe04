package permutation

import (
	"sort"
	"strings"
)

// Strategy mutates a registrable label into candidate domains. The returned
// list may contain duplicates; the engine collapses them.
type Strategy func(label, tld string) []string

// join builds a candidate from mutated label runes.
func join(tld string, parts ...string) string {
	return strings.Join(parts, "") + "." + tld
}

// Substitution replaces every position with every letter and digit.
func Substitution(label, tld string) []string {
	rs := []rune(label)
	out := make([]string, 0, len(rs)*len(letters))
	for i := range rs {
		for _, c := range letters {
			out = append(out, join(tld, string(rs[:i]), string(c), string(rs[i+1:])))
		}
	}
	return out
}

// Insertion inserts every distinct label character at every position,
// including before the first and after the last character.
func Insertion(label, tld string) []string {
	rs := []rune(label)
	if len(rs) == 0 {
		return nil
	}

	distinct := uniqueRunes(rs)
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i <= len(rs); i++ {
		for _, c := range distinct {
			candidate := join(tld, string(rs[:i]), string(c), string(rs[i:]))
			if _, ok := seen[candidate]; ok {
				continue
			}
			seen[candidate] = struct{}{}
			out = append(out, candidate)
		}
	}
	return out
}

// SuffixSwap pairs the label with each popular suffix, whatever the original suffix.
func SuffixSwap(label, _ string) []string {
	if label == "" {
		return nil
	}
	out := make([]string, 0, len(popularSuffixes))
	for _, s := range popularSuffixes {
		out = append(out, label+"."+s)
	}
	return out
}

// Cyrillic applies the Latin to Cyrillic map as a chain and emits the running
// value after every step.
func Cyrillic(label, tld string) []string {
	if label == "" {
		return nil
	}
	out := make([]string, 0, len(latinToCyrillic))
	current := label
	for _, p := range latinToCyrillic {
		current = strings.ReplaceAll(current, p.latin, p.cyrillic)
		out = append(out, current+"."+tld)
	}
	return out
}

// Transposition swaps each pair of adjacent characters.
func Transposition(label, tld string) []string {
	rs := []rune(label)
	if len(rs) < 2 {
		return nil
	}
	out := make([]string, 0, len(rs)-1)
	for i := 0; i < len(rs)-1; i++ {
		swapped := make([]rune, len(rs))
		copy(swapped, rs)
		swapped[i], swapped[i+1] = swapped[i+1], swapped[i]
		out = append(out, string(swapped)+"."+tld)
	}
	return out
}

// KeyboardSubstitution replaces each character with its neighbours on QWERTY,
// QWERTZ and AZERTY layouts.
func KeyboardSubstitution(label, tld string) []string {
	rs := []rune(label)
	var out []string
	for i, c := range rs {
		for _, kb := range keyboards {
			for _, k := range kb[c] {
				out = append(out, join(tld, string(rs[:i]), string(k), string(rs[i+1:])))
			}
		}
	}
	return out
}

// KeyboardInsertion inserts each neighbouring key before and after an
// interior character. The first and last characters are left alone.
func KeyboardInsertion(label, tld string) []string {
	rs := []rune(label)
	var out []string
	for i := 1; i < len(rs)-1; i++ {
		c := rs[i]
		for _, kb := range keyboards {
			for _, k := range kb[c] {
				out = append(out,
					join(tld, string(rs[:i]), string(k), string(c), string(rs[i+1:])),
					join(tld, string(rs[:i]), string(c), string(k), string(rs[i+1:])),
				)
			}
		}
	}
	return out
}

// Duplication doubles each character in turn.
func Duplication(label, tld string) []string {
	rs := []rune(label)
	out := make([]string, 0, len(rs))
	for i, c := range rs {
		out = append(out, join(tld, string(rs[:i]), string(c), string(rs[i:])))
	}
	return out
}

// Reversal returns the label spelled backwards.
func Reversal(label, tld string) []string {
	rs := []rune(label)
	if len(rs) == 0 {
		return nil
	}
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	return []string{string(rs) + "." + tld}
}

// Omission drops each character in turn.
func Omission(label, tld string) []string {
	rs := []rune(label)
	out := make([]string, 0, len(rs))
	for i := range rs {
		out = append(out, join(tld, string(rs[:i]), string(rs[i+1:])))
	}
	return out
}

// Homoglyph substitutes look-alike Unicode glyphs, one matched position at a time.
func Homoglyph(label, tld string) []string {
	return substituteGlyphs(unicodeGlyphs, label, tld)
}

// TLDHomoglyph substitutes only the diacritics accepted by the registry of
// the given suffix. The full suffix is tried first, then its last label.
func TLDHomoglyph(label, tld string) []string {
	table, ok := tldGlyphs[tld]
	if !ok {
		if i := strings.LastIndex(tld, "."); i >= 0 {
			table, ok = tldGlyphs[tld[i+1:]]
		}
	}
	if !ok {
		return nil
	}
	return substituteGlyphs(table, label, tld)
}

// ASCIILookalike swaps ASCII sequences that read alike, such as rn and m.
func ASCIILookalike(label, tld string) []string {
	return substituteGlyphs(asciiGlyphs, label, tld)
}

func substituteGlyphs(table glyphTable, label, tld string) []string {
	rs := []rune(label)
	if len(rs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for i := range rs {
		for _, k := range keys {
			kr := []rune(k)
			if !hasRunesAt(rs, i, kr) {
				continue
			}
			for _, g := range table[k] {
				out = append(out, join(tld, string(rs[:i]), g, string(rs[i+len(kr):])))
			}
		}
	}
	return out
}

func hasRunesAt(rs []rune, i int, want []rune) bool {
	if i+len(want) > len(rs) {
		return false
	}
	for j, r := range want {
		if rs[i+j] != r {
			return false
		}
	}
	return true
}

func uniqueRunes(rs []rune) []rune {
	seen := make(map[rune]struct{}, len(rs))
	out := make([]rune, 0, len(rs))
	for _, r := range rs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
