// Package domain splits a scan target into its registrable label and public
// suffix using the Public Suffix List.
package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// ErrMalformedDomain is returned when no label/suffix pair can be extracted.
var ErrMalformedDomain = errors.New("malformed domain")

// Domain is a parsed scan target. Host is the normalized input host,
// Label the registrable name and Suffix the (possibly multi-label) public suffix.
type Domain struct {
	Host   string
	Label  string
	Suffix string
}

// Parse normalizes raw (bare host or URL) and splits it into label and suffix.
// On failure the returned Domain carries whatever host could be extracted and
// an empty label, so generation over it yields no candidates.
func Parse(raw string) (Domain, error) {
	host := normalizeHost(raw)
	if host == "" {
		return Domain{}, fmt.Errorf("%w: empty host in %q", ErrMalformedDomain, raw)
	}

	// The suffix list is keyed by A-labels; resolve on the ASCII form and map back.
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		ascii = host
	}

	// Private-section entries such as github.io are registrable sites, so
	// walk up to the ICANN suffix beneath them.
	suffix, icann := publicsuffix.PublicSuffix(ascii)
	for !icann {
		i := strings.IndexByte(suffix, '.')
		if i < 0 {
			break
		}
		suffix, icann = publicsuffix.PublicSuffix(suffix[i+1:])
	}
	if suffix == "" || suffix == ascii {
		return Domain{Host: host}, fmt.Errorf("%w: %q has no registrable label", ErrMalformedDomain, raw)
	}

	rest := strings.TrimSuffix(ascii, "."+suffix)
	label := rest
	if i := strings.LastIndexByte(rest, '.'); i >= 0 {
		label = rest[i+1:]
	}
	if label == "" {
		return Domain{Host: host}, fmt.Errorf("%w: %q has no registrable label", ErrMalformedDomain, raw)
	}

	if u, err := idna.ToUnicode(label); err == nil {
		label = u
	}

	return Domain{Host: host, Label: label, Suffix: suffix}, nil
}

// String returns the registrable domain, label + "." + suffix.
func (d Domain) String() string {
	if d.Label == "" {
		return d.Host
	}
	return d.Label + "." + d.Suffix
}

// IsOriginal reports whether candidate names the scanned domain itself,
// either as the registrable name or as the host the caller submitted.
func (d Domain) IsOriginal(candidate string) bool {
	return candidate == d.String() || candidate == d.Host
}

// ToASCII converts a candidate (possibly containing homoglyphs) to the
// punycode form used on the wire. Conversion errors fall back to the input.
func ToASCII(name string) string {
	ascii, err := idna.Punycode.ToASCII(name)
	if err != nil {
		return name
	}
	return ascii
}

func normalizeHost(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return ""
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		s = u.Hostname()
	} else {
		if i := strings.IndexAny(s, "/?#"); i >= 0 {
			s = s[:i]
		}
		if i := strings.LastIndexByte(s, ':'); i >= 0 && !strings.Contains(s[i+1:], ".") {
			s = s[:i]
		}
	}

	return strings.Trim(s, ".")
}
