package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		host   string
		label  string
		suffix string
	}{
		{"bare domain", "example.com", "example.com", "example", "com"},
		{"multi-label suffix", "example.co.uk", "example.co.uk", "example", "co.uk"},
		{"subdomain dropped from label", "www.example.com", "www.example.com", "example", "com"},
		{"url input", "https://Example.COM/login?next=/", "example.com", "example", "com"},
		{"port stripped", "example.org:8443", "example.org", "example", "org"},
		{"whitespace and trailing dot", "  example.net. ", "example.net", "example", "net"},
		{"private suffix is registrable", "github.io", "github.io", "github", "io"},
		{"subdomain of private suffix", "myshop.github.io", "myshop.github.io", "github", "io"},
		{"blogspot subdomain", "foo.blogspot.com", "foo.blogspot.com", "blogspot", "com"},
		{"herokuapp", "herokuapp.com", "herokuapp.com", "herokuapp", "com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.host, d.Host)
			assert.Equal(t, tt.label, d.Label)
			assert.Equal(t, tt.suffix, d.Suffix)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	for _, input := range []string{"", "   ", "com", "co.uk"} {
		d, err := Parse(input)
		assert.ErrorIs(t, err, ErrMalformedDomain, "input %q", input)
		assert.Empty(t, d.Label, "input %q", input)
	}
}

func TestIsOriginal(t *testing.T) {
	d, err := Parse("www.example.com")
	require.NoError(t, err)

	assert.True(t, d.IsOriginal("example.com"))
	assert.True(t, d.IsOriginal("www.example.com"))
	assert.False(t, d.IsOriginal("examp1e.com"))
	assert.Equal(t, "example.com", d.String())
}

func TestToASCII(t *testing.T) {
	assert.Equal(t, "example.com", ToASCII("example.com"))

	ascii := ToASCII("еxamplе.com")
	assert.True(t, strings.HasPrefix(ascii, "xn--"), ascii)
	assert.True(t, strings.HasSuffix(ascii, ".com"), ascii)
}
