package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVendorIntent(t *testing.T) {
	answer := "Bamboo brushes are a great swap for plastic ones. Find local vendors for soap products in Hyderabad"

	in, ok := ParseVendorIntent(answer)
	require.True(t, ok)
	assert.Equal(t, "soap", in.Category)
	assert.Equal(t, "Bamboo brushes are a great swap for plastic ones.", in.Lead)
}

func TestParseVendorIntent_CaseInsensitive(t *testing.T) {
	in, ok := ParseVendorIntent("find LOCAL vendors for Clothing products")
	require.True(t, ok)
	assert.Equal(t, "clothing", in.Category)
	assert.Equal(t, "find LOCAL vendors for Clothing products", in.Lead, "nothing precedes the call to action")
}

func TestParseVendorIntent_NoMatch(t *testing.T) {
	for _, answer := range []string{
		"",
		"This shirt uses organic cotton.",
		"Find local vendors near you",
		"Find local vendors for eco-friendly products",
	} {
		_, ok := ParseVendorIntent(answer)
		assert.False(t, ok, "ParseVendorIntent(%q)", answer)
	}
}

func TestRender(t *testing.T) {
	plain := "<b>Recycled</b> packaging is used."
	r := Render(plain)
	assert.Equal(t, plain, r.Text)
	assert.Nil(t, r.Intent)

	r = Render("Try a refill store. Find local vendors for soap products in Hyderabad")
	require.NotNil(t, r.Intent)
	assert.Equal(t, "soap", r.Intent.Category)
	assert.Equal(t, "Try a refill store.", r.Text)
}

func TestPlainText(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect string
	}{
		{"plain", "Just text", "Just text"},
		{"inline tags", "Made with <b>organic</b> cotton &amp; dyes", "Made with organic cotton & dyes"},
		{"list", "<p>Highlights:</p><ul><li>Recyclable</li><li>Vegan</li></ul>", "Highlights:\n\n- Recyclable\n- Vegan"},
		{"line breaks", "one<br>two<br/>three", "one\ntwo\nthree"},
		{"script dropped", "safe<script>alert(1)</script> text", "safe text"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, PlainText(tc.input))
		})
	}
}
