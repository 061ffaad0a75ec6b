package smartsheet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goa.design/estimo/internal/smartsheet"
)

func TestValidateURL(t *testing.T) {
	v := smartsheet.NewRegexValidator()
	cases := map[string]bool{
		"https://app.smartsheet.com/sheets/abc123":          true,
		"https://app.smartsheet.com/b/home?lx=xyz789":        true,
		"https://api.smartsheet.com/2.0/sheets/4583173393803140": true,
		"https://example.com/not-a-sheet":                    false,
		"not a url at all":                                   false,
	}
	for url, want := range cases {
		assert.Equal(t, want, v.ValidateURL(url), url)
	}
}

func TestExtractSheetID(t *testing.T) {
	v := smartsheet.NewRegexValidator()

	id, ok := v.ExtractSheetID("https://app.smartsheet.com/sheets/abc123")
	assert.True(t, ok)
	assert.Equal(t, "abc123", id)

	_, ok = v.ExtractSheetID("https://example.com/nope")
	assert.False(t, ok)
}
