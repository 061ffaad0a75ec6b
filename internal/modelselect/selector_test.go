package modelselect_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/estimo/internal/modelselect"
)

func testCatalog() modelselect.Catalog {
	return modelselect.Catalog{
		Stages: map[string][]modelselect.ModelOption{
			"estimate": {
				{Model: "o3", CredentialEnvVars: []string{"TEST_O3_KEY", "TEST_FALLBACK_KEY"}},
				{Model: "gpt-4o", CredentialEnvVars: []string{"TEST_FALLBACK_KEY"}},
			},
		},
		Default: modelselect.ModelOption{Model: "default-model", CredentialEnvVars: []string{"TEST_DEFAULT_KEY"}},
	}
}

func TestSelectFirstEntry(t *testing.T) {
	t.Setenv("TEST_O3_KEY", "abc")
	sel := modelselect.New(testCatalog())

	got := sel.Select("estimate")
	assert.Equal(t, "o3", got.Model)
	assert.Equal(t, "abc", got.Credential)
	assert.Equal(t, "TEST_O3_KEY", got.CredentialSource)
}

func TestSelectSkipsEmptyEnvVars(t *testing.T) {
	os.Unsetenv("TEST_O3_KEY")
	t.Setenv("TEST_FALLBACK_KEY", "xyz")
	sel := modelselect.New(testCatalog())

	got := sel.Select("estimate")
	assert.Equal(t, "o3", got.Model, "still the first model; only the credential var differs")
	assert.Equal(t, "xyz", got.Credential)
	assert.Equal(t, "TEST_FALLBACK_KEY", got.CredentialSource)
}

func TestSelectUnknownStageUsesDefault(t *testing.T) {
	t.Setenv("TEST_DEFAULT_KEY", "d")
	sel := modelselect.New(testCatalog())

	got := sel.Select("nonexistent_stage")
	assert.Equal(t, "default-model", got.Model)
	assert.Equal(t, "d", got.Credential)
}

func TestSelectNoCredentialAvailable(t *testing.T) {
	os.Unsetenv("TEST_O3_KEY")
	os.Unsetenv("TEST_FALLBACK_KEY")
	sel := modelselect.New(testCatalog())

	got := sel.Select("estimate")
	assert.Equal(t, "o3", got.Model)
	assert.Empty(t, got.Credential)
}

func TestFallbackReturnsNextEntry(t *testing.T) {
	t.Setenv("TEST_FALLBACK_KEY", "f")
	sel := modelselect.New(testCatalog())

	got, ok := sel.Fallback("estimate", "o3")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, "f", got.Credential)
}

func TestFallbackNoneWhenLastEntry(t *testing.T) {
	sel := modelselect.New(testCatalog())

	_, ok := sel.Fallback("estimate", "gpt-4o")
	assert.False(t, ok)
}

func TestFallbackNoneWhenModelNotFound(t *testing.T) {
	sel := modelselect.New(testCatalog())

	_, ok := sel.Fallback("estimate", "unknown-model")
	assert.False(t, ok)
}
