package harness_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/smokeprobe/internal/harness"
)

func TestRegexFilters_EmptyMatchesEverything(t *testing.T) {
	var f harness.RegexFilters
	assert.False(t, f.IsDefined())
	assert.True(t, f.AsFilter("Security Headers"))
}

func TestRegexFilters_MustMatchAndMustNotMatch(t *testing.T) {
	var f harness.RegexFilters
	require.NoError(t, f.MustMatch.Set("^Security|^CORS"))
	require.NoError(t, f.MustNotMatch.Set("CORS"))

	assert.True(t, f.AsFilter("Security Headers"))
	assert.False(t, f.AsFilter("CORS Configuration"))
	assert.False(t, f.AsFilter("Website Content"))
}

func TestRegexList_InvalidPattern(t *testing.T) {
	var l harness.RegexList
	assert.Error(t, l.Set("("))
	assert.False(t, l.IsDefined())
}

func TestRegexList_String(t *testing.T) {
	var l harness.RegexList
	require.NoError(t, l.Set("a"))
	require.NoError(t, l.Set("b"))
	assert.Equal(t, `"a" or "b"`, l.String())
	assert.Equal(t, "regex", l.Type())
}
