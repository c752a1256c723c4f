package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTimestampWithPrefix(t *testing.T) {
	first := GenerateTimestampWithPrefix("WL")
	second := GenerateTimestampWithPrefix("WL")

	require.True(t, strings.HasPrefix(first, "WL-"))
	assert.NotEqual(t, first, second)

	// Later ids must sort after earlier ones; queue ordering depends on it.
	assert.Less(t, first, second)
}

func TestGenerateUUIDWithPrefix(t *testing.T) {
	first := GenerateUUIDWithPrefix("TKT")
	second := GenerateUUIDWithPrefix("TKT")

	require.True(t, strings.HasPrefix(first, "TKT-"))
	assert.NotEqual(t, first, second)
}
