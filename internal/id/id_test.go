package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	got, err := Generate(PrefixBook)
	require.NoError(t, err)

	assert.True(t, HasPrefix(got, PrefixBook))
	assert.Len(t, got, len(PrefixBook)+1+21)
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		v := MustGenerate(PrefixRequest)
		require.False(t, seen[v], "duplicate id %s", v)
		seen[v] = true
	}
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix("usr-abc", PrefixUser))
	assert.False(t, HasPrefix("usr-", PrefixUser))
	assert.False(t, HasPrefix("usrabc", PrefixUser))
	assert.False(t, HasPrefix("bk-abc", PrefixUser))
}
