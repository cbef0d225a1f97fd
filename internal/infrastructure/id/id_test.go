package id

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsUUID(t *testing.T) {
	_, err := uuid.Parse(New().NewID())
	require.NoError(t, err)
}

func TestNewSuffix(t *testing.T) {
	g := New()
	re := regexp.MustCompile(`^[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := g.NewSuffix()
		assert.Regexp(t, re, s)
		seen[s] = true
	}
	assert.Greater(t, len(seen), 90)
}
