package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryKey_VersionSegregatesGenerations(t *testing.T) {
	// L'invalidation repose entièrement sur ce découpage : même page,
	// versions différentes => clés différentes.
	k0 := entryKey("alice", 0, 10, 0)
	k1 := entryKey("alice", 1, 10, 0)

	assert.NotEqual(t, k0, k1)
	assert.Equal(t, "feed:alice:0:10:0", k0)
}

func TestEntryKey_DistinguishesPages(t *testing.T) {
	assert.NotEqual(t, entryKey("alice", 0, 10, 0), entryKey("alice", 0, 10, 10))
	assert.NotEqual(t, entryKey("alice", 0, 10, 0), entryKey("alice", 0, 20, 0))
	assert.NotEqual(t, entryKey("alice", 0, 10, 0), entryKey("bob", 0, 10, 0))
}

func TestVersionKey(t *testing.T) {
	assert.Equal(t, "feedver:alice", versionKey("alice"))
}
