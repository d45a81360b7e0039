package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
)

func TestRelTypeLabel_KnownTypes(t *testing.T) {
	label, err := relTypeLabel(domain.RelationFollow)
	require.NoError(t, err)
	assert.Equal(t, "FOLLOWS", label)

	label, err = relTypeLabel(domain.RelationFriend)
	require.NoError(t, err)
	assert.Equal(t, "FRIENDS", label)
}

func TestRelTypeLabel_OpenSet(t *testing.T) {
	label, err := relTypeLabel("block")
	require.NoError(t, err)
	assert.Equal(t, "BLOCKS", label)
}

func TestRelTypeLabel_RejectsUnsafeInput(t *testing.T) {
	// Cypher ne paramètre pas les types d'arêtes : tout ce qui sort de
	// [a-z_]+ est refusé AVANT l'interpolation dans la requête.
	for _, bad := range []string{"", "FOLLOW", "fol low", "a-b", "x]->(n) DETACH DELETE n //"} {
		_, err := relTypeLabel(bad)
		assert.ErrorIs(t, err, domain.ErrValidation, "input %q", bad)
	}
}
