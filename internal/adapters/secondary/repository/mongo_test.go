package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
)

func TestIntersectIDs(t *testing.T) {
	a := []string{"u1", "u2", "u3", "u4"}
	b := []string{"u3", "u2", "u9", "u2"} // doublon volontaire

	got := intersectIDs(a, b, "u3")

	assert.Equal(t, []string{"u2"}, got, "intersection triée, sans exclus ni doublons")
}

func TestIntersectIDs_Empty(t *testing.T) {
	assert.Empty(t, intersectIDs(nil, []string{"u1"}))
	assert.Empty(t, intersectIDs([]string{"u1"}, nil))
}

func TestExpandTwoHop_ExcludesViewerAndDirect(t *testing.T) {
	direct := []string{"bob", "carol"}
	mids := []mongoUserDoc{
		{ID: "bob", Following: map[string][]string{domain.RelationFollow: {"dave", "alice", "carol"}}},
		{ID: "carol", Following: map[string][]string{domain.RelationFollow: {"dave"}}},
	}

	paths := expandTwoHop("alice", direct, mids, domain.RelationFollow)

	assert.ElementsMatch(t, []domain.TwoHopPath{
		{ViaID: "bob", CandidateID: "dave"},
		{ViaID: "carol", CandidateID: "dave"},
	}, paths, "alice (viewer) et carol (directe) sont exclus des candidats")
}

func TestExpandTwoHop_IgnoresOtherRelationTypes(t *testing.T) {
	mids := []mongoUserDoc{
		{ID: "bob", Following: map[string][]string{domain.RelationFriend: {"dave"}}},
	}

	paths := expandTwoHop("alice", []string{"bob"}, mids, domain.RelationFollow)

	assert.Empty(t, paths, "les arêtes friend ne nourrissent pas une traversée follow")
}
