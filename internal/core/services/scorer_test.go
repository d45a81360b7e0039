package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
)

func TestScoreCandidates_CountsDistinctIntermediates(t *testing.T) {
	paths := []domain.TwoHopPath{
		{ViaID: "bob", CandidateID: "dave"},
		{ViaID: "carol", CandidateID: "dave"},
		{ViaID: "bob", CandidateID: "dave"}, // doublon : même via, ne compte qu'une fois
		{ViaID: "bob", CandidateID: "erin"},
	}

	recs := ScoreCandidates(paths, "alice", 10)

	assert.Equal(t, []domain.Recommendation{
		{UserID: "dave", Score: 2},
		{UserID: "erin", Score: 1},
	}, recs)
}

func TestScoreCandidates_TieBreaksOnIDAscending(t *testing.T) {
	paths := []domain.TwoHopPath{
		{ViaID: "m1", CandidateID: "zoe"},
		{ViaID: "m1", CandidateID: "anna"},
	}

	recs := ScoreCandidates(paths, "viewer", 10)

	assert.Equal(t, "anna", recs[0].UserID)
	assert.Equal(t, "zoe", recs[1].UserID)
}

func TestScoreCandidates_TruncatesToMaxResults(t *testing.T) {
	paths := []domain.TwoHopPath{
		{ViaID: "m1", CandidateID: "c1"},
		{ViaID: "m1", CandidateID: "c2"},
		{ViaID: "m1", CandidateID: "c3"},
	}

	recs := ScoreCandidates(paths, "viewer", 2)

	assert.Len(t, recs, 2)
}

func TestScoreCandidates_ExcludesViewerDefensively(t *testing.T) {
	// Les adapters filtrent déjà le viewer, mais le scorer ne doit jamais
	// le laisser passer même sur des tuples mal filtrés.
	paths := []domain.TwoHopPath{
		{ViaID: "m1", CandidateID: "viewer"},
		{ViaID: "m1", CandidateID: "c1"},
	}

	recs := ScoreCandidates(paths, "viewer", 10)

	assert.Equal(t, []domain.Recommendation{{UserID: "c1", Score: 1}}, recs)
}

func TestScoreCandidates_EmptyInput(t *testing.T) {
	recs := ScoreCandidates(nil, "viewer", 10)

	assert.Empty(t, recs)
}
