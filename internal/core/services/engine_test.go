package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
)

// stubRepo est un double de test du port secondaire : il rend ses champs
// tels quels et compte les appels, sans simuler un vrai backend.
type stubRepo struct {
	users   map[string]domain.User
	feed    []domain.Post
	counted []domain.PostWithCount
	mutuals []domain.User
	paths   []domain.TwoHopPath
	err     error

	feedCalls int
}

func (s *stubRepo) Ping(ctx context.Context) error  { return nil }
func (s *stubRepo) Close(ctx context.Context) error { return nil }

func (s *stubRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if u, ok := s.users[userID]; ok {
		return &u, nil
	}
	return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
}

func (s *stubRepo) FeedPage(ctx context.Context, viewerID string, limit, offset int) ([]domain.Post, error) {
	s.feedCalls++
	return s.feed, s.err
}

func (s *stubRepo) PostsWithCommentCounts(ctx context.Context, userID string) ([]domain.PostWithCount, error) {
	return s.counted, s.err
}

func (s *stubRepo) MutualConnections(ctx context.Context, a, b, relType string) ([]domain.User, error) {
	return s.mutuals, s.err
}

func (s *stubRepo) TwoHopPaths(ctx context.Context, viewerID, relType string) ([]domain.TwoHopPath, error) {
	return s.paths, s.err
}

func (s *stubRepo) FollowerIDs(ctx context.Context, userID, relType string) ([]string, error) {
	return nil, nil
}

type stubCache struct {
	entries map[string][]domain.Post
	getErr  error
	sets    int
}

func cacheKey(viewerID string, limit, offset int) string {
	return fmt.Sprintf("%s/%d/%d", viewerID, limit, offset)
}

func (c *stubCache) Get(ctx context.Context, viewerID string, limit, offset int) ([]domain.Post, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	posts, ok := c.entries[cacheKey(viewerID, limit, offset)]
	return posts, ok, nil
}

func (c *stubCache) Set(ctx context.Context, viewerID string, limit, offset int, posts []domain.Post) error {
	c.sets++
	c.entries[cacheKey(viewerID, limit, offset)] = posts
	return nil
}

func (c *stubCache) Invalidate(ctx context.Context, viewerIDs ...string) error { return nil }

func knownUsers(ids ...string) map[string]domain.User {
	users := make(map[string]domain.User, len(ids))
	for _, id := range ids {
		users[id] = domain.User{ID: id, Username: id}
	}
	return users
}

func TestGetFeed_RejectsInvalidPagination(t *testing.T) {
	engine := NewQueryEngine(&stubRepo{users: knownUsers("alice")}, nil, 100, 0)
	ctx := context.Background()

	cases := []struct {
		name          string
		limit, offset int
	}{
		{"zero limit", 0, 0},
		{"negative limit", -5, 0},
		{"limit above max", 101, 0},
		{"negative offset", 10, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.GetFeed(ctx, "alice", tc.limit, tc.offset)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestGetFeed_UnknownViewerIsNotFound(t *testing.T) {
	engine := NewQueryEngine(&stubRepo{users: knownUsers()}, nil, 100, 0)

	_, err := engine.GetFeed(context.Background(), "ghost", 10, 0)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrBackend, "not-found ne doit pas être retentable")
}

func TestGetFeed_NormalizesOrdering(t *testing.T) {
	// Arrange : le backend rend un ordre quelconque, avec une égalité de dates
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := &stubRepo{
		users: knownUsers("alice"),
		feed: []domain.Post{
			{ID: "p2", CreatedAt: at},
			{ID: "p3", CreatedAt: at.Add(-time.Hour)},
			{ID: "p1", CreatedAt: at},
		},
	}
	engine := NewQueryEngine(repo, nil, 100, 0)

	// Act
	posts, err := engine.GetFeed(context.Background(), "alice", 10, 0)

	// Assert : date décroissante, départage par ID croissant
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, "p2", posts[1].ID)
	assert.Equal(t, "p3", posts[2].ID)
}

func TestGetFeed_BackendErrorSurfacesAsRetryable(t *testing.T) {
	repo := &stubRepo{
		users: knownUsers("alice"),
		err:   fmt.Errorf("%w: connection refused", domain.ErrBackend),
	}
	engine := NewQueryEngine(repo, nil, 100, 0)

	_, err := engine.GetFeed(context.Background(), "alice", 10, 0)

	assert.ErrorIs(t, err, domain.ErrBackend)
}

func TestGetFeed_CacheHitSkipsBackend(t *testing.T) {
	repo := &stubRepo{users: knownUsers("alice")}
	cached := []domain.Post{{ID: "p1", UserID: "bob"}}
	c := &stubCache{entries: map[string][]domain.Post{cacheKey("alice", 10, 0): cached}}
	engine := NewQueryEngine(repo, c, 100, 0)

	posts, err := engine.GetFeed(context.Background(), "alice", 10, 0)

	require.NoError(t, err)
	assert.Equal(t, cached, posts)
	assert.Zero(t, repo.feedCalls, "un hit cache ne doit pas toucher le backend")
}

func TestGetFeed_CacheFailureDegradesToBackend(t *testing.T) {
	repo := &stubRepo{
		users: knownUsers("alice"),
		feed:  []domain.Post{{ID: "p1"}},
	}
	c := &stubCache{entries: map[string][]domain.Post{}, getErr: fmt.Errorf("redis down")}
	engine := NewQueryEngine(repo, c, 100, 0)

	posts, err := engine.GetFeed(context.Background(), "alice", 10, 0)

	require.NoError(t, err, "une panne de cache ne doit jamais faire échouer la requête")
	assert.Len(t, posts, 1)
	assert.Equal(t, 1, repo.feedCalls)
}

func TestGetFeed_MissPopulatesCache(t *testing.T) {
	repo := &stubRepo{users: knownUsers("alice"), feed: []domain.Post{{ID: "p1"}}}
	c := &stubCache{entries: map[string][]domain.Post{}}
	engine := NewQueryEngine(repo, c, 100, 0)

	_, err := engine.GetFeed(context.Background(), "alice", 10, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, c.sets)
}

func TestGetPostsWithCommentCounts_UnknownUser(t *testing.T) {
	engine := NewQueryEngine(&stubRepo{users: knownUsers()}, nil, 100, 0)

	_, err := engine.GetPostsWithCommentCounts(context.Background(), "ghost")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetPostsWithCommentCounts_KeepsZeroCountRows(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := &stubRepo{
		users: knownUsers("bob"),
		counted: []domain.PostWithCount{
			{Post: domain.Post{ID: "p1", CreatedAt: at}, CommentCount: 0},
			{Post: domain.Post{ID: "p2", CreatedAt: at.Add(time.Hour)}, CommentCount: 3},
		},
	}
	engine := NewQueryEngine(repo, nil, 100, 0)

	counted, err := engine.GetPostsWithCommentCounts(context.Background(), "bob")

	require.NoError(t, err)
	require.Len(t, counted, 2)
	assert.Equal(t, "p2", counted[0].ID)
	assert.Equal(t, 0, counted[1].CommentCount)
}

func TestGetMutualConnections_ValidatesAndChecksBothUsers(t *testing.T) {
	engine := NewQueryEngine(&stubRepo{users: knownUsers("alice")}, nil, 100, 0)
	ctx := context.Background()

	_, err := engine.GetMutualConnections(ctx, "", "bob", domain.RelationFriend)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = engine.GetMutualConnections(ctx, "alice", "ghost", domain.RelationFriend)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetMutualConnections_NormalizesToSortedSet(t *testing.T) {
	repo := &stubRepo{
		users: knownUsers("alice", "bob"),
		mutuals: []domain.User{
			{ID: "zoe"},
			{ID: "carl"},
			{ID: "zoe"},   // doublon backend
			{ID: "alice"}, // ne doit jamais sortir
		},
	}
	engine := NewQueryEngine(repo, nil, 100, 0)

	users, err := engine.GetMutualConnections(context.Background(), "alice", "bob", domain.RelationFriend)

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "carl", users[0].ID)
	assert.Equal(t, "zoe", users[1].ID)
}

func TestGetRecommendations_ValidatesMaxResults(t *testing.T) {
	engine := NewQueryEngine(&stubRepo{users: knownUsers("alice")}, nil, 100, 0)

	_, err := engine.GetRecommendations(context.Background(), "alice", domain.RelationFollow, 0)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetRecommendations_ScoresPaths(t *testing.T) {
	repo := &stubRepo{
		users: knownUsers("alice"),
		paths: []domain.TwoHopPath{
			{ViaID: "bob", CandidateID: "dave"},
			{ViaID: "carol", CandidateID: "dave"},
			{ViaID: "bob", CandidateID: "erin"},
		},
	}
	engine := NewQueryEngine(repo, nil, 100, 0)

	recs, err := engine.GetRecommendations(context.Background(), "alice", domain.RelationFollow, 10)

	require.NoError(t, err)
	assert.Equal(t, []domain.Recommendation{
		{UserID: "dave", Score: 2},
		{UserID: "erin", Score: 1},
	}, recs)
}

func TestOperations_AreIdempotent(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := &stubRepo{
		users:   knownUsers("alice", "bob"),
		feed:    []domain.Post{{ID: "p1", CreatedAt: at}, {ID: "p2", CreatedAt: at}},
		mutuals: []domain.User{{ID: "carl"}},
		paths:   []domain.TwoHopPath{{ViaID: "bob", CandidateID: "dave"}},
	}
	engine := NewQueryEngine(repo, nil, 100, 0)
	ctx := context.Background()

	feed1, err := engine.GetFeed(ctx, "alice", 10, 0)
	require.NoError(t, err)
	feed2, err := engine.GetFeed(ctx, "alice", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, feed1, feed2)

	recs1, err := engine.GetRecommendations(ctx, "alice", domain.RelationFollow, 5)
	require.NoError(t, err)
	recs2, err := engine.GetRecommendations(ctx, "alice", domain.RelationFollow, 5)
	require.NoError(t, err)
	assert.Equal(t, recs1, recs2)
}
