package events

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
)

type stubRepo struct {
	followers map[string][]string
}

func (s *stubRepo) Ping(ctx context.Context) error  { return nil }
func (s *stubRepo) Close(ctx context.Context) error { return nil }
func (s *stubRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (s *stubRepo) FeedPage(ctx context.Context, viewerID string, limit, offset int) ([]domain.Post, error) {
	return nil, nil
}
func (s *stubRepo) PostsWithCommentCounts(ctx context.Context, userID string) ([]domain.PostWithCount, error) {
	return nil, nil
}
func (s *stubRepo) MutualConnections(ctx context.Context, a, b, relType string) ([]domain.User, error) {
	return nil, nil
}
func (s *stubRepo) TwoHopPaths(ctx context.Context, viewerID, relType string) ([]domain.TwoHopPath, error) {
	return nil, nil
}
func (s *stubRepo) FollowerIDs(ctx context.Context, userID, relType string) ([]string, error) {
	return s.followers[userID], nil
}

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Get(ctx context.Context, viewerID string, limit, offset int) ([]domain.Post, bool, error) {
	return nil, false, nil
}
func (c *recordingCache) Set(ctx context.Context, viewerID string, limit, offset int, posts []domain.Post) error {
	return nil
}
func (c *recordingCache) Invalidate(ctx context.Context, viewerIDs ...string) error {
	c.invalidated = append(c.invalidated, viewerIDs...)
	return nil
}

func TestHandlePostCreated_InvalidatesEveryFollower(t *testing.T) {
	repo := &stubRepo{followers: map[string][]string{"bob": {"alice", "carol"}}}
	c := &recordingCache{}
	handler := NewInvalidationHandler(repo, c)

	handler.HandlePostCreated(&nats.Msg{Data: []byte(`{"id":"p1","author_id":"bob"}`)})

	assert.ElementsMatch(t, []string{"alice", "carol"}, c.invalidated)
}

func TestHandlePostCreated_IgnoresMalformedPayload(t *testing.T) {
	c := &recordingCache{}
	handler := NewInvalidationHandler(&stubRepo{}, c)

	handler.HandlePostCreated(&nats.Msg{Data: []byte(`{not json`)})

	assert.Empty(t, c.invalidated)
}

func TestHandleRelationChanged_InvalidatesActorOnly(t *testing.T) {
	c := &recordingCache{}
	handler := NewInvalidationHandler(&stubRepo{}, c)

	handler.HandleRelationChanged(&nats.Msg{Data: []byte(`{"actor_id":"alice","target_id":"bob","type":"follow"}`)})

	assert.Equal(t, []string{"alice"}, c.invalidated)
}

func TestHandleRelationChanged_SkipsNonFollowEdges(t *testing.T) {
	c := &recordingCache{}
	handler := NewInvalidationHandler(&stubRepo{}, c)

	handler.HandleRelationChanged(&nats.Msg{Data: []byte(`{"actor_id":"alice","target_id":"bob","type":"friend"}`)})

	assert.Empty(t, c.invalidated, "seules les arêtes follow alimentent le feed")
}

func TestChunk(t *testing.T) {
	got := chunk([]string{"a", "b", "c", "d", "e"}, 2)

	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, got)
}
