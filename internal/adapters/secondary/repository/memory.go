package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
)

// MemoryRepo est le backend fixture : même contrat que les trois adapters de
// production, données en mémoire. Il sert aux tests de conformité hermétiques
// et au mode démo du CLI. RWMutex : plusieurs requêtes en vol, zéro écriture
// après le seed dans l'usage normal.
type MemoryRepo struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	posts     []domain.Post
	comments  []domain.Comment
	relations map[relationKey]domain.Relation
}

type relationKey struct {
	actor, target, relType string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:     make(map[string]domain.User),
		relations: make(map[relationKey]domain.Relation),
	}
}

// --- Seed (fixtures uniquement, le chemin d'écriture réel est hors périmètre) ---

func (r *MemoryRepo) AddUser(u domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *MemoryRepo) AddPost(p domain.Post) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, p)
}

func (r *MemoryRepo) AddComment(c domain.Comment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments = append(r.comments, c)
}

// AddRelation respecte l'unicité (actor, target, type) : un doublon est ignoré.
func (r *MemoryRepo) AddRelation(rel domain.Relation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := relationKey{rel.ActorID, rel.TargetID, rel.Type}
	if _, exists := r.relations[key]; exists {
		return
	}
	r.relations[key] = rel
}

// RemoveUser applique la cascade logique : posts, commentaires et arêtes
// incidentes du user deviennent inaccessibles avec lui.
func (r *MemoryRepo) RemoveUser(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)

	posts := r.posts[:0]
	for _, p := range r.posts {
		if p.UserID != userID {
			posts = append(posts, p)
		}
	}
	r.posts = posts

	comments := r.comments[:0]
	for _, c := range r.comments {
		if c.UserID != userID {
			comments = append(comments, c)
		}
	}
	r.comments = comments

	for key := range r.relations {
		if key.actor == userID || key.target == userID {
			delete(r.relations, key)
		}
	}
}

// --- Contrat SocialRepository ---

func (r *MemoryRepo) Ping(ctx context.Context) error { return nil }

func (r *MemoryRepo) Close(ctx context.Context) error { return nil }

func (r *MemoryRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	return &u, nil
}

func (r *MemoryRepo) FeedPage(ctx context.Context, viewerID string, limit, offset int) ([]domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	followed := r.targetsOf(viewerID, domain.RelationFollow)

	var feed []domain.Post
	for _, p := range r.posts {
		if !p.Public {
			continue
		}
		if _, ok := followed[p.UserID]; !ok {
			continue
		}
		feed = append(feed, p)
	}

	sort.Slice(feed, func(i, j int) bool {
		if !feed[i].CreatedAt.Equal(feed[j].CreatedAt) {
			return feed[i].CreatedAt.After(feed[j].CreatedAt)
		}
		return feed[i].ID < feed[j].ID
	})

	if offset >= len(feed) {
		return nil, nil
	}
	feed = feed[offset:]
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return append([]domain.Post(nil), feed...), nil
}

func (r *MemoryRepo) PostsWithCommentCounts(ctx context.Context, userID string) ([]domain.PostWithCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range r.comments {
		counts[c.PostID]++
	}

	var out []domain.PostWithCount
	for _, p := range r.posts {
		if p.UserID != userID {
			continue
		}
		out = append(out, domain.PostWithCount{Post: p, CommentCount: counts[p.ID]})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) MutualConnections(ctx context.Context, userIDA, userIDB, relType string) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fromA := r.targetsOf(userIDA, relType)
	fromB := r.targetsOf(userIDB, relType)

	var out []domain.User
	for id := range fromA {
		if _, ok := fromB[id]; !ok {
			continue
		}
		if id == userIDA || id == userIDB {
			continue
		}
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) TwoHopPaths(ctx context.Context, viewerID, relType string) ([]domain.TwoHopPath, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	direct := r.targetsOf(viewerID, relType)

	var paths []domain.TwoHopPath
	for via := range direct {
		for candidate := range r.targetsOf(via, relType) {
			if candidate == viewerID {
				continue
			}
			if _, isDirect := direct[candidate]; isDirect {
				continue
			}
			paths = append(paths, domain.TwoHopPath{ViaID: via, CandidateID: candidate})
		}
	}

	// Ordre déterministe pour les comparaisons byte à byte des tests
	sort.Slice(paths, func(i, j int) bool {
		if paths[i].ViaID != paths[j].ViaID {
			return paths[i].ViaID < paths[j].ViaID
		}
		return paths[i].CandidateID < paths[j].CandidateID
	})
	return paths, nil
}

func (r *MemoryRepo) FollowerIDs(ctx context.Context, userID, relType string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for key := range r.relations {
		if key.target == userID && key.relType == relType {
			ids = append(ids, key.actor)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// targetsOf : appelé sous verrou.
func (r *MemoryRepo) targetsOf(actorID, relType string) map[string]struct{} {
	out := make(map[string]struct{})
	for key := range r.relations {
		if key.actor == actorID && key.relType == relType {
			out[key.target] = struct{}{}
		}
	}
	return out
}
