package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
	"github.com/jupiterclapton/socialgraph/internal/core/ports"
)

type engine struct {
	repo        ports.SocialRepository
	cache       ports.FeedCache // nil => pas de cache, lecture backend directe
	maxPageSize int
	timeout     time.Duration // borne chaque appel backend ; 0 => pas de borne
	tracer      trace.Tracer
}

// NewQueryEngine construit la façade au-dessus d'un backend déjà connecté.
// cache peut être nil. maxPageSize borne le paramètre limit de GetFeed.
func NewQueryEngine(repo ports.SocialRepository, cache ports.FeedCache, maxPageSize int, timeout time.Duration) ports.QueryEngine {
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &engine{
		repo:        repo,
		cache:       cache,
		maxPageSize: maxPageSize,
		timeout:     timeout,
		tracer:      otel.Tracer("socialgraph/engine"),
	}
}

func (e *engine) GetFeed(ctx context.Context, viewerID string, limit, offset int) ([]domain.Post, error) {
	if err := e.validatePage(limit, offset); err != nil {
		return nil, err
	}
	if err := requireID("viewerID", viewerID); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "engine.GetFeed",
		trace.WithAttributes(attribute.Int("feed.limit", limit), attribute.Int("feed.offset", offset)))
	defer span.End()

	ctx, cancel := e.bound(ctx)
	defer cancel()

	// Lecture cache d'abord : un hit évite le backend entièrement.
	// Le cache a un TTL court, la staleness est assumée (cf. FeedCache).
	if e.cache != nil {
		posts, hit, err := e.cache.Get(ctx, viewerID, limit, offset)
		if err != nil {
			slog.Warn("⚠️ Feed cache read failed, falling back to backend", "viewer_id", viewerID, "error", err)
		} else if hit {
			return posts, nil
		}
	}

	if _, err := e.repo.GetUser(ctx, viewerID); err != nil {
		return nil, err
	}

	posts, err := e.repo.FeedPage(ctx, viewerID, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Normalisation : les adapters trient déjà, mais l'ordre du contrat
	// (date décroissante, ID croissant à date égale) est garanti ICI.
	sortPostsDesc(posts)
	if posts == nil {
		posts = []domain.Post{}
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, viewerID, limit, offset, posts); err != nil {
			slog.Warn("⚠️ Feed cache write failed", "viewer_id", viewerID, "error", err)
		}
	}
	return posts, nil
}

func (e *engine) GetPostsWithCommentCounts(ctx context.Context, userID string) ([]domain.PostWithCount, error) {
	if err := requireID("userID", userID); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "engine.GetPostsWithCommentCounts")
	defer span.End()

	ctx, cancel := e.bound(ctx)
	defer cancel()

	if _, err := e.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	counted, err := e.repo.PostsWithCommentCounts(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	sort.SliceStable(counted, func(i, j int) bool {
		if !counted[i].CreatedAt.Equal(counted[j].CreatedAt) {
			return counted[i].CreatedAt.After(counted[j].CreatedAt)
		}
		return counted[i].ID < counted[j].ID
	})
	if counted == nil {
		counted = []domain.PostWithCount{}
	}
	return counted, nil
}

func (e *engine) GetMutualConnections(ctx context.Context, userIDA, userIDB, relType string) ([]domain.User, error) {
	if err := requireID("userIDA", userIDA); err != nil {
		return nil, err
	}
	if err := requireID("userIDB", userIDB); err != nil {
		return nil, err
	}
	if err := requireID("relType", relType); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "engine.GetMutualConnections",
		trace.WithAttributes(attribute.String("relation.type", relType)))
	defer span.End()

	ctx, cancel := e.bound(ctx)
	defer cancel()

	// Les DEUX identités doivent exister : un ID inconnu est ErrNotFound,
	// pas un résultat vide (cf. taxonomie des erreurs).
	if _, err := e.repo.GetUser(ctx, userIDA); err != nil {
		return nil, err
	}
	if _, err := e.repo.GetUser(ctx, userIDB); err != nil {
		return nil, err
	}

	users, err := e.repo.MutualConnections(ctx, userIDA, userIDB, relType)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Normalisation ensembliste : dédoublonnage, exclusion de a et b,
	// tri par ID pour un résultat déterministe.
	users = normalizeUserSet(users, userIDA, userIDB)
	return users, nil
}

func (e *engine) GetRecommendations(ctx context.Context, viewerID, relType string, maxResults int) ([]domain.Recommendation, error) {
	if err := requireID("viewerID", viewerID); err != nil {
		return nil, err
	}
	if err := requireID("relType", relType); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		return nil, fmt.Errorf("%w: maxResults must be positive, got %d", domain.ErrValidation, maxResults)
	}

	ctx, span := e.tracer.Start(ctx, "engine.GetRecommendations",
		trace.WithAttributes(attribute.String("relation.type", relType)))
	defer span.End()

	ctx, cancel := e.bound(ctx)
	defer cancel()

	if _, err := e.repo.GetUser(ctx, viewerID); err != nil {
		return nil, err
	}

	paths, err := e.repo.TwoHopPaths(ctx, viewerID, relType)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	recs := ScoreCandidates(paths, viewerID, maxResults)
	span.SetAttributes(attribute.Int("recommendations.count", len(recs)))
	return recs, nil
}

// --- POLITIQUES TRANSVERSES ---

func (e *engine) validatePage(limit, offset int) error {
	if limit <= 0 || limit > e.maxPageSize {
		return fmt.Errorf("%w: limit must be between 1 and %d, got %d", domain.ErrValidation, e.maxPageSize, limit)
	}
	if offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0, got %d", domain.ErrValidation, offset)
	}
	return nil
}

// bound applique le timeout configuré à l'appel backend.
// L'annulation de l'appelant se propage dans tous les cas via ctx.
func (e *engine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func requireID(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s must not be empty", domain.ErrValidation, name)
	}
	return nil
}

func sortPostsDesc(posts []domain.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
}

func normalizeUserSet(users []domain.User, excludeA, excludeB string) []domain.User {
	seen := make(map[string]struct{}, len(users))
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.ID == excludeA || u.ID == excludeB {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
