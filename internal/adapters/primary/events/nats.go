package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
	"github.com/jupiterclapton/socialgraph/internal/core/ports"
)

// Taille des paquets d'invalidation : on ne pousse jamais des dizaines de
// milliers de viewers dans un seul pipeline Redis.
const invalidationBatchSize = 1000

const handleTimeout = 30 * time.Second

// InvalidationHandler consomme les événements du chemin d'écriture (externe)
// et invalide les feeds en cache des viewers concernés. Perdre un événement
// n'est pas grave : la staleness s'allonge jusqu'à l'expiration du TTL,
// la justesse ne dépend jamais de ce consumer.
type InvalidationHandler struct {
	repo  ports.SocialRepository
	cache ports.FeedCache
}

func NewInvalidationHandler(repo ports.SocialRepository, cache ports.FeedCache) *InvalidationHandler {
	return &InvalidationHandler{repo: repo, cache: cache}
}

// Subscribe branche le handler sur les sujets d'écriture.
func (h *InvalidationHandler) Subscribe(nc *nats.Conn) error {
	if _, err := nc.Subscribe("post.created", h.HandlePostCreated); err != nil {
		return err
	}
	if _, err := nc.Subscribe("relation.changed", h.HandleRelationChanged); err != nil {
		return err
	}
	return nil
}

type postCreatedEvent struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

type relationChangedEvent struct {
	ActorID  string `json:"actor_id"`
	TargetID string `json:"target_id"`
	Type     string `json:"type"`
}

// HandlePostCreated : un nouveau post invalide le feed de chaque follower
// de l'auteur (fan-out batché).
func (h *InvalidationHandler) HandlePostCreated(msg *nats.Msg) {
	// Le contexte de trace du producteur arrive dans les headers NATS
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))

	tracer := otel.Tracer("socialgraph/events")
	ctx, span := tracer.Start(ctx, "invalidate_on_post_created", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event postCreatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		span.RecordError(err)
		slog.Error("❌ Invalid post.created payload", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	followers, err := h.repo.FollowerIDs(ctx, event.AuthorID, domain.RelationFollow)
	if err != nil {
		span.RecordError(err)
		slog.Error("❌ Follower lookup failed, feeds stay stale until TTL", "author_id", event.AuthorID, "error", err)
		return
	}
	if len(followers) == 0 {
		return
	}

	for _, batch := range chunk(followers, invalidationBatchSize) {
		if err := h.cache.Invalidate(ctx, batch...); err != nil {
			span.RecordError(err)
			slog.Error("❌ Feed invalidation batch failed", "error", err, "batch_size", len(batch))
			// On continue : un batch raté ne doit pas bloquer les suivants
		}
	}
	slog.Debug("📢 Feed caches invalidated", "post_id", event.ID, "followers", len(followers))
}

// HandleRelationChanged : suivre ou ne plus suivre quelqu'un change le feed
// de l'ACTEUR uniquement (c'est lui dont la liste de suivis a bougé).
func (h *InvalidationHandler) HandleRelationChanged(msg *nats.Msg) {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))

	tracer := otel.Tracer("socialgraph/events")
	ctx, span := tracer.Start(ctx, "invalidate_on_relation_changed", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event relationChangedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		span.RecordError(err)
		slog.Error("❌ Invalid relation.changed payload", "error", err)
		return
	}
	if event.Type != domain.RelationFollow {
		return // seules les arêtes follow alimentent le feed
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	if err := h.cache.Invalidate(ctx, event.ActorID); err != nil {
		span.RecordError(err)
		slog.Error("❌ Feed invalidation failed", "actor_id", event.ActorID, "error", err)
	}
}

func chunk(ids []string, size int) [][]string {
	if size <= 0 {
		return [][]string{ids}
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
