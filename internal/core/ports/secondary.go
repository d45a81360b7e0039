package ports

import (
	"context"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
)

// --- DRIVEN (ce dont l'engine a besoin) ---

// SocialRepository est le contrat unique que chaque backend (relationnel,
// document, graphe, mémoire) satisfait indépendamment. Règles communes :
//   - un résultat vide est un slice vide, jamais une erreur ;
//   - un utilisateur INTERROGÉ absent est domain.ErrNotFound ;
//   - toute défaillance du driver est enveloppée dans domain.ErrBackend ;
//   - aucun type natif du driver ne sort de l'adapter.
// Les implémentations doivent être sûres pour des appels concurrents :
// la seule ressource partagée est le pool de connexions du driver.
type SocialRepository interface {
	// Ping vérifie que le backend répond (utilisé au démarrage et en health check)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	// GetUser sert aux checks d'existence : ErrNotFound si l'ID est inconnu.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// FeedPage renvoie la page brute du feed : posts publics des utilisateurs
	// que viewerID suit (type "follow"), date décroissante puis ID croissant.
	FeedPage(ctx context.Context, viewerID string, limit, offset int) ([]domain.Post, error)

	// PostsWithCommentCounts renvoie les posts de userID avec leur nombre de
	// commentaires, sémantique outer-join : zéro commentaire => ligne à 0.
	PostsWithCommentCounts(ctx context.Context, userID string) ([]domain.PostWithCount, error)

	// MutualConnections renvoie les users pointés à la fois par a et par b
	// via une arête relType, sans a ni b, triés par ID.
	MutualConnections(ctx context.Context, userIDA, userIDB, relType string) ([]domain.User, error)

	// TwoHopPaths renvoie les tuples bruts viewer -> via -> candidat pour
	// relType, en excluant déjà le viewer et ses connexions directes.
	// L'agrégation en scores est faite côté engine (scorer pur).
	TwoHopPaths(ctx context.Context, viewerID, relType string) ([]domain.TwoHopPath, error)

	// FollowerIDs renvoie les IDs des users ayant une arête relType VERS userID.
	// Utilisé par le fan-out d'invalidation de cache.
	FollowerIDs(ctx context.Context, userID, relType string) ([]string, error)
}

// FeedCache est le cache de résultats de feed, versionné par viewer.
// C'est un cache explicite avec fenêtre de staleness assumée (TTL court),
// jamais une seconde source de vérité : toute erreur de cache dégrade en
// lecture backend, elle ne remonte pas à l'appelant.
type FeedCache interface {
	// Get renvoie (posts, true) sur hit, (nil, false) sur miss.
	Get(ctx context.Context, viewerID string, limit, offset int) ([]domain.Post, bool, error)
	Set(ctx context.Context, viewerID string, limit, offset int, posts []domain.Post) error

	// Invalidate incrémente la version des viewers donnés : leurs entrées
	// existantes deviennent inaccessibles et expireront par TTL.
	Invalidate(ctx context.Context, viewerIDs ...string) error
}
