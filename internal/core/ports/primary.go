package ports

import (
	"context"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
)

// QueryEngine est le port Driving : les quatre opérations de lecture,
// indépendantes du backend qui les exécute. Aucune chaîne de requête
// native (SQL, bson, Cypher) ne passe cette frontière.
type QueryEngine interface {
	// GetFeed renvoie les posts publics des utilisateurs suivis par viewerID,
	// triés par date décroissante (départage par ID), paginés par limit/offset.
	GetFeed(ctx context.Context, viewerID string, limit, offset int) ([]domain.Post, error)

	// GetPostsWithCommentCounts renvoie chaque post de userID avec son nombre
	// de commentaires (0 inclus), trié par date décroissante.
	GetPostsWithCommentCounts(ctx context.Context, userID string) ([]domain.PostWithCount, error)

	// GetMutualConnections renvoie l'ensemble des users U tels que a->U et b->U
	// existent pour relType. Exclut a et b, trié par ID. Symétrique en (a, b).
	GetMutualConnections(ctx context.Context, userIDA, userIDB, relType string) ([]domain.User, error)

	// GetRecommendations renvoie les candidats à exactement deux sauts de
	// viewerID, hors connexions directes et hors viewer, scorés par nombre
	// d'intermédiaires distincts, tronqués à maxResults.
	// La profondeur est figée à 2 ; une traversée plus profonde est un point
	// d'extension du port secondaire, pas de celui-ci.
	GetRecommendations(ctx context.Context, viewerID, relType string, maxResults int) ([]domain.Recommendation, error)
}
