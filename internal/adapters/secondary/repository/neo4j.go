package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
	"github.com/jupiterclapton/socialgraph/internal/core/ports"
)

// Neo4jRepo est l'implémentation de référence : les quatre opérations sont
// des traversées de motifs natives (un et deux sauts, anti-motifs pour les
// exclusions), soit le mapping le plus direct du contrat.
//
// Graphe consommé : noeuds User/Post/Comment, arêtes FOLLOWS/POSTED/COMMENTED.
// Les commentaires portent un post_id (l'arête COMMENTED part de l'auteur).
type Neo4jRepo struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jRepo(driver neo4j.DriverWithContext) ports.SocialRepository {
	return &Neo4jRepo{driver: driver}
}

// Cypher ne paramètre pas les types d'arêtes : le type de relation est validé
// strictement puis mappé vers un label connu avant toute interpolation.
var relTypePattern = regexp.MustCompile(`^[a-z_]+$`)

func relTypeLabel(relType string) (string, error) {
	if !relTypePattern.MatchString(relType) {
		return "", fmt.Errorf("%w: relation type %q must match [a-z_]+", domain.ErrValidation, relType)
	}
	switch relType {
	case domain.RelationFollow:
		return "FOLLOWS", nil
	case domain.RelationFriend:
		return "FRIENDS", nil
	default:
		return strings.ToUpper(relType) + "S", nil
	}
}

func (r *Neo4jRepo) Ping(ctx context.Context) error {
	if err := r.driver.VerifyConnectivity(ctx); err != nil {
		return backendErr(err)
	}
	return nil
}

func (r *Neo4jRepo) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

func (r *Neo4jRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		MATCH (u:User {id: $id})
		RETURN u.id AS id, u.username AS username, u.email AS email,
		       u.created_at AS createdAt, u.last_login AS lastLogin
	`
	records, err := r.read(ctx, query, map[string]any{"id": userID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	u := userFromRecord(records[0])
	return &u, nil
}

func (r *Neo4jRepo) FeedPage(ctx context.Context, viewerID string, limit, offset int) ([]domain.Post, error) {
	query := `
		MATCH (:User {id: $viewerId})-[:FOLLOWS]->(:User)-[:POSTED]->(p:Post)
		WHERE p.public
		RETURN p.id AS id, p.user_id AS userId, p.content AS content,
		       p.created_at AS createdAt, p.public AS public
		ORDER BY p.created_at DESC, p.id ASC
		SKIP $offset LIMIT $limit
	`
	records, err := r.read(ctx, query, map[string]any{
		"viewerId": viewerID,
		"offset":   offset,
		"limit":    limit,
	})
	if err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(records))
	for _, rec := range records {
		posts = append(posts, postFromRecord(rec))
	}
	return posts, nil
}

// OPTIONAL MATCH + count : l'équivalent graphe de l'outer-join, les posts
// sans commentaire sortent avec 0.
func (r *Neo4jRepo) PostsWithCommentCounts(ctx context.Context, userID string) ([]domain.PostWithCount, error) {
	query := `
		MATCH (:User {id: $userId})-[:POSTED]->(p:Post)
		OPTIONAL MATCH (c:Comment {post_id: p.id})
		RETURN p.id AS id, p.user_id AS userId, p.content AS content,
		       p.created_at AS createdAt, p.public AS public,
		       count(c) AS commentCount
		ORDER BY p.created_at DESC, p.id ASC
	`
	records, err := r.read(ctx, query, map[string]any{"userId": userID})
	if err != nil {
		return nil, err
	}

	out := make([]domain.PostWithCount, 0, len(records))
	for _, rec := range records {
		count, _ := rec.Get("commentCount")
		out = append(out, domain.PostWithCount{
			Post:         postFromRecord(rec),
			CommentCount: int(asInt64(count)),
		})
	}
	return out, nil
}

// MutualConnections : un seul motif convergent a->(u)<-b.
func (r *Neo4jRepo) MutualConnections(ctx context.Context, userIDA, userIDB, relType string) ([]domain.User, error) {
	label, err := relTypeLabel(relType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		MATCH (:User {id: $a})-[:%s]->(u:User)<-[:%s]-(:User {id: $b})
		WHERE u.id <> $a AND u.id <> $b
		RETURN u.id AS id, u.username AS username, u.email AS email,
		       u.created_at AS createdAt, u.last_login AS lastLogin
		ORDER BY u.id ASC
	`, label, label)

	records, err := r.read(ctx, query, map[string]any{"a": userIDA, "b": userIDB})
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(records))
	for _, rec := range records {
		users = append(users, userFromRecord(rec))
	}
	return users, nil
}

// TwoHopPaths : motif deux sauts avec anti-motif NOT (v)-[]->(c) pour
// exclure les connexions directes, le tout en une traversée.
func (r *Neo4jRepo) TwoHopPaths(ctx context.Context, viewerID, relType string) ([]domain.TwoHopPath, error) {
	label, err := relTypeLabel(relType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		MATCH (v:User {id: $viewerId})-[:%s]->(m:User)-[:%s]->(c:User)
		WHERE c.id <> $viewerId AND NOT (v)-[:%s]->(c)
		RETURN m.id AS via, c.id AS candidate
	`, label, label, label)

	records, err := r.read(ctx, query, map[string]any{"viewerId": viewerID})
	if err != nil {
		return nil, err
	}

	paths := make([]domain.TwoHopPath, 0, len(records))
	for _, rec := range records {
		via, _ := rec.Get("via")
		candidate, _ := rec.Get("candidate")
		paths = append(paths, domain.TwoHopPath{
			ViaID:       asString(via),
			CandidateID: asString(candidate),
		})
	}
	return paths, nil
}

func (r *Neo4jRepo) FollowerIDs(ctx context.Context, userID, relType string) ([]string, error) {
	label, err := relTypeLabel(relType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		MATCH (:User {id: $userId})<-[:%s]-(f:User)
		RETURN f.id AS id
		ORDER BY f.id ASC
	`, label)

	records, err := r.read(ctx, query, map[string]any{"userId": userID})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		id, _ := rec.Get("id")
		ids = append(ids, asString(id))
	}
	return ids, nil
}

// --- Helpers ---

// read exécute une requête en session lecture (session par appel, le driver
// mutualise les connexions) et matérialise tous les records.
func (r *Neo4jRepo) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, backendErr(err)
	}
	return result.([]*neo4j.Record), nil
}

func userFromRecord(rec *neo4j.Record) domain.User {
	id, _ := rec.Get("id")
	username, _ := rec.Get("username")
	email, _ := rec.Get("email")
	createdAt, _ := rec.Get("createdAt")
	lastLogin, _ := rec.Get("lastLogin")

	u := domain.User{
		ID:        asString(id),
		Username:  asString(username),
		Email:     asString(email),
		CreatedAt: asTime(createdAt),
	}
	if lastLogin != nil {
		t := asTime(lastLogin)
		u.LastLoginAt = &t
	}
	return u
}

func postFromRecord(rec *neo4j.Record) domain.Post {
	id, _ := rec.Get("id")
	userID, _ := rec.Get("userId")
	content, _ := rec.Get("content")
	createdAt, _ := rec.Get("createdAt")
	public, _ := rec.Get("public")

	b, _ := public.(bool)
	return domain.Post{
		ID:        asString(id),
		UserID:    asString(userID),
		Content:   asString(content),
		CreatedAt: asTime(createdAt),
		Public:    b,
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	n, _ := v.(int64)
	return n
}

func asTime(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}
