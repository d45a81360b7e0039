package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
	"github.com/jupiterclapton/socialgraph/internal/core/ports"
)

// PostgresRepo exécute les quatre opérations en SQL natif :
// joins pour le feed, LEFT JOIN + GROUP BY pour les comptes,
// double EXISTS pour les mutuels, self-join deux sauts + anti-join
// pour les recommandations.
//
// Schéma consommé (possédé par le chemin d'écriture, lecture seule ici) :
//   users(id, username, email, created_at, last_login)
//   posts(id, user_id, content, created_at, public)
//   comments(id, post_id, user_id, content, created_at)
//   user_relationships(actor_id, target_id, rel_type, created_at)
//     PRIMARY KEY (actor_id, target_id, rel_type)
type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) ports.SocialRepository {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return backendErr(err)
	}
	return nil
}

func (r *PostgresRepo) Close(ctx context.Context) error {
	r.db.Close()
	return nil
}

func (r *PostgresRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT id, username, email, created_at, last_login FROM users WHERE id = $1`

	var u domain.User
	err := r.db.QueryRow(ctx, query, userID).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
		}
		return nil, backendErr(err)
	}
	return &u, nil
}

// FeedPage : join posts × relations. L'ORDER BY porte le contrat de tri
// (date décroissante, ID croissant à date égale) directement en SQL.
func (r *PostgresRepo) FeedPage(ctx context.Context, viewerID string, limit, offset int) ([]domain.Post, error) {
	query := `
		SELECT p.id, p.user_id, p.content, p.created_at, p.public
		FROM posts p
		JOIN user_relationships r ON r.target_id = p.user_id
		WHERE r.actor_id = $1 AND r.rel_type = $2 AND p.public
		ORDER BY p.created_at DESC, p.id ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, viewerID, domain.RelationFollow, limit, offset)
	if err != nil {
		return nil, backendErr(err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

// PostsWithCommentCounts : LEFT JOIN pour que les posts sans commentaire
// sortent avec count = 0 au lieu de disparaître du GROUP BY.
func (r *PostgresRepo) PostsWithCommentCounts(ctx context.Context, userID string) ([]domain.PostWithCount, error) {
	query := `
		SELECT p.id, p.user_id, p.content, p.created_at, p.public, COUNT(c.id)
		FROM posts p
		LEFT JOIN comments c ON c.post_id = p.id
		WHERE p.user_id = $1
		GROUP BY p.id, p.user_id, p.content, p.created_at, p.public
		ORDER BY p.created_at DESC, p.id ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, backendErr(err)
	}
	defer rows.Close()

	var out []domain.PostWithCount
	for rows.Next() {
		var pc domain.PostWithCount
		if err := rows.Scan(&pc.ID, &pc.UserID, &pc.Content, &pc.CreatedAt, &pc.Public, &pc.CommentCount); err != nil {
			return nil, backendErr(err)
		}
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr(err)
	}
	return out, nil
}

// MutualConnections : double EXISTS corrélé, l'équivalent relationnel
// de l'intersection d'ensembles.
func (r *PostgresRepo) MutualConnections(ctx context.Context, userIDA, userIDB, relType string) ([]domain.User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.created_at, u.last_login
		FROM users u
		WHERE u.id <> $1 AND u.id <> $2
		  AND EXISTS (
			SELECT 1 FROM user_relationships ra
			WHERE ra.actor_id = $1 AND ra.target_id = u.id AND ra.rel_type = $3
		  )
		  AND EXISTS (
			SELECT 1 FROM user_relationships rb
			WHERE rb.actor_id = $2 AND rb.target_id = u.id AND rb.rel_type = $3
		  )
		ORDER BY u.id ASC
	`
	rows, err := r.db.Query(ctx, query, userIDA, userIDB, relType)
	if err != nil {
		return nil, backendErr(err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &u.LastLoginAt); err != nil {
			return nil, backendErr(err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr(err)
	}
	return out, nil
}

// TwoHopPaths : self-join deux sauts, NOT EXISTS comme anti-join contre
// les connexions directes. Le viewer est exclu dans le WHERE.
func (r *PostgresRepo) TwoHopPaths(ctx context.Context, viewerID, relType string) ([]domain.TwoHopPath, error) {
	query := `
		SELECT r1.target_id AS via, r2.target_id AS candidate
		FROM user_relationships r1
		JOIN user_relationships r2 ON r2.actor_id = r1.target_id
		WHERE r1.actor_id = $1
		  AND r1.rel_type = $2 AND r2.rel_type = $2
		  AND r2.target_id <> $1
		  AND NOT EXISTS (
			SELECT 1 FROM user_relationships d
			WHERE d.actor_id = $1 AND d.target_id = r2.target_id AND d.rel_type = $2
		  )
	`
	rows, err := r.db.Query(ctx, query, viewerID, relType)
	if err != nil {
		return nil, backendErr(err)
	}
	defer rows.Close()

	var out []domain.TwoHopPath
	for rows.Next() {
		var p domain.TwoHopPath
		if err := rows.Scan(&p.ViaID, &p.CandidateID); err != nil {
			return nil, backendErr(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr(err)
	}
	return out, nil
}

func (r *PostgresRepo) FollowerIDs(ctx context.Context, userID, relType string) ([]string, error) {
	query := `
		SELECT actor_id FROM user_relationships
		WHERE target_id = $1 AND rel_type = $2
		ORDER BY actor_id ASC
	`
	rows, err := r.db.Query(ctx, query, userID, relType)
	if err != nil {
		return nil, backendErr(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, backendErr(err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr(err)
	}
	return out, nil
}

// --- Helpers partagés ---

func collectPosts(rows pgx.Rows) ([]domain.Post, error) {
	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Content, &p.CreatedAt, &p.Public); err != nil {
			return nil, backendErr(err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr(err)
	}
	return posts, nil
}

// backendErr marque une défaillance driver comme retentable (domain.ErrBackend),
// par opposition à ErrNotFound qui ne l'est jamais.
func backendErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrBackend, err)
}
