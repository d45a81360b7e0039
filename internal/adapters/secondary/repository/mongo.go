package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
	"github.com/jupiterclapton/socialgraph/internal/core/ports"
)

// DTO internes : le schéma bson reste confiné ici, le domaine n'a pas de tags.
// Les tableaux following/followers sont DÉNORMALISÉS par type de relation :
// c'est un cache possiblement en retard sur l'ensemble d'arêtes autoritaire,
// pas une seconde source de vérité (consistance éventuelle assumée).
type mongoUserDoc struct {
	ID          string              `bson:"_id"`
	Username    string              `bson:"username"`
	Email       string              `bson:"email"`
	CreatedAt   time.Time           `bson:"created_at"`
	LastLoginAt *time.Time          `bson:"last_login,omitempty"`
	Following   map[string][]string `bson:"following"` // type de relation -> IDs cibles
	Followers   map[string][]string `bson:"followers"` // type de relation -> IDs sources
}

type mongoPostDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
	Public    bool      `bson:"public"`
}

type mongoCountedPostDoc struct {
	mongoPostDoc `bson:",inline"`
	CommentCount int `bson:"comment_count"`
}

// MongoRepo interroge les collections users/posts. Pas de join multi-sauts
// natif : les traversées se font par lookups $in BATCHÉS (jamais un
// aller-retour par candidat).
type MongoRepo struct {
	client *mongo.Client
	users  *mongo.Collection
	posts  *mongo.Collection
}

func NewMongoRepo(client *mongo.Client, database string) ports.SocialRepository {
	db := client.Database(database)
	return &MongoRepo{
		client: client,
		users:  db.Collection("users"),
		posts:  db.Collection("posts"),
	}
}

func (r *MongoRepo) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx, nil); err != nil {
		return backendErr(err)
	}
	return nil
}

func (r *MongoRepo) Close(ctx context.Context) error {
	if err := r.client.Disconnect(ctx); err != nil {
		return backendErr(err)
	}
	return nil
}

func (r *MongoRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	doc, err := r.findUserDoc(ctx, userID)
	if err != nil {
		return nil, err
	}
	u := doc.toDomain()
	return &u, nil
}

// FeedPage : on résout d'abord le tableau following du viewer, puis UNE
// requête sur posts filtrée par appartenance + visibilité.
func (r *MongoRepo) FeedPage(ctx context.Context, viewerID string, limit, offset int) ([]domain.Post, error) {
	viewer, err := r.findUserDoc(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	following := viewer.Following[domain.RelationFollow]
	if len(following) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"user_id": bson.M{"$in": following},
		"public":  true,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := r.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, backendErr(err)
	}
	var docs []mongoPostDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, backendErr(err)
	}

	posts := make([]domain.Post, 0, len(docs))
	for _, d := range docs {
		posts = append(posts, d.toDomain())
	}
	return posts, nil
}

// PostsWithCommentCounts : $size sur le tableau embarqué de commentaires.
// Ce tableau est dénormalisé : il peut diverger de la collection autoritaire
// des commentaires (signal opérationnel, pas une erreur — cf. §staleness).
func (r *MongoRepo) PostsWithCommentCounts(ctx context.Context, userID string) ([]domain.PostWithCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$project", Value: bson.M{
			"user_id":    1,
			"content":    1,
			"created_at": 1,
			"public":     1,
			// $ifNull : un post sans champ comments compte 0, il n'est pas omis
			"comment_count": bson.M{"$size": bson.M{"$ifNull": bson.A{"$comments", bson.A{}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cur, err := r.posts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, backendErr(err)
	}
	var docs []mongoCountedPostDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, backendErr(err)
	}

	out := make([]domain.PostWithCount, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.PostWithCount{Post: d.toDomain(), CommentCount: d.CommentCount})
	}
	return out, nil
}

// MutualConnections : intersection ensembliste des tableaux following des
// deux users, puis UNE requête $in pour hydrater les profils.
func (r *MongoRepo) MutualConnections(ctx context.Context, userIDA, userIDB, relType string) ([]domain.User, error) {
	a, err := r.findUserDoc(ctx, userIDA)
	if err != nil {
		return nil, err
	}
	b, err := r.findUserDoc(ctx, userIDB)
	if err != nil {
		return nil, err
	}

	mutualIDs := intersectIDs(a.Following[relType], b.Following[relType], userIDA, userIDB)
	if len(mutualIDs) == 0 {
		return nil, nil
	}

	cur, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": mutualIDs}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, backendErr(err)
	}
	var docs []mongoUserDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, backendErr(err)
	}

	users := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, nil
}

// TwoHopPaths : pas de join multi-sauts natif en document. On lit le tableau
// following du viewer, puis on récupère TOUS les intermédiaires en UNE
// requête $in (batch obligatoire, le per-candidat ferait N allers-retours),
// et on déroule leurs tableaux en Go.
func (r *MongoRepo) TwoHopPaths(ctx context.Context, viewerID, relType string) ([]domain.TwoHopPath, error) {
	viewer, err := r.findUserDoc(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	direct := viewer.Following[relType]
	if len(direct) == 0 {
		return nil, nil
	}

	cur, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": direct}},
		options.Find().SetProjection(bson.M{"following": 1}))
	if err != nil {
		return nil, backendErr(err)
	}
	var mids []mongoUserDoc
	if err := cur.All(ctx, &mids); err != nil {
		return nil, backendErr(err)
	}

	// Détection de staleness : un ID du tableau dénormalisé sans document
	// correspondant signale une divergence avec l'ensemble d'arêtes autoritaire.
	if len(mids) < len(direct) {
		slog.Debug("🔎 Denormalized following array references missing users",
			"viewer_id", viewerID, "expected", len(direct), "found", len(mids))
	}

	return expandTwoHop(viewerID, direct, mids, relType), nil
}

// FollowerIDs lit le tableau followers dénormalisé (staleness assumée :
// l'usage est l'invalidation de cache, pas une réponse de requête).
func (r *MongoRepo) FollowerIDs(ctx context.Context, userID, relType string) ([]string, error) {
	doc, err := r.findUserDoc(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := append([]string(nil), doc.Followers[relType]...)
	sort.Strings(ids)
	return ids, nil
}

// --- Helpers ---

func (r *MongoRepo) findUserDoc(ctx context.Context, userID string) (*mongoUserDoc, error) {
	var doc mongoUserDoc
	err := r.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
		}
		return nil, backendErr(err)
	}
	return &doc, nil
}

func (d mongoUserDoc) toDomain() domain.User {
	return domain.User{
		ID:          d.ID,
		Username:    d.Username,
		Email:       d.Email,
		CreatedAt:   d.CreatedAt,
		LastLoginAt: d.LastLoginAt,
	}
}

func (d mongoPostDoc) toDomain() domain.Post {
	return domain.Post{
		ID:        d.ID,
		UserID:    d.UserID,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		Public:    d.Public,
	}
}

// intersectIDs renvoie a ∩ b, sans les exclus, trié, dédoublonné.
func intersectIDs(a, b []string, exclude ...string) []string {
	inA := make(map[string]struct{}, len(a))
	for _, id := range a {
		inA[id] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, id := range b {
		if _, ok := inA[id]; !ok {
			continue
		}
		if _, ok := excluded[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// expandTwoHop déroule les tableaux des intermédiaires en tuples de chemins,
// en excluant le viewer et ses connexions directes.
func expandTwoHop(viewerID string, direct []string, mids []mongoUserDoc, relType string) []domain.TwoHopPath {
	directSet := make(map[string]struct{}, len(direct))
	for _, id := range direct {
		directSet[id] = struct{}{}
	}

	var paths []domain.TwoHopPath
	for _, mid := range mids {
		for _, candidate := range mid.Following[relType] {
			if candidate == viewerID {
				continue
			}
			if _, isDirect := directSet[candidate]; isDirect {
				continue
			}
			paths = append(paths, domain.TwoHopPath{ViaID: mid.ID, CandidateID: candidate})
		}
	}
	return paths
}
