package domain

import "time"

type Post struct {
	ID        string
	UserID    string // Auteur du post
	Content   string
	CreatedAt time.Time
	Public    bool // Seuls les posts publics apparaissent dans les feeds
}

type Comment struct {
	ID        string
	PostID    string
	UserID    string // Auteur du commentaire
	Content   string
	CreatedAt time.Time
}

// PostWithCount est le modèle de lecture pour l'agrégation de commentaires.
// Un post sans commentaire a CommentCount == 0, il n'est JAMAIS omis.
type PostWithCount struct {
	Post
	CommentCount int
}
