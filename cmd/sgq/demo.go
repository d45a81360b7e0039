package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jupiterclapton/socialgraph/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/socialgraph/internal/core/domain"
)

// seedDemo construit le backend mémoire de démonstration. Les users ont des
// IDs lisibles (pour taper `sgq feed alice 10 0` directement), les posts et
// commentaires des UUIDs comme en production.
func seedDemo() *repository.MemoryRepo {
	repo := repository.NewMemoryRepo()
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	names := []string{"alice", "bob", "carol", "dave", "erin"}
	for i, name := range names {
		repo.AddUser(domain.User{
			ID:        name,
			Username:  name,
			Email:     fmt.Sprintf("%s@example.net", name),
			CreatedAt: base.AddDate(0, 0, -30+i),
		})
	}

	// alice suit bob et carol ; bob et carol suivent dave ; dave suit erin.
	// Recommandation attendue pour alice : dave (2 intermédiaires).
	follows := [][2]string{
		{"alice", "bob"}, {"alice", "carol"},
		{"bob", "dave"}, {"carol", "dave"},
		{"dave", "erin"}, {"bob", "alice"},
	}
	for _, f := range follows {
		repo.AddRelation(domain.Relation{ActorID: f[0], TargetID: f[1], Type: domain.RelationFollow, CreatedAt: base})
	}

	type seedPost struct {
		author string
		offset time.Duration
		public bool
	}
	posts := []seedPost{
		{"bob", 1 * time.Hour, true},
		{"bob", 2 * time.Hour, false}, // non public : invisible dans les feeds
		{"carol", 3 * time.Hour, true},
		{"dave", 4 * time.Hour, true},
	}
	for i, sp := range posts {
		postID := uuid.NewString()
		repo.AddPost(domain.Post{
			ID:        postID,
			UserID:    sp.author,
			Content:   fmt.Sprintf("demo post #%d by %s", i+1, sp.author),
			CreatedAt: base.Add(sp.offset),
			Public:    sp.public,
		})
		if i%2 == 0 {
			repo.AddComment(domain.Comment{
				ID:        uuid.NewString(),
				PostID:    postID,
				UserID:    "erin",
				Content:   "nice one",
				CreatedAt: base.Add(sp.offset + 10*time.Minute),
			})
		}
	}
	return repo
}
