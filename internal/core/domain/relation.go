package domain

import "time"

// Les types de relations forment un ensemble ouvert (minuscules).
// Deux types sont prédéclarés, le reste est accepté tel quel.
const (
	RelationFollow = "follow"
	RelationFriend = "friend"
)

// Relation est un lien DIRIGÉ dans le graphe social (Actor -> Target).
// (actor, target, type) est unique : pas de doublon d'arête du même type.
// "friend" reste dirigé : la réciprocité se vérifie, elle ne se suppose pas.
type Relation struct {
	ActorID   string // Celui qui fait l'action
	TargetID  string // Celui qui la subit
	Type      string
	CreatedAt time.Time
}

// TwoHopPath est un tuple brut de traversée viewer -> via -> candidat.
// Le viewer est implicite (c'est le paramètre de la requête).
type TwoHopPath struct {
	ViaID       string
	CandidateID string
}

// Recommendation est un candidat ami-d'ami avec son score :
// le nombre d'intermédiaires DISTINCTS qui y mènent en deux sauts.
type Recommendation struct {
	UserID string
	Score  int
}
