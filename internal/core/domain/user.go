package domain

import "time"

// --- ENTITÉ ---

// User est la représentation commune à tous les backends.
// L'ID est opaque et stable : c'est LUI qui fait l'égalité, pas le reste.
type User struct {
	ID          string
	Username    string
	Email       string
	CreatedAt   time.Time
	LastLoginAt *time.Time // Optionnel : certains comptes ne se sont jamais connectés
}

// Equal compare par identité (l'égalité métier, pas l'égalité structurelle)
func (u User) Equal(other User) bool {
	return u.ID == other.ID
}
