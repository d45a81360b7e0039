package domain

import "errors"

// --- TAXONOMIE DES ERREURS ---
// Trois familles sentinelles, à tester avec errors.Is :
// - ErrValidation : paramètres invalides, ne jamais retenter
// - ErrNotFound   : l'identifiant référencé n'existe pas, ne jamais retenter
// - ErrBackend    : connectivité ou timeout, retentable avec backoff côté appelant
var (
	ErrValidation = errors.New("invalid query parameters")
	ErrNotFound   = errors.New("entity not found")
	ErrBackend    = errors.New("backend unavailable")
)
