package services

import (
	"sort"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
)

// ScoreCandidates agrège des tuples bruts viewer -> via -> candidat en
// recommandations scorées. Fonction pure : utilisable tel quel par n'importe
// quel backend capable de produire des chemins à deux sauts.
//
// Score = nombre d'intermédiaires DISTINCTS menant au candidat (un même via
// compté deux fois ne vaut qu'un). Tri : score décroissant, puis ID croissant
// pour un départage déterministe. Tronqué à maxResults.
//
// Le viewer est exclu défensivement même si les adapters le filtrent déjà.
func ScoreCandidates(paths []domain.TwoHopPath, viewerID string, maxResults int) []domain.Recommendation {
	vias := make(map[string]map[string]struct{})
	for _, p := range paths {
		if p.CandidateID == viewerID || p.CandidateID == "" {
			continue
		}
		set, ok := vias[p.CandidateID]
		if !ok {
			set = make(map[string]struct{})
			vias[p.CandidateID] = set
		}
		set[p.ViaID] = struct{}{}
	}

	recs := make([]domain.Recommendation, 0, len(vias))
	for candidate, set := range vias {
		recs = append(recs, domain.Recommendation{UserID: candidate, Score: len(set)})
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].UserID < recs[j].UserID
	})

	if maxResults > 0 && len(recs) > maxResults {
		recs = recs[:maxResults]
	}
	return recs
}
