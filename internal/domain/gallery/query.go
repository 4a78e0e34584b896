package gallery

import (
	"slices"
	"strings"
)

// Query describes a search over an image snapshot
type Query struct {
	Term   string
	Status string // a Status value or StatusAll
	Sort   SortKey
	// MatchAuthor extends term matching to nombre_usuario (public gallery search)
	MatchAuthor bool
}

// Apply filters and sorts records according to q. The input slice is never
// modified; the result is always a fresh slice.
func Apply(records []ImageRecord, q Query) []ImageRecord {
	term := strings.ToLower(strings.TrimSpace(q.Term))

	result := make([]ImageRecord, 0, len(records))
	for _, rec := range records {
		if !matchesTerm(rec, term, q.MatchAuthor) {
			continue
		}
		if !matchesStatus(rec, q.Status) {
			continue
		}
		result = append(result, rec)
	}

	SortByUpload(result, q.Sort)
	return result
}

// SortByUpload stable-sorts records in place by upload timestamp
func SortByUpload(records []ImageRecord, key SortKey) {
	slices.SortStableFunc(records, func(a, b ImageRecord) int {
		cmp := a.UploadedAt().Compare(b.UploadedAt())
		if key == SortNewest {
			return -cmp
		}
		return cmp
	})
}

func matchesTerm(rec ImageRecord, term string, matchAuthor bool) bool {
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(rec.PlantaID), term) ||
		strings.Contains(strings.ToLower(rec.Description), term) {
		return true
	}
	return matchAuthor && strings.Contains(strings.ToLower(rec.NombreUsuario), term)
}

func matchesStatus(rec ImageRecord, status string) bool {
	if status == "" || status == StatusAll {
		return true
	}
	return string(rec.Estado) == status
}
