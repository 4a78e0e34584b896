package gallery

import (
	"slices"
	"strings"
)

// Normalize fills the defaults the pages rely on: a publication type and a
// picture URL. It returns a new slice.
func Normalize(records []ImageRecord) []ImageRecord {
	out := make([]ImageRecord, len(records))
	for i, rec := range records {
		if rec.TipoPublicacion == "" {
			rec.TipoPublicacion = PublicationGallery
		}
		if strings.TrimSpace(rec.URLImagen) == "" {
			rec.URLImagen = PlaceholderURL(rec.PlantaID)
		}
		out[i] = rec
	}
	return out
}

// PublicGallery keeps the records visitors may see
func PublicGallery(records []ImageRecord) []ImageRecord {
	return keep(records, func(r ImageRecord) bool {
		return r.Estado == StatusPublished || r.Estado == StatusActive
	})
}

// LatestPublished returns up to n published records, newest first
func LatestPublished(records []ImageRecord, n int) []ImageRecord {
	published := keep(records, func(r ImageRecord) bool { return r.Estado == StatusPublished })
	sortByCreation(published)
	if n >= 0 && len(published) > n {
		published = published[:n]
	}
	return published
}

// News returns published records flagged as noticias, newest first
func News(records []ImageRecord) []ImageRecord {
	news := keep(records, func(r ImageRecord) bool {
		return r.Estado == StatusPublished && r.TipoPublicacion == PublicationNews
	})
	sortByCreation(news)
	return news
}

// MapPoints returns published records that carry both coordinates
func MapPoints(records []ImageRecord) []ImageRecord {
	return keep(records, func(r ImageRecord) bool {
		return r.Estado == StatusPublished && r.HasCoordinates()
	})
}

// ComputeStats counts records per moderation state
func ComputeStats(records []ImageRecord) Stats {
	stats := Stats{Total: len(records)}
	for _, r := range records {
		switch r.Estado {
		case StatusPublished:
			stats.Publicadas++
		case StatusPending:
			stats.Pendientes++
		case StatusRejected:
			stats.Rechazadas++
		}
	}
	return stats
}

// FindByID looks a record up in a snapshot
func FindByID(records []ImageRecord, id int) (ImageRecord, bool) {
	i := slices.IndexFunc(records, func(r ImageRecord) bool { return r.ID == id })
	if i < 0 {
		return ImageRecord{}, false
	}
	return records[i], true
}

func keep(records []ImageRecord, pred func(ImageRecord) bool) []ImageRecord {
	out := make([]ImageRecord, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

func sortByCreation(records []ImageRecord) {
	slices.SortStableFunc(records, func(a, b ImageRecord) int {
		return b.CreatedTime().Compare(a.CreatedTime())
	})
}
