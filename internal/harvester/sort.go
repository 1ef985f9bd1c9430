package harvester

import (
	"slices"

	"github.com/Adda-Baaj/iq2us-rss/internal/domain"
)

// SortEpisodes orders episodes newest first by effective publish time.
// Episodes with equal times keep their harvest order.
func SortEpisodes(episodes []domain.Episode) {
	slices.SortStableFunc(episodes, func(a, b domain.Episode) int {
		return b.PublishedAt().Compare(a.PublishedAt())
	})
}
