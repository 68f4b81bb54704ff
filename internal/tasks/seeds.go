package tasks

import (
	"context"
	"fmt"

	"github.com/ejmartin/freshwax/internal/models"
	"github.com/ejmartin/freshwax/internal/shared"
)

// fetchSeeds derives the seed artist set from the user's top albums over the
// trailing window, paginating until the service reports no further pages or
// the page ceiling is reached.
//
// The set preserves first-seen order and is deduplicated by normalized name.
// An empty listening history yields an empty set, not an error.
func (e *Engine) fetchSeeds(ctx context.Context, user, period string, pageLimit int) ([]models.Artist, error) {
	var seeds []models.Artist
	seen := make(map[string]struct{})

	for page := 1; page <= pageLimit; page++ {
		result, err := e.history.TopAlbums(ctx, user, period, page)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrHistoryUnavailable, err)
		}

		for _, album := range result.Albums {
			if album.Artist == "" {
				continue
			}
			key := shared.NormalizeName(album.Artist)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			seeds = append(seeds, models.Artist{Name: album.Artist})
		}

		if result.TotalPages <= page {
			break
		}
	}

	return seeds, nil
}
