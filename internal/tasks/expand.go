package tasks

import (
	"context"
	"fmt"

	"github.com/ejmartin/freshwax/internal/models"
	"github.com/ejmartin/freshwax/internal/shared"
)

// expandResult carries one seed's similarity lookup outcome through the pool.
type expandResult struct {
	seed    models.Artist
	similar []string
	err     error
}

// expandSeeds queries similar artists for every seed on a bounded worker
// pool and assembles the candidate list in seed order.
//
// Candidates equal (by normalized name) to any seed or to an earlier
// candidate are excluded: a seed cannot discover itself, and each discovered
// artist appears once, attributed to the first seed that surfaced it. A
// per-seed lookup failure contributes zero candidates and a recorded failure.
func (e *Engine) expandSeeds(ctx context.Context, seeds []models.Artist, limit, workers int, progress chan<- ProgressUpdate, summary *models.RunSummary) []models.Candidate {
	results := mapConcurrently(ctx, workers, seeds, func(ctx context.Context, index int, seed models.Artist) expandResult {
		sendProgress(progress, expandSeedUpdate(index+1, len(seeds), seed))
		similar, err := e.history.SimilarArtists(ctx, seed.Name, limit)
		return expandResult{seed: seed, similar: similar, err: err}
	})

	known := make(map[string]struct{}, len(seeds))
	for _, seed := range seeds {
		known[shared.NormalizeName(seed.Name)] = struct{}{}
	}

	var candidates []models.Candidate
	for _, result := range results {
		if result.err != nil {
			recordFailure(summary, models.StageExpand, result.seed.Name,
				fmt.Errorf("%w: %v", shared.ErrSimilarityLookup, result.err))
			continue
		}

		taken := 0
		for _, name := range result.similar {
			if taken >= limit {
				break
			}
			key := shared.NormalizeName(name)
			if key == "" {
				continue
			}
			if _, ok := known[key]; ok {
				continue
			}
			known[key] = struct{}{}
			candidates = append(candidates, models.Candidate{
				Artist: models.Artist{Name: name},
				Seed:   result.seed,
			})
			taken++
		}
	}

	return candidates
}
