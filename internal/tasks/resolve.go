package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/ejmartin/freshwax/internal/models"
	"github.com/ejmartin/freshwax/internal/services"
	"github.com/ejmartin/freshwax/internal/shared"
)

// searchResultLimit bounds how many ranked hits are considered per query.
const searchResultLimit = 5

// resolveResult carries one sampled track's resolution outcome through the pool.
type resolveResult struct {
	track    models.SampledTrack
	resolved *models.ResolvedTrack
	err      error
}

// resolveTracks maps every sampled track onto a destination catalog ID on a
// bounded worker pool, keeping input order.
//
// An unmatched track is an expected outcome, not an error; it is simply
// absent from the returned slice. Transient search failures have already
// been retried inside the catalog client, so an error here is recorded and
// the track counted unmatched. An expired credential is the exception: no
// further destination call can succeed, so it aborts the stage.
func (e *Engine) resolveTracks(ctx context.Context, sampled []models.SampledTrack, workers int, progress chan<- ProgressUpdate, summary *models.RunSummary) ([]models.ResolvedTrack, error) {
	results := mapConcurrently(ctx, workers, sampled, func(ctx context.Context, index int, track models.SampledTrack) resolveResult {
		sendProgress(progress, resolveTrackUpdate(index+1, len(sampled), track))

		query := fmt.Sprintf("%s %s", track.Artist.Name, track.Title)
		hits, err := e.catalog.SearchTrack(ctx, query, searchResultLimit)
		if err != nil {
			return resolveResult{track: track, err: err}
		}

		resolved, ok := matchTrack(track, hits)
		if !ok {
			return resolveResult{track: track}
		}
		return resolveResult{track: track, resolved: resolved}
	})

	var resolved []models.ResolvedTrack
	for _, result := range results {
		if result.err != nil {
			if errors.Is(result.err, shared.ErrAuthExpired) {
				return nil, result.err
			}
			recordFailure(summary, models.StageResolve,
				fmt.Sprintf("%s - %s", result.track.Artist.Name, result.track.Title), result.err)
			continue
		}
		if result.resolved != nil {
			resolved = append(resolved, *result.resolved)
		}
	}

	return resolved, nil
}

// matchTrack applies the matching policy to ranked search hits:
//
//  1. Any hit whose artist and title both normalized-equal the query → Exact.
//  2. Else, if the top-ranked hit's artist normalized-equals the query
//     artist → Fuzzy (title mismatch tolerated; catalogs vary punctuation
//     and remix suffixes).
//  3. Else no match.
//
// The artist-equality gate in both rules is the deliberate guard against
// cross-artist false matches, trading some false negatives for the safer
// failure mode.
func matchTrack(track models.SampledTrack, hits []services.TrackResult) (*models.ResolvedTrack, bool) {
	wantArtist := shared.NormalizeName(track.Artist.Name)
	wantTitle := shared.NormalizeName(track.Title)
	if wantArtist == "" || wantTitle == "" {
		return nil, false
	}

	for _, hit := range hits {
		if shared.NormalizeName(hit.Artist) == wantArtist && shared.NormalizeName(hit.Title) == wantTitle {
			return &models.ResolvedTrack{
				Sampled:       track,
				DestinationID: hit.ID,
				Confidence:    models.MatchExact,
			}, true
		}
	}

	if len(hits) > 0 && shared.NormalizeName(hits[0].Artist) == wantArtist {
		return &models.ResolvedTrack{
			Sampled:       track,
			DestinationID: hits[0].ID,
			Confidence:    models.MatchFuzzy,
		}, true
	}

	return nil, false
}
