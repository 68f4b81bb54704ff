package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/ejmartin/freshwax/internal/models"
	"github.com/ejmartin/freshwax/internal/shared"
)

// topAlbumsPerArtist bounds how many of a candidate's albums are flattened
// into the track draw.
const topAlbumsPerArtist = 3

// sampleResult carries one candidate's sampling outcome through the pool.
type sampleResult struct {
	candidate models.Candidate
	tracks    []models.SampledTrack
	err       error
}

// sampleTracks draws up to perArtist random tracks per candidate artist on a
// bounded worker pool, reassembling results in candidate order.
//
// The per-artist cap is what keeps the final playlist varied instead of
// dominated by one prolific artist. The draw is uniform without replacement
// over the distinct (normalized) titles of the artist's top albums, and is
// reseeded per run: repeated runs yield different playlists on purpose.
func (e *Engine) sampleTracks(ctx context.Context, candidates []models.Candidate, perArtist, workers int, progress chan<- ProgressUpdate, summary *models.RunSummary) []models.SampledTrack {
	results := mapConcurrently(ctx, workers, candidates, func(ctx context.Context, index int, candidate models.Candidate) sampleResult {
		sendProgress(progress, sampleArtistUpdate(index+1, len(candidates), candidate))
		tracks, err := e.sampleArtist(ctx, candidate.Artist, perArtist)
		return sampleResult{candidate: candidate, tracks: tracks, err: err}
	})

	var sampled []models.SampledTrack
	for _, result := range results {
		if result.err != nil {
			recordFailure(summary, models.StageSample, result.candidate.Artist.Name,
				fmt.Errorf("%w: %v", shared.ErrSampleFetch, result.err))
			continue
		}
		sampled = append(sampled, result.tracks...)
	}

	return sampled
}

// sampleArtist flattens the artist's top albums into a distinct track list
// and draws up to perArtist tracks without replacement.
func (e *Engine) sampleArtist(ctx context.Context, artist models.Artist, perArtist int) ([]models.SampledTrack, error) {
	albums, err := e.history.ArtistTopAlbums(ctx, artist.Name, topAlbumsPerArtist)
	if err != nil {
		return nil, err
	}

	var titles []string
	seen := make(map[string]struct{})
	for _, album := range albums {
		tracks, err := e.history.AlbumTracks(ctx, artist.Name, album.Name)
		if err != nil {
			// A missing album listing shouldn't sink the whole artist.
			continue
		}
		for _, title := range tracks {
			key := shared.NormalizeName(title)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			titles = append(titles, title)
		}
	}

	rand.Shuffle(len(titles), func(i, j int) {
		titles[i], titles[j] = titles[j], titles[i]
	})
	if len(titles) > perArtist {
		titles = titles[:perArtist]
	}

	sampled := make([]models.SampledTrack, 0, len(titles))
	for _, title := range titles {
		sampled = append(sampled, models.SampledTrack{Artist: artist, Title: title})
	}
	return sampled, nil
}
