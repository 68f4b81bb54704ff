package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ejmartin/freshwax/internal/models"
	"github.com/ejmartin/freshwax/internal/services"
	"github.com/ejmartin/freshwax/internal/shared"
)

// PlaylistBuilder creates the destination playlist and appends resolved
// track IDs in batches.
//
// added is the within-run dedup ledger: no destination ID is submitted twice
// to the add call in one run, even though the destination API would silently
// accept the duplicate. The mutex guards the ledger against concurrent
// callers.
type PlaylistBuilder struct {
	catalog services.Catalog

	mu         sync.Mutex
	playlistID string
	added      map[string]struct{}
}

// NewPlaylistBuilder creates a builder with an empty ledger.
func NewPlaylistBuilder(catalog services.Catalog) *PlaylistBuilder {
	return &PlaylistBuilder{
		catalog: catalog,
		added:   make(map[string]struct{}),
	}
}

// Create creates a new destination playlist for this run. A fresh playlist
// is always created; reuse of an existing same-named playlist is out of
// scope.
func (b *PlaylistBuilder) Create(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	playlist, err := b.catalog.CreatePlaylist(ctx, userID, name, description, public)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.playlistID = playlist.ID
	b.mu.Unlock()
	return playlist, nil
}

// AddTracks appends the given IDs to the run's playlist in chunks of the
// destination's batch limit, filtering IDs already in the ledger.
//
// Returns the count of tracks added, the count filtered as duplicates, and
// per-chunk failures. A failed chunk is recorded and the builder proceeds to
// the next chunk; retry/backoff for rate limits happens inside the catalog
// client. An expired credential aborts immediately since no further write
// can succeed.
func (b *PlaylistBuilder) AddTracks(ctx context.Context, ids []string, progress chan<- ProgressUpdate) (added, duplicates int, failures []models.Failure, err error) {
	b.mu.Lock()
	playlistID := b.playlistID
	fresh := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := b.added[id]; ok {
			duplicates++
			continue
		}
		// Mark at submission time so a concurrent call can never resubmit,
		// regardless of chunk outcome.
		b.added[id] = struct{}{}
		fresh = append(fresh, id)
	}
	b.mu.Unlock()

	if playlistID == "" {
		return 0, duplicates, []models.Failure{{
			Stage:   models.StageAdd,
			Subject: fmt.Sprintf("%d tracks", len(fresh)),
			Reason:  "no playlist created",
		}}, nil
	}

	chunks := chunkIDs(fresh, services.MaxTracksPerAdd)
	for i, chunk := range chunks {
		sendProgress(progress, addTracksUpdate(i+1, len(chunks)))

		if chunkErr := b.catalog.AddTracks(ctx, playlistID, chunk); chunkErr != nil {
			if errors.Is(chunkErr, shared.ErrAuthExpired) {
				return added, duplicates, failures, chunkErr
			}
			failures = append(failures, models.Failure{
				Stage:   models.StageAdd,
				Subject: fmt.Sprintf("batch of %d tracks", len(chunk)),
				Reason:  fmt.Errorf("%w: %v", shared.ErrAddBatch, chunkErr).Error(),
			})
			continue
		}
		added += len(chunk)
	}

	return added, duplicates, failures, nil
}

// chunkIDs splits ids into slices of at most size elements.
func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}

	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
