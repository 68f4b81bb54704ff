package tasks

import (
	"fmt"

	"github.com/ejmartin/freshwax/internal/models"
)

// ProgressUpdate represents a progress event during a discovery run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Phase enumerates the pipeline stages for progress reporting.
type Phase int

const (
	FetchSeeds Phase = iota
	ExpandSeeds
	SampleTracks
	Authorize
	ResolveTracks
	CreatePlaylist
	AddTracks
)

func (p Phase) String() string {
	switch p {
	case FetchSeeds:
		return "fetch_seeds"
	case ExpandSeeds:
		return "expand_seeds"
	case SampleTracks:
		return "sample_tracks"
	case Authorize:
		return "authorize"
	case ResolveTracks:
		return "resolve_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	default:
		return ""
	}
}

func fetchSeedsUpdate(user string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSeeds,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching top albums for %s...", user),
	}
}

func seedsFoundUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSeeds,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d seed artists", count),
	}
}

func expandSeedUpdate(step, total int, seed models.Artist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExpandSeeds,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Finding artists similar to %s", step, total, seed.Name),
	}
}

func sampleArtistUpdate(step, total int, candidate models.Candidate) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SampleTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Sampling tracks by %s", step, total, candidate.Artist.Name),
	}
}

func authorizeUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authorize,
		Step:    1,
		Total:   1,
		Message: "Waiting for Spotify authorization...",
	}
}

func resolveTrackUpdate(step, total int, track models.SampledTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, track.Artist.Name, track.Title),
	}
}

func createPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func addTracksUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Adding tracks (batch %d/%d)...", step, total),
	}
}
