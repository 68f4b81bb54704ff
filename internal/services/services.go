package services

import (
	"context"

	"github.com/ejmartin/freshwax/internal/models"
)

// Album is an album entry from the history service.
type Album struct {
	Name   string
	Artist string
}

// TopAlbumsPage is one page of a user's top albums with pagination metadata.
type TopAlbumsPage struct {
	Albums     []Album
	Page       int
	TotalPages int
}

// TrackResult is a ranked destination-catalog search hit.
type TrackResult struct {
	ID     string
	Title  string
	Artist string // primary artist name
}

// History is the capability interface over the listening-history service.
type History interface {
	// TopAlbums fetches one page of the user's top albums for the period.
	TopAlbums(ctx context.Context, user, period string, page int) (*TopAlbumsPage, error)

	// SimilarArtists returns up to limit artists similar to the given one,
	// in the service's own similarity order.
	SimilarArtists(ctx context.Context, artist string, limit int) ([]string, error)

	// ArtistTopAlbums returns up to limit of the artist's most played albums.
	ArtistTopAlbums(ctx context.Context, artist string, limit int) ([]Album, error)

	// AlbumTracks returns the track titles of a specific album.
	AlbumTracks(ctx context.Context, artist, album string) ([]string, error)
}

// Catalog is the capability interface over the destination catalog and
// playlist service.
type Catalog interface {
	// CurrentUserID returns the authenticated user's ID.
	CurrentUserID(ctx context.Context) (string, error)

	// SearchTrack searches the catalog and returns ranked results.
	SearchTrack(ctx context.Context, query string, limit int) ([]TrackResult, error)

	// CreatePlaylist creates a playlist owned by the given user.
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error)

	// AddTracks appends the given track IDs to a playlist. Callers are
	// responsible for chunking to the service's batch limit.
	AddTracks(ctx context.Context, playlistID string, ids []string) error
}

// TokenProvider supplies a currently-valid access token for destination
// calls. Implementations guarantee freshness; callers never see an expired
// token.
type TokenProvider interface {
	CurrentToken(ctx context.Context) (string, error)
}
