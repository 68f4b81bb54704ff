// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/ejmartin/freshwax/internal/models"
	"github.com/ejmartin/freshwax/internal/services"
)

// FakeHistory is a configurable test double for [services.History].
// Unset func fields return empty results.
type FakeHistory struct {
	TopAlbumsFunc       func(ctx context.Context, user, period string, page int) (*services.TopAlbumsPage, error)
	SimilarArtistsFunc  func(ctx context.Context, artist string, limit int) ([]string, error)
	ArtistTopAlbumsFunc func(ctx context.Context, artist string, limit int) ([]services.Album, error)
	AlbumTracksFunc     func(ctx context.Context, artist, album string) ([]string, error)
}

func (f *FakeHistory) TopAlbums(ctx context.Context, user, period string, page int) (*services.TopAlbumsPage, error) {
	if f.TopAlbumsFunc != nil {
		return f.TopAlbumsFunc(ctx, user, period, page)
	}
	return &services.TopAlbumsPage{Page: page, TotalPages: 1}, nil
}

func (f *FakeHistory) SimilarArtists(ctx context.Context, artist string, limit int) ([]string, error) {
	if f.SimilarArtistsFunc != nil {
		return f.SimilarArtistsFunc(ctx, artist, limit)
	}
	return nil, nil
}

func (f *FakeHistory) ArtistTopAlbums(ctx context.Context, artist string, limit int) ([]services.Album, error) {
	if f.ArtistTopAlbumsFunc != nil {
		return f.ArtistTopAlbumsFunc(ctx, artist, limit)
	}
	return nil, nil
}

func (f *FakeHistory) AlbumTracks(ctx context.Context, artist, album string) ([]string, error) {
	if f.AlbumTracksFunc != nil {
		return f.AlbumTracksFunc(ctx, artist, album)
	}
	return nil, nil
}

// FakeCatalog is a configurable test double for [services.Catalog].
// AddTracks invocations are recorded for assertion.
type FakeCatalog struct {
	CurrentUserIDFunc  func(ctx context.Context) (string, error)
	SearchTrackFunc    func(ctx context.Context, query string, limit int) ([]services.TrackResult, error)
	CreatePlaylistFunc func(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error)
	AddTracksFunc      func(ctx context.Context, playlistID string, ids []string) error

	mu       sync.Mutex
	AddCalls [][]string
}

func (f *FakeCatalog) CurrentUserID(ctx context.Context) (string, error) {
	if f.CurrentUserIDFunc != nil {
		return f.CurrentUserIDFunc(ctx)
	}
	return "test-user", nil
}

func (f *FakeCatalog) SearchTrack(ctx context.Context, query string, limit int) ([]services.TrackResult, error) {
	if f.SearchTrackFunc != nil {
		return f.SearchTrackFunc(ctx, query, limit)
	}
	return nil, nil
}

func (f *FakeCatalog) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	if f.CreatePlaylistFunc != nil {
		return f.CreatePlaylistFunc(ctx, userID, name, description, public)
	}
	return &models.Playlist{
		ID:          "test-playlist",
		Name:        name,
		Description: description,
		Public:      public,
		URL:         "https://open.spotify.com/playlist/test-playlist",
	}, nil
}

func (f *FakeCatalog) AddTracks(ctx context.Context, playlistID string, ids []string) error {
	f.mu.Lock()
	f.AddCalls = append(f.AddCalls, append([]string(nil), ids...))
	f.mu.Unlock()

	if f.AddTracksFunc != nil {
		return f.AddTracksFunc(ctx, playlistID, ids)
	}
	return nil
}

// AddedIDs flattens every recorded AddTracks call into one slice.
func (f *FakeCatalog) AddedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for _, call := range f.AddCalls {
		ids = append(ids, call...)
	}
	return ids
}

// StaticTokens implements [services.TokenProvider] with a fixed token.
type StaticTokens struct {
	Token string
	Err   error
}

func (s *StaticTokens) CurrentToken(ctx context.Context) (string, error) {
	return s.Token, s.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}
