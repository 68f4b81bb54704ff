package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ejmartin/freshwax/internal/models"
	"github.com/ejmartin/freshwax/internal/services"
	"github.com/ejmartin/freshwax/internal/shared"
	tu "github.com/ejmartin/freshwax/internal/testing"
)

type fakeAuthorizer struct {
	err    error
	called atomic.Bool
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, onURL func(url string)) error {
	f.called.Store(true)
	return f.err
}

// pipelineHistory wires a small coherent world: two seed artists, their
// similar artists, and one album of tracks per similar artist.
func pipelineHistory() *tu.FakeHistory {
	similar := map[string][]string{
		"Múm":       {"Amiina", "Seabear"},
		"Sigur Rós": {"Amiina", "Ólafur Arnalds"},
	}
	tracks := map[string][]string{
		"Amiina":         {"Hilli", "Sexfaldur"},
		"Seabear":        {"Lost Watch", "Arms"},
		"Ólafur Arnalds": {"Near Light", "Only the Winds"},
	}

	return &tu.FakeHistory{
		TopAlbumsFunc: func(ctx context.Context, user, period string, page int) (*services.TopAlbumsPage, error) {
			return &services.TopAlbumsPage{
				Albums: []services.Album{
					{Name: "Finally We Are No One", Artist: "Múm"},
					{Name: "Ágætis byrjun", Artist: "Sigur Rós"},
				},
				Page:       page,
				TotalPages: 1,
			}, nil
		},
		SimilarArtistsFunc: func(ctx context.Context, artist string, limit int) ([]string, error) {
			return similar[artist], nil
		},
		ArtistTopAlbumsFunc: func(ctx context.Context, artist string, limit int) ([]services.Album, error) {
			return []services.Album{{Name: "Album", Artist: artist}}, nil
		},
		AlbumTracksFunc: func(ctx context.Context, artist, album string) ([]string, error) {
			return tracks[artist], nil
		},
	}
}

// pipelineCatalog resolves everything except Seabear; both Ólafur Arnalds
// tracks map to the same destination ID to exercise the dedup ledger.
func pipelineCatalog() *tu.FakeCatalog {
	hits := map[string]services.TrackResult{
		"Amiina Hilli":                  {ID: "amiina-1", Title: "Hilli", Artist: "Amiina"},
		"Amiina Sexfaldur":              {ID: "amiina-2", Title: "Sexfaldur", Artist: "Amiina"},
		"Ólafur Arnalds Near Light":     {ID: "olafur-hit", Title: "Near Light", Artist: "Ólafur Arnalds"},
		"Ólafur Arnalds Only the Winds": {ID: "olafur-hit", Title: "Only the Winds", Artist: "Ólafur Arnalds"},
	}

	return &tu.FakeCatalog{
		SearchTrackFunc: func(ctx context.Context, query string, limit int) ([]services.TrackResult, error) {
			hit, ok := hits[query]
			if !ok {
				return nil, nil
			}
			return []services.TrackResult{hit}, nil
		},
	}
}

func TestEngineRun(t *testing.T) {
	t.Run("Complete Pipeline", func(t *testing.T) {
		history := pipelineHistory()
		catalog := pipelineCatalog()
		authorizer := &fakeAuthorizer{}
		engine := NewEngine(EngineOpts{History: history, Catalog: catalog, Auth: authorizer})

		summary, err := engine.Run(t.Context(), RunOpts{User: "listener"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if summary.RunID == "" {
			t.Error("expected a run ID")
		}
		if summary.FinishedAt.Before(summary.StartedAt) {
			t.Error("expected FinishedAt at or after StartedAt")
		}

		if summary.Seeds != 2 {
			t.Errorf("expected 2 seeds, got %d", summary.Seeds)
		}
		// Amiina appears under both seeds but counts once.
		if summary.Candidates != 3 {
			t.Errorf("expected 3 candidates, got %d", summary.Candidates)
		}
		if summary.Sampled != 6 {
			t.Errorf("expected 6 sampled tracks, got %d", summary.Sampled)
		}
		if summary.Matched != 4 || summary.Unmatched != 2 {
			t.Errorf("expected 4 matched / 2 unmatched, got %d / %d", summary.Matched, summary.Unmatched)
		}
		if summary.Added != 3 {
			t.Errorf("expected 3 added, got %d", summary.Added)
		}
		if summary.Duplicates != 1 {
			t.Errorf("expected 1 duplicate filtered, got %d", summary.Duplicates)
		}
		if summary.AddFailed != 0 {
			t.Errorf("expected no failed adds, got %d", summary.AddFailed)
		}

		// Accounting must balance: every sampled track is accounted for
		// exactly once.
		total := summary.Unmatched + summary.Added + summary.AddFailed + summary.Duplicates
		if total != summary.Sampled {
			t.Errorf("accounting out of balance: %d + %d + %d + %d != %d",
				summary.Unmatched, summary.Added, summary.AddFailed, summary.Duplicates, summary.Sampled)
		}

		if !authorizer.called.Load() {
			t.Error("expected the authorizer to run")
		}
		if summary.PlaylistID == "" || summary.PlaylistURL == "" {
			t.Errorf("expected playlist details, got %q / %q", summary.PlaylistID, summary.PlaylistURL)
		}
	})

	t.Run("History Failure Is Fatal", func(t *testing.T) {
		history := &tu.FakeHistory{
			TopAlbumsFunc: func(ctx context.Context, user, period string, page int) (*services.TopAlbumsPage, error) {
				return nil, errors.New("connection refused")
			},
		}
		engine := NewEngine(EngineOpts{History: history, Catalog: &tu.FakeCatalog{}})

		_, err := engine.Run(t.Context(), RunOpts{User: "listener"}, nil)
		if !errors.Is(err, shared.ErrHistoryUnavailable) {
			t.Errorf("expected ErrHistoryUnavailable, got %v", err)
		}
	})

	t.Run("Empty History Completes With Empty Summary", func(t *testing.T) {
		authorizer := &fakeAuthorizer{}
		engine := NewEngine(EngineOpts{
			History: &tu.FakeHistory{},
			Catalog: &tu.FakeCatalog{},
			Auth:    authorizer,
		})

		summary, err := engine.Run(t.Context(), RunOpts{User: "listener"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if summary.Seeds != 0 || summary.Sampled != 0 {
			t.Errorf("expected an empty run, got %+v", summary)
		}
		if authorizer.called.Load() {
			t.Error("expected no consent prompt for an empty run")
		}
		if summary.PlaylistID != "" {
			t.Error("expected no playlist for an empty run")
		}
	})

	t.Run("Denied Consent Aborts Before Destination Calls", func(t *testing.T) {
		catalog := pipelineCatalog()
		var searchCalled atomic.Bool
		inner := catalog.SearchTrackFunc
		catalog.SearchTrackFunc = func(ctx context.Context, query string, limit int) ([]services.TrackResult, error) {
			searchCalled.Store(true)
			return inner(ctx, query, limit)
		}

		authorizer := &fakeAuthorizer{err: shared.ErrAuthDenied}
		engine := NewEngine(EngineOpts{History: pipelineHistory(), Catalog: catalog, Auth: authorizer})

		_, err := engine.Run(t.Context(), RunOpts{User: "listener"}, nil)
		if !errors.Is(err, shared.ErrAuthDenied) {
			t.Fatalf("expected ErrAuthDenied, got %v", err)
		}
		if searchCalled.Load() {
			t.Error("expected no catalog call after denied consent")
		}
		if len(catalog.AddCalls) != 0 {
			t.Error("expected no destination writes after denied consent")
		}
	})

	t.Run("Expired Credential Mid-Run Is Fatal", func(t *testing.T) {
		catalog := pipelineCatalog()
		catalog.SearchTrackFunc = func(ctx context.Context, query string, limit int) ([]services.TrackResult, error) {
			return nil, shared.ErrAuthExpired
		}
		engine := NewEngine(EngineOpts{History: pipelineHistory(), Catalog: catalog})

		_, err := engine.Run(t.Context(), RunOpts{User: "listener"}, nil)
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Fatalf("expected ErrAuthExpired, got %v", err)
		}
		if len(catalog.AddCalls) != 0 {
			t.Error("expected no destination writes after expiry")
		}
	})

	t.Run("Nothing Resolved Skips Playlist Creation", func(t *testing.T) {
		var created atomic.Bool
		catalog := &tu.FakeCatalog{
			CreatePlaylistFunc: func(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
				created.Store(true)
				return &models.Playlist{ID: "pl"}, nil
			},
		}
		engine := NewEngine(EngineOpts{History: pipelineHistory(), Catalog: catalog})

		summary, err := engine.Run(t.Context(), RunOpts{User: "listener"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if summary.Unmatched != summary.Sampled {
			t.Errorf("expected everything unmatched, got %d of %d", summary.Unmatched, summary.Sampled)
		}
		if created.Load() {
			t.Error("expected no playlist when nothing resolved")
		}
	})

	t.Run("Full Progress Channel Never Blocks", func(t *testing.T) {
		// Capacity one and never drained: the run must still finish.
		progress := make(chan ProgressUpdate, 1)

		engine := NewEngine(EngineOpts{
			History: pipelineHistory(),
			Catalog: pipelineCatalog(),
		})

		if _, err := engine.Run(t.Context(), RunOpts{User: "listener"}, progress); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("Uninitialized Engine", func(t *testing.T) {
		engine := NewEngine(EngineOpts{})
		if _, err := engine.Run(t.Context(), RunOpts{User: "listener"}, nil); err == nil {
			t.Error("expected error for missing services")
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		opts := RunOpts{}
		opts.withDefaults()

		if opts.Period != "6month" {
			t.Errorf("expected 6month period, got %s", opts.Period)
		}
		if opts.Concurrency < 1 || opts.Concurrency > 8 {
			t.Errorf("expected concurrency within [1, 8], got %d", opts.Concurrency)
		}
		if opts.Name == "" {
			t.Error("expected a dated default playlist name")
		}

		capped := RunOpts{Concurrency: 64}
		capped.withDefaults()
		if capped.Concurrency != 8 {
			t.Errorf("expected concurrency capped at 8, got %d", capped.Concurrency)
		}
	})
}
