package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/ejmartin/freshwax/internal/models"
	tu "github.com/ejmartin/freshwax/internal/testing"
)

func TestExpandSeeds(t *testing.T) {
	seeds := func(names ...string) []models.Artist {
		artists := make([]models.Artist, 0, len(names))
		for _, name := range names {
			artists = append(artists, models.Artist{Name: name})
		}
		return artists
	}

	names := func(candidates []models.Candidate) []string {
		out := make([]string, 0, len(candidates))
		for _, c := range candidates {
			out = append(out, c.Artist.Name)
		}
		return out
	}

	t.Run("Excludes Seeds From Candidates", func(t *testing.T) {
		history := &tu.FakeHistory{
			SimilarArtistsFunc: func(ctx context.Context, artist string, limit int) ([]string, error) {
				// Every lookup suggests a seed plus one genuinely new artist.
				return []string{"Múm", "Amiina"}, nil
			},
		}
		engine := NewEngine(EngineOpts{History: history, Catalog: &tu.FakeCatalog{}})

		summary := &models.RunSummary{}
		candidates := engine.expandSeeds(t.Context(), seeds("Múm", "Sigur Rós"), 5, 2, nil, summary)

		got := names(candidates)
		if len(got) != 1 || got[0] != "Amiina" {
			t.Errorf("expected only [Amiina], got %v", got)
		}
	})

	t.Run("Seed Comparison Is Normalized", func(t *testing.T) {
		history := &tu.FakeHistory{
			SimilarArtistsFunc: func(ctx context.Context, artist string, limit int) ([]string, error) {
				return []string{"múm", "MÚM", "Seabear"}, nil
			},
		}
		engine := NewEngine(EngineOpts{History: history, Catalog: &tu.FakeCatalog{}})

		summary := &models.RunSummary{}
		candidates := engine.expandSeeds(t.Context(), seeds("Múm"), 5, 1, nil, summary)

		got := names(candidates)
		if len(got) != 1 || got[0] != "Seabear" {
			t.Errorf("expected case variants of the seed filtered, got %v", got)
		}
	})

	t.Run("Candidate Appears Once Attributed To First Seed", func(t *testing.T) {
		history := &tu.FakeHistory{
			SimilarArtistsFunc: func(ctx context.Context, artist string, limit int) ([]string, error) {
				return []string{"Amiina"}, nil
			},
		}
		engine := NewEngine(EngineOpts{History: history, Catalog: &tu.FakeCatalog{}})

		summary := &models.RunSummary{}
		candidates := engine.expandSeeds(t.Context(), seeds("Múm", "Sigur Rós"), 5, 2, nil, summary)

		if len(candidates) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(candidates))
		}
		if candidates[0].Seed.Name != "Múm" {
			t.Errorf("expected attribution to the first seed, got %s", candidates[0].Seed.Name)
		}
	})

	t.Run("Respects Per-Seed Limit", func(t *testing.T) {
		history := &tu.FakeHistory{
			SimilarArtistsFunc: func(ctx context.Context, artist string, limit int) ([]string, error) {
				return []string{"A", "B", "C", "D", "E", "F"}, nil
			},
		}
		engine := NewEngine(EngineOpts{History: history, Catalog: &tu.FakeCatalog{}})

		summary := &models.RunSummary{}
		candidates := engine.expandSeeds(t.Context(), seeds("Múm"), 3, 1, nil, summary)

		if len(candidates) != 3 {
			t.Errorf("expected 3 candidates, got %d", len(candidates))
		}
	})

	t.Run("Lookup Failure Is Recorded Not Fatal", func(t *testing.T) {
		history := &tu.FakeHistory{
			SimilarArtistsFunc: func(ctx context.Context, artist string, limit int) ([]string, error) {
				if artist == "Múm" {
					return nil, errors.New("service hiccup")
				}
				return []string{"Amiina"}, nil
			},
		}
		engine := NewEngine(EngineOpts{History: history, Catalog: &tu.FakeCatalog{}})

		summary := &models.RunSummary{}
		candidates := engine.expandSeeds(t.Context(), seeds("Múm", "Sigur Rós"), 5, 2, nil, summary)

		if len(candidates) != 1 {
			t.Errorf("expected the healthy seed's candidate, got %d", len(candidates))
		}
		if len(summary.Failures) != 1 {
			t.Fatalf("expected 1 recorded failure, got %d", len(summary.Failures))
		}
		if summary.Failures[0].Stage != models.StageExpand {
			t.Errorf("expected expand stage, got %s", summary.Failures[0].Stage)
		}
		if summary.Failures[0].Subject != "Múm" {
			t.Errorf("expected subject Múm, got %s", summary.Failures[0].Subject)
		}
	})

	t.Run("Deterministic Order Across Workers", func(t *testing.T) {
		history := &tu.FakeHistory{
			SimilarArtistsFunc: func(ctx context.Context, artist string, limit int) ([]string, error) {
				return []string{"similar to " + artist}, nil
			},
		}
		engine := NewEngine(EngineOpts{History: history, Catalog: &tu.FakeCatalog{}})

		summary := &models.RunSummary{}
		candidates := engine.expandSeeds(t.Context(), seeds("A", "B", "C", "D"), 5, 4, nil, summary)

		expected := []string{"similar to A", "similar to B", "similar to C", "similar to D"}
		got := names(candidates)
		for i := range expected {
			if got[i] != expected[i] {
				t.Fatalf("expected seed-order candidates %v, got %v", expected, got)
			}
		}
	})
}
