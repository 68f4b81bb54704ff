package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ejmartin/freshwax/internal/shared"
)

// newLastFMTestService points a client with aggressive rate/retry settings at
// a test server.
func newLastFMTestService(t *testing.T, handler http.HandlerFunc) *LastFMService {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewLastFMService("test-key", LastFMOpts{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		RateLimit:  1000,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func TestLastFMService(t *testing.T) {
	t.Run("NewLastFMService", func(t *testing.T) {
		t.Run("Missing API Key", func(t *testing.T) {
			if _, err := NewLastFMService("", LastFMOpts{}); err == nil {
				t.Error("expected error for missing api key")
			}
		})

		t.Run("Name", func(t *testing.T) {
			svc, err := NewLastFMService("key", LastFMOpts{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.Name() != "Last.fm" {
				t.Errorf("expected service name 'Last.fm', got %s", svc.Name())
			}
		})
	})

	t.Run("TopAlbums", func(t *testing.T) {
		t.Run("Parses Page", func(t *testing.T) {
			svc := newLastFMTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("method"); got != "user.gettopalbums" {
					t.Errorf("expected method user.gettopalbums, got %s", got)
				}
				if got := r.URL.Query().Get("api_key"); got != "test-key" {
					t.Errorf("expected api_key to be sent, got %s", got)
				}
				fmt.Fprint(w, `{
					"topalbums": {
						"album": [
							{"name": "Geogaddi", "artist": {"name": "Boards of Canada"}},
							{"name": "Rounds", "artist": {"name": "Four Tet"}}
						],
						"@attr": {"page": "1", "totalPages": "3"}
					}
				}`)
			})

			page, err := svc.TopAlbums(context.Background(), "listener", "6month", 1)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(page.Albums) != 2 {
				t.Fatalf("expected 2 albums, got %d", len(page.Albums))
			}
			if page.Albums[0].Artist != "Boards of Canada" {
				t.Errorf("expected first artist Boards of Canada, got %s", page.Albums[0].Artist)
			}
			if page.TotalPages != 3 {
				t.Errorf("expected 3 total pages, got %d", page.TotalPages)
			}
		})

		t.Run("API Error Envelope", func(t *testing.T) {
			svc := newLastFMTestService(t, func(w http.ResponseWriter, r *http.Request) {
				// Last.fm delivers errors with a 200 on some endpoints.
				fmt.Fprint(w, `{"error": 6, "message": "User not found"}`)
			})

			_, err := svc.TopAlbums(context.Background(), "ghost", "6month", 1)
			if err == nil {
				t.Fatal("expected error from API error envelope")
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Retries Server Errors", func(t *testing.T) {
			var calls atomic.Int32
			svc := newLastFMTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				fmt.Fprint(w, `{"topalbums": {"album": [], "@attr": {"page": "1", "totalPages": "1"}}}`)
			})

			if _, err := svc.TopAlbums(context.Background(), "listener", "6month", 1); err != nil {
				t.Fatalf("expected retry to succeed, got %v", err)
			}
			if calls.Load() != 2 {
				t.Errorf("expected 2 calls, got %d", calls.Load())
			}
		})
	})

	t.Run("SimilarArtists", func(t *testing.T) {
		svc := newLastFMTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("artist"); got != "Múm" {
				t.Errorf("expected artist Múm, got %s", got)
			}
			fmt.Fprint(w, `{
				"similarartists": {
					"artist": [
						{"name": "Amiina", "match": "1.0"},
						{"name": "Seabear", "match": "0.8"}
					]
				}
			}`)
		})

		names, err := svc.SimilarArtists(context.Background(), "Múm", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(names) != 2 || names[0] != "Amiina" {
			t.Errorf("expected [Amiina Seabear] in order, got %v", names)
		}
	})

	t.Run("AlbumTracks", func(t *testing.T) {
		t.Run("Track Array", func(t *testing.T) {
			svc := newLastFMTestService(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{
					"album": {
						"name": "Finally We Are No One",
						"tracks": {"track": [
							{"name": "Green Grass of Tunnel"},
							{"name": "We Have a Map of the Piano"}
						]}
					}
				}`)
			})

			titles, err := svc.AlbumTracks(context.Background(), "Múm", "Finally We Are No One")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(titles) != 2 {
				t.Errorf("expected 2 tracks, got %d", len(titles))
			}
		})

		t.Run("Single Track Object", func(t *testing.T) {
			svc := newLastFMTestService(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{
					"album": {
						"name": "Single",
						"tracks": {"track": {"name": "Only Song"}}
					}
				}`)
			})

			titles, err := svc.AlbumTracks(context.Background(), "Someone", "Single")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(titles) != 1 || titles[0] != "Only Song" {
				t.Errorf("expected [Only Song], got %v", titles)
			}
		})
	})
}
