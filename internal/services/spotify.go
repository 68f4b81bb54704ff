// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ejmartin/freshwax/internal/models"
	"github.com/ejmartin/freshwax/internal/shared"
	"golang.org/x/time/rate"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// MaxTracksPerAdd is the destination's hard cap on track IDs per add call.
const MaxTracksPerAdd = 100

// SpotifyArtist represents a Spotify artist reference.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Public       bool         `json:"public"`
	ExternalURLs externalURLs `json:"external_urls"`
	URI          string       `json:"uri"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type addTracksRequest struct {
	URIs []string `json:"uris"`
}

// SpotifyService implements the Catalog interface for Spotify API interactions.
//
// Every request pulls a fresh access token from the [TokenProvider], waits on
// the rate limiter, and retries 429/5xx responses honoring Retry-After.
type SpotifyService struct {
	baseURL     string
	tokens      TokenProvider
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
}

// SpotifyOpts contains optional overrides for NewSpotifyService.
type SpotifyOpts struct {
	BaseURL     string
	HTTPClient  *http.Client
	RateLimit   float64 // requests per second, default 8
	MaxAttempts int     // attempts per call, default 3
}

// NewSpotifyService creates a Spotify client backed by the given token provider.
func NewSpotifyService(tokens TokenProvider, opts SpotifyOpts) (*SpotifyService, error) {
	if tokens == nil {
		return nil, fmt.Errorf("%w: token provider required", shared.ErrNotAuthenticated)
	}

	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 8.0
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}

	return &SpotifyService{
		baseURL:     opts.BaseURL,
		tokens:      tokens,
		httpClient:  opts.HTTPClient,
		limiter:     rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		maxAttempts: opts.MaxAttempts,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// 429 and 5xx responses are retried up to maxAttempts times with exponential
// backoff, preferring the server's Retry-After hint when present.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	apiURL := s.baseURL + endpoint

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("request canceled: %w", err)
		}

		token, err := s.tokens.CurrentToken(ctx)
		if err != nil {
			return err
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		retryAfter, retriable := shouldRetry(resp, err)
		if !retriable {
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			return s.decodeResponse(resp, result)
		}

		if resp != nil {
			resp.Body.Close()
		}

		if attempt == s.maxAttempts-1 {
			if err != nil {
				return fmt.Errorf("%w: after %d attempts: %v", shared.ErrAPIRequest, s.maxAttempts, err)
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				return fmt.Errorf("%w: after %d attempts", shared.ErrRateLimited, s.maxAttempts)
			}
			return fmt.Errorf("%w: after %d attempts: status %d", shared.ErrAPIRequest, s.maxAttempts, resp.StatusCode)
		}

		backoff := defaultBaseBackoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}
		if err := sleepWithContext(ctx, backoff); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w: after %d attempts", shared.ErrAPIRequest, s.maxAttempts)
}

// decodeResponse checks the status code and decodes a JSON body into result.
func (s *SpotifyService) decodeResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: status 401", shared.ErrNotAuthenticated)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// CurrentUserID retrieves the authenticated user's ID.
func (s *SpotifyService) CurrentUserID(ctx context.Context) (string, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return "", err
	}
	return user.ID, nil
}

// SearchTrack searches the catalog for tracks and returns ranked results.
func (s *SpotifyService) SearchTrack(ctx context.Context, query string, limit int) ([]TrackResult, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)

	var response spotifySearchResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	results := make([]TrackResult, 0, len(response.Tracks.Items))
	for _, track := range response.Tracks.Items {
		result := TrackResult{ID: track.ID, Title: track.Name}
		if len(track.Artists) > 0 {
			result.Artist = track.Artists[0].Name
		}
		results = append(results, result)
	}
	return results, nil
}

// CreatePlaylist creates a playlist owned by the given user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID required", shared.ErrMissingArgument)
	}

	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	request := createPlaylistRequest{Name: name, Description: description, Public: public}

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, request, &playlist); err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:          playlist.ID,
		Name:        playlist.Name,
		Description: playlist.Description,
		Public:      playlist.Public,
		URL:         playlist.ExternalURLs.Spotify,
	}, nil
}

// AddTracks appends up to MaxTracksPerAdd track IDs to a playlist.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > MaxTracksPerAdd {
		return fmt.Errorf("%w: maximum %d tracks per add call, got %d", shared.ErrInvalidArgument, MaxTracksPerAdd, len(ids))
	}

	uris := make([]string, 0, len(ids))
	for _, id := range ids {
		uris = append(uris, "spotify:track:"+id)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, addTracksRequest{URIs: uris}, nil)
}
