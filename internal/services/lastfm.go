// Last.fm API implementation of [History]
//
// Response types based on https://www.last.fm/api (audioscrobbler 2.0)
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ejmartin/freshwax/internal/shared"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

const lastfmBaseURL = "http://ws.audioscrobbler.com/2.0/"

// lastfmArtist is an artist reference nested in album responses.
type lastfmArtist struct {
	Name string `json:"name"`
}

// lastfmAlbum is an album entry in a topalbums response.
type lastfmAlbum struct {
	Name   string       `json:"name"`
	Artist lastfmArtist `json:"artist"`
}

// lastfmAttr carries pagination metadata. Last.fm encodes numbers as strings.
type lastfmAttr struct {
	Page       string `json:"page"`
	TotalPages string `json:"totalPages"`
}

type lastfmTopAlbums struct {
	TopAlbums struct {
		Album []lastfmAlbum `json:"album"`
		Attr  lastfmAttr    `json:"@attr"`
	} `json:"topalbums"`
}

type lastfmSimilarArtists struct {
	SimilarArtists struct {
		Artist []struct {
			Name  string `json:"name"`
			Match string `json:"match"`
		} `json:"artist"`
	} `json:"similarartists"`
}

// trackList tolerates Last.fm's habit of returning a bare object instead of
// an array when an album has a single track.
type trackList struct {
	Track []struct {
		Name string `json:"name"`
	}
}

func (t *trackList) UnmarshalJSON(data []byte) error {
	var multi struct {
		Track []struct {
			Name string `json:"name"`
		} `json:"track"`
	}
	if err := json.Unmarshal(data, &multi); err == nil {
		t.Track = multi.Track
		return nil
	}

	var single struct {
		Track struct {
			Name string `json:"name"`
		} `json:"track"`
	}
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single.Track.Name != "" {
		t.Track = append(t.Track[:0], single.Track)
	}
	return nil
}

type lastfmAlbumInfo struct {
	Album struct {
		Name   string    `json:"name"`
		Tracks trackList `json:"tracks"`
	} `json:"album"`
}

// lastfmError is the service's error envelope, delivered with either a 2xx
// or 4xx status depending on the endpoint.
type lastfmError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

// LastFMService implements the History interface against the Last.fm API.
type LastFMService struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts uint64
}

// LastFMOpts contains optional overrides for NewLastFMService.
type LastFMOpts struct {
	BaseURL     string
	HTTPClient  *http.Client
	RateLimit   float64 // requests per second, default 5
	MaxAttempts uint64  // retry attempts per call, default 3
}

// NewLastFMService creates a Last.fm client with the given API key.
func NewLastFMService(apiKey string, opts LastFMOpts) (*LastFMService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: lastfm api key", shared.ErrMissingCredentials)
	}

	if opts.BaseURL == "" {
		opts.BaseURL = lastfmBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}

	return &LastFMService{
		baseURL:     opts.BaseURL,
		apiKey:      apiKey,
		httpClient:  opts.HTTPClient,
		limiter:     rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		maxAttempts: opts.MaxAttempts,
	}, nil
}

func (s *LastFMService) Name() string {
	return "Last.fm"
}

// doRequest performs a GET against the Last.fm API, retrying transient
// failures with exponential backoff.
func (s *LastFMService) doRequest(ctx context.Context, method string, params url.Values, result any) error {
	params.Set("method", method)
	params.Set("api_key", s.apiKey)
	params.Set("format", "json")
	apiURL := s.baseURL + "?" + params.Encode()

	backoff := retry.WithMaxRetries(s.maxAttempts-1, retry.NewExponential(defaultBaseBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("request failed: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode))
		}

		var envelope json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		// Errors arrive in the body regardless of status code.
		var apiErr lastfmError
		if err := json.Unmarshal(envelope, &apiErr); err == nil && apiErr.Code != 0 {
			return fmt.Errorf("%w: lastfm error %d: %s", shared.ErrAPIRequest, apiErr.Code, apiErr.Message)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
		}

		if result != nil {
			if err := json.Unmarshal(envelope, result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	})
}

// TopAlbums fetches one page of the user's top albums for the given period
// (e.g. "6month").
func (s *LastFMService) TopAlbums(ctx context.Context, user, period string, page int) (*TopAlbumsPage, error) {
	if page <= 0 {
		page = 1
	}

	params := url.Values{}
	params.Set("user", user)
	params.Set("period", period)
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", "50")

	var response lastfmTopAlbums
	if err := s.doRequest(ctx, "user.gettopalbums", params, &response); err != nil {
		return nil, err
	}

	result := &TopAlbumsPage{Page: page, TotalPages: 1}
	if n, err := strconv.Atoi(response.TopAlbums.Attr.TotalPages); err == nil && n > 0 {
		result.TotalPages = n
	}
	for _, album := range response.TopAlbums.Album {
		result.Albums = append(result.Albums, Album{
			Name:   album.Name,
			Artist: album.Artist.Name,
		})
	}
	return result, nil
}

// SimilarArtists returns up to limit artist names similar to the given one,
// in the service's own similarity order.
func (s *LastFMService) SimilarArtists(ctx context.Context, artist string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("artist", artist)
	params.Set("limit", strconv.Itoa(limit))

	var response lastfmSimilarArtists
	if err := s.doRequest(ctx, "artist.getsimilar", params, &response); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(response.SimilarArtists.Artist))
	for _, similar := range response.SimilarArtists.Artist {
		names = append(names, similar.Name)
	}
	return names, nil
}

// ArtistTopAlbums returns up to limit of the artist's most played albums.
func (s *LastFMService) ArtistTopAlbums(ctx context.Context, artist string, limit int) ([]Album, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("artist", artist)
	params.Set("limit", strconv.Itoa(limit))

	var response lastfmTopAlbums
	if err := s.doRequest(ctx, "artist.gettopalbums", params, &response); err != nil {
		return nil, err
	}

	albums := make([]Album, 0, len(response.TopAlbums.Album))
	for _, album := range response.TopAlbums.Album {
		albums = append(albums, Album{Name: album.Name, Artist: album.Artist.Name})
	}
	return albums, nil
}

// AlbumTracks returns the track titles of a specific album.
func (s *LastFMService) AlbumTracks(ctx context.Context, artist, album string) ([]string, error) {
	params := url.Values{}
	params.Set("artist", artist)
	params.Set("album", album)

	var response lastfmAlbumInfo
	if err := s.doRequest(ctx, "album.getinfo", params, &response); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(response.Album.Tracks.Track))
	for _, track := range response.Album.Tracks.Track {
		titles = append(titles, track.Name)
	}
	return titles, nil
}
