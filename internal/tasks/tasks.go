// package tasks implements the discovery pipeline.
//
// The core abstraction is [Engine], which sequences the stages: seed artists
// from listening history, similarity expansion, per-artist track sampling,
// catalog resolution, and playlist population. Fan-out stages run on a
// bounded worker pool; per-unit failures are collected into the
// [models.RunSummary] rather than aborting the run. Operations emit progress
// updates via channels for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/ejmartin/freshwax/internal/models"
	"github.com/ejmartin/freshwax/internal/services"
	"github.com/ejmartin/freshwax/internal/shared"
)

// Authorizer drives the interactive consent step before destination calls.
type Authorizer interface {
	Authorize(ctx context.Context, onURL func(url string)) error
}

// Engine orchestrates a discovery run.
type Engine struct {
	history services.History
	catalog services.Catalog
	auth    Authorizer
	onURL   func(url string)
}

// EngineOpts contains dependencies for NewEngine.
type EngineOpts struct {
	History services.History
	Catalog services.Catalog
	Auth    Authorizer       // nil when the caller authorizes up front
	OnURL   func(url string) // receives the consent URL during Authorize
}

// NewEngine creates an Engine with the provided services.
func NewEngine(opts EngineOpts) *Engine {
	return &Engine{
		history: opts.History,
		catalog: opts.Catalog,
		auth:    opts.Auth,
		onURL:   opts.OnURL,
	}
}

// RunOpts contains per-run parameters.
type RunOpts struct {
	User        string // history service username
	Period      string // trailing window, e.g. "6month"
	PageLimit   int    // history page-count ceiling
	Limit       int    // candidates per seed
	PerArtist   int    // sampled tracks per candidate
	Concurrency int    // worker pool size per fan-out stage

	UserID      string // destination user ID; resolved via the catalog when empty
	Name        string // playlist name
	Description string // playlist description
	Public      bool
}

func (o *RunOpts) withDefaults() {
	if o.Period == "" {
		o.Period = "6month"
	}
	if o.PageLimit <= 0 {
		o.PageLimit = 5
	}
	if o.Limit <= 0 {
		o.Limit = 5
	}
	if o.PerArtist <= 0 {
		o.PerArtist = 3
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.Concurrency > 8 {
		o.Concurrency = 8
	}
	if o.Name == "" {
		o.Name = fmt.Sprintf("Last.fm Discoveries - %s", time.Now().Format("2006-01-02"))
	}
	if o.Description == "" {
		o.Description = "Fresh music recommendations based on your Last.fm history"
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Run executes the full discovery pipeline and returns the run's accounting.
//
// Only three failures abort a run: an unavailable history service, a denied
// consent, and an expired credential. Everything else is recorded in the
// summary and the pipeline keeps going; a playlist with fewer tracks than
// sampled is the expected outcome under real-world API flakiness.
func (e *Engine) Run(ctx context.Context, opts RunOpts, progress chan<- ProgressUpdate) (*models.RunSummary, error) {
	if e.history == nil || e.catalog == nil {
		return nil, fmt.Errorf("%w: engine services not initialized", shared.ErrServiceUnavailable)
	}

	opts.withDefaults()

	summary := &models.RunSummary{
		RunID:     shared.GenerateID(),
		StartedAt: time.Now(),
	}

	sendProgress(progress, fetchSeedsUpdate(opts.User))
	seeds, err := e.fetchSeeds(ctx, opts.User, opts.Period, opts.PageLimit)
	if err != nil {
		return nil, err
	}
	summary.Seeds = len(seeds)
	sendProgress(progress, seedsFoundUpdate(len(seeds)))

	if len(seeds) == 0 {
		summary.FinishedAt = time.Now()
		return summary, nil
	}

	candidates := e.expandSeeds(ctx, seeds, opts.Limit, opts.Concurrency, progress, summary)
	summary.Candidates = len(candidates)

	sampled := e.sampleTracks(ctx, candidates, opts.PerArtist, opts.Concurrency, progress, summary)
	summary.Sampled = len(sampled)

	if len(sampled) == 0 {
		summary.FinishedAt = time.Now()
		return summary, nil
	}

	// Consent must complete before the first destination call.
	if e.auth != nil {
		sendProgress(progress, authorizeUpdate())
		if err := e.auth.Authorize(ctx, e.onURL); err != nil {
			return nil, err
		}
	}

	resolved, err := e.resolveTracks(ctx, sampled, opts.Concurrency, progress, summary)
	if err != nil {
		return nil, err
	}
	summary.Matched = len(resolved)
	summary.Unmatched = summary.Sampled - summary.Matched

	if len(resolved) == 0 {
		summary.FinishedAt = time.Now()
		return summary, nil
	}

	userID := opts.UserID
	if userID == "" {
		if userID, err = e.catalog.CurrentUserID(ctx); err != nil {
			return nil, fmt.Errorf("failed to resolve destination user: %w", err)
		}
	}

	builder := NewPlaylistBuilder(e.catalog)
	playlist, err := builder.Create(ctx, userID, opts.Name, opts.Description, opts.Public)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	summary.PlaylistID = playlist.ID
	summary.PlaylistURL = playlist.URL
	sendProgress(progress, createPlaylistUpdate(playlist))

	ids := make([]string, 0, len(resolved))
	for _, track := range resolved {
		ids = append(ids, track.DestinationID)
	}

	added, duplicates, failures, err := builder.AddTracks(ctx, ids, progress)
	if err != nil {
		return nil, err
	}
	summary.Added = added
	summary.Duplicates = duplicates
	summary.AddFailed = len(ids) - added - duplicates
	summary.Failures = append(summary.Failures, failures...)

	summary.FinishedAt = time.Now()
	return summary, nil
}

// recordFailure appends a non-fatal failure to the summary.
func recordFailure(summary *models.RunSummary, stage models.FailureStage, subject string, err error) {
	summary.Failures = append(summary.Failures, models.Failure{
		Stage:   stage,
		Subject: subject,
		Reason:  err.Error(),
	})
}
