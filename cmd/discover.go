package main

import (
	"context"
	"time"

	"github.com/ejmartin/freshwax/internal/auth"
	"github.com/ejmartin/freshwax/internal/models"
	"github.com/ejmartin/freshwax/internal/repositories"
	"github.com/ejmartin/freshwax/internal/services"
	"github.com/ejmartin/freshwax/internal/shared"
	"github.com/ejmartin/freshwax/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Discover runs the full discovery pipeline: Last.fm history → similar
// artists → sampled tracks → Spotify playlist.
func (r *Runner) Discover(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	history, catalog, authorizer, err := r.buildServices()
	if err != nil {
		return err
	}

	r.logger.Info("starting discovery run",
		"user", r.config.Credentials.LastFM.Username,
		"window_months", r.config.Discovery.WindowMonths)
	r.writePlain("Discovering new music for %s...\n\n", r.config.Credentials.LastFM.Username)

	engine := tasks.NewEngine(tasks.EngineOpts{
		History: history,
		Catalog: catalog,
		Auth:    authorizer,
		OnURL: func(url string) {
			r.writePlain("\n🔐 Authorize freshwax in your browser:\n%s\n\n", url)
			if err := shared.OpenBrowser(url); err != nil {
				r.logger.Warnf("failed to open browser: %v", err)
			}
		},
	})

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSeeds:
				r.writePlain("📊 %s\n", update.Message)
			case tasks.ExpandSeeds:
				r.writePlain("🔍 %s\n", update.Message)
			case tasks.SampleTracks:
				r.writePlain("🎲 %s\n", update.Message)
			case tasks.Authorize:
				r.writePlain("🔐 %s\n", update.Message)
			case tasks.ResolveTracks:
				r.writePlain("   %s\n", update.Message)
			case tasks.CreatePlaylist, tasks.AddTracks:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	summary, err := engine.Run(ctx, tasks.RunOpts{
		User:        r.config.Credentials.LastFM.Username,
		Period:      periodForMonths(r.config.Discovery.WindowMonths),
		PageLimit:   r.config.Discovery.PageLimit,
		Limit:       r.config.Discovery.CandidateLimit,
		PerArtist:   r.config.Discovery.PerArtistCap,
		Concurrency: r.config.Discovery.Concurrency,
		UserID:      r.config.Credentials.Spotify.UserID,
		Name:        cmd.String("name"),
		Description: cmd.String("description"),
		Public:      cmd.Bool("public"),
	}, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writeSummary(summary)
	r.recordRun(summary)

	if summary.PlaylistURL != "" && cmd.Bool("open") {
		if err := shared.OpenBrowser(summary.PlaylistURL); err != nil {
			r.logger.Warnf("failed to open playlist: %v", err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}
	return nil
}

// buildServices constructs the real clients from config, unless the Runner
// was created with injected doubles.
func (r *Runner) buildServices() (services.History, services.Catalog, tasks.Authorizer, error) {
	history := r.history
	catalog := r.catalog
	authorizer := r.auth

	if history == nil {
		svc, err := services.NewLastFMService(r.config.Credentials.LastFM.APIKey, services.LastFMOpts{})
		if err != nil {
			return nil, nil, nil, err
		}
		history = svc
	}

	if catalog == nil {
		manager, err := auth.NewManager(auth.Opts{
			ClientID:       r.config.Credentials.Spotify.ClientID,
			ClientSecret:   r.config.Credentials.Spotify.ClientSecret,
			RedirectURI:    r.config.Credentials.Spotify.RedirectURI,
			CallbackHost:   r.config.Server.Host,
			CallbackPort:   r.config.Server.Port,
			ConsentTimeout: consentTimeout(r.config.Discovery.ConsentTimeoutSecs),
		})
		if err != nil {
			return nil, nil, nil, err
		}

		svc, err := services.NewSpotifyService(manager, services.SpotifyOpts{})
		if err != nil {
			return nil, nil, nil, err
		}
		catalog = svc
		if authorizer == nil {
			authorizer = manager
		}
	}

	return history, catalog, authorizer, nil
}

// recordRun persists the summary to the run-history database. Persistence
// problems never fail a completed run.
func (r *Runner) recordRun(summary *models.RunSummary) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		r.logger.Warnf("run not recorded: %v", err)
		return
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		r.logger.Warnf("run not recorded: %v", err)
		return
	}

	if err := repositories.NewRunRepository(db).Save(summary); err != nil {
		r.logger.Warnf("run not recorded: %v", err)
		return
	}
	r.logger.Info("run recorded", "run_id", summary.RunID)
}

// periodForMonths maps a window in months onto the history service's period labels.
func periodForMonths(months int) string {
	switch {
	case months <= 1:
		return "1month"
	case months <= 3:
		return "3month"
	case months <= 6:
		return "6month"
	case months <= 12:
		return "12month"
	default:
		return "overall"
	}
}

func consentTimeout(secs int) time.Duration {
	if secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// discoverCommand builds and populates a discovery playlist.
func discoverCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "Build a Spotify playlist of new music from your Last.fm history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "Playlist name (default: \"Last.fm Discoveries - <date>\")",
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Playlist description",
			},
			&cli.BoolFlag{
				Name:  "public",
				Usage: "Create a public playlist instead of a private one",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the playlist in your browser when done",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Also print the run summary as JSON",
			},
		},
		Action: r.Discover,
	}
}
