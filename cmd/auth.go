package main

import (
	"context"

	"github.com/ejmartin/freshwax/internal/auth"
	"github.com/ejmartin/freshwax/internal/shared"
	"github.com/urfave/cli/v3"
)

// Auth runs the Spotify consent flow on its own, without starting a
// discovery run. Useful for verifying credentials.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	authorizer := r.auth
	if authorizer == nil {
		manager, err := auth.NewManager(auth.Opts{
			ClientID:       r.config.Credentials.Spotify.ClientID,
			ClientSecret:   r.config.Credentials.Spotify.ClientSecret,
			RedirectURI:    r.config.Credentials.Spotify.RedirectURI,
			CallbackHost:   r.config.Server.Host,
			CallbackPort:   r.config.Server.Port,
			ConsentTimeout: consentTimeout(r.config.Discovery.ConsentTimeoutSecs),
		})
		if err != nil {
			return err
		}
		authorizer = manager
	}

	err := authorizer.Authorize(ctx, func(url string) {
		r.writePlain("🔐 Authorize freshwax in your browser:\n%s\n\n", url)
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warnf("failed to open browser: %v", err)
		}
	})
	if err != nil {
		return err
	}

	r.writePlain("✅ Spotify authorization successful\n")
	return nil
}

// authCommand verifies Spotify credentials via the consent flow.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authorize with Spotify without running a discovery",
		Action: r.Auth,
	}
}
