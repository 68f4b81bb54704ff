package main

import (
	"context"

	"github.com/ejmartin/freshwax/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates a starter config file and initializes the run-history database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		r.logger.Warnf("config file not created: %v", err)
	} else {
		r.writePlain("✅ Created %s\n", path)
		r.writePlain("Fill in your Last.fm and Spotify credentials, or set them in .env\n")
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		r.writePlain("✅ Rolled back latest migration\n")
		return nil
	}

	if err := shared.RunMigrations(db); err != nil {
		return err
	}
	r.writePlain("✅ Database ready at %s\n", r.config.Database.Path)
	return nil
}

// setupCommand initializes configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file and initialize the run-history database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.toml",
				Usage: "Path for the generated config file",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent database migration",
			},
		},
		Action: r.Setup,
	}
}
