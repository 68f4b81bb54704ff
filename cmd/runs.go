package main

import (
	"context"

	"github.com/ejmartin/freshwax/internal/repositories"
	"github.com/ejmartin/freshwax/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runs lists recent discovery runs from the local database.
func (r *Runner) Runs(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return err
	}

	repo := repositories.NewRunRepository(db)

	if id := cmd.String("id"); id != "" {
		summary, err := repo.Get(id)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(summary, true)
		}
		r.writeSummary(summary)
		return nil
	}

	summaries, err := repo.List(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(summaries, true)
	}

	if len(summaries) == 0 {
		r.writePlain("No runs recorded yet. Try `freshwax discover`.\n")
		return nil
	}

	r.writeHeader("Recent Runs")
	for _, summary := range summaries {
		r.writePlain("%s  %s\n", summary.StartedAt.Local().Format("2006-01-02 15:04"), summary.RunID)
		r.writePlain("  sampled %d, added %d, unmatched %d, failed %d\n",
			summary.Sampled, summary.Added, summary.Unmatched, summary.AddFailed)
		if summary.PlaylistURL != "" {
			r.writePlain("  %s\n", mutedStyle.Render(summary.PlaylistURL))
		}
	}
	return nil
}

// runsCommand lists or inspects recorded discovery runs.
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recent discovery runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "Show a single run by ID",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "Maximum number of runs to list",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output as JSON",
			},
		},
		Action: r.Runs,
	}
}
