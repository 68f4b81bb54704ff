package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ejmartin/freshwax/internal/models"
	"github.com/ejmartin/freshwax/internal/services"
	"github.com/ejmartin/freshwax/internal/shared"
	"github.com/ejmartin/freshwax/internal/tasks"
	"github.com/urfave/cli/v3"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1DB954"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	history services.History
	catalog services.Catalog
	auth    tasks.Authorizer
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// History, Catalog, and Auth are optional: when nil, the discover command
// builds the real clients from config. Tests inject doubles here.
type RunnerOpts struct {
	Config  *shared.Config
	History services.History
	Catalog services.Catalog
	Auth    tasks.Authorizer
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		history: opts.History,
		catalog: opts.Catalog,
		auth:    opts.Auth,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, discoverCommand, runsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeHeader(title string) {
	r.writePlain("%s\n", headerStyle.Render("═══════════════════════════════════════"))
	r.writePlain("%s\n", headerStyle.Render(title))
	r.writePlain("%s\n", headerStyle.Render("═══════════════════════════════════════"))
}

// writeSummary renders a run's accounting block.
func (r *Runner) writeSummary(summary *models.RunSummary) {
	r.writePlain("\n")
	r.writeHeader("Discovery Complete")
	r.writePlain("Seeds:      %d\n", summary.Seeds)
	r.writePlain("Candidates: %d\n", summary.Candidates)
	r.writePlain("Sampled:    %d\n", summary.Sampled)
	r.writePlain("Matched:    %d (unmatched %d)\n", summary.Matched, summary.Unmatched)
	r.writePlain("Added:      %d", summary.Added)
	if summary.AddFailed > 0 || summary.Duplicates > 0 {
		r.writePlain(" (%d failed, %d duplicates)", summary.AddFailed, summary.Duplicates)
	}
	r.writePlain("\n")

	if len(summary.Failures) > 0 {
		r.writePlain("\n%s\n", mutedStyle.Render(fmt.Sprintf("%d non-fatal failures:", len(summary.Failures))))
		for _, failure := range summary.Failures {
			r.writePlain("  - [%s] %s: %s\n", failure.Stage, failure.Subject, failure.Reason)
		}
	}

	if summary.PlaylistURL != "" {
		r.writePlain("\n🎵 Playlist: %s\n", summary.PlaylistURL)
	}
}
