package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchlog/internal/app"
	"github.com/riskibarqy/matchlog/internal/config"
	"github.com/riskibarqy/matchlog/internal/domain/competition"
	"github.com/riskibarqy/matchlog/internal/domain/match"
	"github.com/riskibarqy/matchlog/internal/platform/logging"
	"github.com/riskibarqy/matchlog/internal/usecase"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// needsProviderAnnotation marks commands that call API-Football and so need a key.
	needsProviderAnnotation = "matchlog/needs-provider"
	// offlineAnnotation marks commands that open neither the database nor the provider.
	offlineAnnotation = "matchlog/offline"
)

var cliTracer = otel.Tracer("matchlog/cmd/matchlog")

type cli struct {
	stdout io.Writer
	stderr io.Writer

	dbPath  string
	jsonOut bool

	app  *app.App
	span trace.Span
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{stdout: stdout, stderr: stderr}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "matchlog",
		Short:         "Record football matches you watched, backed by API-Football",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "database file (overrides MATCHLOG_DB_PATH)")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print JSON instead of text")
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if isBuiltinCommand(cmd) || cmd.Annotations[offlineAnnotation] == "true" {
			return nil
		}
		if _, err := c.open(cmd.Context(), cmd.Annotations[needsProviderAnnotation] == "true"); err != nil {
			return err
		}
		ctx, span := cliTracer.Start(cmd.Context(), "matchlog."+cmd.Name())
		c.span = span
		cmd.SetContext(ctx)
		return nil
	}

	root.AddCommand(
		c.recordCommand(),
		c.listCommand(),
		c.showCommand(),
		c.noteCommand(),
		c.unwatchCommand(),
		c.syncCommand(),
		c.competitionsCommand(),
		c.teamsCommand(),
		c.exportCommand(),
		c.migrateCommand(),
	)
	return root
}

// open loads configuration and wires the application once per invocation.
func (c *cli) open(ctx context.Context, needsProvider bool) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", usecase.ErrValidation, err)
	}
	if c.dbPath != "" {
		cfg.DBPath = c.dbPath
	}
	if needsProvider {
		if err := cfg.RequireProvider(); err != nil {
			return nil, crerr.WithHint(
				fmt.Errorf("%w: %w", usecase.ErrValidation, err),
				"get a key at https://dashboard.api-football.com and export API_FOOTBALL_KEY",
			)
		}
	}

	logger := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: logging.FormatConsole,
		Output: c.stderr,
	})
	logging.SetDefault(logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func isBuiltinCommand(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		switch cmd.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

// finish ends the command span, recording err on it.
func (c *cli) finish(err error) {
	if c.span == nil {
		return
	}
	if err != nil {
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, usecase.KindOf(err))
	}
	c.span.End()
	c.span = nil
}

func (c *cli) close() {
	c.finish(nil)
	if c.app == nil {
		return
	}
	if err := c.app.Close(context.Background()); err != nil {
		fmt.Fprintf(c.stderr, "warning: %v\n", err)
	}
	_ = c.app.Logger.Sync()
	c.app = nil
}

const recordLong = `Fetch a match from API-Football and store it as watched.

Reference forms:
  12345 or id:12345                 fixture id
  team=121&date=2024-05-01          team and kickoff date
  ...&league=brasileirao_a          competition slug or league id
  ...&season=2024                   season year`

func (c *cli) recordCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "record <reference>",
		Annotations: map[string]string{needsProviderAnnotation: "true"},
		Short:       "Fetch a match upstream and store it as watched",
		Long:        recordLong,
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			item, err := a.Ingestion.RecordMatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printMatch(item)
		},
	}
}

func (c *cli) listCommand() *cobra.Command {
	var filter match.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored matches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			items, err := a.MatchSvc.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(c.stdout, toMatchViews(items))
			}
			if len(items) == 0 {
				fmt.Fprintln(c.stdout, "no matches stored")
				return nil
			}
			for _, item := range items {
				fmt.Fprintln(c.stdout, summary(item))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Team, "team", "", "team name substring")
	cmd.Flags().StringSliceVar(&filter.Statuses, "status", nil, "statuses, repeatable or comma separated (SCHEDULED, LIVE, FINISHED, POSTPONED, CANCELLED)")
	cmd.Flags().BoolVar(&filter.WatchedOnly, "watched", false, "only matches recorded as watched")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum rows")
	return cmd
}

func (c *cli) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <external_id>",
		Short: "Show one stored match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			externalID, err := parseExternalID(args[0])
			if err != nil {
				return err
			}
			a := c.app
			item, err := a.MatchSvc.Find(cmd.Context(), externalID)
			if err != nil {
				return err
			}
			return c.printMatch(item)
		},
	}
}

func (c *cli) noteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "note <external_id> <text>",
		Short: "Set the personal note of a stored match",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			externalID, err := parseExternalID(args[0])
			if err != nil {
				return err
			}
			a := c.app
			item, err := a.MatchSvc.UpdateNote(cmd.Context(), externalID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return c.printMatch(item)
		},
	}
}

func (c *cli) unwatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unwatch <external_id>",
		Short: "Clear the watched flag of a stored match, keeping its note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			externalID, err := parseExternalID(args[0])
			if err != nil {
				return err
			}
			a := c.app
			item, err := a.MatchSvc.Unwatch(cmd.Context(), externalID)
			if err != nil {
				return err
			}
			return c.printMatch(item)
		},
	}
}

func (c *cli) syncCommand() *cobra.Command {
	var (
		teamID int64
		league string
		season int
	)
	cmd := &cobra.Command{
		Use:         "sync",
		Annotations: map[string]string{needsProviderAnnotation: "true"},
		Short:       "Import a team's fixtures for one competition season",
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			leagueID, ok := competition.ResolveLeagueID(league)
			if !ok {
				return fmt.Errorf("%w: unknown competition %q", usecase.ErrValidation, league)
			}
			a := c.app
			result, err := a.Ingestion.SyncTeamFixtures(cmd.Context(), usecase.SyncInput{
				TeamID:   teamID,
				LeagueID: leagueID,
				Season:   season,
			})
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(c.stdout, result)
			}
			fmt.Fprintf(c.stdout, "fetched %d fixtures: %d created, %d updated, %d failed\n",
				result.Fetched, result.CreatedCount, result.UpdatedCount, result.FailedCount)
			for _, fixture := range result.Fixtures {
				if fixture.Error != "" {
					fmt.Fprintf(c.stdout, "  #%d failed: %s\n", fixture.ExternalID, fixture.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&teamID, "team", 0, "API-Football team id")
	cmd.Flags().StringVar(&league, "competition", competition.DefaultSlug,
		"competition slug ("+strings.Join(competitionSlugs(), ", ")+") or league id")
	cmd.Flags().IntVar(&season, "season", 0, "season year")
	_ = cmd.MarkFlagRequired("team")
	_ = cmd.MarkFlagRequired("season")
	return cmd
}

func (c *cli) competitionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "competitions",
		Annotations: map[string]string{offlineAnnotation: "true"},
		Short:       "List the competition slugs accepted by sync and record",
		Args:        cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			items := competition.All()
			if c.jsonOut {
				return writeJSON(c.stdout, toCompetitionViews(items))
			}
			for _, item := range items {
				fmt.Fprintf(c.stdout, "%s\t%d\t%s\n", item.Slug, item.LeagueID, item.Name)
			}
			return nil
		},
	}
}

func competitionSlugs() []string {
	items := competition.All()
	slugs := make([]string, 0, len(items))
	for _, item := range items {
		slugs = append(slugs, item.Slug)
	}
	return slugs
}

func (c *cli) teamsCommand() *cobra.Command {
	var country string
	cmd := &cobra.Command{
		Use:         "teams <name>",
		Annotations: map[string]string{needsProviderAnnotation: "true"},
		Short:       "Search API-Football teams by name",
		Args:        cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			teams, err := a.Client.SearchTeams(cmd.Context(), strings.Join(args, " "), country)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(c.stdout, teams)
			}
			if len(teams) == 0 {
				fmt.Fprintln(c.stdout, "no teams found")
				return nil
			}
			for _, team := range teams {
				fmt.Fprintf(c.stdout, "%d\t%s\t%s", team.ID, team.Name, team.Country)
				if team.VenueName != "" {
					fmt.Fprintf(c.stdout, "\t%s", team.VenueName)
				}
				fmt.Fprintln(c.stdout)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "country filter")
	return cmd
}

func (c *cli) exportCommand() *cobra.Command {
	var (
		out    string
		filter match.Filter
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored matches as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			items, err := a.MatchSvc.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				return writeCSV(c.stdout, items)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := writeCSV(f, items); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			fmt.Fprintf(c.stderr, "exported %d matches to %s\n", len(items), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&filter.WatchedOnly, "watched", false, "only matches recorded as watched")
	return cmd
}

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			count, err := a.MatchSvc.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "schema up to date at %s (%d matches)\n", a.DB.Path(), count)
			return nil
		},
	}
}

func (c *cli) printMatch(item match.Match) error {
	if c.jsonOut {
		return writeJSON(c.stdout, toMatchView(item))
	}
	fmt.Fprintln(c.stdout, summary(item))
	return nil
}

func parseExternalID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: external id must be a positive integer, got %q", usecase.ErrValidation, raw)
	}
	return id, nil
}
