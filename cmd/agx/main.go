package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/agx/internal"
	"github.com/starford/agx/internal/models"
	"github.com/starford/agx/internal/proposalservice"
	pkgconfig "github.com/starford/agx/pkg/config"
)

var version = "dev"

var errNoAuthor = errors.New("--author is required and git user.name is not configured")

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, *internal.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithLogger(logger),
		internal.WithDefaultAuthor(gitUserName),
	}, cfg, nil
}

// title picks --title, then --title-parts joined with "_", then the
// positional words joined with spaces.
func title(cmd *cli.Command) string {
	if t := cmd.String("title"); t != "" {
		return t
	}
	if parts := cmd.StringSlice("title-parts"); len(parts) > 0 {
		return strings.Join(parts, "_")
	}
	return strings.Join(cmd.Args().Slice(), " ")
}

func optional(cmd *cli.Command, name string) *string {
	if !cmd.IsSet(name) {
		return nil
	}
	v := cmd.String(name)
	return &v
}

func runInit(_ context.Context, cmd *cli.Command) error {
	opts, _, err := options(cmd)
	if err != nil {
		return err
	}
	_, paths, err := internal.Init(opts...)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

func runNew(ctx context.Context, cmd *cli.Command) error {
	opts, cfg, err := options(cmd)
	if err != nil {
		return err
	}
	authors := cmd.StringSlice("author")
	if len(authors) == 0 {
		name := cfg.Corpus.DefaultAuthor
		if name == "" {
			name = gitUserName()
		}
		if name == "" {
			return errNoAuthor
		}
		authors = []string{name}
	}

	ws, err := internal.Open(opts...)
	if err != nil {
		return err
	}
	defer ws.Close()

	res, err := ws.Service.Create(ctx, proposalservice.CreateRequest{
		Title:         title(cmd),
		Authors:       authors,
		Agents:        cmd.StringSlice("agent"),
		Discussion:    cmd.String("discussion"),
		TrackingIssue: cmd.String("tracking-issue"),
		Prerequisite:  cmd.StringSlice("prerequisite"),
		Supersedes:    cmd.StringSlice("supersedes"),
		SupersededBy:  cmd.StringSlice("superseded-by"),
	})
	if err != nil {
		return err
	}
	fmt.Println(filepath.Join(ws.Layout.CorpusDir, res.Path))
	return nil
}

func runRevise(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("revise takes exactly one proposal (id, file name or title)")
	}
	opts, _, err := options(cmd)
	if err != nil {
		return err
	}
	ws, err := internal.Open(opts...)
	if err != nil {
		return err
	}
	defer ws.Close()

	req := models.EditRequest{
		Authors:       cmd.StringSlice("author"),
		Agents:        cmd.StringSlice("agent"),
		Discussion:    optional(cmd, "discussion"),
		TrackingIssue: optional(cmd, "tracking-issue"),
		Prerequisite:  cmd.StringSlice("prerequisite"),
		Supersedes:    cmd.StringSlice("supersedes"),
		SupersededBy:  cmd.StringSlice("superseded-by"),
	}
	if cmd.IsSet("title") {
		t := cmd.String("title")
		req.Title = &t
	} else if parts := cmd.StringSlice("title-parts"); len(parts) > 0 {
		t := strings.Join(parts, "_")
		req.Title = &t
	}

	res, err := ws.Service.Revise(ctx, cmd.Args().First(), req, "")
	if err != nil {
		return err
	}
	fmt.Println(filepath.Join(ws.Layout.CorpusDir, res.Path))
	return nil
}

func runResolve(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return errors.New("resolve needs at least one reference")
	}
	opts, _, err := options(cmd)
	if err != nil {
		return err
	}
	ws, err := internal.Open(opts...)
	if err != nil {
		return err
	}
	defer ws.Close()

	for _, ref := range cmd.Args().Slice() {
		r, err := ws.Service.Resolve(ctx, ref)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\n", r.ID, r.Title, r.Path)
	}
	return nil
}

func runCheckTitle(ctx context.Context, cmd *cli.Command) error {
	opts, _, err := options(cmd)
	if err != nil {
		return err
	}
	ws, err := internal.Open(opts...)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.Service.CheckTitle(ctx, title(cmd)); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithDefaultAuthor(gitUserName),
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	opts, _, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func metadataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "Proposal title"},
		&cli.StringSliceFlag{Name: "title-parts", Usage: "Title words joined with underscores"},
		&cli.StringSliceFlag{Name: "author", Aliases: []string{"a"}, Usage: "Author name (repeatable)"},
		&cli.StringSliceFlag{Name: "agent", Usage: "Agent name (repeatable)"},
		&cli.StringFlag{Name: "discussion", Usage: "Discussion URL"},
		&cli.StringFlag{Name: "tracking-issue", Usage: "Tracking issue URL"},
		&cli.StringSliceFlag{Name: "prerequisite", Usage: "Prerequisite proposal id or title (repeatable)"},
		&cli.StringSliceFlag{Name: "supersedes", Usage: "Superseded proposal id or title (repeatable)"},
		&cli.StringSliceFlag{Name: "superseded-by", Usage: "Superseding proposal id or title (repeatable)"},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "agx",
		Usage:   "Create, revise and cross-reference numbered design proposals",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: ".agx/config.yaml",
				Value:       ".agx/config.yaml",
				Sources:     cli.EnvVars("AGX_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create the proposal directory and template",
				Action: runInit,
			},
			{
				Name:      "new",
				Usage:     "Create a new proposal",
				ArgsUsage: "[title words...]",
				Flags:     metadataFlags(),
				Action:    runNew,
			},
			{
				Name:      "revise",
				Usage:     "Merge metadata changes into an existing proposal",
				ArgsUsage: "<proposal>",
				Flags:     metadataFlags(),
				Action:    runRevise,
			},
			{
				Name:      "resolve",
				Usage:     "Resolve references to proposal ids",
				ArgsUsage: "<reference>...",
				Action:    runResolve,
			},
			{
				Name:      "check-title",
				Usage:     "Report whether a title is free",
				ArgsUsage: "[title words...]",
				Flags:     metadataFlags()[:2],
				Action:    runCheckTitle,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live catalog updates",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Serve proposal tools over MCP stdio",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
