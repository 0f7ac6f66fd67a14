package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/daymark/internal"
	"github.com/starford/daymark/internal/mirror"
	pkgconfig "github.com/starford/daymark/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadWithDefaults(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runWith(transport internal.Transport) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithTransport(transport),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}

		return nil
	}
}

// days prints the day index as last written to the SQLite mirror by a
// running server.
func days(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.SQLite.Enabled() {
		return fmt.Errorf("sqlite.path is empty: the day index mirror is disabled")
	}
	db, err := mirror.Open(cfg.SQLite.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	meta, err := db.Meta()
	if err != nil {
		return err
	}
	if meta.WrittenAt.IsZero() {
		return fmt.Errorf("mirror %s has not been written yet", cfg.SQLite.Path)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if day := cmd.String("day"); day != "" {
		rows, err := db.ItemsForDay(day)
		if err != nil {
			return err
		}
		for _, r := range rows {
			loc := r.Path
			if r.Line != nil {
				loc = fmt.Sprintf("%s:%d", r.Path, *r.Line+1)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Kind, r.DisplayName, loc)
		}
		return nil
	}

	counts, err := db.Days(cmd.String("from"), cmd.String("to"))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "# %s, written %s\n", meta.Mode, meta.WrittenAt.Local().Format("2006-01-02 15:04:05"))
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%d\n", c.Day, c.Count)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "daymark",
		Usage:  "Index a Markdown vault by day and serve it to calendar views",
		Action: runWith(internal.TransportHTTP),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the REST API and the change stream",
				Action: runWith(internal.TransportHTTP),
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: runWith(internal.TransportMCP),
			},
			{
				Name:   "days",
				Usage:  "Print the days recorded in the SQLite mirror",
				Action: days,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "First day (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "to", Usage: "Last day (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "day", Usage: "List the items of one day instead"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
