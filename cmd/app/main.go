package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/lapse/internal"
	"github.com/starford/lapse/internal/lifecycle"
	"github.com/starford/lapse/internal/mcpserver"
	"github.com/starford/lapse/internal/tracker"
	pkgconfig "github.com/starford/lapse/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// openBackend opens the store for one-shot commands. Logs go to stderr so
// stdout stays clean for command output.
func openBackend(ctx context.Context, cmd *cli.Command) (*internal.Backend, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)
	return internal.OpenBackend(ctx, cfg, logger, nil)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	b, err := openBackend(ctx, cmd)
	if err != nil {
		return err
	}
	defer b.Close()
	return mcpserver.New(b.Tracker, version).ServeStdio()
}

func exportData(ctx context.Context, cmd *cli.Command) error {
	b, err := openBackend(ctx, cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	doc := b.Tracker.Export(ctx)
	if cmd.Bool("full") {
		doc = b.Tracker.ExportFull(ctx)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}

	out := cmd.String("output")
	if out == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if out == "." {
		out = tracker.ExportFileName(cmd.Bool("full"), doc.ExportDate)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintln(os.Stderr, "exported to", out)
	return nil
}

func importData(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("import: file argument is required")
	}
	mode, err := lifecycle.ParseImportMode(cmd.String("mode"))
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	b, err := openBackend(ctx, cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	res, err := b.Tracker.Import(ctx, data, mode)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	fmt.Printf("imported %d items (%d new), %d categories, mode %s\n", res.Items, res.NewItems, res.Categories, res.Mode)
	return nil
}

func checkReminders(ctx context.Context, cmd *cli.Command) error {
	b, err := openBackend(ctx, cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	list := b.Tracker.Reminders(ctx)
	fmt.Println(lifecycle.Summarize(list).Message())
	for _, r := range list {
		fmt.Printf("  %-40s %s  %d days\n", r.Item.Name, r.Item.ExpiryDate, r.DaysUntilExpiry)
	}
	return nil
}

func backup(ctx context.Context, cmd *cli.Command) error {
	b, err := openBackend(ctx, cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	info, err := b.Tracker.Backup(ctx)
	if err != nil {
		return err
	}
	fmt.Println(info.Path, info.Checksum)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "lapse",
		Usage:   "Track certifications, licenses and skills that expire, with reminders and renewal history",
		Version: version,
		Action:  serve,
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
				Usage:  "Run the HTTP API, reminder scheduler and import inbox",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:   "export",
				Usage:  "Write the export document",
				Action: exportData,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file; \".\" picks the dated default name; empty writes to stdout",
					},
					&cli.BoolFlag{
						Name:  "full",
						Usage: "Include the activity log",
					},
				},
			},
			{
				Name:      "import",
				Usage:     "Import a JSON or YAML export document",
				ArgsUsage: "<file>",
				Action:    importData,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mode",
						Usage: "replace or merge",
						Value: string(lifecycle.ImportReplace),
					},
				},
			},
			{
				Name:   "check",
				Usage:  "Print items expiring within the reminder window and expired items",
				Action: checkReminders,
			},
			{
				Name:   "backup",
				Usage:  "Write a backup of the full export to the backup directory",
				Action: backup,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
