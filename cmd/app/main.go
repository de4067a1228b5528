package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/aldenvall/inkpress/internal"
	pkgconfig "github.com/aldenvall/inkpress/pkg/config"
)

type runFunc func(ctx context.Context, opts ...internal.Option) error

func action(run runFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		if configPath != "" {
			if _, err := os.Stat(configPath); err == nil {
				if err := pkgconfig.Load(configPath, cfg); err != nil {
					return fmt.Errorf("failed to parse config: %w", err)
				}
			}
		}

		if err := run(ctx, internal.WithConfig(cfg)); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("INKPRESS_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:  "inkpress",
		Usage: "Markdown journal sync: render diagrams, compile PDFs with typst, and push to the backend",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Run one full sync pass and exit",
				Action: action(internal.RunSync),
			},
			{
				Name:   "watch",
				Usage:  "Sync continuously as content changes",
				Action: action(internal.RunWatch),
			},
			{
				Name:   "serve",
				Usage:  "Run the development backend server",
				Action: action(internal.RunServe),
			},
			{
				Name:   "mcp",
				Usage:  "Serve journal tools over MCP stdio",
				Action: action(internal.RunMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
