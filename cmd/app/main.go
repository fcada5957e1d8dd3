package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quarry/internal"
	"github.com/starford/quarry/internal/registry"
	pkgconfig "github.com/starford/quarry/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func resolve(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: quarry resolve [flags] scope/name")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	q := registry.Query{
		Name:    cmd.Args().First(),
		Version: cmd.String("version"),
		Target:  cmd.String("target"),
		Doc:     cmd.String("doc"),
		Accept:  cmd.String("accept"),
	}
	return internal.Resolve(ctx, q, os.Stdout, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "quarry",
		Usage:  "Luau package registry: index resolution, blob serving and package search",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (.yaml or .toml)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve registry tools over MCP stdio",
				Action: serveMCP,
			},
			{
				Name:      "resolve",
				Usage:     "Resolve one package query and print the result",
				ArgsUsage: "scope/name",
				Action:    resolve,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "version", Value: "latest", Usage: "Version or latest"},
					&cli.StringFlag{Name: "target", Value: "any", Usage: "Target kind or any"},
					&cli.StringFlag{Name: "doc", Usage: "Documentation page name"},
					&cli.StringFlag{Name: "accept", Usage: "text/plain for the readme, application/octet-stream for the archive"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
