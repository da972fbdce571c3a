// Command promptweaver expands declarative YAML prompt templates into
// ordered lists of fully-substituted generation requests.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	urfavecli "github.com/urfave/cli/v2"

	appcli "github.com/promptweaver/promptweaver/internal/cli"
	"github.com/promptweaver/promptweaver/internal/config"
	apperrors "github.com/promptweaver/promptweaver/internal/errors"
	"github.com/promptweaver/promptweaver/internal/service"
)

var version = "dev"

func main() {
	app := &urfavecli.App{
		Name:    "promptweaver",
		Usage:   "expand YAML prompt templates into generation requests",
		Version: version,
		Flags: []urfavecli.Flag{
			&urfavecli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a promptweaver.toml config file",
			},
			&urfavecli.StringFlag{
				Name:  "log-level",
				Usage: "log level: trace, debug, info, warn, error",
			},
			&urfavecli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "output format: json or text",
			},
			&urfavecli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "include causes and debug detail in error output",
			},
		},
		Commands: []*urfavecli.Command{
			{
				Name:      "generate",
				Aliases:   []string{"gen"},
				Usage:     "resolve a prompt document into its variation list",
				ArgsUsage: "<prompt.yaml>",
				Flags: []urfavecli.Flag{
					&urfavecli.IntFlag{
						Name:  "max",
						Usage: "cap the number of variations regardless of the document",
					},
					&urfavecli.BoolFlag{
						Name:  "skip-validation",
						Usage: "resolve without the upfront validation pass",
					},
					&urfavecli.BoolFlag{
						Name:  "dry-run",
						Usage: "validate only, generate nothing",
					},
				},
				Action: func(c *urfavecli.Context) error {
					entry, err := entryArg(c)
					if err != nil {
						return err
					}
					app, err := buildApp(c)
					if err != nil {
						return err
					}
					if c.Bool("dry-run") {
						return app.Validate(entry)
					}
					return app.Generate(entry)
				},
			},
			{
				Name:      "validate",
				Usage:     "check a document tree and report every finding",
				ArgsUsage: "<document.yaml>",
				Action: func(c *urfavecli.Context) error {
					entry, err := entryArg(c)
					if err != nil {
						return err
					}
					app, err := buildApp(c)
					if err != nil {
						return err
					}
					return app.Validate(entry)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func entryArg(c *urfavecli.Context) (string, error) {
	if c.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one document path, got %d", c.Args().Len())
	}
	return c.Args().First(), nil
}

// buildApp layers flags over the loaded settings and wires the handler.
func buildApp(c *urfavecli.Context) (*appcli.App, error) {
	settings, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	level := settings.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	setupLogging(level)

	format := settings.OutputFormat
	if c.IsSet("format") {
		format = c.String("format")
	}
	if format != "json" && format != "text" {
		return nil, fmt.Errorf("unknown output format %q", format)
	}

	options := service.Options{
		MaxVariations:  settings.MaxVariations,
		SkipValidation: c.Bool("skip-validation"),
	}
	if c.IsSet("max") {
		options.MaxVariations = c.Int("max")
	}

	var handler apperrors.ErrorHandler
	if format == "json" {
		handler = &apperrors.JSONErrorHandler{}
	} else {
		handler = apperrors.NewCLIErrorHandler(c.Bool("verbose"))
	}

	return &appcli.App{
		Out:     os.Stdout,
		Errs:    handler,
		Format:  format,
		Options: options,
	}, nil
}

func setupLogging(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(parsed)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
