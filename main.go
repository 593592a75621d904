package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

var (
	destinations = struct {
		home        string
		logLevel    string
		metricsFile string
		user        string
		ignoreAuth  bool
		kind        string
		inputFormat string
		outputter   struct {
			output string
			quiet  bool
			format string
		}
		patch struct {
			file string
		}
		create struct {
			file string
		}
		show struct {
			id string
		}
		await struct {
			id      string
			timeout time.Duration
		}
	}{}

	logger   = zerolog.Nop()
	registry = prometheus.NewRegistry()

	ckanpatchCmd = cli.Command{
		Name:  "ckanpatch",
		Usage: "Apply partial updates to CKAN datasets, resources, groups, organizations and users",
		Commands: []*cli.Command{
			&patchCmd,
			&showCmd,
			&createCmd,
			&awaitCmd,
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "home",
				Usage:       "Directory holding config.toml and the default SQLite database.",
				Sources:     cli.EnvVars("CKANPATCH_HOME"),
				Destination: &destinations.home,
				TakesFile:   true,
				Config: cli.StringConfig{
					TrimSpace: true,
				},
				Action: func(ctx context.Context, command *cli.Command, s string) error {
					return command.Set("home", filepath.Clean(s))
				},
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "One of trace, debug, info, warn or error.",
				Value:       "warn",
				Sources:     cli.EnvVars("CKANPATCH_LOG_LEVEL"),
				Destination: &destinations.logLevel,
				Validator: func(s string) error {
					_, err := zerolog.ParseLevel(s)
					return err
				},
			},
			&cli.StringFlag{
				Name:        "metrics-file",
				Usage:       "Write patch metrics in Prometheus text format to this file on exit.",
				Destination: &destinations.metricsFile,
				TakesFile:   true,
			},
			&cli.StringFlag{
				Name:        "user",
				Usage:       "The acting user. Overrides caller.user from config.toml.",
				Sources:     cli.EnvVars("CKANPATCH_USER"),
				Destination: &destinations.user,
			},
			&cli.BoolFlag{
				Name:        "ignore-auth",
				Usage:       "Skip authorization checks.",
				Destination: &destinations.ignoreAuth,
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			level, err := zerolog.ParseLevel(destinations.logLevel)
			if err != nil {
				return ctx, err
			}
			logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
				Level(level).With().Timestamp().Logger()
			return ctx, nil
		},
		After: func(ctx context.Context, command *cli.Command) error {
			if destinations.metricsFile == "" {
				return nil
			}
			if err := prometheus.WriteToTextfile(destinations.metricsFile, registry); err != nil {
				return fmt.Errorf("writing metrics: %w", err)
			}
			return nil
		},
	}
)

func main() {
	if err := ckanpatchCmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
