package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/sei-protocol/ckanpatch/entity"
)

func kindFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "kind",
		Usage:       "The entity kind, one of dataset, resource, group, organization or user.",
		Aliases:     []string{"k"},
		Destination: &destinations.kind,
		Required:    required,
		Config: cli.StringConfig{
			TrimSpace: true,
		},
		Validator: func(s string) error {
			_, err := entity.ParseKind(s)
			return err
		},
	}
}

var inputFormatFlag = &cli.StringFlag{
	Name:        "input-format",
	Usage:       "Format of the input document, one of json, yaml or toml.",
	DefaultText: "Determined from the file extension, JSON for stdin.",
	Destination: &destinations.inputFormat,
}

var patchCmd = cli.Command{
	Name:                   "patch",
	Usage:                  "Apply a partial document to an existing entity, leaving fields it does not mention unchanged",
	MutuallyExclusiveFlags: []cli.MutuallyExclusiveFlags{outputterFlags},
	Flags: []cli.Flag{
		kindFlag(false),
		inputFormatFlag,
		formatFlag,
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:        "file",
			Destination: &destinations.patch.file,
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		patch, err := readDocument(destinations.patch.file, destinations.inputFormat, os.Stdin)
		if err != nil {
			return err
		}
		if patch == nil {
			return nil
		}

		var kind entity.Kind
		if destinations.kind == "" {
			// Attempt to auto-detect the kind using top-level keys matching hints.
			if kind, err = detectKind(patch); err != nil {
				return err
			}
			logger.Info().Str("kind", string(kind)).Msg("detected entity kind")
		} else if kind, err = entity.ParseKind(destinations.kind); err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sess, err := openSession(ctx, cfg, metrics)
		if err != nil {
			return err
		}
		defer func() { _ = sess.close() }()

		patched, err := sess.patcher.Patch(ctx, kind, sess.caller, patch)
		if err != nil {
			return fmt.Errorf("patching %s: %w", kind, err)
		}
		return output(patched, os.Stdout)
	},
}
