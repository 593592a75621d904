package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/sei-protocol/ckanpatch/entity"
)

var showCmd = cli.Command{
	Name:                   "show",
	Usage:                  "Print the full current document of an entity",
	MutuallyExclusiveFlags: []cli.MutuallyExclusiveFlags{outputterFlags},
	Flags: []cli.Flag{
		kindFlag(true),
		formatFlag,
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:        "id",
			Destination: &destinations.show.id,
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		if destinations.show.id == "" {
			return errors.New("entity id or name must be specified")
		}
		kind, err := entity.ParseKind(destinations.kind)
		if err != nil {
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

		doc, err := sess.backend(kind).Show(ctx, sess.caller.ReadContext(kind), destinations.show.id)
		if err != nil {
			return fmt.Errorf("showing %s: %w", kind, err)
		}
		return output(doc, os.Stdout)
	},
}
