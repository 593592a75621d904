package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/sei-protocol/ckanpatch/entity"
)

var createCmd = cli.Command{
	Name:                   "create",
	Usage:                  "Create an entity from a full document",
	MutuallyExclusiveFlags: []cli.MutuallyExclusiveFlags{outputterFlags},
	Flags: []cli.Flag{
		kindFlag(true),
		inputFormatFlag,
		formatFlag,
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:        "file",
			Destination: &destinations.create.file,
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		kind, err := entity.ParseKind(destinations.kind)
		if err != nil {
			return err
		}
		doc, err := readDocument(destinations.create.file, destinations.inputFormat, os.Stdin)
		if err != nil {
			return err
		}
		if doc == nil {
			return errors.New("document to create must not be empty")
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

		if err := sess.patcher.Authorize(ctx, kind.Action("create"), sess.caller, doc); err != nil {
			return err
		}
		created, err := sess.creator.create(ctx, kind, sess.caller, doc)
		if err != nil {
			return fmt.Errorf("creating %s: %w", kind, err)
		}
		return output(created, os.Stdout)
	},
}
