package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/sei-protocol/ckanpatch/entity"
)

var awaitCmd = cli.Command{
	Name:                   "await",
	Usage:                  "Waits for an entity to become visible through the configured store, typically after an asynchronous create",
	MutuallyExclusiveFlags: []cli.MutuallyExclusiveFlags{outputterFlags},
	Flags: []cli.Flag{
		kindFlag(true),
		formatFlag,
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "The maximum duration to wait for the entity.",
			Value:       time.Minute,
			Destination: &destinations.await.timeout,
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:        "id",
			Destination: &destinations.await.id,
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		if destinations.await.id == "" {
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

		doc, err := awaitEntity(ctx, sess.backend(kind), sess.caller.ReadContext(kind), destinations.await.id, destinations.await.timeout, time.Second)
		if err != nil {
			return err
		}
		return output(doc, os.Stdout)
	},
}

// awaitEntity polls reader until the entity id can be shown. Only not-found results are
// retried; any other error ends the wait.
func awaitEntity(ctx context.Context, reader entity.Reader, rc entity.ReadContext, id string, timeout, backOff time.Duration) (entity.Document, error) {
	for start := time.Now(); ctx.Err() == nil; {
		doc, err := reader.Show(ctx, rc, id)
		switch {
		case err == nil:
			return doc, nil
		case !errors.Is(err, entity.ErrNotFound):
			return nil, err
		}
		if time.Since(start) >= timeout {
			return nil, fmt.Errorf("%s not available after %s timeout: %w", id, timeout, err)
		}
		logger.Debug().Str("id", id).Msg("entity not found yet, retrying")
		select {
		case <-ctx.Done():
		case <-time.After(backOff):
		}
	}
	return nil, ctx.Err()
}
