package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/sei-protocol/ckanpatch/entity"
)

var outputterFlags = cli.MutuallyExclusiveFlags{
	Required: false,
	Flags: [][]cli.Flag{
		{
			&cli.StringFlag{
				Name:        "output",
				DefaultText: "STDOUT",
				Usage:       "The file to which to write the resulting document.",
				Destination: &destinations.outputter.output,
				Aliases:     []string{"o"},
				TakesFile:   true,
				Action: func(ctx context.Context, command *cli.Command, s string) error {
					return command.Set("output", filepath.Clean(s))
				},
				OnlyOnce: true,
			},
		},
		{
			&cli.BoolFlag{
				Name:        "quiet",
				Usage:       "Do not print the resulting document. Cannot be set in conjunction with output.",
				Destination: &destinations.outputter.quiet,
				Aliases:     []string{"q"},
				OnlyOnce:    true,
			},
		},
	},
}

var formatFlag = &cli.StringFlag{
	Name:        "format",
	Usage:       "Output format, one of json, yaml or toml.",
	Value:       "json",
	Destination: &destinations.outputter.format,
	Validator: func(s string) error {
		switch s {
		case "json", "yaml", "yml", "toml":
			return nil
		default:
			return fmt.Errorf("invalid format: %s, must be one of json, yaml or toml", s)
		}
	},
}

func output(doc entity.Document, stdout io.Writer) error {
	if destinations.outputter.quiet {
		return nil
	}
	content, err := encodeDocument(doc, destinations.outputter.format)
	if err != nil {
		return err
	}
	if destinations.outputter.output != "" {
		return writeFileAtomically(destinations.outputter.output, content.Bytes(), 0600)
	}
	_, err = io.Copy(stdout, &content)
	return err
}

// writeFileAtomically writes content to a temporary file next to destination and
// renames it into place.
func writeFileAtomically(destination string, content []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destination), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmpFile.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(content); err != nil {
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	if err := os.Rename(tmpName, destination); err != nil {
		return err
	}
	committed = true
	return nil
}
