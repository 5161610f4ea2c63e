package cli

import (
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func outputFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "output",
		Aliases:     []string{"o"},
		Usage:       "Output file ('-' for stdout)",
		Value:       "-",
		Destination: dst,
	}
}

// openOutput returns the writer for path and a closer that reports the
// close error of a created file
func openOutput(c *cli.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return c.Root().Writer, func() error { return nil }, nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to open output file", goerr.V("path", path))
	}
	return f, f.Close, nil
}
