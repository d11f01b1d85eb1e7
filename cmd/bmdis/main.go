package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/accelkit/bmdis/internal/logger"
	"github.com/accelkit/bmdis/internal/version"
)

// errDiffer signals that two compared containers are not identical. It
// is reported through the exit status alone; the diff output has already
// been printed.
var errDiffer = errors.New("bmodels differ")

var (
	formatFlag   string
	contextLines int
	logLevel     string
	logFormat    string
)

func main() {
	app := newApp()

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, errDiffer) {
			os.Exit(1)
		}
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "bmdis",
		Usage:     "BModel disassembler and differ",
		Version:   version.String(),
		ArgsUsage: "<bmodel> [bmodel]",
		Description: "Decode a compiled BModel container into text, register or binary form.\n" +
			"With two containers, compare their instruction streams per subgraph.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "projection of decoded operations (mlir, reg, bits, bin)",
				Value:       "mlir",
				Destination: &formatFlag,
			},
			&cli.IntFlag{
				Name:        "n",
				Aliases:     []string{"N"},
				Usage:       "number of context lines in diff output",
				Value:       3,
				Destination: &contextLines,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Value:       "info",
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "log format (pretty, json, text)",
				Value:       "pretty",
				Destination: &logFormat,
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, c *cli.Command) error {
	_ = ctx

	cfg := loadConfig()
	applyConfig(c, cfg)

	switch formatFlag {
	case "mlir", "reg", "bits", "bin":
	default:
		return fmt.Errorf("unknown format %q (want mlir, reg, bits or bin)", formatFlag)
	}

	log := newLogger()

	paths := c.Args().Slice()
	switch len(paths) {
	case 0:
		return errors.New("no bmodel given, see --help")
	case 1:
		return decodeOne(log, paths[0])
	case 2:
		return compare(log, paths[0], paths[1])
	}
	return fmt.Errorf("too many bmodels: got %d, at most 2", len(paths))
}

func newLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.Default()
	default:
		return logger.Pretty(os.Stderr, level)
	}
}
