package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/csork/brainfuck/opcode"
)

// config collects the global flags shared by every subcommand; the
// opcode.Program they all parse from their source file argument is
// returned separately by loadProgram.
type config struct {
	memorySize     int
	rle            bool
	dumpMemoryPath string // empty means "don't dump"
	printTiming    bool
	verboseCount   int
}

func newConfig(c *cli.Context) *config {
	cfg := &config{
		memorySize:     c.GlobalInt("memory-size"),
		rle:            c.GlobalBool("rle"),
		dumpMemoryPath: c.GlobalString("dump-memory"),
		printTiming:    c.GlobalBool("print-timing"),
		verboseCount:   c.GlobalInt("verbose"),
	}
	configureLogging(cfg.verboseCount)
	return cfg
}

func configureLogging(verboseCount int) {
	switch {
	case verboseCount >= 2:
		logrus.SetLevel(logrus.TraceLevel)
	case verboseCount == 1:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.WarnLevel)
	}
}

// loadProgram reads and parses the Brainfuck source file named by the
// first positional argument.
func loadProgram(c *cli.Context, cfg *config) (*opcode.Program, error) {
	path := c.Args().First()
	if path == "" {
		return nil, errors.New("missing source file argument")
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	start := time.Now()
	program, err := opcode.New(string(source), cfg.rle)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if cfg.printTiming {
		fmt.Printf("parsed %s (%d opcodes) in %s\n", path, len(program.Code), time.Since(start))
	}
	return program, nil
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{Name: "verbose, v", Usage: "logging verbosity level N (1 = debug, 2 or more = trace); repeating the flag does not add up"},
		cli.BoolFlag{Name: "rle, r", Usage: "fold repeated opcodes"},
		cli.IntFlag{Name: "memory-size, m", Value: 4096, Usage: "tape size in bytes"},
		cli.StringFlag{Name: "dump-memory, d", Usage: "write final tape contents to PATH"},
		cli.BoolFlag{Name: "print-timing, t", Usage: "print parse timing"},
	}
}
