package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/csork/brainfuck/internal/memdump"
	"github.com/csork/brainfuck/vm"
)

func runCommand() cli.Command {
	return cli.Command{
		Name:      "run",
		Usage:     "Interpret a Brainfuck program to completion",
		ArgsUsage: "file",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "profile", Usage: "record per-instruction execution counts to profile.txt"},
		},
		Action: func(c *cli.Context) error {
			cfg := newConfig(c)
			program, err := loadProgram(c, cfg)
			if err != nil {
				return cli.NewExitError(formatErr(c, err), 1)
			}

			machine := vm.New(program, cfg.memorySize, vm.NewStdinConsole(os.Stdin, os.Stdout, ""), vm.NewStdoutConsole(os.Stdout))
			if c.Bool("profile") {
				machine.EnableProfiler()
			}

			if err := machine.Run(); err != nil {
				return cli.NewExitError(formatErr(c, err), 1)
			}

			if c.Bool("profile") {
				if err := writeProfile(machine.ProfileData()); err != nil {
					return cli.NewExitError(formatErr(c, err), 1)
				}
			}

			if cfg.dumpMemoryPath != "" {
				if err := memdump.WriteFile(cfg.dumpMemoryPath, machine.Memory()); err != nil {
					return cli.NewExitError(formatErr(c, err), 1)
				}
			}

			return nil
		},
	}
}

func writeProfile(counts []int) error {
	f, err := os.Create("profile.txt")
	if err != nil {
		return errors.Wrap(err, "creating profile.txt")
	}
	defer f.Close()

	for ip, count := range counts {
		if _, err := fmt.Fprintf(f, "%05d: %d\n", ip, count); err != nil {
			return errors.Wrap(err, "writing profile.txt")
		}
	}
	return nil
}

func formatErr(c *cli.Context, err error) string {
	if c.GlobalInt("verbose") >= 2 {
		return fmt.Sprintf("%+v", err)
	}
	logrus.Debug(err)
	return err.Error()
}
