//go:build arm64

package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/csork/brainfuck/ast"
	"github.com/csork/brainfuck/internal/memdump"
	"github.com/csork/brainfuck/jit"
)

func jitCommand() cli.Command {
	return cli.Command{
		Name:  "jit",
		Usage: "Compile a Brainfuck program to ARM64 machine code and run it",
		Subcommands: []cli.Command{
			{
				Name:      "ast",
				Usage:     "Print the optimised AST",
				ArgsUsage: "file",
				Action: func(c *cli.Context) error {
					cfg := newConfig(c)
					program, err := loadProgram(c, cfg)
					if err != nil {
						return cli.NewExitError(formatErr(c, err), 1)
					}
					fmt.Print(ast.PrettyPrint(ast.New(program)))
					return nil
				},
			},
			{
				Name:      "dump",
				Usage:     "Write the generated machine code to OUTFILE",
				ArgsUsage: "FILE OUTFILE",
				Action: func(c *cli.Context) error {
					cfg := newConfig(c)
					program, err := loadProgram(c, cfg)
					if err != nil {
						return cli.NewExitError(formatErr(c, err), 1)
					}
					outfile := c.Args().Get(1)
					if outfile == "" {
						return cli.NewExitError("jit dump: missing OUTFILE argument", 1)
					}

					j := jit.New(program, os.Stdout, os.Stdin)
					defer j.Close()
					if err := j.GenerateCode(); err != nil {
						return cli.NewExitError(formatErr(c, err), 1)
					}
					if err := os.WriteFile(outfile, j.Code(), 0644); err != nil {
						return cli.NewExitError(formatErr(c, errors.Wrap(err, "writing "+outfile)), 1)
					}
					fmt.Println("void run(void (*out)(char), char (*in)(void), char *tape)")
					return nil
				},
			},
			{
				Name:      "run",
				Usage:     "Compile and execute a Brainfuck program",
				ArgsUsage: "file",
				Action: func(c *cli.Context) error {
					cfg := newConfig(c)
					program, err := loadProgram(c, cfg)
					if err != nil {
						return cli.NewExitError(formatErr(c, err), 1)
					}

					j := jit.New(program, os.Stdout, os.Stdin)
					defer j.Close()

					tape, err := j.Run(cfg.memorySize)
					if err != nil {
						return cli.NewExitError(formatErr(c, err), 1)
					}

					if cfg.dumpMemoryPath != "" {
						if err := memdump.WriteFile(cfg.dumpMemoryPath, tape); err != nil {
							return cli.NewExitError(formatErr(c, err), 1)
						}
					}
					return nil
				},
			},
		},
	}
}
