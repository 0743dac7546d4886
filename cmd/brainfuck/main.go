// Command brainfuck parses, interprets, debugs, and (on arm64) JIT
// compiles Brainfuck programs.
package main

import (
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "brainfuck"
	app.Usage = "Interpret, debug, disassemble, and JIT-compile Brainfuck programs"
	app.Flags = globalFlags()
	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:  "int",
			Usage: "Interpret, debug, or disassemble a Brainfuck program",
			Subcommands: []cli.Command{
				runCommand(),
				debugCommand(),
				disassembleCommand(),
			},
		},
		jitCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
