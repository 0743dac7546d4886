package main

import (
	"fmt"

	"github.com/urfave/cli"
)

func disassembleCommand() cli.Command {
	return cli.Command{
		Name:      "disassemble",
		Aliases:   []string{"dis"},
		Usage:     "Print the opcode listing for a Brainfuck program",
		ArgsUsage: "file",
		Flags: []cli.Flag{
			cli.IntFlag{Name: "start", Value: -1, Usage: "first instruction to print"},
			cli.IntFlag{Name: "end", Value: -1, Usage: "last instruction to print"},
		},
		Action: func(c *cli.Context) error {
			cfg := newConfig(c)
			program, err := loadProgram(c, cfg)
			if err != nil {
				return cli.NewExitError(formatErr(c, err), 1)
			}

			var start, end *int
			if s := c.Int("start"); s >= 0 {
				start = &s
			}
			if e := c.Int("end"); e >= 0 {
				end = &e
			}

			fmt.Print(program.Listing(start, end))
			return nil
		},
	}
}
