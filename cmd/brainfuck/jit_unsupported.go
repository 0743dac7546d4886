//go:build !arm64

package main

import (
	"runtime"

	"github.com/urfave/cli"
)

func jitCommand() cli.Command {
	return cli.Command{
		Name:  "jit",
		Usage: "Compile a Brainfuck program to machine code and run it (arm64 only)",
		Action: func(c *cli.Context) error {
			return cli.NewExitError("jit: unsupported on "+runtime.GOARCH, 1)
		},
	}
}
