package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli"

	"github.com/csork/brainfuck/internal/hexparse"
	"github.com/csork/brainfuck/vm"
)

const debuggerBanner = "Welcome to the brainfuck debugger. Use Ctrl+D to exit the debugger."

func debugCommand() cli.Command {
	return cli.Command{
		Name:      "debug",
		Usage:     "Step through a Brainfuck program interactively",
		ArgsUsage: "file",
		Action: func(c *cli.Context) error {
			cfg := newConfig(c)
			program, err := loadProgram(c, cfg)
			if err != nil {
				return cli.NewExitError(formatErr(c, err), 1)
			}

			stdout := vm.TeeStdout{vm.NewStdoutString(), vm.NewStdoutConsole(os.Stdout)}
			machine := vm.New(program, cfg.memorySize, vm.NewStdinConsole(os.Stdin, os.Stdout, "INPUT: "), stdout)
			dbg := vm.NewDebugger(machine)

			return runDebuggerREPL(dbg)
		},
	}
}

func runDebuggerREPL(dbg *vm.Debugger) error {
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".brainfuck.history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "(bf) ",
		HistoryFile: historyFile,
	})
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer rl.Close()

	fmt.Println(debuggerBanner)

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}

		if err := dispatchDebuggerCommand(dbg, strings.TrimSpace(line)); err != nil {
			fmt.Println(err)
		}
	}
}

func dispatchDebuggerCommand(dbg *vm.Debugger, line string) error {
	if line == "" {
		return nil
	}
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "break", "b":
		return breakpointCommand(dbg, args)
	case "list", "l":
		var focus *int
		if len(args) > 0 {
			n, err := hexparse.Parse(args[0])
			if err != nil {
				return err
			}
			focus = &n
		}
		fmt.Print(dbg.ProgramList(focus))
	case "memory", "m":
		if len(args) != 2 {
			return fmt.Errorf("memory requires START and LEN")
		}
		start, err := hexparse.Parse(args[0])
		if err != nil {
			return err
		}
		length, err := hexparse.Parse(args[1])
		if err != nil {
			return err
		}
		fmt.Print(dbg.MemoryDump(start, length))
	case "output", "o":
		fmt.Println(dbg.Output())
	case "registers", "r":
		reg := dbg.Registers()
		fmt.Printf("ip=%d dataPtr=%d value=%d\n", reg.IP, reg.DataPtr, reg.Value)
	case "step", "s":
		running, err := dbg.Step()
		if err != nil {
			return err
		}
		if !running {
			fmt.Println("program finished")
		}
	case "continue", "c":
		bp, hit, err := dbg.Run()
		if err != nil {
			return err
		}
		if hit {
			fmt.Printf("stopped at breakpoint %d\n", bp)
		} else {
			fmt.Println("program finished")
		}
	case "quit", "q":
		os.Exit(0)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
	return nil
}

func breakpointCommand(dbg *vm.Debugger, args []string) error {
	if len(args) == 0 {
		for _, ip := range dbg.ListBreakpoints() {
			fmt.Println(ip)
		}
		return nil
	}

	switch args[0] {
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("break add requires an address")
		}
		ip, err := hexparse.Parse(args[1])
		if err != nil {
			return err
		}
		dbg.AddBreakpoint(ip)
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("break delete requires an address")
		}
		ip, err := hexparse.Parse(args[1])
		if err != nil {
			return err
		}
		if !dbg.DeleteBreakpoint(ip) {
			return fmt.Errorf("no breakpoint at %d", ip)
		}
	case "list":
		for _, ip := range dbg.ListBreakpoints() {
			fmt.Println(ip)
		}
	default:
		// allow a bare numeric address as shorthand for "break add N"
		ip, err := hexparse.Parse(args[0])
		if err != nil {
			return fmt.Errorf("unknown break subcommand: %s", args[0])
		}
		dbg.AddBreakpoint(ip)
	}
	return nil
}
