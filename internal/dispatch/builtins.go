package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"termshell/pkg/shelltypes"
)

// builtinCategory groups the shell's own commands in help output.
const builtinCategory = "shell"

type builtin struct {
	usage       string
	description string
	run         func(ctx context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error)
}

// builtinOrder is the help listing order.
var builtinOrder = []string{
	"help", "history", "pwd", "cd", "clear", "complete", "echo", "config", "exit", "quit",
}

func (d *Dispatcher) newBuiltins() map[string]builtin {
	return map[string]builtin{
		"help": {
			usage:       "help [command]",
			description: "List commands or describe one",
			run:         d.help,
		},
		"history": {
			usage:       "history [n]",
			description: "Show the last n input lines",
			run:         d.historyCmd,
		},
		"pwd": {
			usage:       "pwd",
			description: "Print the working directory",
			run:         pwd,
		},
		"cd": {
			usage:       "cd [dir|-]",
			description: "Change the working directory",
			run:         cd,
		},
		"clear": {
			usage:       "clear",
			description: "Clear the screen",
			run:         clearScreen,
		},
		"complete": {
			usage:       "complete <prefix>",
			description: "List command names starting with prefix",
			run:         d.complete,
		},
		"echo": {
			usage:       "echo [-n] [text...]",
			description: "Print the arguments",
			run:         echo,
		},
		"config": {
			usage:       "config",
			description: "Show the active options",
			run:         d.showConfig,
		},
		"exit": {
			usage:       "exit [code]",
			description: "Leave the shell",
			run:         exit,
		},
		"quit": {
			usage:       "quit [code]",
			description: "Leave the shell",
			run:         exit,
		},
	}
}

func (d *Dispatcher) help(_ context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	if len(args) > 1 {
		return 0, usagef("usage: help [command]")
	}
	if len(args) == 1 {
		return d.helpFor(args[0], ec)
	}

	w := ec.Writer
	w.PrintlnStyled("Shell commands:", shelltypes.StyleHighlight)
	for _, name := range builtinOrder {
		b := d.builtins[name]
		w.Println(fmt.Sprintf("  %-20s %s", b.usage, b.description))
	}

	// Registered commands grouped by category, categories in order of
	// first appearance.
	var categories []string
	byCategory := map[string][]shelltypes.Command{}
	for _, cmd := range d.registry.List() {
		cat := cmd.Category()
		if cat == "" {
			cat = "general"
		}
		if _, seen := byCategory[cat]; !seen {
			categories = append(categories, cat)
		}
		byCategory[cat] = append(byCategory[cat], cmd)
	}
	for _, cat := range categories {
		w.Println("")
		w.PrintlnStyled(fmt.Sprintf("%s commands:", cat), shelltypes.StyleHighlight)
		for _, cmd := range byCategory[cat] {
			w.Println(fmt.Sprintf("  %-20s %s", cmd.Name(), cmd.Description()))
		}
	}
	return shelltypes.ExitOK, nil
}

func (d *Dispatcher) helpFor(name string, ec *shelltypes.ExecutionContext) (int, error) {
	if b, ok := d.builtins[strings.ToLower(name)]; ok {
		ec.Writer.PrintlnStyled(b.usage, shelltypes.StyleCommand)
		ec.Writer.Println("  " + b.description)
		ec.Writer.PrintlnStyled("  category: "+builtinCategory, shelltypes.StyleMuted)
		return shelltypes.ExitOK, nil
	}
	if cmd, ok := d.registry.Resolve(name); ok {
		ec.Writer.PrintlnStyled(cmd.Name(), shelltypes.StyleCommand)
		ec.Writer.Println("  " + cmd.Description())
		ec.Writer.PrintlnStyled("  category: "+cmd.Category(), shelltypes.StyleMuted)
		return shelltypes.ExitOK, nil
	}
	d.reportNotFound(name, ec)
	return shelltypes.ExitNotFound, nil
}

func (d *Dispatcher) historyCmd(_ context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	n := 0
	switch len(args) {
	case 0:
	case 1:
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 0 {
			return 0, usagef("invalid count %q", args[0])
		}
		n = v
	default:
		return 0, usagef("usage: history [n]")
	}

	entries := d.history.Last(n)
	first := d.history.Len() - len(entries) + 1
	for i, line := range entries {
		ec.Writer.Println(fmt.Sprintf("%5d  %s", first+i, line))
	}
	return shelltypes.ExitOK, nil
}

func pwd(_ context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	if len(args) > 0 {
		return 0, usagef("usage: pwd")
	}
	ec.Writer.Println(ec.WorkingDir)
	return shelltypes.ExitOK, nil
}

func cd(_ context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	if len(args) > 1 {
		return 0, usagef("usage: cd [dir|-]")
	}

	var target string
	switch {
	case len(args) == 0 || args[0] == "~":
		home, err := os.UserHomeDir()
		if err != nil {
			return shelltypes.ExitFailure, fmt.Errorf("cannot determine home directory: %w", err)
		}
		target = home
	case args[0] == "-":
		if ec.PreviousDir == "" {
			return shelltypes.ExitFailure, fmt.Errorf("no previous directory")
		}
		target = ec.PreviousDir
	default:
		target = expandHome(args[0])
		if !filepath.IsAbs(target) {
			target = filepath.Join(ec.WorkingDir, target)
		}
	}
	target = filepath.Clean(target)

	info, err := os.Stat(target)
	if err != nil {
		return shelltypes.ExitFailure, fmt.Errorf("%s: no such directory", target)
	}
	if !info.IsDir() {
		return shelltypes.ExitFailure, fmt.Errorf("%s: not a directory", target)
	}

	if len(args) == 1 && args[0] == "-" {
		ec.Writer.Println(target)
	}
	ec.PreviousDir, ec.WorkingDir = ec.WorkingDir, target
	return shelltypes.ExitOK, nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~"+string(filepath.Separator)) && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

func clearScreen(_ context.Context, ec *shelltypes.ExecutionContext, _ []string) (int, error) {
	if ec.NonInteractive {
		return shelltypes.ExitOK, nil
	}
	ec.Writer.Print(ansi.EraseEntireScreen + ansi.CursorHomePosition)
	return shelltypes.ExitOK, nil
}

func (d *Dispatcher) complete(_ context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	if len(args) != 1 {
		return 0, usagef("usage: complete <prefix>")
	}
	for _, name := range d.Complete(args[0]) {
		ec.Writer.Println(name)
	}
	return shelltypes.ExitOK, nil
}

func echo(_ context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	newline := true
	if len(args) > 0 && args[0] == "-n" {
		newline = false
		args = args[1:]
	}
	text := strings.Join(args, " ")
	if newline {
		ec.Writer.Println(text)
	} else {
		ec.Writer.Print(text)
	}
	return shelltypes.ExitOK, nil
}

func (d *Dispatcher) showConfig(_ context.Context, ec *shelltypes.ExecutionContext, _ []string) (int, error) {
	doc, err := d.options.YAML()
	if err != nil {
		return shelltypes.ExitFailure, err
	}
	ec.Writer.Print(doc)
	return shelltypes.ExitOK, nil
}

// exit asks the owning shell to stop. Without an argument the shell exits
// with the previous command's code.
func exit(_ context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	code := ec.LastExitCode
	switch len(args) {
	case 0:
	case 1:
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 0 || v > 255 {
			return 0, usagef("invalid exit code %q", args[0])
		}
		code = v
	default:
		return 0, usagef("usage: exit [code]")
	}
	ec.RequestExit(code)
	return code, nil
}
