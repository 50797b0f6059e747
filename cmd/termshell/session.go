package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"termshell/internal/config"
	"termshell/internal/console"
	"termshell/internal/dispatch"
	"termshell/internal/environment"
	"termshell/internal/logger"
	"termshell/internal/output"
	"termshell/internal/shell"
	"termshell/internal/testutils"
	"termshell/internal/version"
	"termshell/pkg/shelltypes"
)

// session bundles what every subcommand resolves before building a shell.
type session struct {
	opts  config.Options
	theme *output.Theme
}

func loadSession(v *viper.Viper, base environment.Provider) (*session, error) {
	env, err := environment.WithDotEnv(base, envFiles...)
	if err != nil {
		return nil, err
	}
	info := environment.ResolveProcess(env)
	if !testMode {
		testMode = truthyEnv(env.Getenv("TERMSHELL_TEST_MODE"))
	}

	opts, err := config.Load(v, configFile, env, info)
	if err != nil {
		return nil, err
	}

	return &session{
		opts:  opts,
		theme: output.NewTheme(os.Stdout, env, info),
	}, nil
}

// newShell builds a shell for this session. A nil input selects the
// interactive reader when the session is interactive, stdin otherwise.
func (s *session) newShell(input io.Reader) (*shell.Shell, error) {
	printer := output.NewPrinter(
		output.WithStyles(s.theme),
		output.WithWriter(os.Stdout),
		output.WithErrorWriter(os.Stderr),
	)

	opts := []shell.Option{
		shell.WithOptions(s.opts),
		shell.WithWriter(printer),
		shell.WithStreams(os.Stdin, os.Stdout, os.Stderr),
		shell.WithSessionID(testutils.GenerateSessionID(testMode)),
		shell.WithPromptStyler(s.theme.Styled),
		shell.WithReaderFunc(s.readerFunc(input)),
	}
	return shell.New(opts...)
}

func (s *session) readerFunc(input io.Reader) shell.ReaderFunc {
	return func(d *dispatch.Dispatcher) (shelltypes.Reader, error) {
		if input != nil {
			return console.NewLineReader(input, nil), nil
		}
		if s.opts.NonInteractive {
			return console.NewLineReader(os.Stdin, nil), nil
		}
		return console.NewReadlineReader(console.ReadlineConfig{
			HistoryLimit: s.opts.HistoryLimit,
			HistoryFile:  s.opts.HistoryFile,
			Complete:     d.Complete,
			Stdin:        os.Stdin,
			Stdout:       os.Stdout,
			Stderr:       os.Stderr,
		})
	}
}

func runShell(cmd *cobra.Command, _ []string) error {
	s, err := loadSession(v, environment.OS())
	if err != nil {
		return err
	}
	logger.Info("Starting termshell", "version", version.GetVersion(), "interactive", !s.opts.NonInteractive)

	sh, err := s.newShell(nil)
	if err != nil {
		return err
	}
	exitCode = sh.Run(cmd.Context())
	return nil
}

func runLine(cmd *cobra.Command, args []string) error {
	line := lineFlag
	if line == "" {
		line = strings.Join(args, " ")
	}
	if strings.TrimSpace(line) == "" {
		return fmt.Errorf("no command line given; use -c or pass the command as arguments")
	}

	s, err := loadSession(v, environment.OS())
	if err != nil {
		return err
	}
	s.opts.Quiet = true
	s.opts.NonInteractive = true

	sh, err := s.newShell(strings.NewReader(line + "\n"))
	if err != nil {
		return err
	}
	exitCode = sh.Run(cmd.Context())
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	scriptPath := args[0]
	if err := validateScriptFile(scriptPath); err != nil {
		return err
	}

	f, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	s, err := loadSession(v, environment.OS())
	if err != nil {
		return err
	}
	s.opts.Quiet = true
	s.opts.NonInteractive = true
	logger.Info("Starting termshell batch mode", "version", version.GetVersion(), "script", scriptPath)

	sh, err := s.newShell(f)
	if err != nil {
		return err
	}
	exitCode = sh.Run(cmd.Context())
	logger.Info("Script finished", "script", scriptPath, "code", exitCode)
	return nil
}

func validateScriptFile(scriptPath string) error {
	info, err := os.Stat(scriptPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("script file does not exist: %s", scriptPath)
	}
	if err != nil {
		return fmt.Errorf("cannot access script file %s: %w", scriptPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("script path is a directory: %s", scriptPath)
	}
	return nil
}
