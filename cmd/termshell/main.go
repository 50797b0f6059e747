// Package main provides the termshell CLI application entry point.
// termshell is an interactive command shell with pluggable commands,
// cooperative cancellation and guaranteed cleanup on exit.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	_ "termshell/internal/commands/builtin" // Import for side effects (init functions)
	"termshell/internal/config"
	"termshell/internal/logger"
	"termshell/internal/version"
)

var (
	logLevel   string
	logFile    string
	configFile string
	envFiles   []string
	testMode   bool
	verbose    bool
	lineFlag   string

	// v holds the option flags, TERMSHELL_* variables and the config file.
	v = config.NewViper()

	// exitCode is set by the command that ran and returned from main.
	exitCode int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "termshell",
	Short: "termshell - interactive command shell",
	Long: `termshell is an interactive shell with pluggable commands.
Interrupts cancel the running command, registered cleanup actions run in
reverse order on every exit path, and the terminal is restored on the way out.`,
	SilenceUsage: true,
	RunE:         runShell, // Default behavior is to run the interactive shell
}

// shellCmd represents the shell command (explicit version of default behavior)
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start interactive shell mode",
	RunE:  runShell,
}

// runCmd dispatches a single line and exits with its code.
var runCmd = &cobra.Command{
	Use:   "run [-c line | command [args...]]",
	Short: "Run a single command line",
	Long: `Run one command line through the shell and exit with its exit code.
The line is taken from -c, or from the remaining arguments joined by spaces.`,
	RunE: runLine,
}

// batchCmd executes a script file line by line.
var batchCmd = &cobra.Command{
	Use:   "batch <script>",
	Short: "Execute a script file in batch mode",
	Long: `Execute every line of a script file without entering interactive mode.
Lines starting with # are comments. The exit code is the code of the last line,
or of the exit command if the script calls it.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		if verbose {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetDetailedVersion())
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.GetFormattedVersion())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: warn]")
	flags.StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
	flags.StringVar(&configFile, "config", "", "Config file (default: ./termshell.yaml or ~/.config/termshell/termshell.yaml)")
	flags.StringSliceVar(&envFiles, "env-file", []string{".env"}, "Load variables from .env files")
	flags.BoolVar(&testMode, "test-mode", false, "Run in deterministic test mode")

	// Option flags, bound to the same keys as the config file and TERMSHELL_* variables
	flags.String("prompt", config.DefaultPrompt, "Prompt text")
	flags.String("prompt-style", config.DefaultPromptStyle, "Semantic style of the prompt")
	flags.Int("history-limit", config.DefaultHistoryLimit, "Maximum number of history entries")
	flags.String("history-file", "", "Persist history to this file")
	flags.Bool("signals", false, "Handle SIGINT/SIGTERM by cancelling the running command")
	flags.Duration("cleanup-timeout", config.DefaultCleanupTimeout, "Time allowed for cleanup actions on exit")
	flags.Duration("grace-period", config.DefaultCommandGracePeriod, "Time a cancelled command gets to return")
	flags.Bool("allow-external", true, "Run unknown commands as external programs")
	flags.Bool("query-cursor", false, "Query the cursor position when the session starts")
	flags.BoolP("quiet", "q", false, "Do not print the startup banner")

	bindings := map[string]string{
		config.KeyPrompt:               "prompt",
		config.KeyPromptStyle:          "prompt-style",
		config.KeyHistoryLimit:         "history-limit",
		config.KeyHistoryFile:          "history-file",
		config.KeyEnableSignalHandling: "signals",
		config.KeyCleanupTimeout:       "cleanup-timeout",
		config.KeyCommandGracePeriod:   "grace-period",
		config.KeyAllowExternal:        "allow-external",
		config.KeyQueryCursor:          "query-cursor",
		config.KeyQuiet:                "quiet",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", flag, err)
			os.Exit(1)
		}
	}
	if err := viper.BindPFlag("log-level", flags.Lookup("log-level")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-level flag: %v\n", err)
		os.Exit(1)
	}

	runCmd.Flags().StringVarP(&lineFlag, "command", "c", "", "Command line to run")
	versionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed build information")

	// Add subcommands
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(versionCmd)

	// Configure logger before any command execution
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if err := logger.Configure(viper.GetString("log-level"), logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

func truthyEnv(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
