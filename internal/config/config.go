// Package config defines the shell options and how they are loaded.
// Values come from defaults, an optional YAML config file, TERMSHELL_*
// environment variables and CLI flags, merged field by field.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"termshell/internal/environment"
)

// Default values.
const (
	DefaultPrompt             = "termshell> "
	DefaultPromptStyle        = "prompt"
	DefaultHistoryLimit       = 500
	DefaultCleanupTimeout     = 5 * time.Second
	DefaultCommandGracePeriod = time.Second
)

// EnvPrefix is the prefix for environment overrides, e.g. TERMSHELL_PROMPT.
const EnvPrefix = "TERMSHELL"

// Options is the configuration consumed by the shell loop.
type Options struct {
	Prompt               string
	PromptStyle          string
	HistoryLimit         int
	HistoryFile          string
	EnableSignalHandling bool
	CleanupTimeout       time.Duration
	CommandGracePeriod   time.Duration
	AllowExternal        bool
	QueryCursor          bool
	Quiet                bool

	// NonInteractive is resolved from the environment, never from files.
	NonInteractive bool
}

// Defaults returns the built-in options. Signal handling is off by default.
func Defaults() Options {
	return Options{
		Prompt:             DefaultPrompt,
		PromptStyle:        DefaultPromptStyle,
		HistoryLimit:       DefaultHistoryLimit,
		CleanupTimeout:     DefaultCleanupTimeout,
		CommandGracePeriod: DefaultCommandGracePeriod,
		AllowExternal:      true,
	}
}

// Overrides carries optional values; nil fields leave the base untouched.
type Overrides struct {
	Prompt               *string
	PromptStyle          *string
	HistoryLimit         *int
	HistoryFile          *string
	EnableSignalHandling *bool
	CleanupTimeout       *time.Duration
	CommandGracePeriod   *time.Duration
	AllowExternal        *bool
	QueryCursor          *bool
	Quiet                *bool
}

// Merge applies every non-nil override on top of base.
func Merge(base Options, o Overrides) Options {
	if o.Prompt != nil {
		base.Prompt = *o.Prompt
	}
	if o.PromptStyle != nil {
		base.PromptStyle = *o.PromptStyle
	}
	if o.HistoryLimit != nil {
		base.HistoryLimit = *o.HistoryLimit
	}
	if o.HistoryFile != nil {
		base.HistoryFile = *o.HistoryFile
	}
	if o.EnableSignalHandling != nil {
		base.EnableSignalHandling = *o.EnableSignalHandling
	}
	if o.CleanupTimeout != nil {
		base.CleanupTimeout = *o.CleanupTimeout
	}
	if o.CommandGracePeriod != nil {
		base.CommandGracePeriod = *o.CommandGracePeriod
	}
	if o.AllowExternal != nil {
		base.AllowExternal = *o.AllowExternal
	}
	if o.QueryCursor != nil {
		base.QueryCursor = *o.QueryCursor
	}
	if o.Quiet != nil {
		base.Quiet = *o.Quiet
	}
	return base
}

// Keys used in config files, env vars and flag bindings.
const (
	KeyPrompt               = "prompt"
	KeyPromptStyle          = "prompt_style"
	KeyHistoryLimit         = "history_limit"
	KeyHistoryFile          = "history_file"
	KeyEnableSignalHandling = "enable_signal_handling"
	KeyCleanupTimeout       = "cleanup_timeout"
	KeyCommandGracePeriod   = "command_grace_period"
	KeyAllowExternal        = "allow_external"
	KeyQueryCursor          = "query_cursor"
	KeyQuiet                = "quiet"
)

// NewViper returns a viper instance wired for the TERMSHELL_ env prefix.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// OverridesFromViper reads every key that viper has an explicit value for.
func OverridesFromViper(v *viper.Viper) Overrides {
	var o Overrides
	if v.IsSet(KeyPrompt) {
		s := v.GetString(KeyPrompt)
		o.Prompt = &s
	}
	if v.IsSet(KeyPromptStyle) {
		s := v.GetString(KeyPromptStyle)
		o.PromptStyle = &s
	}
	if v.IsSet(KeyHistoryLimit) {
		n := v.GetInt(KeyHistoryLimit)
		o.HistoryLimit = &n
	}
	if v.IsSet(KeyHistoryFile) {
		s := v.GetString(KeyHistoryFile)
		o.HistoryFile = &s
	}
	if v.IsSet(KeyEnableSignalHandling) {
		b := v.GetBool(KeyEnableSignalHandling)
		o.EnableSignalHandling = &b
	}
	if v.IsSet(KeyCleanupTimeout) {
		d := v.GetDuration(KeyCleanupTimeout)
		o.CleanupTimeout = &d
	}
	if v.IsSet(KeyCommandGracePeriod) {
		d := v.GetDuration(KeyCommandGracePeriod)
		o.CommandGracePeriod = &d
	}
	if v.IsSet(KeyAllowExternal) {
		b := v.GetBool(KeyAllowExternal)
		o.AllowExternal = &b
	}
	if v.IsSet(KeyQueryCursor) {
		b := v.GetBool(KeyQueryCursor)
		o.QueryCursor = &b
	}
	if v.IsSet(KeyQuiet) {
		b := v.GetBool(KeyQuiet)
		o.Quiet = &b
	}
	return o
}

// allKeys lists every option key in declaration order.
var allKeys = []string{
	KeyPrompt, KeyPromptStyle, KeyHistoryLimit, KeyHistoryFile, KeyEnableSignalHandling,
	KeyCleanupTimeout, KeyCommandGracePeriod, KeyAllowExternal, KeyQueryCursor, KeyQuiet,
}

// EnvName returns the environment variable for key, e.g. TERMSHELL_PROMPT.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

// applyEnvironment feeds TERMSHELL_* values from env (typically the
// process environment layered over .env files) into v as defaults. They
// rank above the built-in defaults and below the config file, the process
// environment seen by viper, and flags.
func applyEnvironment(v *viper.Viper, env environment.Provider) {
	if env == nil {
		return
	}
	for _, key := range allKeys {
		if val := env.Getenv(EnvName(key)); val != "" {
			v.SetDefault(key, val)
		}
	}
}

// Load resolves options from the given viper instance and environment
// provider. When configFile is set it must exist; otherwise the default
// search path is tried and a missing file is not an error.
func Load(v *viper.Viper, configFile string, env environment.Provider, info environment.Info) (Options, error) {
	applyEnvironment(v, env)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Options{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("termshell")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/termshell")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Options{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	opts := Merge(Defaults(), OverridesFromViper(v))
	opts.NonInteractive = info.NonInteractive()
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate rejects option values the shell cannot run with.
func (o Options) Validate() error {
	if o.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must be >= 0, got %d", o.HistoryLimit)
	}
	if o.CleanupTimeout <= 0 {
		return fmt.Errorf("cleanup_timeout must be positive, got %s", o.CleanupTimeout)
	}
	if o.CommandGracePeriod < 0 {
		return fmt.Errorf("command_grace_period must be >= 0, got %s", o.CommandGracePeriod)
	}
	return nil
}

// YAML renders the options as a YAML document.
func (o Options) YAML() (string, error) {
	type view struct {
		Prompt               string `yaml:"prompt"`
		PromptStyle          string `yaml:"prompt_style"`
		HistoryLimit         int    `yaml:"history_limit"`
		HistoryFile          string `yaml:"history_file,omitempty"`
		EnableSignalHandling bool   `yaml:"enable_signal_handling"`
		CleanupTimeout       string `yaml:"cleanup_timeout"`
		CommandGracePeriod   string `yaml:"command_grace_period"`
		AllowExternal        bool   `yaml:"allow_external"`
		QueryCursor          bool   `yaml:"query_cursor"`
		Quiet                bool   `yaml:"quiet"`
		NonInteractive       bool   `yaml:"non_interactive"`
	}
	data, err := yaml.Marshal(view{
		Prompt:               o.Prompt,
		PromptStyle:          o.PromptStyle,
		HistoryLimit:         o.HistoryLimit,
		HistoryFile:          o.HistoryFile,
		EnableSignalHandling: o.EnableSignalHandling,
		CleanupTimeout:       o.CleanupTimeout.String(),
		CommandGracePeriod:   o.CommandGracePeriod.String(),
		AllowExternal:        o.AllowExternal,
		QueryCursor:          o.QueryCursor,
		Quiet:                o.Quiet,
		NonInteractive:       o.NonInteractive,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render options: %w", err)
	}
	return string(data), nil
}
