// Package environment resolves process environment facts once per session.
// Components receive a Provider instead of reading os.Getenv ad hoc, so
// tests can run with a fixed environment.
package environment

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

// Provider is a read-only view of environment variables.
// It satisfies termenv.Environ so it can drive color profile detection.
type Provider interface {
	Getenv(key string) string
	Environ() []string
}

// OS returns a Provider backed by the process environment.
func OS() Provider {
	return osProvider{}
}

type osProvider struct{}

func (osProvider) Getenv(key string) string { return os.Getenv(key) }
func (osProvider) Environ() []string        { return os.Environ() }

// Map is a Provider backed by a fixed map.
type Map map[string]string

// Getenv returns the value for key or "".
func (m Map) Getenv(key string) string { return m[key] }

// Environ returns KEY=value pairs sorted by key.
func (m Map) Environ() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+m[k])
	}
	return out
}

// Layered consults each provider in order and returns the first
// non-empty value.
type Layered []Provider

// Getenv returns the first non-empty value across the layers.
func (l Layered) Getenv(key string) string {
	for _, p := range l {
		if v := p.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// Environ merges the layers; earlier layers win.
func (l Layered) Environ() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range l {
		for _, kv := range p.Environ() {
			key, _, _ := strings.Cut(kv, "=")
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, kv)
		}
	}
	return out
}

// WithDotEnv layers the variables from the given .env files beneath base.
// Missing files are skipped. Process variables take precedence.
func WithDotEnv(base Provider, paths ...string) (Provider, error) {
	var existing []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return base, nil
	}

	values, err := godotenv.Read(existing...)
	if err != nil {
		return nil, fmt.Errorf("failed to read .env files: %w", err)
	}
	return Layered{base, Map(values)}, nil
}

// Info holds the environment facts resolved at session construction.
type Info struct {
	NoColor        bool
	ForceColor     bool
	CI             bool
	DumbTerminal   bool
	StdinTerminal  bool
	StdoutTerminal bool
}

// NonInteractive reports whether prompts and terminal queries should be avoided.
func (i Info) NonInteractive() bool {
	return i.CI || i.DumbTerminal || !i.StdinTerminal || !i.StdoutTerminal
}

// ciVariables are set by common CI systems.
var ciVariables = []string{
	"CI", "CONTINUOUS_INTEGRATION", "BUILD_NUMBER", "RUN_ID",
	"GITHUB_ACTIONS", "GITLAB_CI", "TF_BUILD", "JENKINS_URL", "BUILDKITE",
}

// Resolve computes Info from the provider and the given stdio descriptors.
// Pass -1 for a descriptor that is not a file.
func Resolve(p Provider, stdinFd, stdoutFd int) Info {
	info := Info{
		NoColor:      p.Getenv("NO_COLOR") != "",
		ForceColor:   truthy(p.Getenv("FORCE_COLOR")),
		DumbTerminal: p.Getenv("TERM") == "dumb",
	}
	for _, key := range ciVariables {
		if v := p.Getenv(key); v != "" && !strings.EqualFold(v, "false") && v != "0" {
			info.CI = true
			break
		}
	}
	if stdinFd >= 0 {
		info.StdinTerminal = term.IsTerminal(stdinFd)
	}
	if stdoutFd >= 0 {
		info.StdoutTerminal = term.IsTerminal(stdoutFd)
	}
	return info
}

// ResolveProcess resolves Info for the current process stdio.
func ResolveProcess(p Provider) Info {
	return Resolve(p, int(os.Stdin.Fd()), int(os.Stdout.Fd()))
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	default:
		return true
	}
}
