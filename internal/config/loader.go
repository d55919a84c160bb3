package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigPath is the conventional discovery path for the central
// configuration document (spec.md §6).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".orchestration", "config.json")
	}
	return filepath.Join(home, ".orchestration", "config.json")
}

// TrackedConfig pairs a Config with the Source that set each top-level
// field, following the teacher's field-source-tracking idiom so
// `orc config --show-sources` can report provenance.
type TrackedConfig struct {
	Config  Config
	sources map[string]Source
}

// NewTrackedConfig returns a TrackedConfig seeded with built-in defaults.
func NewTrackedConfig() *TrackedConfig {
	tc := &TrackedConfig{
		Config: Config{
			Version: "1",
			Repos:   map[string]*RepoConfig{},
			Ralph: RalphConfig{
				MaxIterations:    10,
				DoneSignal:       DoneSignal{Type: DoneSignalStatus, Value: "complete"},
				IterationDelayMs: 5000,
			},
			Dashboard:  DashboardConfig{Port: 3847},
			CLICommand: "orch",
			Audit:      AuditConfig{Backend: AuditBackendSQLite},
		},
		sources: map[string]Source{},
	}
	for _, f := range trackedFields {
		tc.sources[f] = SourceDefault
	}
	return tc
}

// trackedFields lists the top-level fields whose provenance is reported by
// Source. Nested per-repo/per-hook overrides are not individually tracked.
var trackedFields = []string{
	"version", "repos", "hooks", "ralph", "dashboard", "sounds",
	"cliCommand", "issueTracker", "audit",
}

// envOverrides are the scalar settings that may be overridden individually
// via ORCH_*-prefixed environment variables, each bound through viper so
// AutomaticEnv + IsSet can tell us whether the environment (rather than a
// default or the file) supplied the value.
var envOverrides = []struct {
	viperKey string
	field    string
	apply    func(tc *TrackedConfig, v *viper.Viper)
}{
	{"dashboard.port", "dashboard", func(tc *TrackedConfig, v *viper.Viper) {
		tc.Config.Dashboard.Port = v.GetInt("dashboard.port")
	}},
	{"cli_command", "cliCommand", func(tc *TrackedConfig, v *viper.Viper) {
		tc.Config.CLICommand = v.GetString("cli_command")
	}},
	{"ralph.max_iterations", "ralph", func(tc *TrackedConfig, v *viper.Viper) {
		tc.Config.Ralph.MaxIterations = v.GetInt("ralph.max_iterations")
	}},
	{"audit.dsn", "audit", func(tc *TrackedConfig, v *viper.Viper) {
		tc.Config.Audit.DSN = v.GetString("audit.dsn")
	}},
}

// Source returns which layer set field's effective value.
func (tc *TrackedConfig) Source(field string) Source {
	if s, ok := tc.sources[field]; ok {
		return s
	}
	return SourceDefault
}

// Load discovers and loads the central configuration document following the
// layered precedence: built-in defaults -> file at path (or
// DefaultConfigPath()) -> ORCH_*-prefixed environment variables. The file
// layer is parsed directly (JSON shape with nested maps doesn't survive
// viper's case-folding key merge cleanly); viper is used for the env-binding
// layer, where AutomaticEnv + IsSet precisely distinguish an explicit
// environment override from an unset variable.
func Load(path string) (*TrackedConfig, error) {
	tc := NewTrackedConfig()

	if path == "" {
		path = DefaultConfigPath()
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := mergeFromJSON(tc, data, SourceFile); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnvOverrides(tc)

	return tc, nil
}

// mergeFromJSON merges a raw JSON document into tc, marking every top-level
// field present in the raw document as coming from source. This mirrors the
// teacher's "parse twice" idiom (once into a presence map, once typed) so
// that a field merely defaulted to its zero value isn't mistaken for an
// explicit override.
func mergeFromJSON(tc *TrackedConfig, data []byte, source Source) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}

	var parsed Config
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}

	if _, ok := raw["version"]; ok {
		tc.Config.Version = parsed.Version
		tc.sources["version"] = source
	}
	if _, ok := raw["repos"]; ok {
		tc.Config.Repos = parsed.Repos
		tc.sources["repos"] = source
	}
	if _, ok := raw["hooks"]; ok {
		tc.Config.Hooks = parsed.Hooks
		tc.sources["hooks"] = source
	}
	if _, ok := raw["ralph"]; ok {
		tc.Config.Ralph = parsed.Ralph
		tc.sources["ralph"] = source
	}
	if _, ok := raw["dashboard"]; ok {
		tc.Config.Dashboard = parsed.Dashboard
		tc.sources["dashboard"] = source
	}
	if _, ok := raw["sounds"]; ok {
		tc.Config.Sounds = parsed.Sounds
		tc.sources["sounds"] = source
	}
	if _, ok := raw["cliCommand"]; ok {
		tc.Config.CLICommand = parsed.CLICommand
		tc.sources["cliCommand"] = source
	}
	if _, ok := raw["issueTracker"]; ok {
		tc.Config.IssueTracker = parsed.IssueTracker
		tc.sources["issueTracker"] = source
	}
	if _, ok := raw["audit"]; ok {
		tc.Config.Audit = parsed.Audit
		tc.sources["audit"] = source
	}

	return nil
}

// applyEnvOverrides applies ORCH_*-prefixed environment variables, the
// loader's final, highest-precedence layer.
func applyEnvOverrides(tc *TrackedConfig) {
	v := viper.New()
	v.SetEnvPrefix("ORCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, ov := range envOverrides {
		_ = v.BindEnv(ov.viperKey)
		if v.IsSet(ov.viperKey) {
			ov.apply(tc, v)
			tc.sources[ov.field] = SourceEnv
		}
	}
}

// ShowSources renders each tracked field and the layer that set it, one
// per line, for `orc config --show-sources`.
func (tc *TrackedConfig) ShowSources() string {
	var b strings.Builder
	for _, f := range trackedFields {
		fmt.Fprintf(&b, "%-14s %s\n", f, tc.Source(f))
	}
	return b.String()
}
