// Package config loads and tracks the orchestrator's central configuration
// document, conventionally discovered at ~/.orchestration/config.json.
package config

// Source identifies which layer set a config field's effective value.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
)

// HookType distinguishes a command hook (a shell template) from a prompt
// hook (literal text injected into the worker prompt, never executed).
type HookType string

const (
	HookTypeCommand HookType = "command"
	HookTypePrompt  HookType = "prompt"
)

// Hook is either {type, value} or, in shorthand form, a bare string that is
// interpreted as a command hook iff it starts with "/". UnmarshalJSON
// implements the shorthand.
type Hook struct {
	Type  HookType `json:"type"`
	Value string   `json:"value"`
}

// HookName enumerates the recognized lifecycle hook points.
type HookName string

const (
	HookOnSpawn     HookName = "onSpawn"
	HookOnStuck     HookName = "onStuck"
	HookOnShip      HookName = "onShip"
	HookOnComplete  HookName = "onComplete"
	HookOnTest      HookName = "onTest"
	HookOnIteration HookName = "onIteration"
)

// DoneSignalType names a completion mechanism for the iterative loop. The
// loop controller does not read it: it decides from the status-signal file
// and, when that is absent or unrecognized, from the task plan (see Open
// Question #1 in DESIGN.md).
type DoneSignalType string

const (
	DoneSignalStatus   DoneSignalType = "status"
	DoneSignalFile     DoneSignalType = "file"
	DoneSignalExitCode DoneSignalType = "exit_code"
)

// DoneSignal holds the configured iterative-loop completion check; it is
// loaded with the config but not consulted by internal/loop.
type DoneSignal struct {
	Type  DoneSignalType `json:"type"`
	Value string         `json:"value"`
}

// DockerSpawnerConfig configures the sandboxed spawner variant.
type DockerSpawnerConfig struct {
	Image       string `json:"image,omitempty"`
	MemoryLimit string `json:"memoryLimit,omitempty"`
	CPULimit    string `json:"cpuLimit,omitempty"`
}

// SpawnerType selects the worker spawner implementation.
type SpawnerType string

const (
	SpawnerHeadless SpawnerType = "headless"
	SpawnerDocker   SpawnerType = "docker"
)

// SpawnerConfig configures which Spawner implementation the worker spawner
// component constructs.
type SpawnerConfig struct {
	Type   SpawnerType         `json:"type"`
	Docker DockerSpawnerConfig `json:"docker,omitempty"`
	UsePty bool                `json:"usePty,omitempty"`
}

// RalphConfig is the iterative-loop configuration block, named "ralph" for
// continuity with the lineage of worker configs this document descends from.
type RalphConfig struct {
	MaxIterations    int            `json:"maxIterations"`
	DoneSignal       DoneSignal     `json:"doneSignal"`
	IterationDelayMs int            `json:"iterationDelayMs"`
	Spawner          *SpawnerConfig `json:"spawner,omitempty"`
}

// DashboardConfig configures the HTTP dashboard.
type DashboardConfig struct {
	Port        int    `json:"port"`
	SessionsDir string `json:"sessionsDir,omitempty"`
}

// IssueTrackerType selects an issue-provider implementation (component L).
type IssueTrackerType string

const (
	IssueTrackerGitHub IssueTrackerType = "github"
	IssueTrackerGitLab IssueTrackerType = "gitlab"
	IssueTrackerJira   IssueTrackerType = "jira"
)

// IssueTrackerConfig is supplemental (SPEC_FULL §6): configures the issue
// provider used to hydrate issue title/body at spawn time.
type IssueTrackerConfig struct {
	Type      IssueTrackerType `json:"type"`
	Token     string           `json:"token,omitempty"`
	BaseURL   string           `json:"baseUrl,omitempty"`
	Owner     string           `json:"owner,omitempty"`     // github
	Repo      string           `json:"repo,omitempty"`      // github
	ProjectID string           `json:"projectId,omitempty"` // gitlab
	Email     string           `json:"email,omitempty"`     // jira basic auth
	ProjectKey string          `json:"projectKey,omitempty"` // jira
}

// AuditBackend selects the audit store implementation (component M).
type AuditBackend string

const (
	AuditBackendSQLite   AuditBackend = "sqlite"
	AuditBackendPostgres AuditBackend = "postgres"
)

// AuditConfig is supplemental (SPEC_FULL §6): configures the side-channel
// audit store.
type AuditConfig struct {
	Backend AuditBackend `json:"backend"`
	DSN     string       `json:"dsn,omitempty"`
}

// RepoConfig describes one configured repository.
type RepoConfig struct {
	Path           string           `json:"path"`
	GithubOwner    string           `json:"githubOwner,omitempty"`
	GithubRepo     string           `json:"githubRepo,omitempty"`
	BaseBranch     string           `json:"baseBranch,omitempty"`
	WorktreeRoot   string           `json:"worktreeRoot,omitempty"`
	WorktreePrefix string           `json:"worktreePrefix,omitempty"`
	DefaultMode    string           `json:"defaultMode,omitempty"`
	CLICommand     string           `json:"cliCommand,omitempty"`
	Hooks          map[string]*Hook `json:"hooks,omitempty"`
	IssueTracker   *IssueTrackerConfig `json:"issueTracker,omitempty"`
}

// Config is the full central configuration document.
type Config struct {
	Version      string                 `json:"version"`
	Repos        map[string]*RepoConfig `json:"repos"`
	Hooks        map[string]*Hook       `json:"hooks,omitempty"`
	Ralph        RalphConfig            `json:"ralph"`
	Dashboard    DashboardConfig        `json:"dashboard"`
	Sounds       map[string]any         `json:"sounds,omitempty"`
	CLICommand   string                 `json:"cliCommand"`
	IssueTracker *IssueTrackerConfig    `json:"issueTracker,omitempty"`
	Audit        AuditConfig            `json:"audit"`
}

// EffectiveHook resolves the hook for hookName in repo's scope, preferring a
// per-repo override over the global map.
func (c *Config) EffectiveHook(repoID string, hookName HookName) (*Hook, bool) {
	if repo, ok := c.Repos[repoID]; ok {
		if h, ok := repo.Hooks[string(hookName)]; ok {
			return h, true
		}
	}
	if h, ok := c.Hooks[string(hookName)]; ok {
		return h, true
	}
	return nil, false
}

// EffectiveIssueTracker resolves the issue tracker config for repoID,
// preferring a per-repo override over the global setting.
func (c *Config) EffectiveIssueTracker(repoID string) *IssueTrackerConfig {
	if repo, ok := c.Repos[repoID]; ok && repo.IssueTracker != nil {
		return repo.IssueTracker
	}
	return c.IssueTracker
}
