package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/relayforge/orchestra/internal/errors"
	"github.com/relayforge/orchestra/internal/events"
)

// VCSAdapter is the capability set the session service needs from the
// version-control adapter (component A). Implemented by internal/vcs.
type VCSAdapter struct {
	CreateWorktree func(repoPath, worktreeRoot, prefix, branch string, issueNumber int) (worktreePath string, err error)
	RemoveWorktree func(worktreePath string) error
	DeleteBranch   func(repoPath, branch string, remote bool) error
	IsDirty        func(worktreePath string) (bool, error)
}

// SpawnRequest describes a worker invocation request to the spawner.
type SpawnRequest struct {
	SessionID    string
	RepoID       string
	WorktreePath string
	PromptPath   string
	CLICommand   string
	Env          map[string]string
}

// SpawnResult is the spawner's response to a spawn call (§4.4).
type SpawnResult struct {
	Success   bool
	SpawnID   string
	SpawnedAt time.Time
	PID       int
	Error     string
}

// Spawner is the capability set the session service needs from the
// worker spawner (component D). Implemented by internal/spawner.
type Spawner struct {
	Name        func() string
	IsAvailable func(ctx context.Context) (bool, error)
	Spawn       func(ctx context.Context, req SpawnRequest) (SpawnResult, error)
	Stop        func(ctx context.Context, spawnID string) error
}

// HookResult is a command hook's outcome (§4.9).
type HookResult struct {
	Success    bool
	Output     string
	Error      string
	DurationMs int64
}

// HookRunner is the capability set the session service needs from the
// hook executor (component F). Implemented by internal/hook.
type HookRunner struct {
	Run func(ctx context.Context, hookName string, record *Record, repoID, issueTitle string) (HookResult, error)
}

// IssueFetcher optionally hydrates issue title/body at spawn time
// (supplemental component L). A failure here is non-fatal and not logged:
// Spawn ignores the error and keeps the placeholder title "Issue #N".
type IssueFetcher func(ctx context.Context, repoID string, issueNumber int) (title, body string, err error)

// AuditRecorder optionally appends side-channel observability records
// (supplemental component M). It is never consulted to reconstruct
// authoritative state, so a nil field or a recorder returning an error is
// logged-and-ignored by the service, never fatal to the caller's request.
type AuditRecorder struct {
	RecordTransition func(ctx context.Context, repoID, sessionID string, from, to Status) error
	RecordHook       func(ctx context.Context, repoID, sessionID, hookName string, success bool, durationMs int64) error
}

// RepoConfig is the subset of per-repo configuration the session service
// needs, decoupled from internal/config to avoid an import cycle with the
// multi-repository service that constructs services per repo.
type RepoConfig struct {
	ID             string
	Path           string
	Branch         string
	WorktreeRoot   string
	WorktreePrefix string
	CLICommand     string
}

// Service implements the public session-service operations for a single
// repository (§4.2). It mediates the store, VCS adapter, spawner, and hook
// runner, and owns the invariants of the lifecycle state machine.
type Service struct {
	Repo   RepoConfig
	Store  *Store
	VCS    VCSAdapter
	Spawn  Spawner
	Hooks  HookRunner
	Issues IssueFetcher
	Audit  AuditRecorder

	Publisher events.Publisher

	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) publish(eventType events.EventType, record *Record) {
	if s.Publisher == nil {
		return
	}
	s.Publisher.Publish(events.NewEvent(eventType, record.ID, record))
}

// runHook invokes a hook through s.Hooks.Run and appends an audit record of
// the invocation, regardless of whether the hook itself is configured to
// run (component M observes attempted invocations, not just successes).
func (s *Service) runHook(ctx context.Context, hookName string, record *Record, issueTitle string) {
	if s.Hooks.Run == nil {
		return
	}
	result, err := s.Hooks.Run(ctx, hookName, record, s.Repo.ID, issueTitle)
	if s.Audit.RecordHook != nil {
		_ = s.Audit.RecordHook(ctx, s.Repo.ID, record.ID, hookName, err == nil && result.Success, result.DurationMs)
	}
}

// recordTransition appends an audit record of a status edge. Side-channel
// only: failures here are swallowed, never surfaced to the caller.
func (s *Service) recordTransition(ctx context.Context, sessionID string, from, to Status) {
	if s.Audit.RecordTransition == nil {
		return
	}
	_ = s.Audit.RecordTransition(ctx, s.Repo.ID, sessionID, from, to)
}

// SpawnOptions configures a spawn call.
type SpawnOptions struct {
	Mode            Mode
	PromptInjection string
}

// Spawn creates a new session in status working: it creates the worktree,
// writes the prompt and session record and context, launches the worker,
// and fires the onSpawn hook (non-fatal on failure, per Open Question #3).
func (s *Service) Spawn(ctx context.Context, issueNumber int, opts SpawnOptions) (*Record, error) {
	id := fmt.Sprintf("%d", issueNumber)
	if s.Store.Exists(id) {
		return nil, errors.ErrSessionDuplicate(id)
	}

	if available, err := s.spawnerAvailable(ctx); err != nil || !available {
		return nil, errors.ErrSpawnerUnavailable(s.Spawn.Name(), err)
	}

	branch := fmt.Sprintf("issue-%d", issueNumber)
	worktreePath, err := s.VCS.CreateWorktree(s.Repo.Path, s.Repo.WorktreeRoot, s.Repo.WorktreePrefix, branch, issueNumber)
	if err != nil {
		return nil, fmt.Errorf("create worktree: %w", err)
	}

	title, body := fmt.Sprintf("Issue #%d", issueNumber), ""
	if s.Issues != nil {
		if t, b, ferr := s.Issues(ctx, s.Repo.ID, issueNumber); ferr == nil {
			title, body = t, b
		}
		// Issue-fetch failure is non-fatal (SPEC_FULL §7): the session still
		// spawns with a placeholder title.
	}

	now := s.now()
	record := &Record{
		ID:            id,
		Issue:         Issue{Number: issueNumber, Title: title, Body: body},
		Status:        StatusRegistered,
		Mode:          opts.Mode,
		Branch:        branch,
		WorktreePath:  worktreePath,
		StartedAt:     now,
		LastHeartbeat: now,
		RepoID:        s.Repo.ID,
	}

	if err := s.Store.Save(record); err != nil {
		_ = s.VCS.RemoveWorktree(worktreePath)
		return nil, fmt.Errorf("save session record: %w", err)
	}

	cliCommand := s.Repo.CLICommand
	if cliCommand == "" {
		cliCommand = "orch"
	}
	sessCtx := &Context{
		SessionID:    id,
		Issue:        record.Issue,
		RepoID:       s.Repo.ID,
		Branch:       branch,
		WorktreePath: worktreePath,
		RecordPath:   s.Store.path(id),
		Commands: Commands{
			Update:    fmt.Sprintf("%s update --id %s", cliCommand, id),
			Heartbeat: fmt.Sprintf("%s heartbeat --id %s", cliCommand, id),
		},
	}
	if err := WriteContext(worktreePath, sessCtx); err != nil {
		return nil, fmt.Errorf("write session context: %w", err)
	}

	promptPath, err := writePrompt(worktreePath, record, opts.PromptInjection)
	if err != nil {
		return nil, fmt.Errorf("write worker prompt: %w", err)
	}

	result, err := s.Spawn.Spawn(ctx, SpawnRequest{
		SessionID:    id,
		RepoID:       s.Repo.ID,
		WorktreePath: worktreePath,
		PromptPath:   promptPath,
		CLICommand:   cliCommand,
	})
	if err != nil || !result.Success {
		return nil, fmt.Errorf("spawn worker: %w", err)
	}

	record.Status = StatusWorking
	record.SpawnID = result.SpawnID
	if err := s.Store.Save(record); err != nil {
		return nil, fmt.Errorf("save session record after spawn: %w", err)
	}

	s.runHook(ctx, "onSpawn", record, title)

	s.publish(events.EventSessionAdd, record)
	return record, nil
}

func (s *Service) spawnerAvailable(ctx context.Context) (bool, error) {
	if s.Spawn.IsAvailable == nil {
		return true, nil
	}
	return s.Spawn.IsAvailable(ctx)
}

// ListOptions filters the list operation.
type ListOptions struct {
	IncludeTerminal bool
}

// List returns session records, sorted by issue number ascending,
// transparently garbage-collecting records whose worktree has vanished.
func (s *Service) List(opts ListOptions) ([]*Record, error) {
	var (
		records []*Record
		err     error
	)
	if opts.IncludeTerminal {
		records, err = s.Store.ListAll()
	} else {
		records, err = s.Store.ListActive()
	}
	if err != nil {
		return nil, err
	}

	kept := records[:0]
	for _, r := range records {
		if r.WorktreePath != "" && !pathExists(r.WorktreePath) && r.Status != StatusDeleting {
			_ = s.Store.Delete(r.ID)
			s.publish(events.EventSessionRemove, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}

// Get returns the session record for id, or nil if none exists.
func (s *Service) Get(id string) (*Record, error) {
	record, err := s.Store.Load(id)
	if err != nil {
		if orchErr := errorsAsNotFound(err); orchErr {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func errorsAsNotFound(err error) bool {
	oe := errors.AsOrchError(err)
	return oe != nil && oe.Code == errors.CodeSessionNotFound
}

// Update transitions a session's status, validating the edge, refreshing
// lastHeartbeat, writing the dynamic-state file, and firing the
// appropriate transition hook.
func (s *Service) Update(ctx context.Context, id string, newStatus Status, reason, prURL string) (*Record, error) {
	record, err := s.Store.Load(id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(record.Status, newStatus) {
		return nil, errors.ErrInvalidTransition(id, string(record.Status), string(newStatus))
	}
	if newStatus == StatusStuck && reason == "" {
		return nil, errors.ErrConfigInvalid("reason", "status stuck requires a reason")
	}

	prevStatus := record.Status
	record.Status = newStatus
	record.LastHeartbeat = s.now()
	if newStatus == StatusStuck {
		record.StuckReason = reason
	}
	if prURL != "" {
		record.PullRequestURL = prURL
	}

	if err := s.Store.Save(record); err != nil {
		return nil, err
	}
	_ = WriteDynamicState(record.WorktreePath, record.Status, record.ForwardedMessage)

	s.recordTransition(ctx, record.ID, prevStatus, newStatus)
	if hookName, ok := transitionHook(prevStatus, newStatus, record.PullRequestURL != ""); ok {
		s.runHook(ctx, hookName, record, record.Issue.Title)
	}

	s.publish(events.EventSessionUpdate, record)
	return record, nil
}

// transitionHook maps a status edge to the hook name it fires, per §4.6.
func transitionHook(from, to Status, hasPR bool) (string, bool) {
	switch {
	case to == StatusStuck:
		return "onStuck", true
	case to == StatusComplete:
		return "onComplete", true
	case to == StatusShipping && hasPR:
		return "onShip", true
	default:
		return "", false
	}
}

// HeartbeatResult is the response to a heartbeat call.
type HeartbeatResult struct {
	Recorded  bool
	HasMessage bool
}

// Heartbeat refreshes lastHeartbeat only.
func (s *Service) Heartbeat(id string) (HeartbeatResult, error) {
	record, err := s.Store.Load(id)
	if err != nil {
		return HeartbeatResult{}, err
	}
	record.LastHeartbeat = s.now()
	if err := s.Store.Save(record); err != nil {
		return HeartbeatResult{}, err
	}
	return HeartbeatResult{Recorded: true, HasMessage: record.ForwardedMessage != ""}, nil
}

// Forward sets forwardedMessage and writes the dynamic-state file.
func (s *Service) Forward(id, message string) (*Record, error) {
	record, err := s.Store.Load(id)
	if err != nil {
		return nil, err
	}
	record.ForwardedMessage = message
	if err := s.Store.Save(record); err != nil {
		return nil, err
	}
	_ = WriteDynamicState(record.WorktreePath, record.Status, record.ForwardedMessage)
	s.publish(events.EventSessionUpdate, record)
	return record, nil
}

// Acknowledge clears forwardedMessage.
func (s *Service) Acknowledge(id string) (*Record, error) {
	record, err := s.Store.Load(id)
	if err != nil {
		return nil, err
	}
	record.ForwardedMessage = ""
	if err := s.Store.Save(record); err != nil {
		return nil, err
	}
	_ = WriteDynamicState(record.WorktreePath, record.Status, "")
	s.publish(events.EventSessionUpdate, record)
	return record, nil
}

// Pause transitions working/stuck -> paused. Calling pause on an already
// paused session is a no-op except for lastHeartbeat refresh (§8).
func (s *Service) Pause(ctx context.Context, id string) (*Record, error) {
	record, err := s.Store.Load(id)
	if err != nil {
		return nil, err
	}
	if record.Status == StatusPaused {
		record.LastHeartbeat = s.now()
		return record, s.Store.Save(record)
	}
	return s.Update(ctx, id, StatusPaused, "", "")
}

// Resume transitions paused -> working. Calling resume on a non-paused
// session is a no-op except for lastHeartbeat refresh (§8).
func (s *Service) Resume(ctx context.Context, id string) (*Record, error) {
	record, err := s.Store.Load(id)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusPaused {
		record.LastHeartbeat = s.now()
		return record, s.Store.Save(record)
	}
	return s.Update(ctx, id, StatusWorking, "", "")
}

// Restart re-runs the spawner in the existing worktree, rotating spawnId.
// Restarting a session already in a terminal state is a conflict (Open
// Question #2).
func (s *Service) Restart(ctx context.Context, id string, iteration int) (*Record, error) {
	record, err := s.Store.Load(id)
	if err != nil {
		return nil, err
	}
	if record.Status.IsTerminal() {
		return nil, errors.ErrInvalidTransition(id, string(record.Status), "restarted")
	}

	promptPath, err := writePrompt(record.WorktreePath, record, "")
	if err != nil {
		return nil, fmt.Errorf("write worker prompt: %w", err)
	}

	result, err := s.Spawn.Spawn(ctx, SpawnRequest{
		SessionID:    id,
		RepoID:       s.Repo.ID,
		WorktreePath: record.WorktreePath,
		PromptPath:   promptPath,
		CLICommand:   s.Repo.CLICommand,
	})
	if err != nil || !result.Success {
		return nil, fmt.Errorf("spawn worker: %w", err)
	}

	record.SpawnID = result.SpawnID
	record.Status = StatusWorking
	record.LastHeartbeat = s.now()
	if iteration > 0 {
		record.Iteration = iteration
	}
	if err := s.Store.Save(record); err != nil {
		return nil, err
	}
	s.publish(events.EventSessionUpdate, record)
	return record, nil
}

// DeleteMode selects how much of the session's footprint delete removes.
type DeleteMode string

const (
	DeleteFolderOnly       DeleteMode = "folder-only"
	DeleteWithLocalBranch  DeleteMode = "with-local-branch"
	DeleteEverything       DeleteMode = "everything"
)

// DeleteResult is the outcome of a delete call.
type DeleteResult struct {
	Success              bool
	Error                string
	OrphanedWorktreePath string
}

// Delete transitions the session to deleting, removes the worktree,
// optionally deletes the branch, and removes the record. On worktree
// removal failure without force, the record becomes deletion_failed with
// orphanedWorktreePath set (§4.2, §8 scenario 5).
func (s *Service) Delete(ctx context.Context, id string, mode DeleteMode, force bool) (DeleteResult, error) {
	record, err := s.Store.Load(id)
	if err != nil {
		return DeleteResult{}, err
	}

	if !force {
		dirty, derr := s.VCS.IsDirty(record.WorktreePath)
		if derr == nil && dirty {
			record.PreviousStatus = record.Status
			record.Status = StatusDeletionFailed
			record.OrphanedWorktreePath = record.WorktreePath
			record.DeletionError = "uncommitted changes in worktree"
			_ = s.Store.Save(record)
			return DeleteResult{
				Success:              false,
				Error:                "delete failed: uncommitted changes in worktree",
				OrphanedWorktreePath: record.WorktreePath,
			}, nil
		}
	}

	prevStatus := record.Status
	record.Status = StatusDeleting
	_ = s.Store.Save(record)

	if s.Spawn.Stop != nil && record.SpawnID != "" {
		_ = s.Spawn.Stop(ctx, record.SpawnID)
	}

	if err := s.VCS.RemoveWorktree(record.WorktreePath); err != nil {
		record.PreviousStatus = prevStatus
		record.Status = StatusDeletionFailed
		record.OrphanedWorktreePath = record.WorktreePath
		record.DeletionError = err.Error()
		_ = s.Store.Save(record)
		return DeleteResult{Success: false, Error: err.Error(), OrphanedWorktreePath: record.WorktreePath}, nil
	}

	if mode == DeleteWithLocalBranch || mode == DeleteEverything {
		_ = s.VCS.DeleteBranch(s.Repo.Path, record.Branch, mode == DeleteEverything)
	}

	if err := s.Store.Delete(id); err != nil {
		return DeleteResult{}, err
	}
	s.recordTransition(ctx, id, prevStatus, StatusDeleting)
	s.publish(events.EventSessionRemove, record)
	return DeleteResult{Success: true}, nil
}

// RetryDelete attempts deletion again for a session in deletion_failed.
func (s *Service) RetryDelete(ctx context.Context, id string, mode DeleteMode) (DeleteResult, error) {
	record, err := s.Store.Load(id)
	if err != nil {
		return DeleteResult{}, err
	}
	if record.Status != StatusDeletionFailed {
		return DeleteResult{}, errors.ErrInvalidTransition(id, string(record.Status), "retried delete")
	}
	return s.Delete(ctx, id, mode, true)
}

// RollbackDelete restores previousStatus for a session in deletion_failed.
func (s *Service) RollbackDelete(id string) (*Record, error) {
	record, err := s.Store.Load(id)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusDeletionFailed {
		return nil, errors.ErrInvalidTransition(id, string(record.Status), "rolled back")
	}
	record.Status = record.PreviousStatus
	record.DeletionError = ""
	record.OrphanedWorktreePath = ""
	record.PreviousStatus = ""
	if err := s.Store.Save(record); err != nil {
		return nil, err
	}
	s.publish(events.EventSessionUpdate, record)
	return record, nil
}

// NewSpawnID returns a fresh, process-unique spawn identifier. Spawner
// implementations that don't derive one naturally (e.g. from a container
// id) use this.
func NewSpawnID() string {
	return uuid.NewString()
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
