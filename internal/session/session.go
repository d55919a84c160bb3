// Package session implements the session lifecycle manager: the durable
// record of one worker assignment, its status machine, and the service
// operations that mutate it.
package session

import "time"

// Status is one of the session lifecycle states.
type Status string

const (
	StatusRegistered         Status = "registered"
	StatusPlanning           Status = "planning"
	StatusPlanningComplete   Status = "planning_complete"
	StatusWorking            Status = "working"
	StatusShipping           Status = "shipping"
	StatusReviewsInProgress  Status = "reviews_in_progress"
	StatusPRReady            Status = "pr_ready"
	StatusStuck              Status = "stuck"
	StatusPaused             Status = "paused"
	StatusComplete           Status = "complete"
	StatusCancelled          Status = "cancelled"
	StatusDeleting           Status = "deleting"
	StatusDeletionFailed     Status = "deletion_failed"
)

// terminal holds the statuses from which no further transition is possible
// except through deletion.
var terminal = map[Status]bool{
	StatusComplete:  true,
	StatusCancelled: true,
}

// IsTerminal reports whether s is a terminal status.
func (s Status) IsTerminal() bool {
	return terminal[s]
}

// activeForStaleness holds the statuses eligible for the staleness check.
var activeForStaleness = map[Status]bool{
	StatusPlanning:         true,
	StatusPlanningComplete: true,
	StatusWorking:          true,
}

// IsActiveForStaleness reports whether s participates in the staleness
// predicate (§4.1/§8).
func (s Status) IsActiveForStaleness() bool {
	return activeForStaleness[s]
}

// StaleAfter is the heartbeat age beyond which an active-for-staleness
// session is considered stale.
const StaleAfter = 90 * time.Second

// Mode is the session's execution mode, set at spawn and immutable.
type Mode string

const (
	ModeUserDriven        Mode = "user-driven"
	ModeAutonomousOneShot Mode = "autonomous-one-shot"
	ModeIterative         Mode = "iterative"
)

// Issue is the immutable issue reference a session was spawned against.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body,omitempty"`
}

// Record is the durable orchestrator-side session record, persisted to
// work-<id>.json inside a repository's sessions directory.
type Record struct {
	ID    string `json:"id"`
	Issue Issue  `json:"issue"`
	Status Status `json:"status"`
	Mode   Mode   `json:"mode"`

	Branch       string `json:"branch"`
	WorktreePath string `json:"worktreePath"`

	StartedAt     time.Time `json:"startedAt"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`

	StuckReason      string `json:"stuckReason,omitempty"`
	ForwardedMessage string `json:"forwardedMessage,omitempty"`
	PullRequestURL   string `json:"pullRequestUrl,omitempty"`

	SpawnID string `json:"spawnId,omitempty"`

	Iteration          int    `json:"iteration,omitempty"`
	ReviewCycle        int    `json:"reviewCycle,omitempty"`
	LastReviewFeedback string `json:"lastReviewFeedback,omitempty"`

	PreviousStatus        Status `json:"previousStatus,omitempty"`
	DeletionError         string `json:"deletionError,omitempty"`
	OrphanedWorktreePath  string `json:"orphanedWorktreePath,omitempty"`

	RepoID string `json:"repoId,omitempty"`
}

// IsStale reports whether the record is stale: active-for-staleness and
// unheartbeaten for longer than StaleAfter.
func (r *Record) IsStale(now time.Time) bool {
	return r.Status.IsActiveForStaleness() && now.Sub(r.LastHeartbeat) > StaleAfter
}

// Context is written inside the worktree at spawn time and is the worker's
// only identity handle: read-only from the worker's perspective.
type Context struct {
	SessionID      string   `json:"sessionId"`
	Issue          Issue    `json:"issue"`
	RepoID         string   `json:"repoId"`
	Branch         string   `json:"branch"`
	WorktreePath   string   `json:"worktreePath"`
	RecordPath     string   `json:"recordPath"`
	Commands       Commands `json:"commands"`
}

// Commands are the pre-formatted command strings the worker invokes to
// interact with the orchestrator.
type Commands struct {
	Update    string `json:"update"`
	Heartbeat string `json:"heartbeat"`
}

// DynamicState is optionally written by the orchestrator into the worktree
// for workers whose prompt reads it instead of the main record.
type DynamicState struct {
	Status           Status    `json:"status"`
	ForwardedMessage string    `json:"forwardedMessage,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// transitions enumerates the allowed status edges (§4.1). A status not
// present as a key has no outgoing edges recorded here beyond the universal
// ones (any non-terminal -> stuck, any non-terminal -> cancelled, any -> deleting) which
// CanTransition handles explicitly.
var transitions = map[Status][]Status{
	StatusRegistered: {StatusWorking},
	// working -> complete is the iterative loop's direct completion edge
	// (no shipping/PR pipeline involved); working -> shipping is the
	// separate PR-driven path.
	StatusWorking:           {StatusPlanning, StatusPlanningComplete, StatusShipping, StatusComplete, StatusPaused},
	StatusPlanning:          {StatusWorking, StatusPlanningComplete},
	StatusPlanningComplete:  {StatusWorking, StatusPlanning},
	StatusShipping:          {StatusReviewsInProgress},
	StatusReviewsInProgress: {StatusPRReady, StatusShipping},
	StatusPRReady:           {StatusComplete},
	StatusStuck:             {StatusWorking, StatusPaused},
	StatusPaused:            {StatusWorking},
	StatusDeletionFailed:    {},
}

// CanTransition reports whether from -> to is a legal edge per §4.1.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if to == StatusDeleting {
		return true
	}
	if to == StatusStuck {
		return !from.IsTerminal() && from != StatusDeleting
	}
	if to == StatusCancelled {
		return !from.IsTerminal() && from != StatusDeleting
	}
	if from == StatusStuck && to == StatusPaused {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
