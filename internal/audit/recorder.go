package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/relayforge/orchestra/internal/session"
)

// AsAuditRecorder adapts a Store into the function-bundle shape
// session.Service expects, logging (not propagating) write failures — the
// audit trail is observability, never a request-path dependency.
func AsAuditRecorder(store Store, logger *slog.Logger) session.AuditRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return session.AuditRecorder{
		RecordTransition: func(ctx context.Context, repoID, sessionID string, from, to session.Status) error {
			err := store.RecordTransition(ctx, Transition{
				RepoID:     repoID,
				SessionID:  sessionID,
				FromStatus: string(from),
				ToStatus:   string(to),
				At:         time.Now(),
			})
			if err != nil {
				logger.Warn("audit: record transition failed", "repo", repoID, "session", sessionID, "err", err)
			}
			return err
		},
		RecordHook: func(ctx context.Context, repoID, sessionID, hookName string, success bool, durationMs int64) error {
			err := store.RecordHook(ctx, HookInvocation{
				RepoID:     repoID,
				SessionID:  sessionID,
				HookName:   hookName,
				Success:    success,
				DurationMs: durationMs,
				At:         time.Now(),
			})
			if err != nil {
				logger.Warn("audit: record hook invocation failed", "repo", repoID, "session", sessionID, "hook", hookName, "err", err)
			}
			return err
		},
	}
}
