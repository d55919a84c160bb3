// Package api implements the push channel and HTTP surface (components
// K/N): a websocket fan-out of session and terminal events, and the REST
// surface for session CRUD, config, and iterative-loop control.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/relayforge/orchestra/internal/config"
	"github.com/relayforge/orchestra/internal/events"
	"github.com/relayforge/orchestra/internal/repo"
	"github.com/relayforge/orchestra/internal/session"
)

// Server wires the HTTP surface over the multi-repository service and its
// per-repo iterative-loop managers.
type Server struct {
	Repos     *repo.Service
	Config    *config.Config
	Publisher events.Publisher
	WS        *WSHandler
	Logger    *slog.Logger

	mux *http.ServeMux
}

// NewServer constructs a Server and registers its routes.
func NewServer(repos *repo.Service, cfg *config.Config, publisher events.Publisher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Repos:     repos,
		Config:    cfg,
		Publisher: publisher,
		WS:        NewWSHandler(publisher, logger),
		Logger:    logger,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// errorBody is the JSON shape of every non-2xx response, per §7's
// illustrative surface: 400 bad input, 404 unknown id, 409 deletion
// conflict (carrying orphanedWorktreePath/canRetry/canForce), 500 internal.
type errorBody struct {
	Error                string `json:"error"`
	OrphanedWorktreePath string `json:"orphanedWorktreePath,omitempty"`
	CanRetry             bool   `json:"canRetry,omitempty"`
	CanForce             bool   `json:"canForce,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

var errSessionNotFound = errors.New("session not found")

// repoEntry resolves the :repo path segment, writing 404 itself on a miss.
func (s *Server) repoEntry(w http.ResponseWriter, repoID string) (*repo.Entry, bool) {
	entry := s.Repos.Get(repoID)
	if entry == nil {
		writeError(w, http.StatusNotFound, errors.New("unknown repo: "+repoID))
		return nil, false
	}
	return entry, true
}

// handleListSessions implements GET /api/sessions[?repo=...&includeCompleted=...].
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	opts := session.ListOptions{IncludeTerminal: r.URL.Query().Get("includeCompleted") == "true"}

	repoID := r.URL.Query().Get("repo")
	if repoID != "" {
		entry, ok := s.repoEntry(w, repoID)
		if !ok {
			return
		}
		records, err := entry.Service.List(opts)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
		return
	}

	records, err := s.Repos.ListAll(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleGetSession implements GET /api/sessions/:repo/:id.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, repoID, id string) {
	entry, ok := s.repoEntry(w, repoID)
	if !ok {
		return
	}
	record, err := entry.Service.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, errSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// spawnRequestBody is the body of POST /api/sessions/:repo.
type spawnRequestBody struct {
	IssueNumber  int    `json:"issueNumber"`
	IssueNumbers []int  `json:"issueNumbers"`
	Mode         string `json:"mode"`
}

// handleSpawnSession implements POST /api/sessions/:repo.
func (s *Server) handleSpawnSession(w http.ResponseWriter, r *http.Request, repoID string) {
	entry, ok := s.repoEntry(w, repoID)
	if !ok {
		return
	}

	var body spawnRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	issueNumbers := body.IssueNumbers
	if len(issueNumbers) == 0 {
		issueNumbers = []int{body.IssueNumber}
	}

	var records []*session.Record
	for _, n := range issueNumbers {
		record, err := entry.Service.Spawn(r.Context(), n, session.SpawnOptions{Mode: session.Mode(body.Mode)})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		records = append(records, record)
	}

	writeJSON(w, http.StatusOK, records)
}

// patchRequestBody is the body of PATCH /api/sessions/:repo/:id.
type patchRequestBody struct {
	Action  string `json:"action"` // forward, pause, resume, cancel, update
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
	Reason  string `json:"reason,omitempty"`
	PRURL   string `json:"prUrl,omitempty"`
}

// handlePatchSession implements PATCH /api/sessions/:repo/:id.
func (s *Server) handlePatchSession(w http.ResponseWriter, r *http.Request, repoID, id string) {
	entry, ok := s.repoEntry(w, repoID)
	if !ok {
		return
	}

	var body patchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var (
		record *session.Record
		err    error
	)
	switch body.Action {
	case "forward":
		record, err = entry.Service.Forward(id, body.Message)
	case "pause":
		record, err = entry.Service.Pause(r.Context(), id)
	case "resume":
		record, err = entry.Service.Resume(r.Context(), id)
	case "cancel":
		record, err = entry.Service.Update(r.Context(), id, session.StatusCancelled, body.Reason, "")
	case "update":
		record, err = entry.Service.Update(r.Context(), id, session.Status(body.Status), body.Reason, body.PRURL)
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown action: "+body.Action))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleDeleteSession implements DELETE
// /api/sessions/:repo/:id[?force=...&deletionMode=...].
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, repoID, id string) {
	entry, ok := s.repoEntry(w, repoID)
	if !ok {
		return
	}

	force := r.URL.Query().Get("force") == "true"
	mode := session.DeleteMode(r.URL.Query().Get("deletionMode"))
	if mode == "" {
		mode = session.DeleteFolderOnly
	}

	result, err := entry.Service.Delete(r.Context(), id, mode, force)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !result.Success {
		writeJSON(w, http.StatusConflict, errorBody{
			Error:                result.Error,
			OrphanedWorktreePath: result.OrphanedWorktreePath,
			CanRetry:             true,
			CanForce:             !force,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListRepos implements GET /api/repos.
func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	ids := make([]string, 0, len(s.Repos.Entries))
	for id := range s.Repos.Entries {
		ids = append(ids, id)
	}
	writeJSON(w, http.StatusOK, ids)
}

// handleDetectOrphans implements GET /api/repos/orphans.
func (s *Server) handleDetectOrphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := s.Repos.DetectOrphans()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, orphans)
}

// handleGetConfig implements GET /api/config.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Config)
}

// handleGetAuditTrail implements GET /api/audit/:repo/:id. 404 if the audit
// store is disabled, per SPEC_FULL §6.
func (s *Server) handleGetAuditTrail(w http.ResponseWriter, r *http.Request, repoID, id string) {
	if s.Repos.Audit == nil {
		writeError(w, http.StatusNotFound, errors.New("audit store is disabled"))
		return
	}
	if _, ok := s.repoEntry(w, repoID); !ok {
		return
	}
	entries, err := s.Repos.Audit.Trail(r.Context(), repoID, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// loopStartBody is the body of POST /api/ralph/:repo/:id/start.
type loopStartBody struct {
	Iterations int `json:"iterations"`
}

// handleLoopControl implements POST /api/ralph/:repo/:id/{start,stop,continue}.
// The controller for a session is registered by the caller that started its
// loop (the spawn path, for iterative-mode sessions); a loop action against
// a session with no registered controller is a 404, not an implicit start.
func (s *Server) handleLoopControl(w http.ResponseWriter, r *http.Request, repoID, id, action string) {
	entry, ok := s.repoEntry(w, repoID)
	if !ok {
		return
	}

	c, ok := entry.Loops.Controller(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no iterative loop registered for session "+id))
		return
	}

	var err error
	switch action {
	case "start":
		var body loopStartBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		err = c.Start(r.Context(), body.Iterations)
	case "stop":
		err = c.Stop(r.Context())
	case "continue":
		err = c.Continue(r.Context())
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown loop action: "+action))
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": c.State()})
}
