package api

import "net/http"

// routes registers the REST and websocket surface on s.mux, following the
// CORS-wrapper idiom of the teacher's server_routes.go.
func (s *Server) routes() {
	s.mux = http.NewServeMux()

	cors := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			h(w, r)
		}
	}

	s.mux.HandleFunc("GET /api/health", cors(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	s.mux.HandleFunc("GET /api/sessions", cors(s.handleListSessions))
	s.mux.HandleFunc("POST /api/sessions/{repo}", cors(func(w http.ResponseWriter, r *http.Request) {
		s.handleSpawnSession(w, r, r.PathValue("repo"))
	}))
	s.mux.HandleFunc("GET /api/sessions/{repo}/{id}", cors(func(w http.ResponseWriter, r *http.Request) {
		s.handleGetSession(w, r, r.PathValue("repo"), r.PathValue("id"))
	}))
	s.mux.HandleFunc("PATCH /api/sessions/{repo}/{id}", cors(func(w http.ResponseWriter, r *http.Request) {
		s.handlePatchSession(w, r, r.PathValue("repo"), r.PathValue("id"))
	}))
	s.mux.HandleFunc("DELETE /api/sessions/{repo}/{id}", cors(func(w http.ResponseWriter, r *http.Request) {
		s.handleDeleteSession(w, r, r.PathValue("repo"), r.PathValue("id"))
	}))

	s.mux.HandleFunc("GET /api/repos", cors(s.handleListRepos))
	s.mux.HandleFunc("GET /api/repos/orphans", cors(s.handleDetectOrphans))

	s.mux.HandleFunc("GET /api/config", cors(s.handleGetConfig))

	s.mux.HandleFunc("GET /api/audit/{repo}/{id}", cors(func(w http.ResponseWriter, r *http.Request) {
		s.handleGetAuditTrail(w, r, r.PathValue("repo"), r.PathValue("id"))
	}))

	s.mux.HandleFunc("POST /api/ralph/{repo}/{id}/start", cors(func(w http.ResponseWriter, r *http.Request) {
		s.handleLoopControl(w, r, r.PathValue("repo"), r.PathValue("id"), "start")
	}))
	s.mux.HandleFunc("POST /api/ralph/{repo}/{id}/stop", cors(func(w http.ResponseWriter, r *http.Request) {
		s.handleLoopControl(w, r, r.PathValue("repo"), r.PathValue("id"), "stop")
	}))
	s.mux.HandleFunc("POST /api/ralph/{repo}/{id}/continue", cors(func(w http.ResponseWriter, r *http.Request) {
		s.handleLoopControl(w, r, r.PathValue("repo"), r.PathValue("id"), "continue")
	}))

	s.mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		s.WS.ServeHTTP(w, r)
	})
}
