package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/justapithecus/contribuart/github"
	"github.com/justapithecus/contribuart/plan"
	"github.com/justapithecus/contribuart/runtime"
	"github.com/justapithecus/contribuart/stream"
	"github.com/justapithecus/contribuart/types"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// githubStatus maps a GitHub error to a response status and message.
func githubStatus(err error, fallback string) (int, string) {
	var rl *github.RateLimitError
	if errors.As(err, &rl) {
		return http.StatusTooManyRequests, "GitHub API rate limit exceeded. Please try again in a few minutes."
	}
	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return http.StatusUnauthorized, "Authentication failed. Please sign in again."
		case http.StatusForbidden:
			return http.StatusForbidden, apiErr.Message
		case http.StatusUnprocessableEntity:
			return http.StatusUnprocessableEntity, apiErr.Message
		}
	}
	return http.StatusInternalServerError, fallback
}

// paintRequestError maps plan validation to a client error.
func paintRequestError(err error) (int, string) {
	if errors.Is(err, types.ErrInvalidRequest) || errors.Is(err, plan.ErrNothingToPaint) {
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "failed to plan paint"
}

func (s *Server) newPaint(req *types.PaintRequest, identity types.Identity, remote GitHubAPI, sink runtime.ProgressSink) (*runtime.PaintOrchestrator, error) {
	meta := runtime.NewPaintMeta(req)
	return runtime.NewPaintOrchestrator(&runtime.PaintConfig{
		Meta:        meta,
		Request:     req,
		Identity:    identity,
		Remote:      remote,
		Branches:    s.cfg.Branches,
		ForceUpdate: s.cfg.ForceUpdate,
		Retry:       s.cfg.Retry,
		Sink:        sink,
		Journal:     s.cfg.Journal,
		Notifier:    s.cfg.Notifier,
		Collector:   s.cfg.Collector,
		Logger:      s.logger.WithPaint(meta),
		Clock:       s.cfg.Clock,
	})
}

// handlePaint streams a paint as server-sent events, or as msgpack frames
// when the client accepts application/x-msgpack. All validation happens
// before the first remote write; a disconnect cancels the paint.
func (s *Server) handlePaint(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.PaintRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := plan.ForRequest(&req); err != nil {
		status, msg := paintRequestError(err)
		writeError(w, status, msg)
		return
	}

	client := s.cfg.NewClient(token)
	identity, err := client.Identity(r.Context())
	if err != nil {
		s.logger.Warn("identity lookup failed", map[string]any{"error": err.Error()})
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var sink runtime.ProgressSink
	if strings.Contains(r.Header.Get("Accept"), stream.ContentTypeMsgpack) {
		w.Header().Set("Content-Type", stream.ContentTypeMsgpack)
		w.Header().Set("Cache-Control", "no-cache")
		sink = stream.NewFrameWriter(w)
	} else {
		stream.SetSSEHeaders(w.Header())
		sink = stream.NewSSEWriter(w)
	}

	orch, err := s.newPaint(&req, identity, client, sink)
	if err != nil {
		status, msg := paintRequestError(err)
		writeError(w, status, msg)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := orch.Execute(r.Context()); err != nil {
		s.logger.Error("paint execution error", map[string]any{"error": err.Error()})
	}
}

// handlePaintWS runs a paint over a WebSocket. The first client message is
// the paint request; every progress event is one text message. Errors
// after the upgrade are reported as a terminal error event.
func (s *Server) handlePaintWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.originAllowed(r.Header.Get("Origin"))
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sink := stream.NewWSSink(conn)
	defer func() { _ = sink.Close() }()

	fail := func(err error) {
		_ = sink.Send(types.ProgressEvent{Message: runtime.ErrorMessage(err), Done: true})
	}

	conn.SetReadLimit(maxBodyBytes)
	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var req types.PaintRequest
	if err := json.Unmarshal(data, &req); err != nil {
		fail(errors.New("invalid request body"))
		return
	}
	if _, err := plan.ForRequest(&req); err != nil {
		fail(err)
		return
	}

	client := s.cfg.NewClient(token)
	identity, err := client.Identity(r.Context())
	if err != nil {
		fail(errors.New("unauthorized"))
		return
	}

	orch, err := s.newPaint(&req, identity, client, sink)
	if err != nil {
		fail(err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stream.WatchClose(conn, cancel)

	if _, err := orch.Execute(ctx); err != nil {
		s.logger.Error("paint execution error", map[string]any{"error": err.Error()})
	}
}

func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	repos, err := s.cfg.NewClient(token).ListRepos(r.Context())
	if err != nil {
		s.logger.Error("list repositories failed", map[string]any{"error": err.Error()})
		status, msg := githubStatus(err, "Failed to fetch repositories")
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

func (s *Server) handleCreateRepo(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var body struct {
		Name    string `json:"name"`
		Private bool   `json:"private"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := github.ValidateRepoName(body.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	repo, err := s.cfg.NewClient(token).CreateRepo(r.Context(), body.Name, body.Private)
	if err != nil {
		s.logger.Error("create repository failed", map[string]any{"name": body.Name, "error": err.Error()})
		status, msg := githubStatus(err, "Failed to create repository. Please try again.")
		if status == http.StatusUnprocessableEntity && strings.Contains(msg, "already exists") {
			msg = "A repository with the name \"" + strings.TrimSpace(body.Name) + "\" already exists"
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusCreated, repo)
}

func (s *Server) handleContributions(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	now := s.now()
	year := now.Year()
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || !github.ValidYear(y, now) {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}

	identity, err := s.cfg.NewClient(token).Identity(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cal, err := s.cfg.NewCalendar(r.Context(), token).Fetch(r.Context(), identity.Login, year)
	if err != nil {
		s.logger.Error("fetch contributions failed", map[string]any{"login": identity.Login, "year": year, "error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Failed to fetch contributions")
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": types.Version})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Collector.Snapshot())
}
