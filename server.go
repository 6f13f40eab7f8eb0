package main

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"wood-empire/game"
	"wood-empire/session"
)

const (
	cookieName     = "pid"
	requestTimeout = 5 * time.Second
	maxAPIBody     = 4 << 10
)

type server struct {
	sessions   *session.Manager
	tmpl       *template.Template
	hub        *Hub
	adminToken string
	logger     *slog.Logger
}

type apiActionRequest struct {
	Action  string `json:"action"`
	Upgrade string `json:"upgrade,omitempty"`
}

type apiStateResponse struct {
	Slot     string        `json:"slot"`
	State    game.State    `json:"state"`
	Progress int           `json:"progress"`
	Settling bool          `json:"settling"`
	Outcome  *game.Outcome `json:"outcome,omitempty"`
}

func newMux(srv *server) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		slot := ensureSlot(w, r)
		res, err := srv.sessions.Snapshot(r.Context(), slot)
		if err != nil {
			srv.unavailable(w, r, err)
			return
		}
		renderPage(w, srv.tmpl, "base", buildPageData(slot, r.URL.Query().Get("tab"), res))
	})

	mux.HandleFunc("/frag/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		slot := ensureSlot(w, r)
		res, err := srv.sessions.Snapshot(r.Context(), slot)
		if err != nil {
			srv.unavailable(w, r, err)
			return
		}
		renderActionLikeResponse(w, srv.tmpl, buildPageData(slot, r.URL.Query().Get("tab"), res))
	})

	mux.HandleFunc("/action", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		action, ok := game.ParseAction(strings.TrimSpace(r.FormValue("action")))
		if !ok {
			http.Error(w, "unknown action", http.StatusBadRequest)
			return
		}
		upgrade := game.UpgradeID(strings.TrimSpace(r.FormValue("upgrade")))

		slot := ensureSlot(w, r)
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		res, err := srv.sessions.Snapshot(ctx, slot)
		if err != nil {
			srv.unavailable(w, r, err)
			return
		}
		// A disabled control never reaches its rule, even when the request is forged.
		if !game.Available(res.State, action, upgrade) {
			data := buildPageData(slot, r.FormValue("tab"), res)
			data.Toast = "Can't " + strings.ToLower(game.Label(action, upgrade)) + " yet: " + game.Hint(res.State, action, upgrade)
			renderActionLikeResponse(w, srv.tmpl, data)
			return
		}

		res, err = srv.sessions.Do(ctx, slot, action, upgrade)
		if err != nil {
			srv.unavailable(w, r, err)
			return
		}
		data := buildPageData(slot, r.FormValue("tab"), res)
		if action == game.ActionBuyUpgrade && res.Outcome.Applied {
			data.Toast = "Upgrade purchased: " + game.Label(action, upgrade)
		}
		renderActionLikeResponse(w, srv.tmpl, data)
	})

	mux.HandleFunc("/restart", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		slot := ensureSlot(w, r)
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		var (
			res   session.Result
			err   error
			toast string
		)
		if r.FormValue("confirm") == "yes" {
			res, err = srv.sessions.Restart(ctx, slot)
			toast = "Game restarted successfully!"
		} else {
			res, err = srv.sessions.Snapshot(ctx, slot)
			toast = "Restart cancelled."
		}
		if err != nil {
			srv.unavailable(w, r, err)
			return
		}
		data := buildPageData(slot, r.FormValue("tab"), res)
		data.Toast = toast
		renderActionLikeResponse(w, srv.tmpl, data)
	})

	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		slot := ensureSlot(w, r)
		res, err := srv.sessions.Snapshot(r.Context(), slot)
		if err != nil {
			srv.unavailable(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stateResponse(slot, res, false))
	})

	mux.HandleFunc("/api/action", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req apiActionRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		action, ok := game.ParseAction(req.Action)
		if !ok {
			http.Error(w, "unknown action", http.StatusBadRequest)
			return
		}

		slot := ensureSlot(w, r)
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		res, err := srv.sessions.Do(ctx, slot, action, game.UpgradeID(req.Upgrade))
		if err != nil {
			srv.unavailable(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stateResponse(slot, res, true))
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		slot := ensureSlot(w, r)
		res, err := srv.sessions.Snapshot(r.Context(), slot)
		if err != nil {
			srv.unavailable(w, r, err)
			return
		}
		srv.hub.serve(w, r, slot, res.State)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/admin", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !isAdmin(r, srv.adminToken) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		data := PageData{
			NowUTC:   time.Now().UTC().Format(time.RFC3339),
			Sessions: srv.sessions.Sessions(r.Context()),
		}
		renderPage(w, srv.tmpl, "admin", data)
	})

	return mux
}

// ensureSlot returns the player's save slot from the pid cookie, issuing a fresh one when the
// cookie is missing or not a UUID.
func ensureSlot(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	slot := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    slot,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
	})
	return slot
}

func stateResponse(slot string, res session.Result, withOutcome bool) apiStateResponse {
	out := apiStateResponse{
		Slot:     slot,
		State:    res.State,
		Progress: res.State.Progress(),
		Settling: res.Settling,
	}
	if withOutcome {
		outcome := res.Outcome
		out.Outcome = &outcome
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// unavailable answers requests that could not reach a session, which only happens while shutting
// down or when the caller gave up.
func (srv *server) unavailable(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	srv.logger.WarnContext(r.Context(), "session unavailable", "path", r.URL.Path, "error", err)
	http.Error(w, "service unavailable", http.StatusServiceUnavailable)
}

func isAdmin(r *http.Request, token string) bool {
	if token != "" && r.URL.Query().Get("token") == token {
		return true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return host == "localhost" || (ip != nil && ip.IsLoopback())
}
