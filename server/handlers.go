package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/quizbot/quiz"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db        *sql.DB
	registry  *quiz.Registry
	questions quiz.QuestionStore
	scores    quiz.ScoreStore
	started   time.Time
}

func NewHandlers(db *sql.DB, registry *quiz.Registry, questions quiz.QuestionStore, scores quiz.ScoreStore) *Handlers {
	return &Handlers{db: db, registry: registry, questions: questions, scores: scores, started: time.Now()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", slog.Any("err", err))
	}
}

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed checks: the
// database must answer and at least one eligible (imageless) question must
// exist, since round starts fail on an empty eligible corpus.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error { return h.db.PingContext(r.Context()) }},
		{"questions", func() error {
			count, err := h.questions.CountEligible(r.Context())
			if err != nil {
				return err
			}
			if count < 1 {
				return fmt.Errorf("no eligible questions")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleStatus reports process uptime and the per-channel round state.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	sessions := h.registry.Sessions()
	active := 0
	for _, s := range sessions {
		if _, ok := s.Active(); ok {
			active++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"uptime":        time.Since(h.started).Round(time.Second).String(),
		"sessions":      len(sessions),
		"active_rounds": active,
	})
}

type channelView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
	Active bool   `json:"active_round"`
}

// HandleChannels lists the channels with a live session in this process.
func (h *Handlers) HandleChannels(w http.ResponseWriter, r *http.Request) {
	sessions := h.registry.Sessions()
	out := make([]channelView, 0, len(sessions))
	for _, s := range sessions {
		ch := s.Channel()
		_, active := s.Active()
		out = append(out, channelView{ID: ch.ID, Name: ch.Name, Prefix: ch.Prefix, Active: active})
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": out})
}

// HandleScores returns a channel's score listing, best first.
// Query params: channel (required, room id).
func (h *Handlers) HandleScores(w http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Query().Get("channel")
	if channelID == "" {
		http.Error(w, "missing channel parameter", http.StatusBadRequest)
		return
	}
	entries, err := h.scores.ScoresDesc(r.Context(), channelID)
	if err != nil {
		slog.Error("scores listing failed", slog.String("channel", channelID), slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	type scoreView struct {
		UserID string `json:"user_id"`
		Points int    `json:"points"`
	}
	out := make([]scoreView, 0, len(entries))
	for _, e := range entries {
		out = append(out, scoreView{UserID: e.UserID, Points: e.Points})
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel": channelID, "scores": out})
}
