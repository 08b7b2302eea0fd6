package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/your-org/hedge-guard-bot/internal/store"
	"github.com/your-org/hedge-guard-bot/internal/tracking"
	"github.com/your-org/hedge-guard-bot/internal/trade"
	"github.com/your-org/hedge-guard-bot/pkg/logger"
)

// Registry is the monitored-session set the handler mutates.
type Registry interface {
	Add(s *trade.Session) bool
	Remove(id string) bool
	List() []*trade.Session
	Processing(id string) bool
}

// FollowUpSource exposes the post-averaging baselines of the engine.
type FollowUpSource interface {
	FollowUp(sessionID string) (tracking.Baseline, bool)
}

// SessionHandler serves the monitored-session endpoints.
type SessionHandler struct {
	registry Registry
	store    store.SessionStore
	followUp FollowUpSource
}

// NewSessionHandler creates a SessionHandler. followUp may be nil.
func NewSessionHandler(registry Registry, st store.SessionStore, followUp FollowUpSource) *SessionHandler {
	return &SessionHandler{registry: registry, store: st, followUp: followUp}
}

// RegisterRoutes registers the session routes on a chi router.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.ListSessions)
	r.Post("/sessions/{id}", h.AddSession)
	r.Delete("/sessions/{id}", h.RemoveSession)
}

type baselineView struct {
	PnL       decimal.Decimal `json:"pnl"`
	Start     time.Time       `json:"start"`
	Direction trade.Direction `json:"direction"`
}

type sessionView struct {
	ID          string              `json:"id"`
	Symbol      string              `json:"symbol"`
	Direction   trade.Direction     `json:"direction"`
	Mode        trade.Mode          `json:"mode"`
	Status      trade.SessionStatus `json:"status"`
	ActiveLong  bool                `json:"activeLong"`
	ActiveShort bool                `json:"activeShort"`
	Orders      int                 `json:"orders"`
	PnL         decimal.Decimal     `json:"pnl"`
	Processing  bool                `json:"processing"`
	FollowUp    *baselineView       `json:"followUp,omitempty"`
}

func (h *SessionHandler) view(s *trade.Session) sessionView {
	v := sessionView{
		ID:          s.ID,
		Symbol:      s.Symbol,
		Direction:   s.Direction,
		Mode:        s.CurrentMode,
		Status:      s.Status,
		ActiveLong:  s.ActiveLong,
		ActiveShort: s.ActiveShort,
		Orders:      len(s.Orders),
		PnL:         s.PnL,
		Processing:  h.registry.Processing(s.ID),
	}
	if h.followUp != nil {
		if b, ok := h.followUp.FollowUp(s.ID); ok {
			v.FollowUp = &baselineView{PnL: b.PnL, Start: b.Start, Direction: b.Direction}
		}
	}
	return v
}

// ListSessions returns every monitored session.
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.registry.List()
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, h.view(s))
	}
	writeJSON(w, http.StatusOK, views)
}

// AddSession loads a session from the store and starts monitoring it.
func (h *SessionHandler) AddSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Errorf("[HTTP] failed to load session %s: %v", id, err)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	if s.Status == trade.SessionCompleted {
		http.Error(w, "session is completed", http.StatusConflict)
		return
	}
	s.Refresh()

	status := http.StatusOK
	if h.registry.Add(s) {
		status = http.StatusCreated
	}
	logger.Infof("[HTTP] monitoring session %s (%s)", id, http.StatusText(status))
	writeJSON(w, status, h.view(s))
}

// RemoveSession stops monitoring a session.
func (h *SessionHandler) RemoveSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.registry.Remove(id) {
		http.Error(w, "session not monitored", http.StatusNotFound)
		return
	}
	logger.Infof("[HTTP] stopped monitoring session %s", id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("[HTTP] failed to encode response: %v", err)
	}
}
