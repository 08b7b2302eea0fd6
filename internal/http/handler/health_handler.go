package handler

import (
	"net/http"

	"github.com/your-org/hedge-guard-bot/internal/price"
)

// Counter reports how many sessions are monitored.
type Counter interface {
	Len() int
}

// HealthHandler reports liveness for Docker or other supervisors. It answers 503 while any
// configured symbol has no fresh price, since no session of that symbol can be evaluated.
type HealthHandler struct {
	sessions Counter
	oracle   price.Oracle
	symbols  []string
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(sessions Counter, oracle price.Oracle, symbols []string) *HealthHandler {
	return &HealthHandler{sessions: sessions, oracle: oracle, symbols: symbols}
}

type healthView struct {
	Status   string   `json:"status"`
	Sessions int      `json:"sessions"`
	Stale    []string `json:"stale,omitempty"`
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v := healthView{Status: "OK", Sessions: h.sessions.Len()}
	for _, sym := range h.symbols {
		if _, ok := h.oracle.Price(sym); !ok {
			v.Stale = append(v.Stale, sym)
		}
	}
	status := http.StatusOK
	if len(v.Stale) > 0 {
		v.Status = "STALE_PRICE"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, v)
}
