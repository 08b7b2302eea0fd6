package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/hedge-guard-bot/internal/monitor"
	"github.com/your-org/hedge-guard-bot/internal/price"
	"github.com/your-org/hedge-guard-bot/internal/store"
	"github.com/your-org/hedge-guard-bot/internal/tracking"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

type staticFollowUp map[string]tracking.Baseline

func (f staticFollowUp) FollowUp(id string) (tracking.Baseline, bool) {
	b, ok := f[id]
	return b, ok
}

func session(t *testing.T, id string) *trade.Session {
	t.Helper()
	s, err := trade.NewSession(id, "BTCUSDT", &trade.Order{
		ID:        id + "-m1",
		Purpose:   trade.MainOpen,
		Direction: trade.Long,
		Status:    trade.StatusFilled,
		Price:     decimal.NewFromInt(50000),
		Count:     decimal.RequireFromString("0.01"),
	})
	require.NoError(t, err)
	return s
}

func newServer(t *testing.T) (*httptest.Server, *monitor.Registry, *price.Cache) {
	t.Helper()
	reg := monitor.NewRegistry()
	st := store.NewInMemStore()

	done := session(t, "done")
	require.NoError(t, done.AddOrder(&trade.Order{
		ID: "c1", Purpose: trade.MainClose, Direction: trade.Long, Status: trade.StatusFilled,
		Price: decimal.NewFromInt(50100), Count: decimal.RequireFromString("0.01"), ParentOrderID: "done-m1",
	}))
	st.Seed(session(t, "s1"), session(t, "s2"), done)
	reg.Add(session(t, "s2"))

	cache := price.NewCache(time.Minute)
	followUp := staticFollowUp{"s2": {PnL: decimal.NewFromFloat(-3.1), Direction: trade.Long}}
	router := NewRouter(
		NewHealthHandler(reg, cache, []string{"BTCUSDT"}),
		NewSessionHandler(reg, st, followUp),
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, reg, cache
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv, _, cache := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	cache.Update(price.Quote{Symbol: "BTCUSDT", Price: decimal.NewFromInt(50000), Time: time.Now()})
	resp = do(t, http.MethodGet, srv.URL+"/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var v healthView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, "OK", v.Status)
	assert.Equal(t, 1, v.Sessions)
}

func TestSessions_ListAddRemove(t *testing.T) {
	srv, reg, _ := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/sessions")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []sessionView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "s2", list[0].ID)
	require.NotNil(t, list[0].FollowUp)
	assert.True(t, list[0].FollowUp.PnL.Equal(decimal.NewFromFloat(-3.1)))

	resp = do(t, http.MethodPost, srv.URL+"/sessions/s1")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = do(t, http.MethodPost, srv.URL+"/sessions/s1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, reg.Len())

	resp = do(t, http.MethodDelete, srv.URL+"/sessions/s2")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodDelete, srv.URL+"/sessions/s2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, reg.Len())
}

func TestSessions_AddRejects(t *testing.T) {
	srv, _, _ := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/sessions/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/sessions/done")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
}
