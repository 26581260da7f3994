package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dutchAuction/game"
	"dutchAuction/state"

	"github.com/gin-gonic/gin"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

type stubEngine struct {
	status  game.SessionStatus
	started int
	paused  int
}

func (e *stubEngine) Start() bool {
	if e.status == game.SessionRunning {
		return false
	}
	e.started++
	e.status = game.SessionStarting
	return true
}

func (e *stubEngine) Pause() bool {
	if e.status == game.SessionPaused {
		return false
	}
	e.paused++
	e.status = game.SessionPaused
	return true
}

func (e *stubEngine) Snapshot() game.Session {
	return game.Session{
		RunID:   "run-api",
		Status:  e.status,
		TrialNo: 3,
		Trial:   &game.Trial{BlockNo: 0, TrialNo: 2, Qty: 250, StartPrice: 250, OppBid: 99, Status: game.TrialRunning},
	}
}

func (e *stubEngine) Trials() []game.Trial {
	return []game.Trial{
		{BlockNo: 0, TrialNo: 0, Qty: 300, StartPrice: 300, OppBid: 150, Status: game.TrialWon, Winner: "Fred", Price: 180, Step: 32},
		{BlockNo: 0, TrialNo: 1, Qty: 300, StartPrice: 300, OppBid: 42, Status: game.TrialPending},
	}
}

type stubRoster []state.Participant

func (r stubRoster) List() []state.Participant { return r }

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	return doFrom(t, r, "127.0.0.1:51000", method, path)
}

func doFrom(t *testing.T, r http.Handler, remote, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remote
	r.ServeHTTP(w, req)
	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHealth(t *testing.T) {
	r := newRouter(&Handler{
		Engine: &stubEngine{},
		Checks: []HealthCheck{
			{Name: "redis", Probe: func(context.Context) error { return nil }},
			{Name: "postgres", Probe: func(context.Context) error { return errors.New("refused") }},
			{Name: "mongo"},
		},
	})

	w, body := do(t, r, http.MethodGet, "/api/health")
	check.Equal(t, http.StatusOK, w.Code)
	check.Equal(t, "ok", body["redis"])
	check.Equal(t, "error: refused", body["postgres"])
	check.Equal(t, "disabled", body["mongo"])
}

func TestSessionAndTrials(t *testing.T) {
	r := newRouter(&Handler{Engine: &stubEngine{status: game.SessionBreak}, Participants: stubRoster{}})

	w, body := do(t, r, http.MethodGet, "/api/session")
	check.Equal(t, http.StatusOK, w.Code)
	check.Equal(t, "run-api", body["runId"])
	check.Equal(t, "break", body["status"])
	check.Equal(t, 3.0, body["trialNo"])

	active := body["trial"].(map[string]interface{})
	check.Equal(t, "running", active["status"])
	check.Nil(t, active["oppBid"])

	w, body = do(t, r, http.MethodGet, "/api/trials")
	check.Equal(t, http.StatusOK, w.Code)
	trials := body["trials"].([]interface{})
	assert.Equal(t, 2, len(trials))
	won := trials[0].(map[string]interface{})
	check.Equal(t, "won", won["status"])
	check.Equal(t, 150.0, won["oppBid"])
	check.Equal(t, "Fred", won["winner"])
	pending := trials[1].(map[string]interface{})
	check.Equal(t, "pending", pending["status"])
	check.Nil(t, pending["oppBid"])
	check.Equal(t, 300.0, pending["startPrice"])
}

func TestOperatorRoutesRejectRemoteClients(t *testing.T) {
	engine := &stubEngine{status: game.SessionRunning}
	r := newRouter(&Handler{Engine: engine, Participants: stubRoster{}})
	participant := "192.168.1.77:40312"

	w, body := doFrom(t, r, participant, http.MethodGet, "/api/trials")
	check.Equal(t, http.StatusForbidden, w.Code)
	check.Equal(t, false, body["success"])
	check.Nil(t, body["trials"])

	w, _ = doFrom(t, r, participant, http.MethodPost, "/api/control/pause")
	check.Equal(t, http.StatusForbidden, w.Code)
	check.Equal(t, game.SessionRunning, engine.status)
	check.Equal(t, 0, engine.paused)

	w, _ = doFrom(t, r, participant, http.MethodPost, "/api/control/start")
	check.Equal(t, http.StatusForbidden, w.Code)
	check.Equal(t, 0, engine.started)

	// forwarding headers cannot impersonate loopback
	req := httptest.NewRequest(http.MethodPost, "/api/control/pause", nil)
	req.RemoteAddr = participant
	req.Header.Set("X-Forwarded-For", "127.0.0.1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	check.Equal(t, http.StatusForbidden, rec.Code)
	check.Equal(t, 0, engine.paused)

	// read-only participant views stay public
	w, _ = doFrom(t, r, participant, http.MethodGet, "/api/session")
	check.Equal(t, http.StatusOK, w.Code)
	w, _ = doFrom(t, r, participant, http.MethodGet, "/api/participants")
	check.Equal(t, http.StatusOK, w.Code)

	w, _ = doFrom(t, r, "[::1]:51000", http.MethodPost, "/api/control/pause")
	check.Equal(t, http.StatusOK, w.Code)
	check.Equal(t, 1, engine.paused)
}

func TestParticipants(t *testing.T) {
	roster := stubRoster{{Name: "Fred", Address: "10.0.0.5", Money: 1900, Goods: 300}}
	r := newRouter(&Handler{Engine: &stubEngine{}, Participants: roster})

	_, body := do(t, r, http.MethodGet, "/api/participants")
	list := body["participants"].([]interface{})
	assert.Equal(t, 1, len(list))
	p := list[0].(map[string]interface{})
	check.Equal(t, "Fred", p["name"])
	check.Equal(t, 300.0, p["goods"])
}

func TestControl(t *testing.T) {
	engine := &stubEngine{status: game.SessionIdle}
	r := newRouter(&Handler{Engine: engine})

	w, body := do(t, r, http.MethodPost, "/api/control/start")
	check.Equal(t, http.StatusOK, w.Code)
	check.Equal(t, true, body["success"])
	check.Equal(t, "starting", body["status"])
	check.Equal(t, 1, engine.started)

	w, _ = do(t, r, http.MethodPost, "/api/control/pause")
	check.Equal(t, http.StatusOK, w.Code)

	w, body = do(t, r, http.MethodPost, "/api/control/pause")
	check.Equal(t, http.StatusConflict, w.Code)
	check.Equal(t, false, body["success"])
	check.Equal(t, "paused", body["status"])
	check.Equal(t, 1, engine.paused)
}
