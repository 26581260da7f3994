package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"dutchAuction/game"
	"dutchAuction/state"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

/* =========================
   DEPENDENCIES
========================= */

// Controller is the engine surface exposed over HTTP.
type Controller interface {
	Start() bool
	Pause() bool
	Snapshot() game.Session
	Trials() []game.Trial
}

// Roster lists connected participants.
type Roster interface {
	List() []state.Participant
}

// HealthCheck probes one backing service. A nil Probe reports "disabled".
type HealthCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Handler serves the experiment's HTTP API.
type Handler struct {
	Engine       Controller
	Participants Roster
	Checks       []HealthCheck
	Logger       *zap.Logger
}

// ControlResponse reports the outcome of an operator command.
type ControlResponse struct {
	Success bool               `json:"success"`
	Status  game.SessionStatus `json:"status"`
}

// TrialView is a trial as served over HTTP. OppBid is null until the trial
// is won so bidders cannot read the opponent's upcoming bids.
type TrialView struct {
	game.Trial
	OppBid *float64 `json:"oppBid"`
}

// SessionView is a session snapshot with its active trial redacted.
type SessionView struct {
	game.Session
	Trial *TrialView `json:"trial"`
}

func viewTrial(t game.Trial) TrialView {
	v := TrialView{Trial: t}
	if t.Resolved() {
		bid := t.OppBid
		v.OppBid = &bid
	}
	return v
}

// Register mounts every route under /api. Trials and operator control are
// served to loopback clients only.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/api")
	g.GET("/health", h.health)
	g.GET("/session", h.session)
	g.GET("/participants", h.participants)

	local := g.Group("", LocalOnly(h.logger()))
	local.GET("/trials", h.trials)
	local.POST("/control/start", h.start)
	local.POST("/control/pause", h.pause)
}

// LocalOnly rejects requests whose peer address is not loopback. Forwarding
// headers are ignored.
func LocalOnly(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := net.ParseIP(c.RemoteIP())
		if ip == nil || !ip.IsLoopback() {
			logger.Warn("🚫 Rejected non-local request",
				zap.String("path", c.Request.URL.Path), zap.String("remote", c.Request.RemoteAddr))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "operator endpoints are only served on loopback",
			})
			return
		}
		c.Next()
	}
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

/* =========================
   READ ENDPOINTS
========================= */

// GET /api/health
func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	response := gin.H{
		"success": true,
		"message": "Health check completed",
	}
	for _, check := range h.Checks {
		status := "ok"
		if check.Probe == nil {
			status = "disabled"
		} else if err := check.Probe(ctx); err != nil {
			status = "error: " + err.Error()
		}
		response[check.Name] = status
	}
	c.JSON(http.StatusOK, response)
}

// GET /api/session
func (h *Handler) session(c *gin.Context) {
	s := h.Engine.Snapshot()
	view := SessionView{Session: s}
	if s.Trial != nil {
		t := viewTrial(*s.Trial)
		view.Trial = &t
	}
	c.JSON(http.StatusOK, view)
}

// GET /api/trials
func (h *Handler) trials(c *gin.Context) {
	trials := h.Engine.Trials()
	views := make([]TrialView, len(trials))
	for i, t := range trials {
		views[i] = viewTrial(t)
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"trials":  views,
	})
}

// GET /api/participants
func (h *Handler) participants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"participants": h.Participants.List(),
	})
}

/* =========================
   OPERATOR CONTROL
========================= */

// POST /api/control/start
func (h *Handler) start(c *gin.Context) {
	h.control(c, "start", h.Engine.Start)
}

// POST /api/control/pause
func (h *Handler) pause(c *gin.Context) {
	h.control(c, "pause", h.Engine.Pause)
}

func (h *Handler) control(c *gin.Context, command string, fn func() bool) {
	ok := fn()
	status := h.Engine.Snapshot().Status
	h.logger().Info("🎛️  Control command", zap.String("command", command), zap.Bool("accepted", ok),
		zap.String("status", string(status)), zap.String("remote", c.ClientIP()))

	code := http.StatusOK
	if !ok {
		code = http.StatusConflict
	}
	c.JSON(code, ControlResponse{Success: ok, Status: status})
}
