package jobs

import (
	"context"
	"time"

	"dutchAuction/config"
	"dutchAuction/game"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Session is the engine surface the heartbeat reads.
type Session interface {
	Snapshot() game.Session
	Publish()
}

// Heartbeat periodically rebroadcasts the session snapshot, so clients that
// missed a message resync, and refreshes the run's presence keys.
type Heartbeat struct {
	Session Session
	// Touch extends external presence keys. Optional.
	Touch  func(ctx context.Context, runID string) error
	Logger *zap.Logger
}

// Tick runs one heartbeat.
func (h *Heartbeat) Tick() {
	log := h.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := h.Session.Snapshot()
	h.Session.Publish()

	if h.Touch != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Touch(ctx, s.RunID); err != nil {
			log.Warn("⚠️  Failed to refresh presence", zap.Error(err))
		}
	}

	fields := []zap.Field{
		zap.String("status", string(s.Status)),
		zap.Int("trialNo", s.TrialNo),
		zap.Int("participants", len(s.Users)),
	}
	if s.Trial != nil {
		fields = append(fields, zap.Int("block", s.Trial.BlockNo), zap.String("trial", string(s.Trial.Status)))
	}
	log.Info("💓 Heartbeat", fields...)
}

// Start schedules the heartbeat and returns the running scheduler; call
// Stop on it at shutdown.
func (h *Heartbeat) Start(spec string) (*cron.Cron, error) {
	if spec == "" {
		spec = config.HeartbeatSpec
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, h.Tick); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
