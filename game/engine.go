package game

import (
	"context"
	"sync"
	"time"

	"dutchAuction/clock"
	"dutchAuction/state"

	"go.uber.org/zap"
)

// Ledger is the participant state touched by a winning bid.
type Ledger interface {
	ApplyWin(name string, price float64, qty, maxGoods int) bool
	Snapshot() map[string]state.Participant
}

// ResultSink persists the full trial table.
type ResultSink interface {
	Save(ctx context.Context, trials []Trial) error
}

// Publisher delivers session snapshots to every connected client.
// Publish must not block.
type Publisher interface {
	Publish(s Session)
}

// Publishers fans a snapshot out to several publishers.
type Publishers []Publisher

func (ps Publishers) Publish(s Session) {
	for _, p := range ps {
		p.Publish(s)
	}
}

// Options wires an Engine to its collaborators and timing.
type Options struct {
	Clock     clock.Clock
	Logger    *zap.Logger
	Ledger    Ledger
	Sink      ResultSink
	Publisher Publisher
	// Notify receives operator-facing event lines. Optional.
	Notify func(msg string)

	RunID        string
	OpponentName string
	PerBlock     int
	MaxGoods     int

	PriceSteps        int
	PriceStepDuration time.Duration
	StartDelay        time.Duration
	DelayBefore       time.Duration
	DelayAfter        time.Duration
}

// Engine sequences trials into blocks, runs each trial's clock and resolves
// bids. Every state change happens under mu, which makes Bid the single
// serialization point for trial outcomes.
type Engine struct {
	mu sync.Mutex

	opts   Options
	clock  clock.Clock
	logger *zap.Logger

	trials  []*Trial
	trialNo int
	trial   *Trial
	status  SessionStatus

	opp        Opponent
	phase      clock.Timer
	phaseToken uint64

	quit     bool
	done     chan struct{}
	doneOnce sync.Once
}

// NewEngine builds an idle engine over a generated trial sequence.
func NewEngine(trials []*Trial, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Notify == nil {
		opts.Notify = func(string) {}
	}
	if opts.Ledger == nil {
		opts.Ledger = state.NewRegistry(nil, 0)
	}
	return &Engine{
		opts:   opts,
		clock:  opts.Clock,
		logger: opts.Logger,
		trials: trials,
		status: SessionIdle,
		opp:    Opponent{Name: opts.OpponentName},
		done:   make(chan struct{}),
	}
}

/* =========================
   OPERATOR COMMANDS
========================= */

// Start begins (or resumes) the session after the start pre-roll. It is a
// no-op unless the session is idle, paused or on a block break.
func (e *Engine) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.quit {
		return false
	}
	switch e.status {
	case SessionIdle, SessionPaused, SessionBreak:
	default:
		return false
	}

	e.status = SessionStarting
	e.opts.Notify("starting")
	e.logger.Info("🚦 Session starting", zap.Duration("preRoll", e.opts.StartDelay))
	e.publishLocked()

	e.schedule(e.opts.StartDelay, func() {
		e.status = SessionRunning
		if e.trial != nil && !e.trial.Resolved() {
			// a pause froze this trial before anyone won it
			e.logger.Info("🔁 Replaying frozen trial",
				zap.Int("block", e.trial.BlockNo), zap.Int("trial", e.trial.TrialNo))
			e.readyLocked()
			return
		}
		e.advance()
	})
	return true
}

// Pause freezes bidding. Pending timers are cancelled and an unresolved
// active trial returns to ready so it replays on the next Start.
func (e *Engine) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.quit || e.status == SessionPaused || e.status == SessionComplete {
		return false
	}

	e.cancelPhase()
	e.opp.Cancel()
	if e.trial != nil && !e.trial.Resolved() {
		e.trial.Status = TrialReady
	}

	e.status = SessionPaused
	e.opts.Notify("pausing")
	e.logger.Info("⏸️  Session paused")
	e.publishLocked()
	return true
}

// Quit cancels every pending timer; the engine ignores later events.
func (e *Engine) Quit() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.quit {
		return
	}
	e.quit = true
	e.cancelPhase()
	e.opp.Cancel()
	e.logger.Info("🛑 Engine stopped", zap.String("status", string(e.status)))
}

/* =========================
   BIDDING
========================= */

// Bid submits a bid for the active trial. Bids that arrive when no trial is
// running are discarded; the return value reports acceptance.
func (e *Engine) Bid(b Bid) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bidLocked(b)
}

func (e *Engine) bidLocked(b Bid) bool {
	if e.quit || e.trial == nil || e.trial.Status != TrialRunning {
		e.logger.Debug("Discarded bid", zap.String("name", b.Name), zap.Float64("price", b.Price))
		return false
	}

	e.opp.Cancel()

	t := e.trial
	t.Status = TrialWon
	t.Winner = b.Name
	t.Price = b.Price
	t.Step = PriceStep(t.StartPrice, t.EndPrice, b.Price, e.opts.PriceSteps)

	human := e.opts.Ledger.ApplyWin(b.Name, b.Price, t.Qty, e.opts.MaxGoods)

	e.logger.Info("🔨 Trial won",
		zap.Int("block", t.BlockNo),
		zap.Int("trial", t.TrialNo),
		zap.String("winner", t.Winner),
		zap.Float64("price", t.Price),
		zap.Int("step", t.Step),
		zap.Bool("human", human),
	)

	e.saveLocked()
	e.publishLocked()

	if t.TrialNo == e.opts.PerBlock-1 {
		e.opts.Notify("Block completed - paused")
		e.schedule(e.opts.DelayAfter, func() {
			if e.status != SessionRunning {
				return
			}
			e.status = SessionBreak
			e.logger.Info("☕ Block break", zap.Int("block", t.BlockNo))
			e.publishLocked()
		})
	} else {
		e.schedule(e.opts.DelayAfter, func() {
			if e.status == SessionRunning {
				e.advance()
			}
		})
	}
	return true
}

func (e *Engine) opponentBid(token uint64, b Bid) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.quit || !e.opp.Live(token) {
		return
	}
	e.bidLocked(b)
}

/* =========================
   TRIAL CYCLE
========================= */

// advance moves to the next trial, or completes the session.
func (e *Engine) advance() {
	if e.trialNo >= len(e.trials) {
		e.status = SessionComplete
		e.opts.Notify("EXPERIMENT COMPLETE")
		e.logger.Info("🏁 Experiment complete", zap.Int("trials", len(e.trials)))
		e.publishLocked()
		e.doneOnce.Do(func() { close(e.done) })
		return
	}

	e.trial = e.trials[e.trialNo]
	e.trialNo++
	e.readyLocked()
}

// readyLocked marks the active trial ready and starts its clock after the
// pre-auction delay.
func (e *Engine) readyLocked() {
	e.trial.Status = TrialReady
	e.publishLocked()
	e.schedule(e.opts.DelayBefore, e.beginAuction)
}

func (e *Engine) beginAuction() {
	t := e.trial
	t.Status = TrialRunning
	e.publishLocked()

	duration := time.Duration(e.opts.PriceSteps) * e.opts.PriceStepDuration
	if e.opp.Arm(e.clock, t, duration, e.opponentBid) {
		delay, price, _ := e.opp.Scheduled()
		e.logger.Debug("🤖 Opponent armed",
			zap.Int("block", t.BlockNo), zap.Int("trial", t.TrialNo),
			zap.Duration("delay", delay), zap.Float64("price", price))
	} else {
		e.logger.Warn("🤖 Opponent will not bid on this trial",
			zap.Int("block", t.BlockNo), zap.Int("trial", t.TrialNo))
	}
}

// schedule replaces the pending phase timer. fn runs under mu and is dropped
// if the timer was superseded or the engine stopped.
func (e *Engine) schedule(d time.Duration, fn func()) {
	e.cancelPhase()
	token := e.phaseToken
	e.phase = e.clock.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		if e.quit || token != e.phaseToken {
			return
		}
		e.phase = nil
		fn()
	})
}

func (e *Engine) cancelPhase() {
	if e.phase != nil {
		e.phase.Stop()
		e.phase = nil
	}
	e.phaseToken++
}

/* =========================
   SNAPSHOTS & PERSISTENCE
========================= */

// Snapshot returns a copy of the session state.
func (e *Engine) Snapshot() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Session {
	s := Session{
		RunID:   e.opts.RunID,
		Status:  e.status,
		TrialNo: e.trialNo,
		Users:   e.opts.Ledger.Snapshot(),
	}
	if e.trial != nil {
		t := *e.trial
		s.Trial = &t
	}
	return s
}

// Trials returns a copy of the full trial table.
func (e *Engine) Trials() []Trial {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyTrials(e.trials)
}

// Publish re-sends the current snapshot, e.g. after a client connects.
func (e *Engine) Publish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publishLocked()
}

// Persist writes the full trial table through the sink.
func (e *Engine) Persist() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saveLocked()
}

// Done is closed when the session completes.
func (e *Engine) Done() <-chan struct{} { return e.done }

func (e *Engine) publishLocked() {
	if e.opts.Publisher != nil {
		e.opts.Publisher.Publish(e.snapshotLocked())
	}
}

func (e *Engine) saveLocked() {
	if e.opts.Sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.opts.Sink.Save(ctx, copyTrials(e.trials)); err != nil {
		e.logger.Error("❌ Failed to save trial results", zap.Error(err))
	}
}
