package results

import (
	"context"
	"errors"
	"sync"
	"time"

	"dutchAuction/config"
	"dutchAuction/game"

	"go.uber.org/zap"
)

// Store is an external copy of the trial table, keyed by run.
type Store interface {
	Name() string
	SaveTrials(ctx context.Context, runID string, trials []game.Trial) error
}

// Mirror forwards trial tables to external stores on a background worker so
// a slow database never stalls the auction clock. When the queue is full the
// oldest pending table is dropped; every table is a full rewrite, so only the
// newest one matters.
type Mirror struct {
	runID   string
	stores  []Store
	logger  *zap.Logger
	timeout time.Duration

	queue chan []game.Trial
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewMirror(runID string, logger *zap.Logger, stores ...Store) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mirror{
		runID:   runID,
		stores:  stores,
		logger:  logger,
		timeout: config.MirrorTimeout,
		queue:   make(chan []game.Trial, config.MirrorQueueSize),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// Save queues the table and returns immediately.
func (m *Mirror) Save(_ context.Context, trials []game.Trial) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("mirror closed")
	}
	for {
		select {
		case m.queue <- trials:
			return nil
		default:
		}
		select {
		case <-m.queue:
			m.logger.Warn("⚠️ Mirror queue full, dropped stale table")
		default:
		}
	}
}

// Close stops accepting tables and waits for queued ones to be written.
func (m *Mirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Mirror) run() {
	defer m.wg.Done()

	for trials := range m.queue {
		for _, s := range m.stores {
			ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
			if err := s.SaveTrials(ctx, m.runID, trials); err != nil {
				m.logger.Error("❌ Failed to mirror trials", zap.String("store", s.Name()), zap.Error(err))
			}
			cancel()
		}
	}
}

// Multi saves through every sink in order and joins their errors.
type Multi []game.ResultSink

func (ms Multi) Save(ctx context.Context, trials []game.Trial) error {
	var errs []error
	for _, s := range ms {
		if err := s.Save(ctx, trials); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
