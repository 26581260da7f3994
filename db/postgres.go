package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dutchAuction/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var (
	// PostgresPool is the global PostgreSQL connection pool
	PostgresPool *pgxpool.Pool

	log = zap.NewNop()

	initSchema = InitSchema
)

// SetLogger routes db package logs through l.
func SetLogger(l *zap.Logger) {
	if l != nil {
		log = l.Named("db")
	}
}

// RunRecord describes one experiment session.
type RunRecord struct {
	RunID       string        `json:"runId"`
	SeedHash    string        `json:"seedHash"`
	ResultsFile string        `json:"resultsFile"`
	Settings    game.Settings `json:"settings"`
	StartedAt   time.Time     `json:"startedAt"`
}

// InitPostgres initializes the PostgreSQL connection pool
func InitPostgres(databaseURL string) error {
	log.Info("🔌 Connecting to PostgreSQL...")

	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 5 * time.Minute

	PostgresPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := PostgresPool.Ping(ctx); err != nil {
		PostgresPool.Close()
		PostgresPool = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("✅ PostgreSQL connected")

	if err := initSchema(context.Background()); err != nil {
		PostgresPool.Close()
		PostgresPool = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ClosePostgres closes the PostgreSQL connection pool
func ClosePostgres() {
	if PostgresPool != nil {
		log.Info("🔌 Closing PostgreSQL connection...")
		PostgresPool.Close()
		PostgresPool = nil
	}
}

// InitSchema creates the database tables if they don't exist
func InitSchema(ctx context.Context) error {
	log.Info("📋 Initializing database schema...")

	runsSchema := `
	CREATE TABLE IF NOT EXISTS auction_runs (
		run_id TEXT PRIMARY KEY,
		seed_hash TEXT NOT NULL,
		settings JSONB NOT NULL,
		started_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	ALTER TABLE auction_runs ADD COLUMN IF NOT EXISTS results_file TEXT;
	CREATE INDEX IF NOT EXISTS idx_auction_runs_results_file ON auction_runs(results_file);
	`

	if _, err := PostgresPool.Exec(ctx, runsSchema); err != nil {
		return fmt.Errorf("failed to create auction_runs table: %w", err)
	}

	trialsSchema := `
	CREATE TABLE IF NOT EXISTS auction_trials (
		run_id TEXT NOT NULL,
		block_no INTEGER NOT NULL,
		trial_no INTEGER NOT NULL,
		prop DOUBLE PRECISION NOT NULL,
		qty INTEGER NOT NULL,
		start_price DOUBLE PRECISION NOT NULL,
		end_price DOUBLE PRECISION NOT NULL,
		opp_bid DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL,
		step INTEGER,
		price DOUBLE PRECISION,
		winner TEXT,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, block_no, trial_no)
	);

	-- Index on winner for per-participant analysis
	CREATE INDEX IF NOT EXISTS idx_auction_trials_winner ON auction_trials(winner);
	`

	if _, err := PostgresPool.Exec(ctx, trialsSchema); err != nil {
		return fmt.Errorf("failed to create auction_trials table: %w", err)
	}

	log.Info("✅ Database schema ready")
	return nil
}

/* =========================
   RUNS
========================= */

// StoreRun records the session header. Re-storing a run is a no-op.
func StoreRun(ctx context.Context, run *RunRecord) error {
	if PostgresPool == nil {
		log.Debug("⚠️  PostgreSQL not initialized, skipping run storage")
		return nil
	}

	settingsJSON, err := json.Marshal(run.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		INSERT INTO auction_runs (run_id, seed_hash, results_file, settings, started_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		ON CONFLICT (run_id) DO NOTHING
	`

	if _, err := PostgresPool.Exec(ctx, query, run.RunID, run.SeedHash, run.ResultsFile, settingsJSON, run.StartedAt); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}

	log.Info("✅ Stored run", zap.String("runId", run.RunID))
	return nil
}

// GetRun retrieves a run header, or nil if it does not exist.
func GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	return queryRun(ctx, `WHERE run_id = $1`, runID)
}

// GetRunByFile finds the run that wrote the named results file (base name
// only), or nil if none did.
func GetRunByFile(ctx context.Context, fileName string) (*RunRecord, error) {
	return queryRun(ctx, `WHERE results_file = $1 ORDER BY started_at DESC LIMIT 1`, fileName)
}

func queryRun(ctx context.Context, where string, arg string) (*RunRecord, error) {
	if PostgresPool == nil {
		return nil, fmt.Errorf("PostgreSQL not initialized")
	}

	var (
		run          RunRecord
		settingsJSON []byte
	)
	err := PostgresPool.QueryRow(ctx,
		`SELECT run_id, seed_hash, COALESCE(results_file, ''), settings, started_at FROM auction_runs `+where,
		arg,
	).Scan(&run.RunID, &run.SeedHash, &run.ResultsFile, &settingsJSON, &run.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := json.Unmarshal(settingsJSON, &run.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return &run, nil
}

/* =========================
   TRIALS
========================= */

// UpsertTrials writes the full trial table for a run in one batch.
func UpsertTrials(ctx context.Context, runID string, trials []game.Trial) error {
	if PostgresPool == nil {
		log.Debug("⚠️  PostgreSQL not initialized, skipping trial storage")
		return nil
	}

	query := `
		INSERT INTO auction_trials
		(run_id, block_no, trial_no, prop, qty, start_price, end_price, opp_bid, status, step, price, winner, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (run_id, block_no, trial_no) DO UPDATE
		SET status = EXCLUDED.status,
			step = EXCLUDED.step,
			price = EXCLUDED.price,
			winner = EXCLUDED.winner,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, t := range trials {
		var (
			step   *int
			price  *float64
			winner *string
		)
		if t.Resolved() {
			step, price, winner = &t.Step, &t.Price, &t.Winner
		}
		batch.Queue(query, runID, t.BlockNo, t.TrialNo, t.Prop, t.Qty,
			t.StartPrice, t.EndPrice, t.OppBid, string(t.Status), step, price, winner)
	}

	if err := PostgresPool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert trials: %w", err)
	}
	return nil
}

// GetTrials returns a run's trials in presentation order.
func GetTrials(ctx context.Context, runID string) ([]game.Trial, error) {
	if PostgresPool == nil {
		return nil, fmt.Errorf("PostgreSQL not initialized")
	}

	query := `
		SELECT block_no, trial_no, prop, qty, start_price, end_price, opp_bid, status,
			COALESCE(step, 0), COALESCE(price, 0), COALESCE(winner, '')
		FROM auction_trials
		WHERE run_id = $1
		ORDER BY block_no, trial_no
	`

	rows, err := PostgresPool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trials: %w", err)
	}
	defer rows.Close()

	var trials []game.Trial
	for rows.Next() {
		var (
			t      game.Trial
			status string
		)
		if err := rows.Scan(
			&t.BlockNo, &t.TrialNo, &t.Prop, &t.Qty, &t.StartPrice, &t.EndPrice, &t.OppBid,
			&status, &t.Step, &t.Price, &t.Winner,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		t.Status = game.TrialStatus(status)
		trials = append(trials, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trials: %w", err)
	}

	return trials, nil
}

// PostgresStore mirrors trial tables into auction_trials.
type PostgresStore struct{}

func (PostgresStore) Name() string { return "postgres" }

func (PostgresStore) SaveTrials(ctx context.Context, runID string, trials []game.Trial) error {
	return UpsertTrials(ctx, runID, trials)
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheckPostgres performs a PostgreSQL health check
func HealthCheckPostgres(ctx context.Context) error {
	if PostgresPool == nil {
		return fmt.Errorf("PostgreSQL connection pool not initialized")
	}
	return PostgresPool.Ping(ctx)
}
