package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dutchAuction/config"
	"dutchAuction/crypto"
	"dutchAuction/db"
	"dutchAuction/game"
	"dutchAuction/logger"
	"dutchAuction/results"

	"go.uber.org/zap"
)

// replay loads a results CSV into the configured databases and prints a
// per-winner summary.
func main() {
	file := flag.String("file", "", "results CSV to load")
	runID := flag.String("run", "", "run id to store under (default: the run that wrote the file, else the file name)")
	dryRun := flag.Bool("dry-run", false, "print the summary without writing to any database")
	seed := flag.String("seed", "", "session seed; regenerates the trial table and checks it against the file")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -file data/<timestamp>.csv [-run id] [-seed s] [-dry-run]")
		os.Exit(2)
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(true)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	db.SetLogger(log)

	trials, err := results.ReadFile(*file)
	if err != nil {
		log.Fatal("❌ Failed to read results", zap.Error(err))
	}

	if *seed != "" {
		generated, err := game.Generate(game.GeneratorConfig{
			Blocks:   cfg.Trials.Blocks,
			PerBlock: cfg.Trials.PerBlock,
			QtyMax:   cfg.Trials.QtyMax,
			Dist:     game.DefaultDistributions(cfg.Trials),
		}, game.NewSeededRNG(*seed))
		if err != nil {
			log.Fatal("❌ Failed to regenerate trials", zap.Error(err))
		}
		if err := results.VerifyGenerated(trials, generated); err != nil {
			log.Fatal("❌ Results file does not match seed", zap.Error(err))
		}
		log.Info("✅ Trial table matches seed", zap.String("seedHash", crypto.HashSeed(*seed)))
	}

	ctx := context.Background()
	usePostgres := !*dryRun && cfg.Storage.DatabaseURL != ""
	useMongo := !*dryRun && cfg.Storage.MongoURI != ""

	if !*dryRun && !usePostgres && !useMongo {
		log.Fatal("❌ Neither DATABASE_URL nor MONGO_URI is set")
	}

	var lookup runLookup
	if usePostgres {
		if err := db.InitPostgres(cfg.Storage.DatabaseURL); err != nil {
			log.Fatal("❌ Failed to init postgres", zap.Error(err))
		}
		defer db.ClosePostgres()
		lookup = db.GetRunByFile
	}

	run, id, err := resolveRun(ctx, *runID, *file, lookup)
	if err != nil {
		log.Fatal("❌ Failed to look up run", zap.Error(err))
	}
	if run != nil {
		log.Info("🔎 Found stored run for results file", zap.String("runId", id))
	}

	if usePostgres {
		if *seed != "" && run == nil && *runID != "" {
			run, err = db.GetRun(ctx, id)
			if err != nil {
				log.Fatal("❌ Failed to look up run", zap.Error(err))
			}
		}
		if *seed != "" {
			if err := checkStoredSeed(run, *seed); err != nil {
				log.Fatal("❌ Seed does not match the stored run", zap.String("runId", id), zap.Error(err))
			}
		}

		if err := db.UpsertTrials(ctx, id, trials); err != nil {
			log.Fatal("❌ Failed to load trials into postgres", zap.Error(err))
		}
		log.Info("✅ Loaded trials into postgres", zap.String("runId", id), zap.Int("count", len(trials)))
	}

	if useMongo {
		if err := db.InitMongo(cfg.Storage.MongoURI); err != nil {
			log.Fatal("❌ Failed to init mongo", zap.Error(err))
		}
		defer db.CloseMongo(ctx)

		store := db.NewMongoTrialStore(db.MongoClient, cfg.Storage.MongoDB)
		if err := store.EnsureIndexes(ctx); err != nil {
			log.Warn("⚠️  Mongo index creation failed", zap.Error(err))
		}
		if err := store.SaveTrials(ctx, id, trials); err != nil {
			log.Fatal("❌ Failed to load trials into mongo", zap.Error(err))
		}
		log.Info("✅ Loaded trials into mongo", zap.String("runId", id), zap.Int("count", len(trials)))
	}

	winners, pending := results.Summarize(trials)
	fmt.Printf("\nRun %s: %d trials, %d unresolved\n", id, len(trials), pending)
	for _, w := range winners {
		fmt.Printf("  %-10s wins %3d  goods %6d  spent %s\n", w.Name, w.Wins, w.Goods, w.Spent.StringFixed(int32(cfg.Economy.Decimals)))
	}
}

// runLookup finds the run that wrote a results file; nil, nil when none did.
type runLookup func(ctx context.Context, fileName string) (*db.RunRecord, error)

// resolveRun picks the run id to store under: the explicit id, then the run
// recorded for the file's name, then the file's base name.
func resolveRun(ctx context.Context, explicit, file string, lookup runLookup) (*db.RunRecord, string, error) {
	if explicit != "" {
		return nil, explicit, nil
	}

	base := filepath.Base(file)
	if lookup != nil {
		run, err := lookup(ctx, base)
		if err != nil {
			return nil, "", err
		}
		if run != nil {
			return run, run.RunID, nil
		}
	}
	return nil, strings.TrimSuffix(base, filepath.Ext(base)), nil
}

// checkStoredSeed compares seed with the hash stored for run. A run that was
// never stored has nothing to compare against.
func checkStoredSeed(run *db.RunRecord, seed string) error {
	if run == nil || run.SeedHash == "" {
		return nil
	}
	if !crypto.VerifySeed(seed, run.SeedHash) {
		return fmt.Errorf("seed hash %s does not match stored %s", crypto.HashSeed(seed), run.SeedHash)
	}
	return nil
}
