package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"dutchAuction/api"
	"dutchAuction/config"
	"dutchAuction/crypto"
	"dutchAuction/db"
	"dutchAuction/game"
	"dutchAuction/jobs"
	"dutchAuction/logger"
	"dutchAuction/netinfo"
	"dutchAuction/operator"
	"dutchAuction/results"
	"dutchAuction/state"
	"dutchAuction/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to optional YAML config file")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	// the console and keyboard exist before the logger so that log lines
	// follow raw mode and a fatal log restores the terminal
	console := operator.NewConsole(os.Stdout, cfg.Economy.Decimals)
	kb := &operator.Keyboard{In: os.Stdin, Console: console}
	defer kb.Restore()

	log := logger.NewTerminal(cfg.IsDevelopment(), console.TerminalWriter(os.Stderr)).
		WithOptions(zap.WithFatalHook(kb))
	defer log.Sync()
	kb.Logger = log
	db.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	/* =========================
	   TRIALS
	========================= */

	seed := cfg.Seed
	seedHash := crypto.HashSeed(seed)
	if seed == "" {
		seed, seedHash, err = crypto.GenerateSessionSeed()
		if err != nil {
			log.Fatal("❌ Failed to generate session seed", zap.Error(err))
		}
	}
	runID := uuid.NewString()
	startedAt := time.Now()

	trials, err := game.Generate(game.GeneratorConfig{
		Blocks:   cfg.Trials.Blocks,
		PerBlock: cfg.Trials.PerBlock,
		QtyMax:   cfg.Trials.QtyMax,
		Dist:     game.DefaultDistributions(cfg.Trials),
	}, game.NewSeededRNG(seed))
	if err != nil {
		log.Fatal("❌ Failed to generate trials", zap.Error(err))
	}
	log.Info("🎲 Trials generated",
		zap.String("runId", runID),
		zap.String("seed", seed),
		zap.String("seedHash", seedHash),
		zap.Int("blocks", cfg.Trials.Blocks),
		zap.Int("perBlock", cfg.Trials.PerBlock),
	)

	settings := game.Settings{
		Money:             cfg.Economy.StartMoney,
		Decimals:          cfg.Economy.Decimals,
		MaxGoods:          cfg.Economy.MaxGoods,
		PriceSteps:        cfg.Clock.PriceSteps,
		PriceStepDuration: cfg.Clock.PriceStepDuration.Milliseconds(),
		Trials:            cfg.Trials.PerBlock,
		Blocks:            cfg.Trials.Blocks,
		FogOfWarehouse:    cfg.Economy.FogOfWarehouse,
	}

	/* =========================
	   STORAGE
	========================= */

	fileSink, err := results.NewFileSink(cfg.Server.DataDir, startedAt)
	if err != nil {
		log.Fatal("❌ Failed to prepare data dir", zap.Error(err))
	}

	var stores []results.Store
	if cfg.Storage.DatabaseURL != "" {
		if err := db.InitPostgres(cfg.Storage.DatabaseURL); err != nil {
			log.Warn("⚠️  PostgreSQL initialization failed, results mirror disabled", zap.Error(err))
		} else {
			stores = append(stores, db.PostgresStore{})
		}
	}
	defer db.ClosePostgres()

	if cfg.Storage.MongoURI != "" {
		if err := db.InitMongo(cfg.Storage.MongoURI); err != nil {
			log.Warn("⚠️  MongoDB initialization failed, results mirror disabled", zap.Error(err))
		} else {
			mongoStore := db.NewMongoTrialStore(db.MongoClient, cfg.Storage.MongoDB)
			idxCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := mongoStore.EnsureIndexes(idxCtx); err != nil {
				log.Warn("⚠️  Mongo index creation failed", zap.Error(err))
			}
			cancel()
			stores = append(stores, mongoStore)
		}
	}
	defer db.CloseMongo(context.Background())

	var sessionMirror *db.SessionMirror
	if cfg.Storage.RedisAddr != "" {
		if err := db.InitRedis(cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB); err != nil {
			log.Warn("⚠️  Redis initialization failed, session mirror disabled", zap.Error(err))
		} else {
			sessionMirror = db.NewSessionMirror()
		}
	}
	defer db.CloseRedis()

	mirror := results.NewMirror(runID, log, stores...)

	/* =========================
	   ENGINE
	========================= */

	hub := ws.NewHub(log)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	publishers := game.Publishers{hub}
	if sessionMirror != nil {
		publishers = append(publishers, sessionMirror)
	}

	registry := state.NewRegistry(cfg.Pool.Names, cfg.Economy.StartMoney)

	engine := game.NewEngine(trials, game.Options{
		Logger:            log,
		Ledger:            registry,
		Sink:              results.Multi{fileSink, mirror},
		Publisher:         publishers,
		Notify:            console.Event,
		RunID:             runID,
		OpponentName:      cfg.Pool.OpponentName,
		PerBlock:          cfg.Trials.PerBlock,
		MaxGoods:          cfg.Economy.MaxGoods,
		PriceSteps:        cfg.Clock.PriceSteps,
		PriceStepDuration: cfg.Clock.PriceStepDuration,
		StartDelay:        cfg.Clock.StartDelay,
		DelayBefore:       cfg.Clock.DelayBefore,
		DelayAfter:        cfg.Clock.DelayAfter,
	})

	// the results file must be writable before anyone connects
	if err := fileSink.Save(ctx, engine.Trials()); err != nil {
		log.Fatal("❌ Failed to write results file", zap.Error(err))
	}
	_ = mirror.Save(ctx, engine.Trials())
	log.Info("💾 Results file ready", zap.String("path", fileSink.Path()))

	run := &db.RunRecord{
		RunID:       runID,
		SeedHash:    seedHash,
		ResultsFile: filepath.Base(fileSink.Path()),
		Settings:    settings,
		StartedAt:   startedAt,
	}
	if err := db.StoreRun(ctx, run); err != nil {
		log.Warn("⚠️  Failed to store run header", zap.Error(err))
	}

	/* =========================
	   HTTP
	========================= */

	gateway := &ws.Gateway{
		Hub:          hub,
		Engine:       engine,
		Participants: registry,
		Settings:     settings,
		Logger:       log,
		OnChange: func(event string, p state.Participant) {
			console.Event(fmt.Sprintf("%s %s (%s)", p.Name, event, p.Address))
			console.Clients(registry.List())
		},
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger(log))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/ws", gin.WrapH(gateway))
	handler := &api.Handler{
		Engine:       engine,
		Participants: registry,
		Logger:       log,
		Checks: []api.HealthCheck{
			{Name: "redis", Probe: probeIf(db.RedisClient != nil, db.HealthCheck)},
			{Name: "postgres", Probe: probeIf(db.PostgresPool != nil, db.HealthCheckPostgres)},
			{Name: "mongo", Probe: probeIf(db.MongoClient != nil, db.HealthCheckMongo)},
		},
	}
	handler.Register(router)
	router.NoRoute(api.Static(cfg.Server.StaticDir, cfg.Server.IndexFile))

	host := cfg.Server.Host
	if host == "" {
		ip, err := netinfo.LocalIPv4()
		if err != nil {
			log.Fatal("❌ Failed to determine listen address", zap.Error(err))
		}
		host = ip.String()
	}
	addr := net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port))

	server := &http.Server{Addr: addr, Handler: router}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server error", zap.Error(err))
		}
	}()

	log.Info("🚀 Server started", zap.String("addr", addr))
	console.Event(fmt.Sprintf("Server running at http://%s", addr))
	console.Event(fmt.Sprintf("Session seed %s (run %s)", seed, runID))
	console.Clients(registry.List())

	heartbeat := &jobs.Heartbeat{Session: engine, Logger: log}
	if sessionMirror != nil {
		heartbeat.Touch = db.TouchSession
	}
	scheduler, err := heartbeat.Start(config.HeartbeatSpec)
	if err != nil {
		log.Fatal("❌ Failed to schedule heartbeat", zap.Error(err))
	}

	quit := make(chan struct{})
	if cfg.Server.Keyboard {
		kb.Engine = engine
		kb.Quit = func() { close(quit) }
		go func() {
			if err := kb.Run(); err != nil {
				log.Warn("⚠️  Keyboard input stopped", zap.Error(err))
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("🛑 Signal received, shutting down")
	case <-quit:
		log.Info("🛑 Operator quit")
	case <-engine.Done():
		log.Info("🏁 Experiment complete, shutting down")
	}

	/* =========================
	   SHUTDOWN
	========================= */

	kb.Restore()
	engine.Quit()
	engine.Persist()
	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("⚠️  HTTP shutdown failed", zap.Error(err))
	}
	stopHub()

	mirror.Close()
	if sessionMirror != nil {
		sessionMirror.Close()
	}
	log.Info("👋 Bye", zap.String("results", fileSink.Path()))
}

func probeIf(enabled bool, probe func(ctx context.Context) error) func(ctx context.Context) error {
	if !enabled {
		return nil
	}
	return probe
}
