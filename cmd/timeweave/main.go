package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/timeweave/engine/internal/config"
	"github.com/timeweave/engine/internal/data"
	"github.com/timeweave/engine/internal/engine"
	"github.com/timeweave/engine/internal/handler"
	gonet "github.com/timeweave/engine/internal/net"
	"github.com/timeweave/engine/internal/observability"
	"github.com/timeweave/engine/internal/persist"
	"github.com/timeweave/engine/internal/scripting"
	"github.com/timeweave/engine/internal/system"
	"github.com/timeweave/engine/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name, session string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            timeweave  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       time control engine · Go            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mengine:\033[0m %s \033[90m(session: %s)\033[0m\n\n", name, session)
}

func printSection(title string) {
	lineLen := 46 - utf8.RuneCountInString(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - utf8.RuneCountInString(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printSkip(msg string) {
	fmt.Printf("  \033[90m- %s\033[0m\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main engine logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/timeweave.toml"
	if p := os.Getenv("TIMEWEAVE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Engine.Name, cfg.Engine.Session)

	// 3. Engine core
	eng := engine.New(engine.Options{
		Clock:          cfg.TempoClock(),
		RecordInterval: cfg.Recorder.Interval,
		Retention:      cfg.Recorder.Retention,
		Log:            log.Named("tempo"),
	})

	// 4. Host world from the scenario file
	printSection("World")
	scenario, err := data.LoadScenario(cfg.Scenario.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Warn("scenario not found, starting with an empty world", zap.String("path", cfg.Scenario.Path))
		scenario = &data.Scenario{}
	case err != nil:
		return err
	}
	ws := world.NewState(scenario.CellSize)
	if err := scenario.Populate(ws); err != nil {
		return fmt.Errorf("populate world: %w", err)
	}

	// 5. Lua hooks: steering and bubble falloff
	lua, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer lua.Close()
	ws.SetSteerer(lua)
	if f := lua.Falloff(); f != nil {
		eng.Zones().SetFalloff(f)
		printOK("bubble falloff from Lua")
	}

	if err := ws.RegisterAll(eng); err != nil {
		return fmt.Errorf("register world: %w", err)
	}
	for name, scale := range scenario.CustomScales() {
		if b := ws.Body(name); b != nil {
			eng.SetCustomScale(b.EntityID(), scale)
		}
		if a := ws.Animator(name); a != nil {
			eng.SetCustomScale(a.EntityID(), scale)
		}
	}
	for i, def := range scenario.Bubbles {
		if _, err := eng.CreateBubble(def.Center.Vec(), def.Radius, def.Scale, def.Duration); err != nil {
			return fmt.Errorf("scenario bubble %d: %w", i, err)
		}
	}
	eng.AddSystem(system.NewHostSystem(ws))
	printStat("bodies", ws.BodyCount())
	printStat("animators", ws.AnimatorCount())
	printStat("bubbles", eng.BubbleCount())
	fmt.Println()

	// 6. PostgreSQL: restore the saved timeline, then persist periodically
	printSection("Database")
	var (
		persistence *system.PersistenceSystem
		journal     handler.JournalReader
	)
	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")

		timelines := persist.NewTimelineRepo(db)
		journalRepo := persist.NewJournalRepo(db)
		journal = journalRepo

		if err := restoreTimeline(ctx, timelines, eng, ws, cfg.Engine.Session, log); err != nil {
			return err
		}
		persistence = system.NewPersistenceSystem(eng.Clock(), eng.Recorder(), eng.Bus(),
			timelines, journalRepo, ws.NameOf, cfg.Engine.Session, log.Named("persist"), cfg.Database.SaveEveryTicks)
		eng.AddSystem(persistence)
	} else {
		printSkip("disabled")
	}
	fmt.Println()

	// 7. Metrics and tracing
	printSection("Metrics")
	var collector *observability.TempoCollector
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		collector, err = observability.NewTempoCollector(prometheus.NewRegistry())
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		collector.Subscribe(eng.Bus())
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.BindAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		printOK("serving /metrics on " + cfg.Metrics.BindAddress)
	} else {
		printSkip("disabled")
	}

	shutdownTracing, err := observability.InitTracing(context.Background(), cfg.Tracing, log.Named("tracing"))
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
	tracer := observability.NewTempoTracer(nil)
	tracer.Subscribe(eng.Bus())
	if cfg.Tracing.Enabled {
		printOK("tracing to " + cfg.Tracing.Exporter)
	}
	fmt.Println()

	// 8. Console
	printSection("Console")
	var netServer *gonet.Server
	if cfg.Console.Enabled {
		charset, err := gonet.Charset(cfg.Console.Charset)
		if err != nil {
			return fmt.Errorf("console: %w", err)
		}
		netServer, err = gonet.NewServer(cfg.Console.BindAddress, gonet.SessionOptions{
			InQueueSize:  cfg.Console.InQueueSize,
			OutQueueSize: cfg.Console.OutQueueSize,
			CmdPerSec:    cfg.Console.CommandsPerSecond,
			WriteTimeout: cfg.Console.WriteTimeout,
			IdleTimeout:  cfg.Console.IdleTimeout,
			NeedAuth:     cfg.Console.PasswordHash != "",
			Charset:      charset,
		}, log.Named("console"))
		if err != nil {
			return fmt.Errorf("console listen: %w", err)
		}
		go netServer.AcceptLoop()

		deps := &handler.Deps{
			Engine:  eng,
			World:   ws,
			Journal: journal,
			Config:  cfg,
			Log:     log.Named("console"),
		}
		reg := handler.NewRegistry(log.Named("console"))
		handler.RegisterAll(reg, deps)

		store := gonet.NewSessionStore()
		handler.SubscribeNotices(eng.Bus(), func(fn func(handler.Conn)) {
			store.Each(func(s *gonet.Session) { fn(s) })
		}, deps)

		eng.AddSystem(system.NewInputSystem(netServer, store, handler.NewConsole(reg, deps),
			cfg.Console.MaxCommandsPerTick, log.Named("console")))
		eng.AddSystem(system.NewOutputSystem(store))
		if cfg.Console.PasswordHash == "" {
			log.Warn("console password not set, auth disabled")
		}
		printOK("listening on " + netServer.Addr().String())
	} else {
		printSkip("disabled")
	}
	fmt.Println()

	// 9. Start tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Engine.TickRate)
	defer ticker.Stop()

	printSection("Ready")
	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Engine.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			eng.Tick(cfg.Engine.TickRate)
			if collector != nil {
				collector.Observe(eng.Status(), time.Since(start))
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			if netServer != nil {
				netServer.Shutdown()
			}
			if persistence != nil {
				persistence.Save()
			}
			tracer.Close()
			if metricsSrv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				metricsSrv.Shutdown(ctx)
				cancel()
			}
			log.Info("engine stopped")
			return nil
		}
	}
}

// restoreTimeline loads the saved clock and history of a session. Entities
// that no longer exist in the world are dropped from the restored snapshots.
func restoreTimeline(ctx context.Context, repo *persist.TimelineRepo, eng *engine.Engine, ws *world.State, session string, log *zap.Logger) error {
	row, err := repo.LoadTimeline(ctx, session)
	if err != nil {
		return fmt.Errorf("load timeline: %w", err)
	}
	if row == nil {
		printSkip("no saved timeline for session " + session)
		return nil
	}
	snaps, err := persist.DecodeSnapshots(row.Snapshots, ws.IDOf)
	if err != nil {
		return fmt.Errorf("decode timeline: %w", err)
	}
	if err := eng.Recorder().Load(snaps); err != nil {
		return fmt.Errorf("restore timeline: %w", err)
	}
	eng.Clock().Restore(row.Clock)
	log.Info("timeline restored",
		zap.String("session", session),
		zap.Int("snapshots", len(snaps)),
		zap.Time("saved_at", row.SavedAt),
	)
	printStat("restored snapshots", len(snaps))
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
