package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ledfix/internal/app"
	"github.com/coreman2200/ledfix/internal/config"
	"github.com/coreman2200/ledfix/internal/e131"
	"github.com/coreman2200/ledfix/internal/files"
	"github.com/coreman2200/ledfix/internal/led"
	"github.com/coreman2200/ledfix/internal/model"
	"github.com/coreman2200/ledfix/internal/pins"
	"github.com/coreman2200/ledfix/internal/render"
	"github.com/coreman2200/ledfix/internal/ws"
)

func main() {
	// ---- Flags (config.yaml overrides defaults, explicit flags win) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		dataDir    = flag.String("data", "./data", "data directory (model, fixtures)")
		driver     = flag.String("driver", "sim", "driver: spi | sim")
		logLevel   = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Config ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults")
		cfg = config.Default()
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "data":
			cfg.DataDir = *dataDir
		case "driver":
			cfg.Driver = *driver
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Collaborators ----
	drv, err := led.Open(cfg.Driver, cfg.SPI.Dev, cfg.MaxLeds, cfg.SPI.SpeedHz, cfg.SPI.ColorOrder)
	if err != nil {
		log.Warn().Err(err).
			Str("driver", cfg.Driver).
			Str("dev", cfg.SPI.Dev).
			Int("speed_hz", cfg.SPI.SpeedHz).
			Msg("SPI init failed; falling back to SIM")
	}
	defer drv.Close()

	eng, err := render.NewEngine(render.Defaults(), drv, render.Dimensions{X: 8, Y: 8, Z: 1}, cfg.MaxLeds, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("render engine")
	}

	dir, err := files.Open(cfg.DataDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.DataDir).Msg("data directory unavailable")
		dir = nil
	}

	pm, pinsErr := pins.Open(cfg.Pins)
	if pinsErr != nil {
		log.Warn().Err(pinsErr).Msg("some pins unavailable")
	}
	defer pm.Halt()

	hub := ws.NewHub(64)

	deps := app.Deps{Engine: eng, Dir: dir, Pins: pm, PinsErr: pinsErr, Hub: hub}
	if cfg.E131.Enabled {
		deps.Mapper = e131.NewMapper(uint16(cfg.E131.Universe), 1)
		rcv, err := e131.Listen(cfg.E131.Listen, 64)
		if err != nil {
			log.Warn().Err(err).Str("listen", cfg.E131.Listen).Msg("e131 receiver unavailable")
			deps.E131Err = err
		} else {
			deps.Packets = rcv.Packets()
			go func() {
				if err := rcv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Warn().Err(err).Msg("e131 receiver stopped")
				}
			}()
			log.Info().Str("listen", rcv.Addr().String()).Int("universe", cfg.E131.Universe).Msg("e131 listening")
		}
	}

	// ---- Model and modules ----
	policy, err := model.ParseConflictPolicy(cfg.Model.ConflictPolicy)
	if err != nil {
		log.Warn().Err(err).Msg("conflict policy")
	}
	m := model.New(model.Options{Conflict: policy, Sender: hub})
	rt := app.Bootstrap(cfg, m, deps)
	hub.Status = func() map[string]any {
		s := rt.Status()
		s["driver"] = cfg.Driver
		return s
	}

	// ---- HTTP ----
	mux := http.NewServeMux()
	hub.Routes(mux)
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      ws.WithCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("driver", cfg.Driver).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Main loop until a signal ----
	_ = rt.Run(ctx)
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
}
