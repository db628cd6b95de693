// Command stackedpdfd is the conversion daemon: an HTTP API plus a worker
// pool that pulls imposition jobs from a Redis stream.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/jerefrer/stacked-pdf-generator/internal/config"
	"github.com/jerefrer/stacked-pdf-generator/internal/dispatch"
	"github.com/jerefrer/stacked-pdf-generator/internal/doctor"
	"github.com/jerefrer/stacked-pdf-generator/internal/generator"
	"github.com/jerefrer/stacked-pdf-generator/internal/logger"
	"github.com/jerefrer/stacked-pdf-generator/internal/metrics"
	"github.com/jerefrer/stacked-pdf-generator/internal/queue"
	"github.com/jerefrer/stacked-pdf-generator/internal/runner"
	"github.com/jerefrer/stacked-pdf-generator/internal/server"
	"github.com/jerefrer/stacked-pdf-generator/internal/store"
	"github.com/jerefrer/stacked-pdf-generator/internal/web"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	if err := logger.Init(cfg.Logging, cfg.Axiom); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	defer logger.Close()

	metrics.Init()

	rq, err := queue.New(cfg.Queue.RedisURL, cfg.Queue.Stream, cfg.Queue.Group)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rq.Close()

	rs, err := store.NewRedisStatus(cfg.Queue.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init redis status store")
	}
	defer rs.Close()

	gen := generator.New(generator.Dependencies{
		Runner: dispatch.InstrumentedRunner{Inner: runner.Exec{}},
	})

	pool := dispatch.New(dispatch.Config{
		Concurrency: cfg.Worker.Concurrency,
		JobTimeout:  cfg.Worker.JobTimeout,
		Poll:        cfg.Queue.PollInterval,
	}, rq, rs, gen)
	pool.Start()

	check := doctor.New(doctor.Options{Redis: rq})

	api := server.New(server.Dependencies{Queue: rq, Status: rs, Doctor: check, Cfg: cfg.Server})
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())

	dash := web.New(cfg.Server)
	dash.RegisterRoutes(mux)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: mux}
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	pool.Stop()
	log.Info().Msg("shutdown complete")
}
