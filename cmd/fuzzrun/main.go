package main

import (
	"context"
	"fmt"
	"os"

	"fuzzrun/config"
	"fuzzrun/internal/corpus"
	"fuzzrun/internal/probe"
	"fuzzrun/internal/runner"
	"fuzzrun/internal/subproc"
	"fuzzrun/pkg/logger"
	"fuzzrun/pkg/telemetry"
	"fuzzrun/pkg/watchdog"

	"github.com/jessevdk/go-flags"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	opts, err := config.ParseArgs(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			fmt.Println(err)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	app := fx.New(
		fx.Supply(opts),
		fx.Provide(
			config.LoadConfig,      // resolve CLI + env + build config
			logger.NewLogger,       // inject logger
			telemetry.NewTelemetry, // inject telemetry
			subproc.NewExecutor,    // inject subprocess executor
			watchdog.NewFactory,    // inject corpus watchdog factory
			newCoordinator,         // inject corpus coordinator
			newProber,              // inject capability prober
			runner.New,             // inject runner
		),
		fx.Invoke(run),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			zlogger := fxevent.ZapLogger{Logger: log}
			zlogger.UseLogLevel(zap.DebugLevel)
			return &zlogger
		}),
	)
	app.Run()
}

func newCoordinator(cfg *config.AppConfig, log *zap.Logger) *corpus.Coordinator {
	return corpus.NewCoordinator(cfg.SeedDir, log)
}

func newProber(exec subproc.Executor, log *zap.Logger) *probe.Prober {
	return probe.New(exec, log)
}

func run(r *runner.Runner, log *zap.Logger, shutdowner fx.Shutdowner) {
	if err := r.Run(context.Background()); err != nil {
		log.Error(err.Error())
		shutdowner.Shutdown(fx.ExitCode(1))
		return
	}
	shutdowner.Shutdown()
}
