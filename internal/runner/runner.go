// Package runner orchestrates one invocation of the fuzz target runner:
// catalog, selection, capability probe, then a run pass or a merge pass.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fuzzrun/config"
	"fuzzrun/internal/corpus"
	"fuzzrun/internal/manifest"
	"fuzzrun/internal/probe"
	"fuzzrun/internal/selection"
	"fuzzrun/internal/subproc"
	"fuzzrun/pkg/telemetry"
	"fuzzrun/pkg/watchdog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	runOnceFlag      = "-runs=1"
	mergeFlag        = "-merge=1"
	valueProfileFlag = "-use_value_profile=1"
)

var (
	ErrFuzzNotEnabled = errors.New("must have fuzz targets built")
	ErrNoTargetsFound = errors.New("no fuzz targets found")
	ErrNoneSelected   = errors.New("no fuzz targets selected")
)

type Runner struct {
	logger    *zap.Logger
	cfg       *config.AppConfig
	exec      subproc.Executor
	corpora   *corpus.Coordinator
	prober    *probe.Prober
	watchdogs *watchdog.Factory
	tracer    trace.Tracer
}

type Params struct {
	fx.In

	Logger    *zap.Logger
	AppConfig *config.AppConfig
	Executor  subproc.Executor
	Corpora   *corpus.Coordinator
	Prober    *probe.Prober
	Watchdogs *watchdog.Factory
	Telemetry telemetry.Telemetry
}

func New(p Params) *Runner {
	return &Runner{
		logger:    p.Logger.With(zap.String("run_id", p.AppConfig.RunID)),
		cfg:       p.AppConfig,
		exec:      p.Executor,
		corpora:   p.Corpora,
		prober:    p.Prober,
		watchdogs: p.Watchdogs,
		tracer:    p.Telemetry.Tracer(),
	}
}

// Run executes one runner invocation end to end. Every failure it returns
// is terminal for the run; nothing is retried.
func (r *Runner) Run(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "fuzz run",
		trace.WithAttributes(attribute.String("run.id", r.cfg.RunID)))
	defer span.End()

	runSet, err := r.selectTargets()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if seedless := r.corpora.Seedless(runSet); len(seedless) > 0 {
		r.logger.Info("fuzzing harnesses lacking a seed corpus", zap.Strings("targets", seedless))
		r.logger.Info("consider adding a seed corpus from https://github.com/bitcoin-core/qa-assets")
	}

	// One representative target is enough; all targets come out of the
	// same build.
	if err := r.prober.Check(ctx, r.cfg.TargetPath(runSet[0])); err != nil {
		span.SetStatus(codes.Error, "capability probe failed")
		return err
	}

	if r.cfg.MergeDir != "" {
		err = r.mergeInputs(ctx, runSet)
	} else {
		err = r.runOnce(ctx, runSet)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// selectTargets resolves the catalog and the selection request into the
// sorted run set, reporting selection problems on the way.
func (r *Runner) selectTargets() ([]string, error) {
	if !r.cfg.EnableFuzz {
		return nil, ErrFuzzNotEnabled
	}

	catalog, err := manifest.Load(r.cfg.ManifestPath())
	if err != nil {
		if errors.Is(err, manifest.ErrNoTargetBlock) {
			return nil, ErrNoTargetsFound
		}
		return nil, fmt.Errorf("read build manifest: %w", err)
	}
	if len(catalog) == 0 {
		return nil, ErrNoTargetsFound
	}
	r.logger.Debug("fuzz targets found", zap.Int("count", len(catalog)))

	sel := selection.Select(catalog, r.cfg.Targets, r.cfg.Excluded)
	if len(sel.UnknownRequested) > 0 {
		r.logger.Error("unknown fuzz targets selected", zap.Strings("targets", sel.UnknownRequested))
	}
	for _, t := range sel.UnknownExcluded {
		r.logger.Warn("excluded target not found in current target list", zap.String("target", t))
	}
	if len(sel.RunSet) == 0 {
		return nil, ErrNoneSelected
	}

	r.logger.Info("fuzz targets selected",
		zap.Int("selected", len(sel.RunSet)),
		zap.Int("detected", len(catalog)),
		zap.Strings("targets", sel.RunSet))
	return sel.RunSet, nil
}

// runOnce runs every target once over its corpus, in sorted order, and
// stops at the first failure.
func (r *Runner) runOnce(ctx context.Context, targets []string) error {
	for _, target := range targets {
		corpusDir, err := r.corpora.EnsureDir(target)
		if err != nil {
			return fmt.Errorf("create corpus dir for %s: %w", target, err)
		}

		req := r.buildRunRequest(target, corpusDir)
		res, err := r.runTarget(ctx, "run target", target, req)
		if err != nil {
			return err
		}

		if res.ExitCode != 0 {
			if res.Stdout != "" {
				r.logger.Info(res.Stdout)
			}
			if res.Stderr != "" {
				r.logger.Info(res.Stderr)
			}
			r.logger.Info("fuzz target failed",
				zap.String("target", target),
				zap.Int("exit_code", res.ExitCode),
				zap.String("command", req.CommandLine()))
			return fmt.Errorf("target %q failed with exit code %d", target, res.ExitCode)
		}
	}
	return nil
}

// mergeInputs folds the per-target subdirectories of the merge root into
// the tracked seed corpus. Merges already completed when a later target
// fails stay persisted; the merge tool has written its output by then.
func (r *Runner) mergeInputs(ctx context.Context, targets []string) error {
	r.logger.Info("merging inputs into the seed corpus", zap.String("merge_dir", r.cfg.MergeDir))
	for _, target := range targets {
		dstDir, err := r.corpora.EnsureDir(target)
		if err != nil {
			return fmt.Errorf("create corpus dir for %s: %w", target, err)
		}
		srcDir := filepath.Join(r.cfg.MergeDir, target)
		if err := os.MkdirAll(srcDir, 0755); err != nil {
			return fmt.Errorf("create merge dir for %s: %w", target, err)
		}

		added, err := r.mergeTarget(ctx, target, dstDir, srcDir)
		if err != nil {
			return err
		}
		r.logger.Info("merge finished",
			zap.String("target", target),
			zap.Int("new_entries", added))
	}
	return nil
}

// mergeTarget runs one merge invocation while a watchdog observes the
// destination corpus, so the entries the merge tool promotes show up in the
// logs. Which files get added is entirely the tool's decision.
func (r *Runner) mergeTarget(ctx context.Context, target, dstDir, srcDir string) (int, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	notify := make(chan string, 128)
	wd, err := r.watchdogs.New(watchCtx, notify, isCorpusEntry)
	if err != nil {
		return 0, fmt.Errorf("watch corpus dir for %s: %w", target, err)
	}
	if err := wd.AddDir(dstDir); err != nil {
		return 0, fmt.Errorf("watch corpus dir for %s: %w", target, err)
	}

	counted := make(chan int, 1)
	go func() {
		added := 0
		for f := range notify {
			r.logger.Debug("merge wrote corpus entry",
				zap.String("target", target),
				zap.String("file", filepath.Base(f)))
			added++
		}
		counted <- added
	}()

	req := r.buildMergeRequest(target, dstDir, srcDir)
	res, err := r.runTarget(ctx, "merge target", target, req)
	cancel()
	added := <-counted
	if err != nil {
		return added, err
	}

	if res.ExitCode != 0 {
		if res.Stderr != "" {
			r.logger.Info(res.Stderr)
		}
		r.logger.Info("merge failed",
			zap.String("target", target),
			zap.Int("exit_code", res.ExitCode),
			zap.String("command", req.CommandLine()))
		return added, fmt.Errorf("merge for target %q failed with exit code %d", target, res.ExitCode)
	}
	return added, nil
}

// runTarget invokes one subprocess under a span and logs its output.
func (r *Runner) runTarget(ctx context.Context, spanName, target string, req subproc.Request) (subproc.Result, error) {
	targetCtx, span := r.tracer.Start(ctx, spanName,
		trace.WithAttributes(attribute.String("target", target)))
	defer span.End()

	r.logger.Debug("running target",
		zap.String("target", target),
		zap.String("command", req.CommandLine()))

	res, err := r.exec.Run(targetCtx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return subproc.Result{}, fmt.Errorf("run %s: %w", target, err)
	}
	span.SetAttributes(attribute.Int("exit_code", res.ExitCode))

	r.logger.Debug("target output",
		zap.String("target", target),
		zap.String("stderr", res.Stderr))
	return res, nil
}

// buildRunRequest assembles one "-runs=1" pass over the target's corpus,
// optionally wrapped by valgrind.
func (r *Runner) buildRunRequest(target, corpusDir string) subproc.Request {
	argv := []string{r.cfg.TargetPath(target), runOnceFlag, corpusDir}
	if r.cfg.UseValgrind {
		argv = append([]string{"valgrind", "--quiet", "--error-exitcode=1"}, argv...)
	}
	return subproc.Request{Path: argv[0], Args: argv[1:]}
}

// buildMergeRequest assembles a value-profile-guided merge of srcDir into
// dstDir, destination first per the target's merge contract.
func (r *Runner) buildMergeRequest(target, dstDir, srcDir string) subproc.Request {
	return subproc.Request{
		Path: r.cfg.TargetPath(target),
		Args: []string{mergeFlag, valueProfileFlag, dstDir, srcDir},
	}
}

// isCorpusEntry filters out the temporary files libFuzzer writes before
// promoting an input into the corpus.
func isCorpusEntry(name string) bool {
	base := filepath.Base(name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, ".tmp")
}
