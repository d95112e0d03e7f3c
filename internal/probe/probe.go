// Package probe verifies that the fuzz targets were built with the expected
// fuzzing instrumentation before any real execution starts.
package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fuzzrun/internal/subproc"

	"go.uber.org/zap"
)

const (
	// libFuzzer prints its option summary to stderr; its presence in the
	// help output is how we tell the target carries the right engine.
	capabilityMarker = "libFuzzer"

	helpFlag = "-help=1"

	DefaultTimeout = 20 * time.Second
)

var (
	ErrTimeout      = errors.New("capability probe timed out: currently only libFuzzer is supported")
	ErrNotLibFuzzer = errors.New("fuzz targets must be built with libFuzzer")
)

// Prober checks one representative target executable. Running every target
// only to discover a bad build after many launches wastes time, so the
// check happens once up front.
type Prober struct {
	exec   subproc.Executor
	logger *zap.Logger

	// Timeout bounds the help invocation. Defaults to DefaultTimeout.
	Timeout time.Duration
}

func New(exec subproc.Executor, logger *zap.Logger) *Prober {
	return &Prober{exec: exec, logger: logger, Timeout: DefaultTimeout}
}

// Check invokes targetPath with the libFuzzer help flag and inspects the
// diagnostic output for the capability marker.
func (p *Prober) Check(ctx context.Context, targetPath string) error {
	res, err := p.exec.Run(ctx, subproc.Request{
		Path:    targetPath,
		Args:    []string{helpFlag},
		Timeout: p.Timeout,
	})
	if err != nil {
		return fmt.Errorf("capability probe: %w", err)
	}
	if res.State == subproc.TimedOut {
		return ErrTimeout
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("capability probe exited with code %d", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, capabilityMarker) {
		return ErrNotLibFuzzer
	}
	p.logger.Debug("capability probe passed", zap.String("target", targetPath))
	return nil
}
