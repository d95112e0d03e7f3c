package subproc

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// State classifies how a supervised subprocess ended.
type State int

const (
	Completed State = iota // the process exited on its own; see ExitCode
	TimedOut               // the deadline elapsed before the process exited
)

// Request describes a single subprocess invocation.
type Request struct {
	Path    string
	Args    []string
	Timeout time.Duration // zero means no deadline
}

// CommandLine renders the full invocation for logging.
func (r Request) CommandLine() string {
	return strings.Join(append([]string{r.Path}, r.Args...), " ")
}

// Result is everything the orchestrator sees of a finished subprocess.
// A non-zero exit code is reported here, not as an error; errors are
// reserved for failures to run the process at all.
type Result struct {
	State    State
	ExitCode int
	Stdout   string
	Stderr   string
}

// Executor runs subprocesses synchronously on behalf of the orchestrator.
type Executor interface {
	Run(ctx context.Context, req Request) (Result, error)
}

type execRunner struct {
	logger *zap.Logger
}

func NewExecutor(logger *zap.Logger) Executor {
	return &execRunner{logger: logger}
}

func (e *execRunner) Run(ctx context.Context, req Request) (Result, error) {
	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, req.Path, req.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("running subprocess", zap.String("command", cmd.String()))
	err := cmd.Run()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.State = TimedOut
		return res, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// e.g. the binary does not exist or is not executable
			return Result{}, err
		}
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}
