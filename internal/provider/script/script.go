// Package script adapts arbitrary shell commands to the provider.Adapter
// contract, for workflow phases that run a fixed script rather than an
// agent CLI (e.g. running the repo's test suite between agent turns).
package script

import (
	"bufio"
	"context"
	"strings"
	"time"

	jerrors "jeeves/internal/errors"
	"jeeves/internal/provider"
	"jeeves/internal/provider/subprocess"
)

// Config configures the script adapter.
type Config struct {
	Shell   string // defaults to "/bin/sh"
	Timeout time.Duration
	Env     map[string]string
}

type Adapter struct {
	cfg Config
}

func New(cfg Config) *Adapter {
	if strings.TrimSpace(cfg.Shell) == "" {
		cfg.Shell = "/bin/sh"
	}
	return &Adapter{cfg: cfg}
}

func (a *Adapter) Kind() string { return "script" }

// Execute runs req.Prompt as a shell command line. Output lines are
// forwarded via OnEventLine verbatim (not stream-json), and the full
// stdout capture becomes the result Answer.
func (a *Adapter) Execute(ctx context.Context, req provider.Request) (*provider.Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, jerrors.Validation("script.Execute", "command is required")
	}

	proc := subprocess.New(subprocess.Config{
		Command:    a.cfg.Shell,
		Args:       []string{"-c", req.Prompt},
		Env:        a.cfg.Env,
		WorkingDir: req.WorkingDir,
		Timeout:    a.cfg.Timeout,
	})
	if err := proc.Start(ctx); err != nil {
		return nil, jerrors.Wrap(jerrors.KindProvider, "script.Execute", err)
	}
	defer proc.Stop()

	var out strings.Builder
	scanner := bufio.NewScanner(proc.Stdout())
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		out.Write(line)
		out.WriteByte('\n')
		if req.OnEventLine != nil {
			cp := append([]byte(nil), line...)
			req.OnEventLine(cp)
		}
	}

	result := &provider.Result{TaskID: req.TaskID, Answer: out.String()}
	waitErr := proc.Wait()
	result.StderrTail = proc.StderrTail()
	if waitErr != nil {
		result.ExitErr = waitErr
		return result, jerrors.Wrap(jerrors.KindProvider, "script.Execute", waitErr)
	}
	return result, nil
}
