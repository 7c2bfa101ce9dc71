// Package codex adapts the Codex CLI to the provider.Adapter contract. It
// shells out to `codex exec --json` and folds its event stream into
// provider.Progress updates, the same subprocess/stream-json shape the
// claude_code adapter uses, rather than speaking the richer MCP protocol
// the CLI also supports (see DESIGN.md for why MCP was dropped here).
package codex

import (
	"bufio"
	"context"
	"strings"
	"time"

	jerrors "jeeves/internal/errors"
	"jeeves/internal/logging"
	"jeeves/internal/provider"
	"jeeves/internal/provider/subprocess"
)

// Config configures the Codex adapter.
type Config struct {
	BinaryPath     string
	APIKey         string
	DefaultModel   string
	ApprovalPolicy string
	Sandbox        string
	Timeout        time.Duration
	Env            map[string]string
}

type Adapter struct {
	cfg    Config
	logger logging.Logger
}

func New(cfg Config) *Adapter {
	if strings.TrimSpace(cfg.BinaryPath) == "" {
		cfg.BinaryPath = "codex"
	}
	return &Adapter{cfg: cfg, logger: logging.NewComponentLogger("provider.codex")}
}

func (a *Adapter) Kind() string { return "codex" }

func (a *Adapter) Execute(ctx context.Context, req provider.Request) (*provider.Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, jerrors.Validation("codex.Execute", "prompt is required")
	}

	model := pickString(req.Config, "model", a.cfg.DefaultModel)
	approval := pickString(req.Config, "approval_policy", a.cfg.ApprovalPolicy)
	sandbox := pickString(req.Config, "sandbox", a.cfg.Sandbox)

	args := []string{"exec", "--json"}
	if model != "" {
		args = append(args, "--model", model)
	}
	if approval != "" {
		args = append(args, "--approval-policy", approval)
	}
	if sandbox != "" {
		args = append(args, "--sandbox", sandbox)
	}
	args = append(args, req.Prompt)

	env := map[string]string{}
	for k, v := range a.cfg.Env {
		env[k] = v
	}
	if a.cfg.APIKey != "" {
		env["OPENAI_API_KEY"] = a.cfg.APIKey
	}

	proc := subprocess.New(subprocess.Config{
		Command:    a.cfg.BinaryPath,
		Args:       args,
		Env:        env,
		WorkingDir: req.WorkingDir,
		Timeout:    a.cfg.Timeout,
	})
	if err := proc.Start(ctx); err != nil {
		return nil, jerrors.Wrap(jerrors.KindProvider, "codex.Execute", err)
	}
	defer proc.Stop()

	result := &provider.Result{TaskID: req.TaskID}
	iteration := 0
	scanner := bufio.NewScanner(proc.Stdout())
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if req.OnEventLine != nil {
			cp := append([]byte(nil), line...)
			req.OnEventLine(cp)
		}
		event, err := parseEvent(line)
		if err != nil {
			continue
		}
		switch event.Type {
		case "token_count":
			if event.Tokens > result.TokensUsed {
				result.TokensUsed = event.Tokens
			}
		case "agent_message", "agent_message_delta":
			result.Answer = event.Text
		}
		if event.ToolCall {
			iteration++
			result.Iterations = iteration
			if req.OnProgress != nil {
				req.OnProgress(provider.Progress{
					Iteration:    iteration,
					TokensUsed:   result.TokensUsed,
					CurrentTool:  event.Type,
					CurrentArgs:  truncate(event.Text, 200),
					LastActivity: time.Now(),
				})
			}
		}
	}

	waitErr := proc.Wait()
	result.StderrTail = proc.StderrTail()
	if scanErr := scanner.Err(); scanErr != nil {
		return result, jerrors.Wrap(jerrors.KindProvider, "codex.Execute", scanErr)
	}
	if waitErr != nil {
		result.ExitErr = waitErr
		return result, jerrors.Wrap(jerrors.KindProvider, "codex.Execute", waitErr)
	}
	return result, nil
}

func pickString(config map[string]string, key, fallback string) string {
	if config == nil {
		return fallback
	}
	if v := strings.TrimSpace(config[key]); v != "" {
		return v
	}
	return fallback
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
