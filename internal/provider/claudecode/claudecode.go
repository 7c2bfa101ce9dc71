// Package claudecode adapts the Claude Code CLI to the provider.Adapter
// contract: it shells out to the binary in non-interactive stream-json
// mode and translates each output line into provider.Progress updates.
package claudecode

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	jerrors "jeeves/internal/errors"
	"jeeves/internal/logging"
	"jeeves/internal/provider"
	"jeeves/internal/provider/subprocess"
)

// Config configures the Claude Code adapter.
type Config struct {
	BinaryPath   string
	APIKey       string
	DefaultModel string
	AllowedTools []string
	MaxBudgetUSD float64
	MaxTurns     int
	Timeout      time.Duration
	Env          map[string]string
}

// subprocessRunner is the subset of *subprocess.Subprocess the adapter
// depends on; overridable in tests via subprocessFactory.
type subprocessRunner interface {
	Start(ctx context.Context) error
	Stdout() io.ReadCloser
	Wait() error
	Stop() error
	StderrTail() string
}

// Adapter implements provider.Adapter for the Claude Code CLI.
type Adapter struct {
	cfg               Config
	logger            logging.Logger
	subprocessFactory func(subprocess.Config) subprocessRunner
}

func New(cfg Config) *Adapter {
	if strings.TrimSpace(cfg.BinaryPath) == "" {
		cfg.BinaryPath = "claude"
	}
	return &Adapter{
		cfg:    cfg,
		logger: logging.NewComponentLogger("provider.claude_code"),
		subprocessFactory: func(c subprocess.Config) subprocessRunner {
			return subprocess.New(c)
		},
	}
}

func (a *Adapter) Kind() string { return "claude_code" }

func (a *Adapter) Execute(ctx context.Context, req provider.Request) (*provider.Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, jerrors.Validation("claudecode.Execute", "prompt is required")
	}

	model := pickString(req.Config, "model", a.cfg.DefaultModel)
	maxTurns := pickInt(req.Config, "max_turns", a.cfg.MaxTurns)
	maxBudget := pickFloat(req.Config, "max_budget_usd", a.cfg.MaxBudgetUSD)
	allowedTools := a.cfg.AllowedTools
	if override := pickString(req.Config, "allowed_tools", ""); override != "" {
		allowedTools = splitList(override)
	}

	args := []string{"-p", "--output-format", "stream-json", "--verbose", "--dangerously-skip-permissions"}
	if model != "" {
		args = append(args, "--model", model)
	}
	if maxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(maxTurns))
	}
	if maxBudget > 0 {
		args = append(args, "--max-budget-usd", fmt.Sprintf("%.2f", maxBudget))
	}
	if len(allowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(allowedTools, ","))
	}
	args = append(args, "--", req.Prompt)

	env := cloneStringMap(a.cfg.Env)
	if a.cfg.APIKey != "" {
		env["ANTHROPIC_API_KEY"] = a.cfg.APIKey
	}

	proc := a.subprocessFactory(subprocess.Config{
		Command:    a.cfg.BinaryPath,
		Args:       args,
		Env:        env,
		WorkingDir: req.WorkingDir,
		Timeout:    a.cfg.Timeout,
	})
	if err := proc.Start(ctx); err != nil {
		return nil, jerrors.Wrap(jerrors.KindProvider, "claudecode.Execute", err)
	}
	defer proc.Stop()

	result := &provider.Result{TaskID: req.TaskID}
	scanner := bufio.NewScanner(proc.Stdout())
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if req.OnEventLine != nil {
			cp := append([]byte(nil), line...)
			req.OnEventLine(cp)
		}
		msg, err := ParseStreamMessage(line)
		if err != nil {
			continue
		}
		if text := msg.ExtractText(); text != "" && msg.Type == "result" {
			result.Answer = text
		}
		if tokens, cost := msg.ExtractUsage(); tokens > 0 || cost > 0 {
			result.TokensUsed = tokens
			result.CostUSD = cost
		}
		if toolName, toolArgs := msg.ExtractToolEvent(); toolName != "" {
			result.Iterations++
			if req.OnProgress != nil {
				req.OnProgress(provider.Progress{
					Iteration:    result.Iterations,
					TokensUsed:   result.TokensUsed,
					CostUSD:      result.CostUSD,
					CurrentTool:  toolName,
					CurrentArgs:  truncate(toolArgs, 200),
					LastActivity: time.Now(),
				})
			}
		}
	}

	waitErr := proc.Wait()
	result.StderrTail = proc.StderrTail()
	if scanErr := scanner.Err(); scanErr != nil {
		return result, jerrors.Wrap(jerrors.KindProvider, "claudecode.Execute", scanErr)
	}
	if waitErr != nil {
		result.ExitErr = waitErr
		return result, jerrors.New(jerrors.KindProvider, "claudecode.Execute", formatExitMessage(waitErr, result.StderrTail))
	}
	return result, nil
}

type exitCoder interface{ ExitCode() int }

// formatExitMessage builds a diagnostic message from a process failure,
// surfacing the exit code, the captured stderr tail, and a login hint when
// the tail suggests the CLI session expired.
func formatExitMessage(waitErr error, stderrTail string) string {
	msg := waitErr.Error()
	if coder, ok := waitErr.(exitCoder); ok {
		msg = fmt.Sprintf("%s (exit=%d)", msg, coder.ExitCode())
	}
	if stderrTail != "" {
		msg = fmt.Sprintf("%s, stderr tail: %s", msg, stderrTail)
	}
	lowerTail := strings.ToLower(stderrTail)
	if strings.Contains(lowerTail, "not logged in") || strings.Contains(lowerTail, "unauthorized") {
		msg = fmt.Sprintf("%s (hint: run `claude login` to refresh credentials)", msg)
	}
	return msg
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

func pickInt(config map[string]string, key string, fallback int) int {
	if config == nil {
		return fallback
	}
	if v := strings.TrimSpace(config[key]); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func pickFloat(config map[string]string, key string, fallback float64) float64 {
	if config == nil {
		return fallback
	}
	if v := strings.TrimSpace(config[key]); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func cloneStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func truncate(input string, limit int) string {
	if limit <= 0 || len(input) <= limit {
		return input
	}
	return input[:limit]
}
