package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jeeves/internal/boundary"
	"jeeves/internal/config"
	"jeeves/internal/eventhub"
	"jeeves/internal/issue"
	"jeeves/internal/logging"
	"jeeves/internal/paths"
	"jeeves/internal/provider"
	"jeeves/internal/provider/claudecode"
	"jeeves/internal/provider/codex"
	"jeeves/internal/provider/script"
	"jeeves/internal/run"
	"jeeves/internal/store"
	"jeeves/internal/workflow"
)

// components holds the wired-together dependency graph shared by serve and
// reconcile: each of those subcommands builds one and uses the slice of it
// relevant to its own work. migrate opens the store directly instead.
type components struct {
	cfg      config.Config
	layout   paths.Layout
	store    *store.Store
	hub      *eventhub.Hub
	runs     *run.Manager
	issues   *issue.Service
	registry *provider.Registry
	commands *boundary.Commands
}

// bootstrap resolves configuration, opens the store, loads workflow
// documents, and registers the built-in provider adapters. `serve` and
// `reconcile` both go through this so they see the exact same issue tree.
func bootstrap(ctx context.Context) (*components, error) {
	cfg := config.Load(nil)

	layout := paths.ResolveDefault()
	if strings.TrimSpace(cfg.DataDir) != "" {
		layout = paths.Layout{Root: cfg.DataDir}
	}

	st, err := store.Open(ctx, layout.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := bootstrapLegacyActiveIssue(ctx, st, layout); err != nil {
		st.Close()
		return nil, fmt.Errorf("bootstrap legacy active issue: %w", err)
	}

	hub := eventhub.New()
	mgr := run.NewManager(hub)
	svc := issue.NewService(st, layout, mgr)

	if err := loadWorkflows(ctx, svc, st, cfg.WorkflowsDir); err != nil {
		st.Close()
		return nil, fmt.Errorf("load workflows: %w", err)
	}

	registry := provider.NewRegistry()
	registry.Register(claudecode.New(claudecode.Config{
		BinaryPath: cfg.ClaudeCodeBinary,
		Timeout:    cfg.ProviderTimeout,
	}))
	registry.Register(codex.New(codex.Config{
		BinaryPath: cfg.CodexBinary,
		Timeout:    cfg.ProviderTimeout,
	}))
	registry.Register(script.New(script.Config{
		Timeout: cfg.ProviderTimeout,
	}))

	cmds := boundary.New(svc, st, layout, registry, cfg.MaxParallelTasks)

	return &components{
		cfg:      cfg,
		layout:   layout,
		store:    st,
		hub:      hub,
		runs:     mgr,
		issues:   svc,
		registry: registry,
		commands: cmds,
	}, nil
}

func (c *components) Close() error {
	return c.store.Close()
}

// bootstrapLegacyActiveIssue imports a legacy active-issue.json pointer
// into the store on first use. A missing or unparsable file is not an
// error: most data roots never had one in the first place.
func bootstrapLegacyActiveIssue(ctx context.Context, st *store.Store, layout paths.Layout) error {
	raw, err := os.ReadFile(layout.ActiveIssueFile())
	if err != nil {
		return nil
	}
	var legacy struct {
		IssueRef string `json:"issue_ref"`
	}
	if json.Unmarshal(raw, &legacy) != nil || strings.TrimSpace(legacy.IssueRef) == "" {
		return nil
	}
	_, err = st.BootstrapActiveIssueIfEmpty(ctx, layout.Root, legacy.IssueRef, time.Now().UnixMilli())
	return err
}

// loadWorkflows scans dir for *.yaml documents and registers each under
// its declared Name. A missing directory is not an error: jeeves can run
// with zero workflows registered (init_issue will just fail validation
// against an unknown workflow name until one is added).
func loadWorkflows(ctx context.Context, svc *issue.Service, st *store.Store, dir string) error {
	logger := logging.NewComponentLogger("bootstrap")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("workflows dir %q not found, starting with none registered", dir)
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		doc, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		w, err := workflow.Parse(doc)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		svc.RegisterWorkflow(w.Name, w)

		parsedJSON, err := json.Marshal(w)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		if err := st.UpsertWorkflowContent(ctx, w.Name, string(doc), string(parsedJSON), time.Now().UnixMilli()); err != nil {
			return fmt.Errorf("cache %s: %w", path, err)
		}
		logger.Info("registered workflow %q from %s", w.Name, path)
	}
	return nil
}

// shutdownTimeout bounds how long serve waits for in-flight requests to
// drain on SIGTERM before forcing the listener closed.
const shutdownTimeout = 15 * time.Second
