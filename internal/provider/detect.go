package provider

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	jerrors "jeeves/internal/errors"
)

// wellKnownPaths lists install locations checked when a provider binary is
// not on PATH, covering the common package-manager and curl-installer
// layouts for each CLI.
var wellKnownPaths = map[string][]string{
	"claude_code": {"/usr/local/bin/claude", "~/.local/bin/claude", "~/.claude/local/claude"},
	"codex":       {"/usr/local/bin/codex", "~/.local/bin/codex", "~/.cargo/bin/codex"},
}

// ResolveBinary picks the binary path for a provider kind: an explicit
// override first, then PATH, then the well-known install locations. It
// returns the resolved path and how it was found ("override", "path",
// "well_known"), or an error if nothing resolves.
func ResolveBinary(kind, override string) (path string, source string, err error) {
	if strings.TrimSpace(override) != "" {
		return override, "override", nil
	}
	defaultName := kind
	if kind == "claude_code" {
		defaultName = "claude"
	}
	if resolved, lookErr := exec.LookPath(defaultName); lookErr == nil {
		return resolved, "path", nil
	}
	for _, candidate := range wellKnownPaths[kind] {
		if strings.HasPrefix(candidate, "~/") {
			home, homeErr := os.UserHomeDir()
			if homeErr != nil {
				continue
			}
			candidate = home + candidate[1:]
		}
		if resolved, lookErr := exec.LookPath(candidate); lookErr == nil {
			return resolved, "well_known", nil
		}
	}
	return "", "", jerrors.NotFound("provider.ResolveBinary", fmt.Sprintf("no binary found for provider kind %q", kind))
}

// DetectAvailable reports which provider kinds have a resolvable binary on
// this host.
func DetectAvailable(overrides map[string]string) []string {
	kinds := []string{"claude_code", "codex"}
	available := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		if _, _, err := ResolveBinary(kind, overrides[kind]); err == nil {
			available = append(available, kind)
		}
	}
	return available
}
