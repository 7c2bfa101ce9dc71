package output

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultCharCap is the response-length threshold above which a tool
// response is summarised instead of stored verbatim.
const DefaultCharCap = 4000

// DefaultLineCap is the line-count threshold above which a tool response is
// summarised even if under the char cap.
const DefaultLineCap = 80

var (
	filePathRe  = regexp.MustCompile(`(?m)[\w./\-]+\.[A-Za-z]{1,8}(:\d+(:\d+)?)?`)
	errorLineRe = regexp.MustCompile(`(?i)(error|panic|exception|traceback|failed)[^\n]{0,160}`)
)

// Summarize decides whether raw needs compression and, if so, produces an
// extractive summary: error signatures, file paths with optional
// line[:col] references, and a first-line/highlight-line list.
func Summarize(raw string, charCap, lineCap int) (summaryText string, compression *Compression) {
	if charCap <= 0 {
		charCap = DefaultCharCap
	}
	if lineCap <= 0 {
		lineCap = DefaultLineCap
	}
	lines := strings.Split(raw, "\n")
	if len(raw) <= charCap && len(lines) <= lineCap {
		return raw, nil
	}

	var reason string
	switch {
	case len(raw) > charCap && len(lines) > lineCap:
		reason = "char_and_line_cap_exceeded"
	case len(raw) > charCap:
		reason = "char_cap_exceeded"
	default:
		reason = "line_cap_exceeded"
	}

	errorSignatures := dedupeLimit(errorLineRe.FindAllString(raw, -1), 5)
	filePaths := dedupeLimit(filePathRe.FindAllString(raw, -1), 10)

	var b strings.Builder
	if len(errorSignatures) > 0 {
		fmt.Fprintf(&b, "errors:\n")
		for _, e := range errorSignatures {
			fmt.Fprintf(&b, "  %s\n", strings.TrimSpace(e))
		}
	}
	if len(filePaths) > 0 {
		fmt.Fprintf(&b, "files:\n")
		for _, p := range filePaths {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}
	highlight := firstNonEmptyLines(lines, 5)
	if len(highlight) > 0 {
		fmt.Fprintf(&b, "highlights:\n")
		for _, h := range highlight {
			fmt.Fprintf(&b, "  %s\n", strings.TrimSpace(h))
		}
	}
	summary := strings.TrimSpace(b.String())
	if summary == "" {
		summary = strings.TrimSpace(strings.Join(highlight, "\n"))
	}

	structured := fmt.Sprintf("errors=%d files=%d lines=%d", len(errorSignatures), len(filePaths), len(lines))
	return summary, &Compression{
		Mode:              "extractive",
		RawCharCount:      len(raw),
		SummaryCharCount:  len(summary),
		TruncationReason:  reason,
		StructuredSummary: structured,
	}
}

func dedupeLimit(items []string, limit int) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func firstNonEmptyLines(lines []string, limit int) []string {
	var out []string
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
		if len(out) >= limit {
			break
		}
	}
	return out
}
