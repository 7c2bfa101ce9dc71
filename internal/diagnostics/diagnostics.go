// Package diagnostics computes tool-usage statistics (C14) over one
// iteration's tool calls — duplicate-query rates, locator/read ratios, and
// retrieval-handle resolution — and emits human-readable warnings when
// thresholds trip.
package diagnostics

import "fmt"

// DuplicateQueryRateThreshold triggers a warning when duplicate grep calls
// exceed this fraction of all grep calls.
const DuplicateQueryRateThreshold = 0.3

// GrepWithoutReadThreshold triggers a warning when grep calls outnumber
// read calls by at least this ratio with zero reads.
const GrepWithoutReadThreshold = 3

// ToolCall is the minimal shape diagnostics needs from a provider's
// recorded tool invocation.
type ToolCall struct {
	Name              string
	Pattern           string // grep pattern, if Name is a grep-family tool
	Path              string
	Input             string // raw input text, searched for retrieval-handle references
	Truncated         bool
	RetrievalHandle    string // non-empty if this call's response carried a retrieval handle
	ReferencesArtifact string // non-empty if this call's input references a prior artifact path
	RawAfterSummary    bool   // true if this call requested raw output after a summary was already given
}

// IterationSummary is the per-iteration diagnostic computed from ToolCalls.
type IterationSummary struct {
	TotalToolCalls                int
	GrepCalls                     int
	ReadCalls                     int
	DuplicateGrepCalls            int
	DuplicateQueryRate            float64
	LocatorToReadRatio            float64
	TruncatedToolResultsCount     int
	RetrievalHandleGeneratedCount int
	RetrievalHandleResolvedCount  int
	UnresolvedHandleCount         int
	RawOutputReferencedAfterSummaryCount int
	DuplicateStaleContextReferenceCount  int
	Warnings                      []string
}

func isGrepCall(name string) bool {
	return name == "grep" || name == "search" || name == "ripgrep"
}

func isReadCall(name string) bool {
	return name == "read" || name == "read_file" || name == "cat"
}

// Compute derives an IterationSummary from calls, in call order.
func Compute(calls []ToolCall) IterationSummary {
	var s IterationSummary
	seen := make(map[string]int) // (pattern, path) signature -> occurrence count
	generatedHandles := make(map[string]struct{})
	resolvedHandles := make(map[string]struct{})

	s.TotalToolCalls = len(calls)
	for _, c := range calls {
		if isGrepCall(c.Name) {
			s.GrepCalls++
			sig := c.Pattern + "\x00" + c.Path
			seen[sig]++
			if seen[sig] > 1 {
				s.DuplicateGrepCalls++
			}
		}
		if isReadCall(c.Name) {
			s.ReadCalls++
		}
		if c.Truncated {
			s.TruncatedToolResultsCount++
		}
		if c.RetrievalHandle != "" {
			generatedHandles[c.RetrievalHandle] = struct{}{}
			s.RetrievalHandleGeneratedCount++
		}
		if c.ReferencesArtifact != "" {
			resolvedHandles[c.ReferencesArtifact] = struct{}{}
		}
		if c.RawAfterSummary {
			s.RawOutputReferencedAfterSummaryCount++
		}
	}
	for handle := range generatedHandles {
		if _, ok := resolvedHandles[handle]; ok {
			s.RetrievalHandleResolvedCount++
		}
	}
	s.UnresolvedHandleCount = s.RetrievalHandleGeneratedCount - s.RetrievalHandleResolvedCount
	if s.UnresolvedHandleCount < 0 {
		s.UnresolvedHandleCount = 0
	}

	if s.GrepCalls > 0 {
		s.DuplicateQueryRate = float64(s.DuplicateGrepCalls) / float64(s.GrepCalls)
	}
	denom := s.ReadCalls
	if denom < 1 {
		denom = 1
	}
	s.LocatorToReadRatio = float64(s.GrepCalls) / float64(denom)

	if s.DuplicateQueryRate > DuplicateQueryRateThreshold {
		s.Warnings = append(s.Warnings, fmt.Sprintf("duplicate query rate %.2f exceeds threshold %.2f", s.DuplicateQueryRate, DuplicateQueryRateThreshold))
	}
	if s.ReadCalls == 0 && s.GrepCalls >= GrepWithoutReadThreshold {
		s.Warnings = append(s.Warnings, fmt.Sprintf("%d grep calls with no reads", s.GrepCalls))
	}
	if s.UnresolvedHandleCount > 0 {
		s.Warnings = append(s.Warnings, fmt.Sprintf("%d retrieval handle(s) generated but never resolved", s.UnresolvedHandleCount))
	}
	return s
}

// MergeSummary accumulates counts from curr into prev and keeps the running
// maxima in the two rate fields. It keeps no count of how many iterations
// have been merged.
func MergeSummary(prev, curr IterationSummary) IterationSummary {
	out := prev
	out.TotalToolCalls += curr.TotalToolCalls
	out.GrepCalls += curr.GrepCalls
	out.ReadCalls += curr.ReadCalls
	out.DuplicateGrepCalls += curr.DuplicateGrepCalls
	out.TruncatedToolResultsCount += curr.TruncatedToolResultsCount
	out.RetrievalHandleGeneratedCount += curr.RetrievalHandleGeneratedCount
	out.RetrievalHandleResolvedCount += curr.RetrievalHandleResolvedCount
	out.UnresolvedHandleCount += curr.UnresolvedHandleCount
	out.RawOutputReferencedAfterSummaryCount += curr.RawOutputReferencedAfterSummaryCount
	out.DuplicateStaleContextReferenceCount += curr.DuplicateStaleContextReferenceCount
	if curr.DuplicateQueryRate > out.DuplicateQueryRate {
		out.DuplicateQueryRate = curr.DuplicateQueryRate
	}
	if curr.LocatorToReadRatio > out.LocatorToReadRatio {
		out.LocatorToReadRatio = curr.LocatorToReadRatio
	}
	out.Warnings = append(append([]string(nil), prev.Warnings...), curr.Warnings...)
	return out
}
