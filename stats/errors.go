// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package stats

import (
	"fmt"
	"sync"
)

// Kind enumerates the renderer's diagnostic kinds, kept as an abstract
// tagged value rather than an integer error code.
type Kind int

const (
	InvalidNesting Kind = iota
	InvalidType
	InvalidData
	UnknownSymbol
	FileNotFound
	InvalidShadowMap
	DisplayDriverFailure
	MaxEyeSplits
	NonManifoldSubdivision
	NoDisplacementBound
	TextureMissingWrapMode
	BadInlineDeclaration
	BadToken
	Unimplemented
	InternalBug
)

func (k Kind) String() string {
	names := [...]string{
		"InvalidNesting", "InvalidType", "InvalidData", "UnknownSymbol",
		"FileNotFound", "InvalidShadowMap", "DisplayDriverFailure",
		"MaxEyeSplits", "NonManifoldSubdivision", "NoDisplacementBound",
		"TextureMissingWrapMode", "BadInlineDeclaration", "BadToken",
		"Unimplemented", "InternalBug",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "Unknown"
	}
	return names[k]
}

// Severity orders a diagnostic's impact on the current render.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Diagnostic is one reported condition: its kind, severity, a
// human-readable message, and whether it should be deduplicated against
// identical prior diagnostics for the same attribute reference.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Message  string
	// AttrRef identifies the graphics-state attribute handle the
	// diagnostic pertains to (0 when not applicable); part of the dedup
	// key alongside Kind and Message.
	AttrRef uint64
	OncePer bool
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s [%s]: %s", d.Severity, d.Kind, d.Message)
}

func (d Diagnostic) dedupKey() string {
	return fmt.Sprintf("%d|%d|%d|%s", d.Kind, d.AttrRef, d.Severity, d.Message)
}

// HandlerMode selects the RI error-handler policy.
type HandlerMode int

const (
	Ignore HandlerMode = iota
	Print
	Abort
)

// Handler dispatches diagnostics according to the configured mode,
// deduplicating "once per" diagnostics and reporting whether the
// diagnostic should abort the current frame.
type Handler struct {
	mode HandlerMode
	mu   sync.Mutex
	seen map[string]bool
	// Sink receives every diagnostic that is not filtered by Ignore or
	// suppressed by dedup; in Print mode the runtime wires this to its
	// logger, and tests wire it to a slice to assert on.
	Sink func(Diagnostic)
}

// NewHandler returns a Handler in the given mode.
func NewHandler(mode HandlerMode) *Handler {
	return &Handler{mode: mode, seen: map[string]bool{}}
}

// SetMode changes the handler's mode; corresponds to RiErrorHandler /
// RiErrorIgnore / RiErrorPrint / RiErrorAbort.
func (h *Handler) SetMode(mode HandlerMode) { h.mode = mode }

// Report dispatches d through the handler and reports whether the caller
// must abort the current frame (true only for Fatal severity in Abort
// mode; Fatal in Print mode still reports but the runtime decides how far
// up the frame/process boundary to unwind).
func (h *Handler) Report(d Diagnostic) (abort bool) {
	if h.mode == Ignore {
		return d.Severity == Fatal && h.mode == Abort
	}
	if d.OncePer {
		h.mu.Lock()
		key := d.dedupKey()
		if h.seen[key] {
			h.mu.Unlock()
			return false
		}
		h.seen[key] = true
		h.mu.Unlock()
	}
	if h.Sink != nil {
		h.Sink(d)
	}
	return d.Severity == Fatal && h.mode == Abort
}
