// Package tracing provides per-component structured tracing for the
// `--trace-*` driver flags (spec.md §6). Tracing is strictly an
// observability concern: enabling or disabling a trace flag must never
// change what the compiler emits (spec.md §9, Open Questions — "tracing
// must never change behavior"), so every call site here is a pure
// logging side effect with no return value a pass could branch on.
package tracing

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Component names the passes that may be individually traced.
type Component string

const (
	Semantic  Component = "semantic"
	CFG       Component = "cfg"
	Liveness  Component = "liveness"
	RegAlloc  Component = "regalloc"
	Frame     Component = "frame"
	Codegen   Component = "codegen"
	Linker    Component = "linker"
	Peephole  Component = "peephole"
	DataSeg   Component = "data"
)

// Tracer multiplexes structured log records to one slog.Logger per
// component, each independently enabled. It carries no compiler state;
// it is safe to share across an entire compilation unit.
type Tracer struct {
	logger  *slog.Logger
	enabled map[Component]bool
}

// New returns a Tracer writing to w (os.Stderr in the driver). No
// component is enabled by default.
func New(w io.Writer) *Tracer {
	if w == nil {
		w = os.Stderr
	}
	return &Tracer{
		logger:  slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})),
		enabled: make(map[Component]bool),
	}
}

// Enable turns tracing on for the given component, mirroring a
// `--trace-<component>` flag.
func (t *Tracer) Enable(c Component) { t.enabled[c] = true }

// Enabled reports whether tracing is currently on for c.
func (t *Tracer) Enabled(c Component) bool { return t.enabled[c] }

// Tracef logs a formatted trace line for component c if it is enabled.
// Never call this to compute or cache a value other tracing-off code
// paths rely on.
func (t *Tracer) Tracef(c Component, format string, args ...any) {
	if !t.enabled[c] {
		return
	}
	t.logger.Debug(fmt.Sprintf(format, args...), "component", string(c))
}
