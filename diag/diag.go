// Package diag carries compiler diagnostics from the pipeline to a sink
// owned by the caller.
package diag

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Severity of a diagnostic.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// Category groups diagnostics by origin.
type Category string

const (
	CategoryCompiler          Category = "compiler"
	CategoryType              Category = "type"
	CategoryProperty          Category = "property"
	CategoryUnqualifiedAccess Category = "unqualified"
	CategoryStructure         Category = "structure"
	CategoryDeprecation       Category = "deprecation"
	CategoryAttachedReuse     Category = "attached-reuse"
)

// Location is a source range.
type Location struct {
	Offset int
	Length int
	Line   int
	Column int
}

// IsValid reports whether l points into a source file.
func (l Location) IsValid() bool {
	return l.Line > 0
}

func (l Location) String() string {
	if !l.IsValid() {
		return "<unknown>"
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Fix is one mechanical edit: insert Replacement at Location, or just a
// hint when Replacement is empty.
type Fix struct {
	Message     string
	Replacement string
	Location    Location
}

// FixSuggestion groups the edits offered for one diagnostic.
type FixSuggestion struct {
	Fixes []Fix
}

// String renders the suggestion for logs.
func (s *FixSuggestion) String() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	for i, f := range s.Fixes {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Message)
		if f.Replacement != "" {
			fmt.Fprintf(&b, " [insert %q at %s]", f.Replacement, f.Location)
		}
	}
	return b.String()
}

// Diagnostic is one message about the compiled code.
type Diagnostic struct {
	Fix      *FixSuggestion
	Message  string
	Function string
	Category Category
	Location Location
	Severity Severity
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Severity.String())
	if d.Location.IsValid() {
		b.WriteString(" at ")
		b.WriteString(d.Location.String())
	}
	if d.Function != "" {
		b.WriteString(" in ")
		b.WriteString(d.Function)
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// Sink receives diagnostics. Implementations must be safe for concurrent
// use when functions are compiled in parallel.
type Sink interface {
	Report(d Diagnostic)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(d Diagnostic)

// Report implements Sink.
func (f SinkFunc) Report(d Diagnostic) { f(d) }

// Discard drops every diagnostic.
var Discard Sink = SinkFunc(func(Diagnostic) {})

// Collector stores diagnostics in memory.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// Report implements Sink.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	c.diags = append(c.diags, d)
	c.mu.Unlock()
}

// Diagnostics returns a copy of what was reported so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// Filter returns the reported diagnostics of the given severity.
func (c *Collector) Filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.Diagnostics() {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// Reset drops everything collected.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.diags = nil
	c.mu.Unlock()
}

// Tee fans a diagnostic out to several sinks.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(d Diagnostic) {
		for _, s := range sinks {
			s.Report(d)
		}
	})
}

// ZapSink writes diagnostics as structured log entries.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates a sink logging through logger. A nil logger discards.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

// Report implements Sink.
func (s *ZapSink) Report(d Diagnostic) {
	level := zapcore.InfoLevel
	switch d.Severity {
	case SeverityWarning:
		level = zapcore.WarnLevel
	case SeverityError:
		level = zapcore.ErrorLevel
	}
	ce := s.logger.Check(level, d.Message)
	if ce == nil {
		return
	}
	fields := []zap.Field{
		zap.String("category", string(d.Category)),
		zap.Stringer("location", d.Location),
	}
	if d.Function != "" {
		fields = append(fields, zap.String("function", d.Function))
	}
	if d.Fix != nil {
		fields = append(fields, zap.Stringer("fix", d.Fix))
	}
	ce.Write(fields...)
}
