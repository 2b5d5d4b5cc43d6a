package dump

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/term"
)

// Format selects what a Dumper writes.
type Format string

const (
	FormatText Format = "text"
	FormatDot  Format = "dot"
	FormatBoth Format = "both"
)

// Stderr is the dump target that writes to the standard error stream.
const Stderr = "stderr"

// Dumper writes the graphs of compiled functions to stderr or to one file
// per function in a directory. It is safe for concurrent use.
type Dumper struct {
	out    io.Writer
	dir    string
	format Format
	styled bool
	mu     sync.Mutex
	seq    atomic.Uint64
}

// New creates a dumper for target, which is Stderr or a directory that is
// created if missing. An empty format means text.
func New(target string, format Format) (*Dumper, error) {
	switch format {
	case "":
		format = FormatText
	case FormatText, FormatDot, FormatBoth:
	default:
		return nil, fmt.Errorf("unknown dump format %q", format)
	}
	d := &Dumper{format: format}
	if target == Stderr {
		d.out = os.Stderr
		d.styled = term.IsTerminal(int(os.Stderr.Fd()))
		return d, nil
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("create dump directory: %w", err)
	}
	d.dir = target
	return d, nil
}

// NewWriter creates a dumper writing unstyled output to w.
func NewWriter(w io.Writer, format Format) *Dumper {
	if format == "" {
		format = FormatText
	}
	return &Dumper{out: w, format: format}
}

// Dump writes g in the configured formats.
func (d *Dumper) Dump(g Graph) error {
	if d.dir != "" {
		return d.dumpFiles(g)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.format != FormatDot {
		if err := Text(d.out, g, d.styled); err != nil {
			return err
		}
	}
	if d.format != FormatText {
		return Dot(d.out, g)
	}
	return nil
}

func (d *Dumper) dumpFiles(g Graph) error {
	base := filepath.Join(d.dir, fmt.Sprintf("%04d-%s", d.seq.Add(1), fileName(g.Name)))
	if d.format != FormatDot {
		if err := writeFile(base+".txt", func(w io.Writer) error { return Text(w, g, false) }); err != nil {
			return err
		}
	}
	if d.format != FormatText {
		return writeFile(base+".dot", func(w io.Writer) error { return Dot(w, g) })
	}
	return nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fileName(name string) string {
	if name == "" {
		return "anonymous"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
