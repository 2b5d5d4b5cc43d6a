// Package dump renders the analysis of a function for debugging: a text
// listing of blocks with their annotated instructions, and a Graphviz
// graph of the control flow.
package dump

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/emicklei/dot"

	"github.com/wippyai/script-aot/bytecode"
	"github.com/wippyai/script-aot/compiler/internal/ir"
)

// Graph is the analysis state of one function.
type Graph struct {
	Blocks      *ir.BlockMap
	Annotations ir.Annotations
	Name        string
	Code        []byte
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))
	blockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))
	offsetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
	writeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))
	deadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

type styles struct {
	header, block, offset, write, dead func(...string) string
}

func plain(s ...string) string { return strings.Join(s, " ") }

func newStyles(styled bool) styles {
	if !styled {
		return styles{plain, plain, plain, plain, plain}
	}
	return styles{headerStyle.Render, blockStyle.Render, offsetStyle.Render, writeStyle.Render, deadStyle.Render}
}

// Text writes the block listing of g. Styled output uses terminal colors.
func Text(w io.Writer, g Graph, styled bool) error {
	instrs, err := bytecode.Decode(g.Code)
	if err != nil {
		return err
	}
	st := newStyles(styled)

	var b strings.Builder
	b.WriteString(st.header("function " + g.Name))
	b.WriteByte('\n')
	for _, blk := range g.Blocks.Blocks() {
		if blk.Start == ir.PrologOffset {
			continue
		}
		b.WriteString(st.block(blockHeader(blk)))
		b.WriteByte('\n')
		end := g.Blocks.End(blk, len(g.Code))
		for _, in := range instrs {
			if in.Offset < blk.Start || in.Offset >= end {
				continue
			}
			fmt.Fprintf(&b, "  %s  %-32s", st.offset(fmt.Sprintf("%5d", in.Offset)), in.String())
			if ann, ok := g.Annotations[in.Offset]; ok {
				b.WriteString(annotation(ann, st))
			} else {
				b.WriteString(st.dead("; dead"))
			}
			b.WriteByte('\n')
		}
	}
	_, err = io.WriteString(w, b.String())
	return err
}

func blockHeader(blk *ir.BasicBlock) string {
	var b strings.Builder
	fmt.Fprintf(&b, "block %d (%d instructions)", blk.Start, blk.Length)
	if len(blk.JumpOrigins) > 0 {
		fmt.Fprintf(&b, " from %v", blk.JumpOrigins)
	}
	if blk.JumpTarget != ir.NoJumpTarget {
		fmt.Fprintf(&b, " jumps to %d", blk.JumpTarget)
		if blk.JumpIsUnconditional {
			b.WriteString(" always")
		}
	}
	switch {
	case blk.IsReturnBlock:
		b.WriteString(" returns")
	case blk.IsThrowBlock:
		b.WriteString(" throws")
	}
	if len(blk.ReadTypes) == len(blk.ReadRegisters) && len(blk.ReadTypes) > 0 {
		parts := make([]string, len(blk.ReadRegisters))
		for i, r := range blk.ReadRegisters {
			parts[i] = fmt.Sprintf("r%d:%s", r, blk.ReadTypes[i])
		}
		b.WriteString(" reads " + strings.Join(parts, ", "))
	}
	return b.String()
}

func annotation(ann *ir.Annotation, st styles) string {
	var parts []string
	if ann.Writes() {
		w := fmt.Sprintf("r%d = %s", ann.ChangedRegister, ann.Changed)
		if ann.IsRename {
			w += " (rename)"
		}
		parts = append(parts, st.write(w))
	}
	for _, reg := range ann.ReadRegisters() {
		r := ann.Reads[reg]
		s := fmt.Sprintf("r%d:%s", reg, r.Content)
		if r.Required != nil && r.Required != r.Content.Type {
			s += "->" + r.Required.String()
		}
		if r.CanMove {
			s += " move"
		}
		parts = append(parts, s)
	}
	for reg, c := range ann.Conversions {
		parts = append(parts, fmt.Sprintf("join r%d %s", reg, c))
	}
	if ann.SideEffects {
		parts = append(parts, "effects")
	}
	if len(parts) == 0 {
		return ""
	}
	return "; " + strings.Join(parts, "  ")
}

// Dot writes g's control-flow graph in Graphviz format.
func Dot(w io.Writer, g Graph) error {
	_, err := io.WriteString(w, graph(g).String())
	return err
}

// graph builds one node per block and one edge per jump origin. Back edges
// are dashed.
func graph(g Graph) *dot.Graph {
	dg := dot.NewGraph(dot.Directed)
	dg.Attr("label", g.Name)
	for _, blk := range g.Blocks.Blocks() {
		n := dg.Node(node(blk.Start))
		if blk.Start == ir.PrologOffset {
			n.Attr("shape", "oval").Label("prolog")
			continue
		}
		label := fmt.Sprintf("%d: %d instructions", blk.Start, blk.Length)
		switch {
		case blk.IsReturnBlock:
			label += "\nreturn"
		case blk.IsThrowBlock:
			label += "\nthrow"
		}
		n.Attr("shape", "box").Attr("fontname", "monospace").Label(label)
	}
	for _, blk := range g.Blocks.Blocks() {
		to := dg.Node(node(blk.Start))
		for _, origin := range blk.JumpOrigins {
			from := origin
			if origin != ir.PrologOffset {
				from = g.Blocks.Containing(origin).Start
			}
			e := dg.Edge(dg.Node(node(from)), to)
			if origin != ir.PrologOffset && origin >= blk.Start {
				e.Attr("style", "dashed")
			}
		}
	}
	return dg
}

func node(start int) string {
	if start == ir.PrologOffset {
		return "prolog"
	}
	return fmt.Sprintf("b%d", start)
}
