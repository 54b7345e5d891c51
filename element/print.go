package element

import (
	"fmt"
	"strings"
)

// Summarizer is implemented by elements that can render a multi-line
// summary of their contents (the Matroska Segment does).
type Summarizer interface {
	Summary(indent int) string
}

// Summary returns an overview of the file: one line describing the file,
// followed by the multi-line summary of every top-level element that
// implements Summarizer.
func (f *File) Summary() string {
	var sb strings.Builder
	sb.WriteString(f.String())
	sb.WriteByte('\n')
	for _, ch := range f.children {
		if s, ok := ch.(Summarizer); ok {
			sb.WriteString(s.Summary(0))
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

// PrintChildren lists the tree up to depth levels below the container
// (depth <= 0 lists everything).
func (c *container) PrintChildren(depth int) string {
	var sb strings.Builder
	c.printChildren(&sb, depth, 0)

	return sb.String()
}

func (c *container) printChildren(sb *strings.Builder, depth, indent int) {
	for _, ch := range c.children {
		fmt.Fprintf(sb, "%s%s\n", strings.Repeat(" ", indent), ch.String())
		if depth == 1 {
			continue
		}
		next := depth - 1
		if depth <= 0 {
			next = 0
		}
		if m, ok := ch.(interface {
			printChildren(*strings.Builder, int, int)
		}); ok {
			m.printChildren(sb, next, indent+4)
		}
	}
}

func (m *Master) printChildren(sb *strings.Builder, depth, indent int) {
	m.container.printChildren(sb, depth, indent)
}

// spaceLine formats one row of the byte-layout table: absolute range,
// relative range, and length.
func spaceLine(startPos, startRel, endRel int64) string {
	return fmt.Sprintf("%-11d--%-11d | %-11d--%-11d | %11d bytes: ",
		startPos+startRel, startPos+endRel, startRel, endRel, endRel-startRel)
}

// PrintSpace returns a table of which children occupy which byte ranges,
// flagging holes and overlaps. depth bounds the recursion into child
// masters (depth <= 0 recurses fully).
func (c *container) PrintSpace(depth int) string {
	return c.printSpace(depth, 0, 0)
}

func (c *container) printSpace(levelUp, levelDown int, startPos int64) string {
	var sb strings.Builder
	ind := fmt.Sprintf("%d> ", levelDown+1)
	var cur int64
	for i, ch := range c.children {
		start := ch.Offset()
		end := ch.EndOffset()

		if start > cur {
			sb.WriteString(ind + spaceLine(startPos, cur, start) + "***NO CHILD***\n")
		} else if start < cur {
			sb.WriteString(ind + spaceLine(startPos, start, cur) + "***OVERLAP***\n")
		}
		fmt.Fprintf(&sb, "%s%s[%2d] %s\n", ind, spaceLine(startPos, start, end), i, ch.Name())
		cur = end

		if levelUp == 1 {
			continue
		}
		next := levelUp - 1
		if levelUp <= 0 {
			next = 0
		}
		if m, ok := ch.(spacePrinter); ok {
			sb.WriteByte('\n')
			sb.WriteString(m.printSpace(next, levelDown+1, startPos+start+childHeaderSize(ch)))
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

type spacePrinter interface {
	printSpace(levelUp, levelDown int, startPos int64) string
}

func childHeaderSize(e Element) int64 { return e.HeaderSize() }

// PrintSpace on a Master also flags space its children leave unused or
// claim past its declared size.
func (m *Master) PrintSpace(depth int) string {
	return m.printSpace(depth, 0, 0)
}

func (m *Master) printSpace(levelUp, levelDown int, startPos int64) string {
	out := m.container.printSpace(levelUp, levelDown, startPos)
	ind := fmt.Sprintf("%d> ", levelDown+1)

	lastEnd := m.EndLastChild()
	if lastEnd < m.Size() {
		out += ind + spaceLine(startPos, lastEnd, m.Size()) + "***UNUSED***\n"
	} else if lastEnd > m.Size() {
		out += ind + spaceLine(startPos, m.Size(), lastEnd) + "***OVERFLOW***\n"
	}

	return out
}
