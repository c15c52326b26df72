package content

import (
	"strings"
)

type fence struct {
	char  byte
	size  int
	line  int
	depth int
}

// splitLines splits on \n and drops \r so CRLF sources scan like LF ones.
func splitLines(src string) []string {
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// indent returns the width of the leading whitespace in columns, with tabs
// advancing to the next multiple of four, and its length in bytes.
func indent(line string) (cols, n int) {
	for n < len(line) {
		switch line[n] {
		case ' ':
			cols++
		case '\t':
			cols += 4 - cols%4
		default:
			return cols, n
		}
		n++
	}
	return cols, n
}

// dropColumns removes up to width columns of leading whitespace.
func dropColumns(line string, width int) string {
	cols := 0
	for i := 0; i < len(line); i++ {
		if cols >= width {
			return line[i:]
		}
		switch line[i] {
		case ' ':
			cols++
		case '\t':
			cols += 4 - cols%4
			if cols > width {
				return strings.Repeat(" ", cols-width) + line[i+1:]
			}
		default:
			return line[i:]
		}
	}
	return ""
}

// stripQuotes removes at most limit blockquote markers (limit < 0 means all)
// and reports how many were removed.
func stripQuotes(line string, limit int) (string, int) {
	depth := 0
	for limit < 0 || depth < limit {
		cols, n := indent(line)
		if cols > 3 || n >= len(line) || line[n] != '>' {
			break
		}
		line = line[n+1:]
		if strings.HasPrefix(line, " ") {
			line = line[1:]
		}
		depth++
	}
	return line, depth
}

// listMarker returns the width of a bullet or ordered list marker at the
// start of line together with the spaces that follow it, or 0.
func listMarker(line string) int {
	i := 0
	switch {
	case line == "":
		return 0
	case line[0] == '-' || line[0] == '*' || line[0] == '+':
		i = 1
	default:
		for i < len(line) && i < 9 && line[i] >= '0' && line[i] <= '9' {
			i++
		}
		if i == 0 || i >= len(line) || (line[i] != '.' && line[i] != ')') {
			return 0
		}
		i++
	}
	if i == len(line) {
		return i
	}
	if line[i] != ' ' && line[i] != '\t' {
		return 0
	}
	sp := 0
	for i+sp < len(line) && line[i+sp] == ' ' {
		sp++
	}
	if sp == 0 || sp > 4 {
		// Five or more spaces start indented code inside the item.
		sp = 1
	}
	return i + sp
}

func fenceRun(line string) (byte, int) {
	if line == "" || (line[0] != '`' && line[0] != '~') {
		return 0, 0
	}
	c := line[0]
	n := 0
	for n < len(line) && line[n] == c {
		n++
	}
	return c, n
}

// fenceMask marks every line that belongs to a fenced code block, including
// the fence lines. Blockquote markers and list items are container prefixes:
// a fence may be indented at most three columns past them. It returns the
// fence left open at end of input or at the end of its container, if any.
func fenceMask(lines []string) ([]bool, *fence) {
	mask := make([]bool, len(lines))
	var open *fence
	item := 0
	for i, raw := range lines {
		limit := -1
		if open != nil {
			limit = open.depth
		}
		line, depth := stripQuotes(raw, limit)
		if open != nil && depth < open.depth {
			return mask, open
		}

		cols, _ := indent(line)
		if item > 0 && strings.TrimSpace(line) != "" {
			if cols < item {
				if open != nil {
					return mask, open
				}
				item = 0
			} else {
				line = dropColumns(line, item)
			}
		}

		if open != nil {
			mask[i] = true
			if closesFence(line, open) {
				open = nil
			}
			continue
		}

		for {
			cols, n := indent(line)
			if cols > 3 {
				break
			}
			w := listMarker(line[n:])
			if w == 0 {
				break
			}
			item += cols + w
			line = line[n+w:]
		}

		cols, n := indent(line)
		if cols > 3 {
			continue
		}
		line = line[n:]
		c, size := fenceRun(line)
		if size < 3 {
			continue
		}
		if c == '`' && strings.Contains(line[size:], "`") {
			continue
		}
		open = &fence{char: c, size: size, line: i + 1, depth: depth}
		mask[i] = true
	}
	return mask, open
}

func closesFence(line string, f *fence) bool {
	cols, n := indent(line)
	if cols > 3 {
		return false
	}
	line = line[n:]
	c, size := fenceRun(line)
	return c == f.char && size >= f.size && strings.TrimSpace(line[size:]) == ""
}

// checkFences rejects a fenced code block that is never closed.
func checkFences(kind Kind, lines []string) error {
	_, open := fenceMask(lines)
	if open != nil {
		return &ParseError{Kind: kind, Line: open.line, Reason: "unterminated fenced code block"}
	}
	return nil
}

// extractESM removes top-level import/export blocks from MDX source. Removed
// lines are blanked so line numbers in later errors stay accurate.
func extractESM(lines []string, mask []bool) ([]string, []string) {
	out := make([]string, len(lines))
	copy(out, lines)

	var blocks []string
	var cur []string
	prevBlank := true
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for i, line := range lines {
		if mask[i] {
			flush()
			prevBlank = false
			continue
		}
		blank := strings.TrimSpace(line) == ""
		switch {
		case len(cur) > 0 && !blank:
			cur = append(cur, line)
			out[i] = ""
		case prevBlank && isESMStart(line):
			cur = append(cur, line)
			out[i] = ""
		default:
			flush()
		}
		if blank {
			flush()
		}
		prevBlank = blank
	}
	flush()
	return out, blocks
}

func isESMStart(line string) bool {
	return strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "export ")
}

// checkExpressions verifies that MDX expression braces balance outside code.
func checkExpressions(kind Kind, lines []string, mask []bool) error {
	var stack []int
	for i, line := range lines {
		if mask[i] || isIndentedCode(line) {
			continue
		}
		inCode := 0
		for j := 0; j < len(line); j++ {
			c := line[j]
			switch {
			case c == '\\' && j+1 < len(line):
				j++
			case c == '`':
				n := 1
				for j+n < len(line) && line[j+n] == '`' {
					n++
				}
				switch {
				case inCode == 0:
					inCode = n
				case inCode == n:
					inCode = 0
				}
				j += n - 1
			case inCode > 0:
			case c == '{':
				stack = append(stack, i+1)
			case c == '}':
				if len(stack) == 0 {
					return &ParseError{Kind: kind, Line: i + 1, Reason: "unexpected closing brace"}
				}
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) > 0 {
		return &ParseError{Kind: kind, Line: stack[len(stack)-1], Reason: "unclosed expression brace"}
	}
	return nil
}

func isIndentedCode(line string) bool {
	return strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t")
}
