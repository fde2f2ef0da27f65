package operation

// Cursor is one participant's caret. A nil Position means the cursor is
// hidden.
type Cursor struct {
	ID       string `json:"userId"`
	Position *int   `json:"position"`
}

// position is a zero-based (line, column) pair.
type position struct {
	line, col int
}

// locate returns the line and column of offset in text.
func locate(text []rune, offset int) position {
	var p position
	for i := 0; i < offset && i < len(text); i++ {
		if text[i] == '\n' {
			p.line++
			p.col = 0
		} else {
			p.col++
		}
	}
	return p
}

// offsetOf converts p back into an offset in text. Lines past the end clamp
// to the last line and columns clamp to the line length.
func offsetOf(text []rune, p position) int {
	line, start := 0, 0
	for i := 0; i < len(text) && line < p.line; i++ {
		if text[i] == '\n' {
			line++
			start = i + 1
		}
	}
	end := start
	for end < len(text) && text[end] != '\n' {
		end++
	}
	if start+p.col > end {
		return end
	}
	return start + p.col
}

func countNewlines(r []rune) int {
	n := 0
	for _, c := range r {
		if c == '\n' {
			n++
		}
	}
	return n
}

// tailColumn is the column just past the last line of r.
func tailColumn(r []rune) int {
	col := 0
	for _, c := range r {
		if c == '\n' {
			col = 0
		} else {
			col++
		}
	}
	return col
}

// Rebase moves the cursor at pos in oldText across op so it stays attached to
// the same surrounding text in newText.
//
// unchanged reports that the cursor kept its line and column. ok is false when
// the cursor cannot be placed in newText and should be hidden.
func Rebase(pos int, op *Operation, oldText, newText string) (newPos int, unchanged, ok bool) {
	o, n := []rune(oldText), []rune(newText)
	if pos < 0 || pos > len(o) {
		return 0, false, false
	}
	if op == nil {
		return pos, true, pos <= len(n)
	}

	cur := locate(o, pos)
	at := locate(o, op.Index)

	switch op.Type {
	case TypeInsert:
		newPos, unchanged = rebaseInsert(pos, cur, at, op, n)
	case TypeDelete:
		newPos, unchanged = rebaseDelete(pos, cur, at, op, o, n)
	default:
		newPos, unchanged = pos, true
	}

	if newPos < 0 || newPos > len(n) {
		return 0, false, false
	}
	return newPos, unchanged, true
}

func rebaseInsert(pos int, cur, at position, op *Operation, n []rune) (int, bool) {
	inserted := []rune(op.Text)
	lines := countNewlines(inserted)

	switch {
	case at.line < cur.line:
		if lines == 0 {
			return pos + op.Length, false
		}
		return offsetOf(n, position{line: cur.line + lines, col: cur.col}), false

	case at.line > cur.line:
		return pos, true

	case at.col <= cur.col:
		if lines > 0 {
			tail := position{
				line: at.line + lines,
				col:  tailColumn(inserted) + (cur.col - at.col),
			}
			return offsetOf(n, tail), false
		}
		return pos + op.Length, false

	default:
		p := offsetOf(n, cur)
		return p, p == pos
	}
}

func rebaseDelete(pos int, cur, at position, op *Operation, o, n []rune) (int, bool) {
	end := min(op.Index+op.Length, len(o))
	start := min(op.Index, end)
	removed := countNewlines(o[start:end])
	last := locate(o, end)

	switch {
	case last.line < cur.line:
		return offsetOf(n, position{line: cur.line - removed, col: cur.col}), removed == 0

	case at.line < cur.line:
		lineStart := pos - cur.col
		if op.Length == 1 && op.Index == lineStart-1 && o[op.Index] == '\n' {
			return op.Index + cur.col, false
		}
		return op.Index, false

	case at.line == cur.line:
		switch {
		case end <= pos:
			return pos - op.Length, false
		case op.Index < pos:
			return op.Index, false
		default:
			return pos, true
		}

	default:
		return pos, true
	}
}

// RebaseAll rebases every cursor across op. IDs and order are preserved;
// cursors that are already hidden or cannot be placed come back with a nil
// Position.
func RebaseAll(cursors []Cursor, op *Operation, oldText, newText string) []Cursor {
	out := make([]Cursor, 0, len(cursors))
	for _, c := range cursors {
		rebased := Cursor{ID: c.ID}
		if c.Position != nil {
			if p, _, ok := Rebase(*c.Position, op, oldText, newText); ok {
				rebased.Position = &p
			}
		}
		out = append(out, rebased)
	}
	return out
}
