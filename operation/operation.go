// Package operation derives single-step text edits from document snapshots
// and moves cursors across them.
//
// All offsets and lengths are counted in runes.
package operation

import (
	"errors"
	"unicode/utf8"
)

const (
	TypeInsert = "insert"
	TypeDelete = "delete"
)

// Operation is a single insert or delete against the pre-edit text.
type Operation struct {
	Type   string `json:"type"`
	Index  int    `json:"index"`
	Length int    `json:"length"`
	Text   string `json:"text,omitempty"`
}

func (op *Operation) IsInsert() bool { return op != nil && op.Type == TypeInsert }
func (op *Operation) IsDelete() bool { return op != nil && op.Type == TypeDelete }

// Extract returns the operation that turns oldText into newText, or nil when
// there is nothing positional to report.
//
// A replacement of the middle span is collapsed into a single insert or
// delete carrying the net length change. Same-length replacements produce nil.
func Extract(oldText, newText string) *Operation {
	if oldText == newText {
		return nil
	}
	o, n := []rune(oldText), []rune(newText)

	limit := min(len(o), len(n))
	p := 0
	for p < limit && o[p] == n[p] {
		p++
	}
	s := 0
	for s < limit-p && o[len(o)-1-s] == n[len(n)-1-s] {
		s++
	}

	oldMiddle := o[p : len(o)-s]
	newMiddle := n[p : len(n)-s]

	switch {
	case len(oldMiddle) == 0 && len(newMiddle) == 0:
		return nil
	case len(oldMiddle) == 0:
		return &Operation{Type: TypeInsert, Index: p, Length: len(newMiddle), Text: string(newMiddle)}
	case len(newMiddle) == 0:
		return &Operation{Type: TypeDelete, Index: p, Length: len(oldMiddle)}
	}

	delta := len(newMiddle) - len(oldMiddle)
	switch {
	case delta > 0:
		return &Operation{Type: TypeInsert, Index: p, Length: delta, Text: string(newMiddle)}
	case delta < 0:
		return &Operation{Type: TypeDelete, Index: p, Length: -delta}
	default:
		return nil
	}
}

var (
	ErrOutOfBounds = errors.New("operation out of bounds")
	ErrUnknownType = errors.New("unknown operation type")
)

// Apply performs op on s. A nil operation returns s untouched.
func (op *Operation) Apply(s string) (string, error) {
	if op == nil {
		return s, nil
	}
	r := []rune(s)
	switch op.Type {
	case TypeInsert:
		if op.Index < 0 || op.Index > len(r) {
			return "", ErrOutOfBounds
		}
		return string(r[:op.Index]) + op.Text + string(r[op.Index:]), nil
	case TypeDelete:
		if op.Index < 0 || op.Length < 0 || op.Index+op.Length > len(r) {
			return "", ErrOutOfBounds
		}
		return string(r[:op.Index]) + string(r[op.Index+op.Length:]), nil
	default:
		return "", ErrUnknownType
	}
}

// Len returns the length of s in runes, the unit every offset in this
// package is measured in.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
