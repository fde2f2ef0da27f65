package operation

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
		want *Operation
	}{
		{"identical", "hello", "hello", nil},
		{"both empty", "", "", nil},
		{"insert middle", "hello world", "hello beautiful world", &Operation{Type: TypeInsert, Index: 6, Length: 10, Text: "beautiful "}},
		{"delete middle", "hello beautiful world", "hello world", &Operation{Type: TypeDelete, Index: 6, Length: 10}},
		{"insert into empty", "", "abc", &Operation{Type: TypeInsert, Index: 0, Length: 3, Text: "abc"}},
		{"delete everything", "abc", "", &Operation{Type: TypeDelete, Index: 0, Length: 3}},
		{"append repeated rune", "aaa", "aaaa", &Operation{Type: TypeInsert, Index: 3, Length: 1, Text: "a"}},
		{"delete repeated rune", "aaaa", "aaa", &Operation{Type: TypeDelete, Index: 3, Length: 1}},
		{"insert newline", "ab", "a\nb", &Operation{Type: TypeInsert, Index: 1, Length: 1, Text: "\n"}},
		{"longer replacement", "cat", "dog!", &Operation{Type: TypeInsert, Index: 0, Length: 1, Text: "dog!"}},
		{"shorter replacement", "abcd", "xy", &Operation{Type: TypeDelete, Index: 0, Length: 2}},
		{"same length replacement", "cat", "dog", nil},
		{"multibyte", "héllo", "héllo!", &Operation{Type: TypeInsert, Index: 5, Length: 1, Text: "!"}},
		{"multibyte delete", "naïve café", "naïve", &Operation{Type: TypeDelete, Index: 5, Length: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.old, tt.new)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("Extract(%q, %q) = %+v, want nil", tt.old, tt.new, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Extract(%q, %q) = nil, want %+v", tt.old, tt.new, tt.want)
			}
			if *got != *tt.want {
				t.Errorf("Extract(%q, %q) = %+v, want %+v", tt.old, tt.new, got, tt.want)
			}
		})
	}
}

func TestExtractRoundTrip(t *testing.T) {
	pairs := [][2]string{
		{"hello world", "hello beautiful world"},
		{"hello beautiful world", "hello world"},
		{"func main() {\n}\n", "func main() {\n\tprintln(1)\n}\n"},
		{"line1\nline2\nline3", "line1\nline3"},
		{"", "package main"},
		{"package main", ""},
		{"ааа", "аааа"},
		{"x := 1", "x := 1 // one"},
	}

	for _, p := range pairs {
		op := Extract(p[0], p[1])
		if op == nil {
			t.Fatalf("Extract(%q, %q) = nil", p[0], p[1])
		}
		got, err := op.Apply(p[0])
		if err != nil {
			t.Fatalf("Apply(%q): %v", p[0], err)
		}
		if got != p[1] {
			t.Errorf("Apply(Extract(%q, %q)) = %q", p[0], p[1], got)
		}
	}
}

func TestApplyBounds(t *testing.T) {
	if _, err := (&Operation{Type: TypeInsert, Index: 4, Text: "x"}).Apply("abc"); err != ErrOutOfBounds {
		t.Errorf("insert past end: err = %v, want %v", err, ErrOutOfBounds)
	}
	if _, err := (&Operation{Type: TypeDelete, Index: 2, Length: 2}).Apply("abc"); err != ErrOutOfBounds {
		t.Errorf("delete past end: err = %v, want %v", err, ErrOutOfBounds)
	}
	if _, err := (&Operation{Type: "retain"}).Apply("abc"); err != ErrUnknownType {
		t.Errorf("unknown type: err = %v, want %v", err, ErrUnknownType)
	}
	var op *Operation
	if got, err := op.Apply("abc"); err != nil || got != "abc" {
		t.Errorf("nil op: got %q, %v", got, err)
	}
}
