package runner

import (
	"reflect"
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "Keys generated", "Keys generated"},
		{"color", "\x1b[32mOK\x1b[0m done", "OK done"},
		{"bold and reset", "\x1b[1;31merror:\x1b[m bad", "error: bad"},
		{"cursor moves", "\x1b[2K\x1b[1Gprogress 50%", "progress 50%"},
		{"private params", "\x1b[?25lhidden cursor\x1b[?25h", "hidden cursor"},
		{"intermediate byte", "a\x1b[1 qb", "ab"},
		{"surrounding whitespace", "  \t padded \t ", "padded"},
		{"only escapes", "\x1b[0m\x1b[K", ""},
		{"whitespace after strip", " \x1b[31m \x1b[0m ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.raw)
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.raw, got, tt.want)
			}
			if strings.ContainsRune(got, '\x1b') {
				t.Errorf("Clean(%q) left an escape byte: %q", tt.raw, got)
			}
		})
	}
}

func TestScanLinesTerminators(t *testing.T) {
	input := "first\r\nsecond\rthird\nfourth"
	var got []string
	if err := scanLines(strings.NewReader(input), func(s string) { got = append(got, s) }); err != nil {
		t.Fatal(err)
	}
	want := []string{"first", "second", "third", "fourth"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestScanLinesSuppressesEmpty(t *testing.T) {
	input := "a\n\n   \n\x1b[0m\n\tb\t\n\n"
	raw := strings.Count(input, "\n")

	var got []string
	if err := scanLines(strings.NewReader(input), func(s string) { got = append(got, s) }); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("lines = %q, want [a b]", got)
	}
	if len(got) > raw {
		t.Errorf("emitted %d lines from %d raw lines", len(got), raw)
	}
}

func TestScanLinesPreservesTextAndOrder(t *testing.T) {
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	escapes := []string{"\x1b[31m", "\x1b[0m", "\x1b[1;4;32m", "\x1b[2K", "\x1b[?1049h"}

	var b strings.Builder
	for i, w := range words {
		esc := escapes[i%len(escapes)]
		b.WriteString(esc + w[:2] + esc + w[2:] + esc + "\n")
	}

	var got []string
	if err := scanLines(strings.NewReader(b.String()), func(s string) { got = append(got, s) }); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, words) {
		t.Errorf("lines = %q, want %q", got, words)
	}
	for _, line := range got {
		if strings.ContainsRune(line, '\x1b') {
			t.Errorf("escape byte survived in %q", line)
		}
	}
}

func TestScanLinesTooLong(t *testing.T) {
	input := strings.Repeat("x", maxLineBytes+10) + "\nafter\n"
	err := scanLines(strings.NewReader(input), func(string) {})
	if err == nil {
		t.Fatal("expected error for oversized line")
	}
}
