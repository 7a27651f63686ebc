package util

import (
	"strings"
	"testing"
)

// TestWrapString tests that help texts are wrapped at word boundaries
func TestWrapString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		lines int
	}{
		{name: "empty", input: "", lines: 0},
		{name: "short", input: "a short text", lines: 1},
		{name: "long", input: strings.Repeat("word ", 30), lines: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapString(tt.input)
			lines := 0
			if got != "" {
				lines = len(strings.Split(got, "\n"))
			}
			if lines != tt.lines {
				t.Errorf("expected %d lines, got %d: %q", tt.lines, lines, got)
			}
			for _, line := range strings.Split(got, "\n") {
				if len(line) > Wrap {
					t.Errorf("line exceeds %d characters: %q", Wrap, line)
				}
			}
		})
	}
}
