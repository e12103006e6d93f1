package cli

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected: %q", got)
	}
	long := strings.Repeat("a", 200)
	got := truncate(long, 120)
	if len(got) != 123 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation: %d chars", len(got))
	}
	if got := truncate("line\nbreak", 50); got != "line break" {
		t.Fatalf("newlines should flatten: %q", got)
	}
}

func TestRootRegistersCommands(t *testing.T) {
	want := map[string]bool{
		"version": false, "status": false, "chat": false,
		"gateway": false, "events": false, "guests": false, "ledger": false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("command %q not registered", name)
		}
	}
}
