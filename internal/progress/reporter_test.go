package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestCIReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{description: "Fetching tokens", out: &buf}
	r.Start(2)
	r.Update(1, "bot a")
	r.Update(2, "bot b")
	r.Finish()

	want := "Fetching tokens: 2 steps\n[1/2] bot a\n[2/2] bot b\nFetching tokens: done\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestNewReporterInCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter("x").(*CIReporter); !ok {
		t.Error("expected CIReporter when CI is set")
	}

	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")
	r, ok := NewReporter("x").(*TerminalReporter)
	if !ok || !strings.EqualFold(r.description, "x") {
		t.Errorf("expected TerminalReporter, got %#v", r)
	}
}
