package ui

import (
	"errors"
	"strings"
	"testing"

	"mocklib/internal/replay"
)

func TestApplyEventTracksCompletion(t *testing.T) {
	events := make(chan replay.Event)
	model := NewProgressModel("replay", []string{"a", "b"}, events).(*progressModel)

	model.applyEvent(replay.Event{Entry: "a", Status: replay.StatusWorking})
	model.applyEvent(replay.Event{Entry: "a", Status: replay.StatusDone})
	model.applyEvent(replay.Event{Entry: "b", Status: replay.StatusRejected, Err: errors.New("parser: input validation failed")})
	model.applyEvent(replay.Event{Entry: "unknown", Status: replay.StatusDone})

	if model.finished != 2 {
		t.Fatalf("finished = %d, want 2", model.finished)
	}
	if model.items[1].status != replay.StatusRejected || !strings.Contains(model.items[1].note, "validation") {
		t.Fatalf("item b = %+v", model.items[1])
	}
	view := model.View()
	if !strings.Contains(view, "(2/2)") {
		t.Fatalf("view missing counter:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 8, "abcde..."},
		{"abcdef", 2, "ab"},
		{"anything", 0, "anything"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}
