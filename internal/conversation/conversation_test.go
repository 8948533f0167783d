package conversation

import (
	"fmt"
	"strings"
	"testing"
)

func msg(fromMe bool, text string) Message {
	return Message{FromMe: fromMe, Text: text}
}

func TestGroupTurnsPartitionsBySender(t *testing.T) {
	msgs := []Message{
		msg(true, "hey"),
		msg(true, "you up?"),
		msg(false, "lol"),
		msg(true, "so"),
		msg(false, "what"),
		msg(false, "now"),
	}

	turns := GroupTurns(msgs)
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}

	for i := 1; i < len(turns); i++ {
		if turns[i].FromMe == turns[i-1].FromMe {
			t.Fatalf("adjacent turns %d and %d share a sender", i-1, i)
		}
	}

	var flat []Message
	for _, turn := range turns {
		if len(turn.Messages) == 0 {
			t.Fatal("turn with zero messages")
		}
		flat = append(flat, turn.Messages...)
	}
	if len(flat) != len(msgs) {
		t.Fatalf("turns lost messages: %d != %d", len(flat), len(msgs))
	}
	for i := range flat {
		if flat[i].Text != msgs[i].Text {
			t.Fatalf("message order changed at %d: %q != %q", i, flat[i].Text, msgs[i].Text)
		}
	}
}

func TestRenderTranscriptEmpty(t *testing.T) {
	if got := RenderTranscript(nil, 20); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := RenderTranscript([]Message{}, 20); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestRenderTranscriptLabels(t *testing.T) {
	got := RenderTranscript([]Message{
		msg(true, "hey"),
		msg(false, "hi"),
	}, 20)
	want := "You: hey\nHer: hi"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if strings.HasSuffix(got, "\n") {
		t.Fatal("trailing newline in transcript")
	}
}

func TestRenderTranscriptTruncatesOldestTurns(t *testing.T) {
	var msgs []Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, msg(i%2 == 0, fmt.Sprintf("m%d", i)))
	}

	got := RenderTranscript(msgs, 3)
	want := "Her: m7\nYou: m8\nHer: m9"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRenderTranscriptTruncationIdempotent(t *testing.T) {
	var msgs []Message
	for i := 0; i < 30; i++ {
		msgs = append(msgs, msg(i%2 == 0, fmt.Sprintf("m%d", i)))
	}

	once := RenderTranscript(msgs, 5)

	// Re-rendering the kept window at the same limit is a no-op.
	var kept []Message
	for i := 25; i < 30; i++ {
		kept = append(kept, msgs[i])
	}
	twice := RenderTranscript(kept, 5)
	if once != twice {
		t.Fatalf("truncation not idempotent: %q vs %q", once, twice)
	}
}

func TestRenderTranscriptDeterministic(t *testing.T) {
	msgs := []Message{
		msg(true, "hey"), msg(false, "hi"), msg(false, "who dis"),
	}
	a := RenderTranscript(msgs, 20)
	b := RenderTranscript(msgs, 20)
	if a != b {
		t.Fatalf("renders differ: %q vs %q", a, b)
	}
}
