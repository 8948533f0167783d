// Package conversation turns a raw list of chat messages into the bounded,
// human-readable transcript that gets embedded into prompts.
package conversation

import (
	"strings"
	"time"
)

const DefaultMaxTurns = 20

// Message is a single chat message as supplied by the caller. The wire format
// marks the sender with an is_from_me boolean.
type Message struct {
	FromMe bool       `json:"is_from_me"`
	Text   string     `json:"text"`
	SentAt *time.Time `json:"timestamp,omitempty"`
}

// Turn is a maximal run of consecutive messages from one sender. Derived per
// request, never stored.
type Turn struct {
	FromMe   bool
	Messages []Message
}

// GroupTurns partitions msgs into turns in order. Adjacent turns never share
// a sender and every turn holds at least one message.
func GroupTurns(msgs []Message) []Turn {
	var turns []Turn
	for _, m := range msgs {
		if n := len(turns); n > 0 && turns[n-1].FromMe == m.FromMe {
			turns[n-1].Messages = append(turns[n-1].Messages, m)
			continue
		}
		turns = append(turns, Turn{FromMe: m.FromMe, Messages: []Message{m}})
	}
	return turns
}

// RenderTranscript renders the last maxTurns turns of msgs as newline-joined
// "You: ..." / "Her: ..." lines. Empty input renders to the empty string.
// maxTurns <= 0 falls back to DefaultMaxTurns.
func RenderTranscript(msgs []Message, maxTurns int) string {
	if len(msgs) == 0 {
		return ""
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	turns := GroupTurns(msgs)
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	var b strings.Builder
	first := true
	for _, t := range turns {
		for _, m := range t.Messages {
			if !first {
				b.WriteByte('\n')
			}
			first = false
			b.WriteString(formatLine(m))
		}
	}
	return b.String()
}

func formatLine(m Message) string {
	if m.FromMe {
		return "You: " + m.Text
	}
	return "Her: " + m.Text
}
