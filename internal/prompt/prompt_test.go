package prompt

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"wingman/internal/conversation"
)

func testEngine() *Engine {
	return NewEngine(nil, zerolog.Nop())
}

func testMsgs() []conversation.Message {
	return []conversation.Message{
		{FromMe: true, Text: "hey"},
		{FromMe: false, Text: "hi stranger"},
	}
}

func intp(v int) *int { return &v }

func TestBuildGenerationDeterministic(t *testing.T) {
	e := testEngine()
	spec := StyleSpec{Persona: "Chad", Spiciness: intp(80)}
	s := Settings{}

	a := e.BuildGeneration(testMsgs(), "hi stranger", spec, s)
	b := e.BuildGeneration(testMsgs(), "hi stranger", spec, s)
	if a.Text != b.Text {
		t.Fatal("generation prompt is not deterministic")
	}
	if a.ExpectsReasoning {
		t.Fatal("reasoning not requested but flagged")
	}
}

func TestBuildGenerationContent(t *testing.T) {
	e := testEngine()
	got := e.BuildGeneration(testMsgs(), "hi stranger", StyleSpec{Persona: "Chad", Thirst: intp(90)}, Settings{}).Text

	for _, want := range []string{
		"Your persona is Chad",
		DefaultSystemPrompt,
		"- Thirst (90): 0 is subtle interest, 100 is down bad.",
		"- Spiciness (50):",
		"You: hey\nHer: hi stranger",
		`Message to reply to: "hi stranger"`,
		"Provide only the content of the reply, without any additional explanation.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q\n---\n%s", want, got)
		}
	}
}

func TestBuildGenerationSystemPromptOverride(t *testing.T) {
	e := testEngine()
	got := e.BuildGeneration(testMsgs(), "x", StyleSpec{}, Settings{SystemPrompt: "Be extremely brief."}).Text
	if !strings.Contains(got, "Be extremely brief.") {
		t.Fatal("override not applied")
	}
	if strings.Contains(got, DefaultSystemPrompt) {
		t.Fatal("default system prompt leaked alongside override")
	}
}

func TestBuildGenerationReasoningMode(t *testing.T) {
	e := testEngine()
	built := e.BuildGeneration(testMsgs(), "x", StyleSpec{}, Settings{Reasoning: true})
	if !built.ExpectsReasoning {
		t.Fatal("reasoning flag not set")
	}
	if !strings.Contains(built.Text, `{"response": "your reply here", "reasoning": "how you came up with that reply"}`) {
		t.Fatal("reasoning closing block missing")
	}
	if strings.Contains(built.Text, "Provide only the content of the reply") {
		t.Fatal("plain closing instruction present in reasoning mode")
	}
}

func TestResolvePersonaFallback(t *testing.T) {
	if got := ResolvePersona("Galaxy Brain"); got != personaDescriptions[DefaultPersona] {
		t.Fatalf("unknown persona did not fall back: %q", got)
	}
	if got := ResolvePersona(""); got != personaDescriptions[DefaultPersona] {
		t.Fatalf("empty persona did not fall back: %q", got)
	}
	if got := ResolvePersona("Simp"); !strings.Contains(got, "Simp") {
		t.Fatalf("known persona not resolved: %q", got)
	}
}

func TestBuildConsultationOptionalClauses(t *testing.T) {
	e := testEngine()

	base := e.BuildConsultation(testMsgs(), "", "", Settings{})
	if !strings.Contains(base, "advise the user on flirting") {
		t.Fatal("base task clause missing")
	}
	if strings.Contains(base, "The user has selected") {
		t.Fatal("selected-message clause present without selection")
	}

	withSel := e.BuildConsultation(testMsgs(), "hi stranger", "", Settings{})
	if !strings.Contains(withSel, `The user has selected the following message: "hi stranger"`) {
		t.Fatal("selected-message clause missing")
	}

	withQ := e.BuildConsultation(testMsgs(), "", "should I double text?", Settings{})
	if !strings.Contains(withQ, `The user's specific question: "should I double text?"`) {
		t.Fatal("question clause missing")
	}
}

func TestBuildGradingContainsContract(t *testing.T) {
	e := testEngine()
	got := e.BuildGrading(testMsgs(), "u up?", Settings{})
	for _, want := range []string{
		"integer between -100 and 100",
		"you must return 0",
		`Response to grade: "u up?"`,
		"Grade:",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("grading prompt missing %q", want)
		}
	}
}

func TestBuildFromDirection(t *testing.T) {
	e := testEngine()
	got := e.BuildFromDirection(testMsgs(), "hi stranger", Direction{Label: "tease", Tone: "playful"}, Settings{})
	for _, want := range []string{
		"Requested direction: tease",
		"Requested tone: playful",
		`"message"`,
		`Message to reply to: "hi stranger"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("from-direction prompt missing %q", want)
		}
	}
}

func TestBuildAnalyzeIntent(t *testing.T) {
	e := testEngine()
	got := e.BuildAnalyzeIntent(testMsgs(), "hi stranger", Settings{})
	if !strings.Contains(got, `Message to analyze: "hi stranger"`) {
		t.Fatal("target message missing")
	}
	if !strings.Contains(got, `"intent"`) {
		t.Fatal("json contract missing")
	}
}
