// Package prompt assembles conversational context, persona parameters and
// configured instruction text into the exact prompts sent to LLM providers.
// Building a prompt is deterministic: the same inputs and the same settings
// snapshot always produce byte-identical text.
package prompt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wingman/internal/conversation"
	"wingman/internal/kvstore"
)

const DefaultSystemPrompt = `You are generating a response to a message in a conversation.
Your response should be short, emotionally impactful, not lengthy or detailed, under 1 sentence or 140 characters, and express only one idea.`

const DefaultResponseCriteria = `Create a response that is:
- Stimulating and attractive
- Appropriate for the conversation context and the emotion of the original message
- Uses casual, spoken language
- Does not exaggerate emotions
- Creates an emotional response in the other person
- Short but meaningful`

const DefaultSuggestionPrompt = `You are an expert in flirting and women's psychology. Your task is to advise the user on the other person's psychology in the story based on the selected context, how the other person perceives the user based on the context, and how to successfully achieve the dating goals set by the user. Your personality is frank, humorous, and slightly sarcastic. You will answer concisely, to the point, without going into too much detail unless requested, and be honest with the user about the actual situation instead of coddling their feelings.`

const DefaultGradingPrompt = `You are an expert in flirting and women's psychology. Your task is to grade a response in a conversation based on its context.
The grade should be an integer between -100 and 100.
A high positive score (e.g., 90) means the response is excellent, charismatic, and moves the conversation forward in a positive way.
A high negative score (e.g., -90) means the response is terrible, cringe-worthy, or offensive and will likely end the conversation.
If you cannot understand the content of the response, you must return 0.
For any other case, you must return an integer between -100 and 100, but it cannot be 0.
Only return the integer grade and nothing else. Do not provide any explanation.
Tend to give more positive scores, to encourage the user, but still give a negative score if the content is offensive.`

const DefaultAnalyzeIntentPrompt = `You are an expert in flirting and women's psychology. Analyze the intent behind the latest message in the conversation below.
Return your analysis as JSON in this exact format:
{"intent": "what she is trying to achieve", "emotion": "her emotional state", "interestLevel": 0-100 integer, "suggestedAngle": "how the user should respond"}
Return ONLY the JSON, no other text.`

const DefaultFromDirectionPrompt = `You are an expert in flirting and women's psychology. The user wants to take the conversation in a specific direction.
Write a reply to the message below that follows the requested direction and tone.
Return your answer as JSON in this exact format:
{"message": "the reply to send", "reasoning": "why this works", "emotion": "the emotion the reply conveys"}
Return ONLY the JSON, no other text.`

// DefaultPersona is substituted for any unrecognized persona key.
const DefaultPersona = "Rizz"

var personaDescriptions = map[string]string{
	"Chad":           "Your persona is Chad: confident, blunt, high-status energy.",
	"Rizz":           "Your persona is Rizz: smooth, wordplay, flirty finesse.",
	"Simp":           "Your persona is Simp: sweet, wholesome, try-hard vibes.",
	"Main Character": "Your persona is Main Character: dramatic, cinematic, larger-than-life tone.",
}

// StyleSpec is the caller-supplied persona and slider parameters. Nil slider
// values fall back to 50; an unrecognized persona falls back to
// DefaultPersona. Field names match the client wire format.
type StyleSpec struct {
	Persona   string `json:"filter"`
	Spiciness *int   `json:"spiciness"`
	Boldness  *int   `json:"boldness"`
	Thirst    *int   `json:"thirst"`
	Energy    *int   `json:"energy"`
	Toxicity  *int   `json:"toxicity"`
	Humour    *int   `json:"humour"`
	EmojiUse  *int   `json:"emojiUse"`
}

const defaultSliderValue = 50

type sliderAxis struct {
	name string
	low  string
	high string
	pick func(StyleSpec) *int
}

// Fixed order keeps prompt text deterministic.
var sliderAxes = []sliderAxis{
	{"Spiciness", "mild teasing", "heavy innuendo", func(s StyleSpec) *int { return s.Spiciness }},
	{"Boldness", "reserved", "alpha assertive", func(s StyleSpec) *int { return s.Boldness }},
	{"Thirst", "subtle interest", "down bad", func(s StyleSpec) *int { return s.Thirst }},
	{"Energy", "chill", "hype/excited", func(s StyleSpec) *int { return s.Energy }},
	{"Toxicity", "a nice guy", "a villain arc", func(s StyleSpec) *int { return s.Toxicity }},
	{"Humour", "dry wit", "full clown", func(s StyleSpec) *int { return s.Humour }},
	{"Emoji Use", "clean text", "Gen Z emoji spam", func(s StyleSpec) *int { return s.EmojiUse }},
}

// ResolvePersona returns the description block for the requested persona,
// substituting the default for unknown keys. Never errors.
func ResolvePersona(key string) string {
	if desc, ok := personaDescriptions[key]; ok {
		return desc
	}
	return personaDescriptions[DefaultPersona]
}

func PersonaNames() []string {
	names := make([]string, 0, len(personaDescriptions))
	for name := range personaDescriptions {
		names = append(names, name)
	}
	return names
}

// Settings is the prompt-relevant slice of the runtime configuration
// snapshot. Empty override fields mean "use the built-in default".
type Settings struct {
	SystemPrompt     string
	ResponseCriteria string
	Reasoning        bool

	SuggestionPrompt    string
	GradingPrompt       string
	AnalyzeIntentPrompt string
	FromDirectionPrompt string
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Built is a generation prompt plus whether the closing instruction asked
// the model for the structured {"response", "reasoning"} JSON object.
type Built struct {
	Text             string
	ExpectsReasoning bool
}

// Direction is the caller-chosen steer for generate-from-direction.
type Direction struct {
	Label       string `json:"label"`
	Tone        string `json:"tone"`
	Description string `json:"description,omitempty"`
}

// Engine builds all task prompts. The store handle exists only for the
// fire-and-forget debug snapshot written in reasoning mode; every Build*
// method is otherwise pure.
type Engine struct {
	store    kvstore.Store
	log      zerolog.Logger
	maxTurns int
}

func NewEngine(store kvstore.Store, log zerolog.Logger) *Engine {
	return &Engine{store: store, log: log, maxTurns: conversation.DefaultMaxTurns}
}

// BuildGeneration assembles the main reply prompt: persona line, system
// text, slider annotations, transcript, target message, response criteria
// and the closing instruction. Reasoning mode swaps the closing instruction
// for a strict-JSON demand and records the full prompt for inspection.
func (e *Engine) BuildGeneration(msgs []conversation.Message, message string, spec StyleSpec, s Settings) Built {
	transcript := conversation.RenderTranscript(msgs, e.maxTurns)

	var b strings.Builder
	b.WriteString(ResolvePersona(spec.Persona))
	b.WriteString("\n")
	b.WriteString(orDefault(s.SystemPrompt, DefaultSystemPrompt))
	b.WriteString("\n\nFine-tune the response based on the following sliders (0-100 scale):\n")
	for _, axis := range sliderAxes {
		value := defaultSliderValue
		if v := axis.pick(spec); v != nil {
			value = *v
		}
		fmt.Fprintf(&b, "- %s (%d): 0 is %s, 100 is %s.\n", axis.name, value, axis.low, axis.high)
	}
	b.WriteString("\nPreviously sent messages are labelled by sender either [You:] or [Her:]\n\nThis is the conversation history:\n---\n")
	b.WriteString(transcript)
	b.WriteString("\n---\n\nMessage to reply to: \"")
	b.WriteString(message)
	b.WriteString("\"\n\n")
	b.WriteString(orDefault(s.ResponseCriteria, DefaultResponseCriteria))

	if s.Reasoning {
		b.WriteString("\n\nBefore generating your response, give the thought process that made you come up with that response.\n\nReturn your answer as JSON in this exact format:\n{\"response\": \"your reply here\", \"reasoning\": \"how you came up with that reply\"}\n\nReturn ONLY the JSON, no other text.")
	} else {
		b.WriteString("\n\nProvide only the content of the reply, without any additional explanation.")
	}

	built := Built{Text: b.String(), ExpectsReasoning: s.Reasoning}
	if s.Reasoning {
		e.snapshotPrompt(kvstore.KeyCurrentFullPrompt, built.Text, message)
	}
	return built
}

// BuildConsultation builds the advice prompt. selectedMessage and question
// are optional and independently toggle extra instruction text.
func (e *Engine) BuildConsultation(msgs []conversation.Message, selectedMessage, question string, s Settings) string {
	transcript := conversation.RenderTranscript(msgs, e.maxTurns)

	var b strings.Builder
	b.WriteString(orDefault(s.SuggestionPrompt, DefaultSuggestionPrompt))
	b.WriteString("\n---\n")
	b.WriteString(transcript)
	b.WriteString("\n---\n")

	if selectedMessage != "" {
		fmt.Fprintf(&b, "The user has selected the following message: %q\n\nYour task is to advise the user on the other person's psychology and the relationship between the two based on the context.", selectedMessage)
	} else {
		b.WriteString("Your task is to advise the user on flirting, analyzing women's psychology, and dating.")
	}

	if question != "" {
		fmt.Fprintf(&b, "\n\nThe user's specific question: %q", question)
	}

	b.WriteString("\n\nYour answer should not exceed 4 sentences or 1000 characters.")
	return b.String()
}

// BuildGrading builds the scoring prompt. The -100..100 integer contract and
// the "0 means not understood" rule live in the instruction text; the model
// is trusted to follow them and ParseGrade enforces the numeric range.
func (e *Engine) BuildGrading(msgs []conversation.Message, response string, s Settings) string {
	transcript := conversation.RenderTranscript(msgs, e.maxTurns)

	var b strings.Builder
	b.WriteString(orDefault(s.GradingPrompt, DefaultGradingPrompt))
	b.WriteString("\n\n---\nConversation History:\n")
	b.WriteString(transcript)
	b.WriteString("\n---\n\nResponse to grade: \"")
	b.WriteString(response)
	b.WriteString("\"\n\nGrade:")
	return b.String()
}

func (e *Engine) BuildAnalyzeIntent(msgs []conversation.Message, messageText string, s Settings) string {
	transcript := conversation.RenderTranscript(msgs, e.maxTurns)

	var b strings.Builder
	b.WriteString(orDefault(s.AnalyzeIntentPrompt, DefaultAnalyzeIntentPrompt))
	b.WriteString("\n\n---\nConversation History:\n")
	b.WriteString(transcript)
	b.WriteString("\n---\n\nMessage to analyze: \"")
	b.WriteString(messageText)
	b.WriteString("\"")
	return b.String()
}

func (e *Engine) BuildFromDirection(msgs []conversation.Message, messageText string, dir Direction, s Settings) string {
	transcript := conversation.RenderTranscript(msgs, e.maxTurns)

	var b strings.Builder
	b.WriteString(orDefault(s.FromDirectionPrompt, DefaultFromDirectionPrompt))
	fmt.Fprintf(&b, "\n\nRequested direction: %s\nRequested tone: %s\n", dir.Label, dir.Tone)
	if dir.Description != "" {
		fmt.Fprintf(&b, "Direction details: %s\n", dir.Description)
	}
	b.WriteString("\n---\nConversation History:\n")
	b.WriteString(transcript)
	b.WriteString("\n---\n\nMessage to reply to: \"")
	b.WriteString(messageText)
	b.WriteString("\"")
	return b.String()
}

// snapshotPrompt stores the built prompt for admin inspection. Best effort:
// a storage failure is logged and never reaches the request path.
func (e *Engine) snapshotPrompt(key, promptText, message string) {
	if e.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := kvstore.SetJSON(ctx, e.store, key, map[string]string{
			"prompt":    promptText,
			"message":   message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			e.log.Warn().Err(err).Str("key", key).Msg("failed to store prompt snapshot")
		}
	}()
}
