package prompt

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ExtractJSONObject pulls a JSON object out of free-text model output. It
// tries a strict parse first, then the first-to-last-brace substring, then
// gives up. Isolated here so it stays unit-testable away from network code.
func ExtractJSONObject(text string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if isJSONObject(trimmed) {
		return json.RawMessage(trimmed), true
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	candidate := trimmed[start : end+1]
	if isJSONObject(candidate) {
		return json.RawMessage(candidate), true
	}
	return nil, false
}

func isJSONObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &obj) == nil
}

// Structured is the reasoning-mode reply shape.
type Structured struct {
	Response  string `json:"response"`
	Reasoning string `json:"reasoning"`
}

// ParseStructured decodes a reasoning-mode reply, tolerating wrapping text
// around the JSON object. ok is false when no usable object was found.
func ParseStructured(text string) (Structured, bool) {
	raw, found := ExtractJSONObject(text)
	if !found {
		return Structured{}, false
	}
	var s Structured
	if err := json.Unmarshal(raw, &s); err != nil || s.Response == "" {
		return Structured{}, false
	}
	return s, true
}

// ParseObject decodes any JSON object embedded in model output into a map.
func ParseObject(text string) (map[string]any, bool) {
	raw, found := ExtractJSONObject(text)
	if !found {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

// ParseGrade turns the model's raw grading reply into an integer in
// [-100, 100]. Non-numeric output coerces to 0, the documented "response
// not understood" value.
func ParseGrade(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0
	}
	if n > 100 {
		return 100
	}
	if n < -100 {
		return -100
	}
	return n
}
