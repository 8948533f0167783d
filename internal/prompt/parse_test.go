package prompt

import "testing"

func TestParseGrade(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"42", 42},
		{"-17", -17},
		{"abc", 0},
		{"", 0},
		{"  90 \n", 90},
		{"250", 100},
		{"-999", -100},
		{"7.5", 0},
	}
	for _, tc := range cases {
		if got := ParseGrade(tc.in); got != tc.want {
			t.Errorf("ParseGrade(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseStructuredStrict(t *testing.T) {
	s, ok := ParseStructured(`{"response":"hi","reasoning":"because"}`)
	if !ok {
		t.Fatal("strict parse failed")
	}
	if s.Response != "hi" || s.Reasoning != "because" {
		t.Fatalf("unexpected %+v", s)
	}
}

func TestParseStructuredEmbedded(t *testing.T) {
	s, ok := ParseStructured(`Sure! {"response":"hi","reasoning":"x"} thanks`)
	if !ok {
		t.Fatal("embedded parse failed")
	}
	if s.Response != "hi" {
		t.Fatalf("unexpected %+v", s)
	}
}

func TestParseStructuredGarbage(t *testing.T) {
	if _, ok := ParseStructured("no json here at all"); ok {
		t.Fatal("garbage parsed as structured reply")
	}
	if _, ok := ParseStructured("half open { not valid"); ok {
		t.Fatal("broken json parsed as structured reply")
	}
}

func TestExtractJSONObject(t *testing.T) {
	if _, ok := ExtractJSONObject(`[1,2,3]`); ok {
		t.Fatal("array accepted as object")
	}
	raw, ok := ExtractJSONObject("prefix {\"a\": {\"b\": 1}} suffix")
	if !ok {
		t.Fatal("nested object not extracted")
	}
	if string(raw) != `{"a": {"b": 1}}` {
		t.Fatalf("unexpected extraction %q", raw)
	}
}

func TestParseObject(t *testing.T) {
	m, ok := ParseObject(`Here you go: {"intent":"flirt","interestLevel":80}`)
	if !ok {
		t.Fatal("object not parsed")
	}
	if m["intent"] != "flirt" {
		t.Fatalf("unexpected %#v", m)
	}
}
