package utils

import (
	"errors"
	"testing"
)

func TestSanitizeCompletionStripsReasoningTags(t *testing.T) {
	raw := "<think>the user sounds anxious, let me draft JSON</think>\n```json\n{\"a\": 1}\n```"
	got := SanitizeCompletion(raw)
	if got != `{"a": 1}` {
		t.Fatalf("unexpected sanitized content: %q", got)
	}
}

func TestSanitizeCompletionUnclosedThinkTag(t *testing.T) {
	raw := "{\"primary\": \"ok\"}<think>and some trailing reasoning that never closes"
	got := SanitizeCompletion(raw)
	if got != `{"primary": "ok"}` {
		t.Fatalf("unexpected sanitized content: %q", got)
	}
}

func TestExtractObjectSurroundingProse(t *testing.T) {
	raw := "Sure, here is the assessment you asked for:\n{\"name\": \"Generalized Anxiety Disorder\", \"confidence\": 0.8}\nLet me know if you need more."
	obj, err := ExtractObject(raw)
	if err != nil {
		t.Fatalf("ExtractObject failed: %v", err)
	}
	if obj["name"] != "Generalized Anxiety Disorder" {
		t.Fatalf("unexpected name: %v", obj["name"])
	}
}

func TestExtractObjectTrailingComma(t *testing.T) {
	obj, err := ExtractObject(`{"severity": "moderate", "confidence": 0.7,}`)
	if err != nil {
		t.Fatalf("ExtractObject failed: %v", err)
	}
	if obj["severity"] != "moderate" {
		t.Fatalf("unexpected severity: %v", obj["severity"])
	}
}

func TestExtractObjectGarbage(t *testing.T) {
	if _, err := ExtractObject("no json anywhere in this response"); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if _, err := ExtractObject(""); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for empty input, got %v", err)
	}
}

func TestExtractArrayEmptyArrayArtifact(t *testing.T) {
	raw := `[]
{"symptom": "sadness", "category": "mood"},
{"symptom": "insomnia", "category": "sleep"}`
	got := ExtractArray(raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(got))
	}
	if got[1]["symptom"] != "insomnia" {
		t.Fatalf("unexpected second object: %v", got[1])
	}
}

func TestExtractArrayMissingClosingBracket(t *testing.T) {
	raw := `[{"symptom": "worry", "category": "anxiety"}, {"symptom": "fatigue", "category": "energy"}`
	got := ExtractArray(raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(got))
	}
}

func TestExtractArraySingleQuotes(t *testing.T) {
	got := ExtractArray(`[{'symptom': 'panic attacks', 'category': 'panic'}]`)
	if len(got) != 1 {
		t.Fatalf("expected 1 object, got %d", len(got))
	}
	if got[0]["symptom"] != "panic attacks" {
		t.Fatalf("unexpected symptom: %v", got[0]["symptom"])
	}
}

func TestExtractArrayBareObject(t *testing.T) {
	got := ExtractArray(`{"symptom": "nightmares", "category": "trauma"}`)
	if len(got) != 1 {
		t.Fatalf("expected 1 object, got %d", len(got))
	}
}

func TestExtractArrayFencedWithTags(t *testing.T) {
	raw := "```json\n[{\"symptom\": \"low mood\"}]\n```"
	got := ExtractArray(raw)
	if len(got) != 1 || got[0]["symptom"] != "low mood" {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestExtractArrayUnparseable(t *testing.T) {
	if got := ExtractArray("completely unstructured text"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestBalancedObjectSpansIgnoresBracesInStrings(t *testing.T) {
	spans := balancedObjectSpans(`{"note": "contains } brace"} {"b": 2}`)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d: %v", len(spans), spans)
	}
}
