package utils

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Lenient JSON extraction for completion output. Completions arrive wrapped
// in thinking tags, markdown fences, stray prose, single quotes, and
// truncated brackets. The repair strategies run in a fixed order:
//
//  1. strip reasoning tags and code fences
//  2. slice to the outermost {...} or [...] span
//  3. balanced-brace object scan, reassembling loose objects into an array
//  4. quote-style and trailing-comma normalization
//  5. give up to the empty value
//
// Each strategy is independently testable; none of them ever panics or
// returns an error to the arbitration path.

var (
	thinkingTagRe = regexp.MustCompile(`(?is)<(think|thinking|reasoning|thought|analysis|reflection)>.*?</(think|thinking|reasoning|thought|analysis|reflection)>`)
	openThinkRe   = regexp.MustCompile(`(?is)<think>.*$`)
	closeThinkRe  = regexp.MustCompile(`(?is)^.*</think>`)
	angleTagRe    = regexp.MustCompile(`<[^>]+>`)
	trailCommaRe  = regexp.MustCompile(`,(\s*[\]}])`)
	singleKeyRe   = regexp.MustCompile(`'([^']*)'\s*:`)
	singleValRe   = regexp.MustCompile(`:\s*'([^']*)'`)
)

// SanitizeCompletion strips reasoning tags and fence markers and trims the
// content to the outermost JSON object span. Non-JSON completions pass
// through with only tag/fence stripping.
func SanitizeCompletion(content string) string {
	if content == "" {
		return ""
	}
	content = thinkingTagRe.ReplaceAllString(content, "")
	content = openThinkRe.ReplaceAllString(content, "")
	content = closeThinkRe.ReplaceAllString(content, "")
	content = StripFences(content)

	if start := strings.Index(content, "{"); start >= 0 {
		content = content[start:]
	}
	if end := strings.LastIndex(content, "}"); end >= 0 {
		content = content[:end+1]
	}
	return strings.TrimSpace(content)
}

// StripFences removes markdown code-fence markers around a block.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[3:]
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(s[:len(s)-3])
	}
	return s
}

// ExtractObject parses a single JSON object out of completion text. Returns
// ErrParse (wrapped) when nothing object-shaped survives the repair ladder.
func ExtractObject(text string) (map[string]any, error) {
	cleaned := SanitizeCompletion(text)
	if cleaned == "" {
		return nil, NewAppError("utils.ExtractObject", "empty content", ErrParse)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err == nil {
		return obj, nil
	}

	repaired := normalizeQuoting(cleaned)
	if err := json.Unmarshal([]byte(repaired), &obj); err == nil {
		return obj, nil
	}

	// Last chance: scan for the first balanced object.
	for _, span := range balancedObjectSpans(cleaned) {
		if err := json.Unmarshal([]byte(span), &obj); err == nil {
			return obj, nil
		}
		if err := json.Unmarshal([]byte(normalizeQuoting(span)), &obj); err == nil {
			return obj, nil
		}
	}

	return nil, NewAppError("utils.ExtractObject", "no parseable object", ErrParse)
}

// ExtractArray parses a JSON array of objects out of completion text. It
// tolerates leading empty-array artifacts followed by loose objects, a
// missing closing bracket, a single bare object, and markdown fences.
// It never fails: unparseable input yields an empty slice.
func ExtractArray(text string) []map[string]any {
	cleaned := angleTagRe.ReplaceAllString(StripFences(strings.TrimSpace(text)), "")
	if cleaned == "" {
		return nil
	}

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")

	var candidate string
	switch {
	case start >= 0 && strings.HasPrefix(strings.TrimSpace(cleaned[start:]), "[]"):
		// Leading empty array followed by loose objects.
		rest := strings.TrimSpace(cleaned[start:])
		rest = strings.TrimLeft(rest[2:], ",\n\r\t ")
		spans := balancedObjectSpans(rest)
		if len(spans) == 0 {
			return nil
		}
		candidate = "[" + strings.Join(spans, ",") + "]"
	case start >= 0 && end > start:
		candidate = cleaned[start : end+1]
	case start >= 0:
		// Opened but never closed; take balanced objects inside.
		spans := balancedObjectSpans(cleaned[start+1:])
		if len(spans) == 0 {
			return nil
		}
		candidate = "[" + strings.Join(spans, ",") + "]"
	default:
		// No array brackets at all; maybe bare object(s).
		spans := balancedObjectSpans(cleaned)
		if len(spans) == 0 {
			return nil
		}
		candidate = "[" + strings.Join(spans, ",") + "]"
	}

	if out := unmarshalObjectArray(candidate); out != nil {
		return out
	}
	if out := unmarshalObjectArray(normalizeQuoting(candidate)); out != nil {
		return out
	}
	return nil
}

func unmarshalObjectArray(candidate string) []map[string]any {
	var arr []map[string]any
	if err := json.Unmarshal([]byte(candidate), &arr); err == nil {
		return arr
	}
	// A single bare object also satisfies the caller.
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
		return []map[string]any{obj}
	}
	return nil
}

// balancedObjectSpans returns every top-level {...} span in s, honouring
// string literals so braces inside quoted values do not confuse the scan.
func balancedObjectSpans(s string) []string {
	var spans []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, ch := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					spans = append(spans, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return spans
}

// normalizeQuoting rewrites single-quoted keys/values to double quotes and
// drops trailing commas before closing brackets.
func normalizeQuoting(s string) string {
	s = trailCommaRe.ReplaceAllString(s, "$1")
	s = singleKeyRe.ReplaceAllString(s, `"$1":`)
	s = singleValRe.ReplaceAllString(s, `: "$1"`)
	return s
}
