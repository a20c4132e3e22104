package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ScanBalancedObjects walks raw text and returns every top-level balanced
// {...} slice, respecting string literals and escapes. Malformed tails are
// dropped silently.
func ScanBalancedObjects(raw string) []string {
	var out []string
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, raw[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}

// ParseLooseObjects decodes every balanced object slice that parses as JSON.
func ParseLooseObjects(raw string) []map[string]any {
	var out []map[string]any
	for _, slice := range ScanBalancedObjects(raw) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(slice), &obj); err == nil {
			out = append(out, obj)
		}
	}
	return out
}

var (
	salvageSummaryRe = regexp.MustCompile(`"summary"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	salvageTextRe    = regexp.MustCompile(`"text"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	salvageTitleRe   = regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	salvageTopicRe   = regexp.MustCompile(`"topic"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

func salvageStringField(re *regexp.Regexp, raw string) string {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	var decoded string
	if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &decoded); err != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(decoded)
}

// SalvagedFields recovers loose envelope metadata from unparseable text.
type SalvagedFields struct {
	Summary string
	Text    string
	Title   string
	Topic   string
}

func SalvageFields(raw string) SalvagedFields {
	return SalvagedFields{
		Summary: salvageStringField(salvageSummaryRe, raw),
		Text:    salvageStringField(salvageTextRe, raw),
		Title:   salvageStringField(salvageTitleRe, raw),
		Topic:   salvageStringField(salvageTopicRe, raw),
	}
}

// looksLikeBoardOps gates the salvage pass: only text that plausibly carries
// board ops is worth scanning.
func looksLikeBoardOps(raw string) bool {
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "board_ops") {
		return true
	}
	for name := range canonicalOpNames {
		if strings.Contains(lower, `"`+name+`"`) {
			return true
		}
	}
	return false
}
