package llm

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractJSON strips Markdown code fences and surrounding prose from a model
// response and returns the JSON object it carries.
func ExtractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrEmptyResponse
	}
	text = stripFence(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}
	text = text[start : end+1]
	if !gjson.Valid(text) {
		return "", fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	return text, nil
}

// ParseObject is ExtractJSON followed by gjson parsing.
func ParseObject(raw string) (gjson.Result, error) {
	text, err := ExtractJSON(raw)
	if err != nil {
		return gjson.Result{}, err
	}
	obj := gjson.Parse(text)
	if !obj.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: not an object", ErrMalformedResponse)
	}
	return obj, nil
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	// drop the opening fence line, including any language tag
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
