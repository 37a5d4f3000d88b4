// Package llmjson recovers a JSON object from an LLM reply that may wrap it in prose or markdown fences.
package llmjson

import (
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Extract returns the first balanced JSON object in text
func Extract(text string) (string, bool) {
	text = stripFences(text)

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escape:
			escape = false
		case inString && c == '\\':
			escape = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// Decode extracts the JSON object in text and unmarshals it into v
func Decode(text string, v any) error {
	raw, ok := Extract(text)
	if !ok {
		return goerr.New("no JSON object in reply", goerr.V("reply", truncate(text, 200)))
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return goerr.Wrap(err, "failed to decode JSON reply", goerr.V("reply", truncate(raw, 200)))
	}
	return nil
}

// stripFences keeps the body of the first ``` block, dropping its language tag
func stripFences(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	body := text[open+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
