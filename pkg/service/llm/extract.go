package llm

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// ErrTruncated marks a response that ended mid JSON structure, usually
// a token budget that was too small. It unwraps to ErrParseFailure.
var ErrTruncated = goerr.Wrap(types.ErrParseFailure, "response truncated mid structure")

// ExtractJSON pulls the JSON payload out of a model response. Models
// wrap JSON in markdown fences or prose; this strips fences, then takes
// the outermost brace-balanced object or array. A response whose
// brackets never balance is reported as truncated so the caller can
// retry with a larger budget.
func ExtractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", goerr.Wrap(types.ErrParseFailure, "empty response")
	}

	text = stripFences(text)

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", goerr.Wrap(types.ErrParseFailure, "no json structure in response",
			goerr.V("head", head(text, 120)))
	}

	open := text[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
			inString = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", goerr.Wrap(ErrTruncated, "json structure is not closed",
		goerr.V("depth", depth), goerr.V("length", len(text)))
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
