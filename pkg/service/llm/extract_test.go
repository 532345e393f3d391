package llm_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
)

func TestExtractJSON(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		payload, err := llm.ExtractJSON(`{"a": 1}`)
		gt.NoError(t, err)
		gt.Value(t, payload).Equal(`{"a": 1}`)
	})

	t.Run("fenced object", func(t *testing.T) {
		payload, err := llm.ExtractJSON("```json\n{\"a\": 1}\n```")
		gt.NoError(t, err)
		gt.Value(t, payload).Equal(`{"a": 1}`)
	})

	t.Run("object surrounded by prose", func(t *testing.T) {
		payload, err := llm.ExtractJSON("Here is the result:\n{\"a\": {\"b\": 2}}\nLet me know if you need more.")
		gt.NoError(t, err)
		gt.Value(t, payload).Equal(`{"a": {"b": 2}}`)
	})

	t.Run("array payload", func(t *testing.T) {
		payload, err := llm.ExtractJSON(`The segments are [{"text": "hi"}, {"text": "bye"}] as requested`)
		gt.NoError(t, err)
		gt.Value(t, payload).Equal(`[{"text": "hi"}, {"text": "bye"}]`)
	})

	t.Run("braces inside strings are ignored", func(t *testing.T) {
		payload, err := llm.ExtractJSON(`{"quote": "use { and } freely", "n": 1}`)
		gt.NoError(t, err)
		gt.Value(t, payload).Equal(`{"quote": "use { and } freely", "n": 1}`)
	})

	t.Run("escaped quotes inside strings", func(t *testing.T) {
		payload, err := llm.ExtractJSON(`{"quote": "she said \"{\"", "n": 1}`)
		gt.NoError(t, err)
		gt.Value(t, payload).Equal(`{"quote": "she said \"{\"", "n": 1}`)
	})

	t.Run("truncated object", func(t *testing.T) {
		_, err := llm.ExtractJSON(`{"a": {"b": "cut off here`)
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, llm.ErrTruncated)).True()
		gt.Bool(t, errors.Is(err, types.ErrParseFailure)).True()
	})

	t.Run("no json at all", func(t *testing.T) {
		_, err := llm.ExtractJSON("I could not produce a structured answer.")
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrParseFailure)).True()
		gt.Bool(t, errors.Is(err, llm.ErrTruncated)).False()
	})

	t.Run("empty response", func(t *testing.T) {
		_, err := llm.ExtractJSON("   ")
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrParseFailure)).True()
	})
}
