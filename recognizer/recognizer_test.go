package recognizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatic(t *testing.T) {
	r := NewStatic(map[string]string{
		"hi":        "greet",
		"Order Now": "order",
	})

	res, err := r.Recognize(context.Background(), "HI", "en-us")
	assert.NoError(t, err)
	assert.Equal(t, "greet", res.Intent)
	assert.Equal(t, 1.0, res.Score)

	res, err = r.Recognize(context.Background(), "  order now ", "en-us")
	assert.NoError(t, err)
	assert.Equal(t, "order", res.Intent)

	res, err = r.Recognize(context.Background(), "something else", "en-us")
	assert.NoError(t, err)
	assert.Empty(t, res.Intent)
	assert.Zero(t, res.Score)
}

func TestPattern(t *testing.T) {
	r, err := NewPattern(map[string]string{
		"order": `order (?P<count>\d+) (?P<item>\w+)`,
		"greet": `^(hi|hello)`,
	})
	assert.NoError(t, err)

	res, err := r.Recognize(context.Background(), "Hello there", "en-us")
	assert.NoError(t, err)
	assert.Equal(t, "greet", res.Intent)
	assert.Nil(t, res.Entities)

	res, err = r.Recognize(context.Background(), "please order 2 pizzas", "en-us")
	assert.NoError(t, err)
	assert.Equal(t, "order", res.Intent)
	assert.Equal(t, "2", res.Entities["count"])
	assert.Equal(t, "pizzas", res.Entities["item"])

	res, err = r.Recognize(context.Background(), "goodbye", "en-us")
	assert.NoError(t, err)
	assert.Empty(t, res.Intent)
}

func TestPattern_InvalidExpression(t *testing.T) {
	_, err := NewPattern(map[string]string{"broken": "(unclosed"})
	assert.Error(t, err)
}

func TestClassificationPrompt(t *testing.T) {
	prompt := ClassificationPrompt(map[string]string{
		"order": "the user wants to order food",
		"greet": "",
	}, "en-us")

	assert.Contains(t, prompt, "- greet\n")
	assert.Contains(t, prompt, "- order: the user wants to order food")
	assert.Contains(t, prompt, "en-us")
	assert.Contains(t, prompt, `"intent"`)
}

func TestParseResult(t *testing.T) {
	res := ParseResult(`{"intent": "order", "score": 0.92}`)
	assert.Equal(t, "order", res.Intent)
	assert.InDelta(t, 0.92, res.Score, 1e-9)

	// Fenced output still parses.
	res = ParseResult("```json\n{\"intent\": \"greet\", \"score\": 0.8}\n```")
	assert.Equal(t, "greet", res.Intent)

	// Entities survive.
	res = ParseResult(`{"intent": "order", "score": 1, "entities": {"count": 2}}`)
	assert.Equal(t, float64(2), res.Entities["count"])

	// "none" and garbage resolve to the zero result.
	assert.Empty(t, ParseResult(`{"intent": "none", "score": 0.9}`).Intent)
	assert.Empty(t, ParseResult("not json at all").Intent)

	// Missing score defaults to a confident match.
	res = ParseResult(`{"intent": "greet"}`)
	assert.Equal(t, 1.0, res.Score)
}
