// Package openai provides an implementation of recognizer.Recognizer using
// the OpenAI Chat Completions API. The model receives the candidate intents
// as a classification prompt and must answer with a strict JSON verdict,
// which is normalized back into a recognizer.Result.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/dialogmesh/recognizer"
)

// Options configure the OpenAI recognizer adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Recognizer classifies utterances with the OpenAI Chat Completions API
// behind the generic recognizer.Recognizer interface.
type Recognizer struct {
	client  *openai.Client
	intents map[string]string
	opts    Options
}

// NewRecognizer creates a new OpenAI recognizer using the official client.
// intents maps intent names to natural-language descriptions.
func NewRecognizer(intents map[string]string, optFns ...func(o *Options)) *Recognizer {
	client := openai.NewClient()
	return NewRecognizerFromClient(&client, intents, optFns...)
}

// NewRecognizerFromClient creates a new OpenAI recognizer from an existing client.
func NewRecognizerFromClient(client *openai.Client, intents map[string]string, optFns ...func(o *Options)) *Recognizer {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.0,
		MaxCompletionTokens: 256,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Recognizer{client: client, intents: intents, opts: opts}
}

var _ recognizer.Recognizer = (*Recognizer)(nil)

// Recognize implements recognizer.Recognizer.
func (r *Recognizer) Recognize(ctx context.Context, utterance, locale string) (recognizer.Result, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(recognizer.ClassificationPrompt(r.intents, locale)),
			openai.UserMessage(utterance),
		},
		Model:               r.opts.Model,
		Temperature:         openai.Float(r.opts.Temperature),
		MaxCompletionTokens: openai.Int(r.opts.MaxCompletionTokens),
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return recognizer.Result{}, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return recognizer.Result{}, fmt.Errorf("openai returned no choices")
	}

	return recognizer.ParseResult(resp.Choices[0].Message.Content), nil
}

// Info implements recognizer.Recognizer.
func (r *Recognizer) Info() recognizer.Info {
	return recognizer.Info{Name: r.opts.Model, Provider: "openai"}
}
