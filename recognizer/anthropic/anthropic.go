// Package anthropic provides a recognizer wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/dialogmesh/recognizer"
)

// Options configures the Anthropic recognizer adapter (temperature, model id,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Recognizer classifies utterances with the Anthropic Messages API behind
// the generic recognizer.Recognizer interface.
type Recognizer struct {
	client  *anthropic.Client
	intents map[string]string
	opts    Options
}

// NewRecognizer creates a new Anthropic recognizer using the official client.
// intents maps intent names to natural-language descriptions.
func NewRecognizer(intents map[string]string, optFns ...func(o *Options)) *Recognizer {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.0,
		MaxTokens:   256,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Recognizer{
		client:  &client,
		intents: intents,
		opts:    opts,
	}
}

// NewRecognizerFromClient creates a new Anthropic recognizer from an existing client.
func NewRecognizerFromClient(client *anthropic.Client, intents map[string]string, optFns ...func(o *Options)) *Recognizer {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.0,
		MaxTokens:   256,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Recognizer{
		client:  client,
		intents: intents,
		opts:    opts,
	}
}

var _ recognizer.Recognizer = (*Recognizer)(nil)

// Recognize implements recognizer.Recognizer.
func (r *Recognizer) Recognize(ctx context.Context, utterance, locale string) (recognizer.Result, error) {
	params := anthropic.MessageNewParams{
		Model:     r.opts.Model,
		MaxTokens: r.opts.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(utterance)),
		},
		Temperature: anthropic.Float(r.opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: recognizer.ClassificationPrompt(r.intents, locale)},
		},
	}

	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return recognizer.Result{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder

	for _, block := range resp.Content {
		if block.Type == "text" {
			textBlock := block.AsText()
			sb.WriteString(textBlock.Text)
		}
	}

	return recognizer.ParseResult(sb.String()), nil
}

// Info implements recognizer.Recognizer.
func (r *Recognizer) Info() recognizer.Info {
	return recognizer.Info{Name: string(r.opts.Model), Provider: "anthropic"}
}
