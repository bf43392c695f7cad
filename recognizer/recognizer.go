package recognizer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Result is the normalized recognition outcome: the matched intent, a
// confidence score in [0, 1], and any extracted entities. An empty Intent
// (or a score below the engine's threshold) means no confident match.
type Result struct {
	Intent   string         `json:"intent"`
	Score    float64        `json:"score"`
	Entities map[string]any `json:"entities,omitempty"`
}

// Info contains metadata about a recognizer implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "static", "pattern", "openai", "anthropic", etc.
}

// Recognizer turns an inbound utterance into a scored intent.
type Recognizer interface {
	Recognize(ctx context.Context, utterance, locale string) (Result, error)

	// Info returns information about the recognizer implementation.
	Info() Info
}

// Static maps exact phrases to intents, case-insensitively. Useful for tests,
// examples and command-style bots where the utterance set is closed.
type Static struct {
	phrases map[string]string
}

// NewStatic constructs a Static recognizer from a phrase-to-intent map.
func NewStatic(phrases map[string]string) *Static {
	normalized := make(map[string]string, len(phrases))
	for phrase, intent := range phrases {
		normalized[strings.ToLower(strings.TrimSpace(phrase))] = intent
	}

	return &Static{phrases: normalized}
}

var _ Recognizer = (*Static)(nil)

// Recognize implements Recognizer. Hits score 1.0; misses return the zero
// Result without error.
func (s *Static) Recognize(_ context.Context, utterance, _ string) (Result, error) {
	intent, ok := s.phrases[strings.ToLower(strings.TrimSpace(utterance))]
	if !ok {
		return Result{}, nil
	}

	return Result{Intent: intent, Score: 1.0}, nil
}

// Info implements Recognizer.
func (s *Static) Info() Info {
	return Info{Name: "static", Provider: "static"}
}

// Pattern matches utterances against regular expressions. Named capture
// groups become entities, so "order (?P<count>\d+)" extracts count.
type Pattern struct {
	patterns []compiledPattern
}

type compiledPattern struct {
	re     *regexp.Regexp
	intent string
}

// NewPattern compiles an intent-to-expression map. Expressions are matched
// case-insensitively in a deterministic order (sorted by intent).
func NewPattern(patterns map[string]string) (*Pattern, error) {
	intents := make([]string, 0, len(patterns))
	for intent := range patterns {
		intents = append(intents, intent)
	}
	sort.Strings(intents)

	compiled := make([]compiledPattern, 0, len(intents))

	for _, intent := range intents {
		re, err := regexp.Compile("(?i)" + patterns[intent])
		if err != nil {
			return nil, fmt.Errorf("pattern for intent %q: %w", intent, err)
		}

		compiled = append(compiled, compiledPattern{re: re, intent: intent})
	}

	return &Pattern{patterns: compiled}, nil
}

var _ Recognizer = (*Pattern)(nil)

// Recognize implements Recognizer. The first matching pattern wins with
// score 1.0; named capture groups are returned as entities.
func (p *Pattern) Recognize(_ context.Context, utterance, _ string) (Result, error) {
	for _, cp := range p.patterns {
		m := cp.re.FindStringSubmatch(utterance)
		if m == nil {
			continue
		}

		var entities map[string]any

		for i, name := range cp.re.SubexpNames() {
			if i == 0 || name == "" || m[i] == "" {
				continue
			}

			if entities == nil {
				entities = make(map[string]any)
			}

			entities[name] = m[i]
		}

		return Result{Intent: cp.intent, Score: 1.0, Entities: entities}, nil
	}

	return Result{}, nil
}

// Info implements Recognizer.
func (p *Pattern) Info() Info {
	return Info{Name: "pattern", Provider: "pattern"}
}

// ClassificationPrompt builds the system prompt shared by the LLM-backed
// recognizers: the candidate intents with their descriptions, the locale,
// and the strict JSON response contract.
func ClassificationPrompt(intents map[string]string, locale string) string {
	names := make([]string, 0, len(intents))
	for name := range intents {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder

	sb.WriteString("You classify a user utterance into exactly one intent.\n\nIntents:\n")

	for _, name := range names {
		sb.WriteString("- ")
		sb.WriteString(name)

		if desc := intents[name]; desc != "" {
			sb.WriteString(": ")
			sb.WriteString(desc)
		}

		sb.WriteString("\n")
	}

	if locale != "" {
		fmt.Fprintf(&sb, "\nThe utterance locale is %s.\n", locale)
	}

	sb.WriteString("\nRespond with JSON only, no prose: ")
	sb.WriteString(`{"intent": "<name or none>", "score": <0.0-1.0>}`)

	return sb.String()
}

// ParseResult extracts a Result from an LLM completion. The completion may
// wrap the JSON in code fences or prose; the first JSON object wins. An
// intent of "none" (or unparseable output) yields the zero Result.
func ParseResult(raw string) Result {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')

	if start < 0 || end <= start {
		return Result{}
	}

	body := raw[start : end+1]
	if !gjson.Valid(body) {
		return Result{}
	}

	intent := gjson.Get(body, "intent").String()
	if intent == "" || strings.EqualFold(intent, "none") {
		return Result{}
	}

	score := gjson.Get(body, "score").Float()
	if score <= 0 {
		score = 1.0
	}

	var entities map[string]any
	if ent := gjson.Get(body, "entities"); ent.IsObject() {
		entities = make(map[string]any)
		ent.ForEach(func(key, value gjson.Result) bool {
			entities[key.String()] = value.Value()
			return true
		})
	}

	return Result{Intent: intent, Score: score, Entities: entities}
}
