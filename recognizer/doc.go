// Package recognizer defines the provider-agnostic abstraction for turning
// user utterances into intents inside DialogMesh.
//
// Core goals:
//   - Keep the Recognizer interface minimal: one utterance in, one scored
//     intent out
//   - Normalize results (Result) so rule selection stays decoupled from
//     vendor SDKs
//   - Ship deterministic implementations (Static, Pattern) for tests and
//     rule-driven bots
//
// Providers (e.g. OpenAI, Anthropic) implement the Recognizer interface from
// this package so the engine remains decoupled from vendor SDKs.
package recognizer
