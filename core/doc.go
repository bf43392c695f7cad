// Package core provides the foundational domain types, interfaces and execution
// contexts used by DialogMesh. It defines the core abstractions for:
//
//   - Dialogs (named, reusable units of conversational behavior)
//   - Steps (the data-driven instruction vocabulary executed during a turn)
//   - Rules (event triggers selecting the steps a dialog runs)
//   - Memory (layered, path-addressed scopes with distinct lifetimes)
//   - DialogInstance and DialogStack (per-conversation execution state)
//   - TurnContext and TurnResult (typed per-turn carrier and outcome)
//   - ConversationStore (pluggable persistence for conversation snapshots)
//
// The package intentionally keeps implementation concerns (turn orchestration,
// expression evaluation, persistence backends) out of scope, exposing small
// interfaces to enable custom implementations and extensions.
package core
