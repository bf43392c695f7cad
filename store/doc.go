// Package store houses concrete implementations of core.ConversationStore.
// The interface itself (and ConversationState) live in the core package to
// centralize domain contracts. Keeping only implementations here prevents
// higher level packages (engine, runner) from depending on concrete storage.
//
// Additional backends (SQLite, Postgres, Redis, etc.) live in sub-packages
// without changing any calling code; only the wiring layer decides which
// implementation to instantiate.
package store
