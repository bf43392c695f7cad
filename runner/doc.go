// Package runner implements the concurrency layer above the turn engine.
//
// The engine requires exclusivity per conversation key while a turn runs but
// does not enforce it. The Runner provides that guarantee: turns for the
// same conversation execute strictly one after another, while turns for
// different conversations run in parallel up to a configurable limit.
// Transports can therefore hand activities to the Runner as they arrive,
// without ordering concerns of their own.
//
// The Runner implements core.TurnProcessor itself, so callers and the
// façade treat it exactly like a bare engine.
package runner
