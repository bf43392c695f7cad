// Package engine implements the turn-based dialog execution engine: the
// component that receives one inbound activity, decides which dialog steps
// run, executes them until a clean boundary, and persists the conversation
// snapshot.
//
// Responsibilities:
//   - Turn orchestration: load snapshot, run steps, persist at the boundary
//   - Rule selection: priority, trigger specificity, registration order
//   - Step execution: the full step vocabulary over the hierarchical cursor
//   - Event propagation: events bubble from the active dialog toward the
//     stack root, one copy per hop
//   - Fault isolation: a faulted turn surfaces an error and persists nothing
//
// The engine is deliberately transport-agnostic. Callers (see the runner
// package) feed it activities and deliver the responses it queues.
package engine
