package core

import "fmt"

// ConfigurationError reports dialog configuration the executor cannot act on:
// an unknown step kind, a reference to an unregistered dialog, an unknown
// memory scope, or an exceeded step budget. It is fatal for the turn that
// hits it and nothing from that turn is persisted.
type ConfigurationError struct {
	Dialog string // id of the dialog definition, empty when not tied to one
	Detail string
}

func (e *ConfigurationError) Error() string {
	if e.Dialog != "" {
		return fmt.Sprintf("dialog %q: %s", e.Dialog, e.Detail)
	}

	return e.Detail
}

// NewConfigurationError creates a ConfigurationError for the given dialog id
// with a formatted detail message.
func NewConfigurationError(dialog, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Dialog: dialog, Detail: fmt.Sprintf(format, args...)}
}

// EvaluationError reports an expression or template that failed to evaluate:
// malformed syntax, a type mismatch, or a source value of the wrong shape.
// The offending step faults the turn and the turn's mutations are discarded.
type EvaluationError struct {
	Expression string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %q: %v", e.Expression, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// NewEvaluationError wraps err as an EvaluationError for expression.
func NewEvaluationError(expression string, err error) *EvaluationError {
	return &EvaluationError{Expression: expression, Err: err}
}

// TransportError wraps a collaborator failure, such as a recognizer call or
// an outbound delivery that did not complete. The turn surfaces it to the
// caller unchanged; retry policy belongs to the transport layer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
