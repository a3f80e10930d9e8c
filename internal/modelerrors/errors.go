// Package modelerrors defines the typed error kinds every pipeline stage
// raises, so callers can branch on kind with errors.As rather than string
// matching, matching the wrapped-error style pkg/espn/client.go used for
// transport failures.
package modelerrors

import (
	"errors"
	"fmt"
)

// Kind is one of the six error kinds raised across the pipeline.
type Kind string

const (
	KindConfig Kind = "config_error"
	KindDataMissing Kind = "data_missing_error"
	KindFeature Kind = "feature_error"
	KindRun Kind = "run_error"
	KindTool Kind = "tool_error"
	KindLLM Kind = "llm_error"
)

// Error wraps an underlying cause with a Kind so propagation policy can
// be enforced at the call boundary: config/data-missing errors abort the
// current request/run, tool/LLM errors never abort a conversation turn.
type Error struct {
	Kind Kind
	Message string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Config constructs a ConfigError: invalid dataset spec, unknown feature
// block, temporal incompatibility across stacked bases, <2 bases for an
// ensemble, unknown meta-model type, unselected ensemble during serving.
func Config(format string, args ...any) *Error { return newErr(KindConfig, format, args...) }

// ConfigWrap is Config with an underlying cause.
func ConfigWrap(cause error, format string, args ...any) *Error {
	return wrapErr(KindConfig, cause, format, args...)
}

// DataMissing constructs a DataMissingError: master CSV absent, dataset empty
// after filters, required target column absent, base-model artifacts absent
// with no training CSV available.
func DataMissing(format string, args ...any) *Error { return newErr(KindDataMissing, format, args...) }

// Feature constructs a FeatureError: malformed feature-key parse failure, or
// an all-zero-by-construction combination (rejected by the catalog
// enumerator, not the handler).
func Feature(format string, args ...any) *Error { return newErr(KindFeature, format, args...) }

// Run constructs a RunError: an exception inside a training run. Recorded on
// the run doc as status=failed; never propagated to the master table or the
// selected config.
func Run(cause error, format string, args ...any) *Error {
	return wrapErr(KindRun, cause, format, args...)
}

// Tool constructs a ToolError: any exception inside an agent tool. Serialized
// as a JSON error object delivered to the agent as a normal tool result.
func Tool(cause error, format string, args ...any) *Error {
	return wrapErr(KindTool, cause, format, args...)
}

// LLM constructs an LLMError: planner or synthesizer returned unparseable
// output. The controller substitutes deterministic defaults and continues.
func LLM(cause error, format string, args ...any) *Error {
	return wrapErr(KindLLM, cause, format, args...)
}

// Is reports whether err is a *Error of the given kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
