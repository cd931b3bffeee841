// Package errors defines the typed error taxonomy used across the i18n
// index core (spec.md §7). Every fallible operation returns one of these
// kinds rather than a bare error string; the LSP boundary (out of scope
// here) is the sole place that maps a kind to a diagnostic or a JSON-RPC
// error response.
package errors

import (
	"fmt"
	"time"
)

// Kind names an error category. These are kinds, not type names: several
// Kinds may be carried by the same Go error type.
type Kind string

const (
	KindMalformed      Kind = "input_malformed"      // JSON parse error, bad config field type
	KindMissing        Kind = "input_missing"        // file vanished between event and read
	KindScopeAmbiguous Kind = "scope_ambiguous"       // call site has no resolvable namespace
	KindConfigConflict Kind = "configuration_conflict" // e.g. both requiredLanguages and optionalLanguages set
	KindInternal       Kind = "internal_invariant"    // an assertion the core believed impossible
)

// CoreError is the common shape every typed error in this package
// implements: a Kind, a human message, an optional cause, and a
// timestamp for trace logging.
type CoreError struct {
	Kind      Kind
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Cause }

// Recoverable reports whether the caller should treat this as fatal.
// Every Kind here is non-fatal by construction (spec.md: "nothing in the
// core panics"); Internal invariant errors are still logged and returned
// to the caller as an LSP error, never a crash.
func (e *CoreError) Recoverable() bool { return true }

func newErr(kind Kind, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Cause: cause, Timestamp: time.Now()}
}

// ParseError wraps a malformed JSON translation file or a config field
// with the wrong JSON type. Surfaced as a diagnostic on the offending
// file; never fatal.
type ParseError struct {
	*CoreError
	FilePath string
}

func NewParseError(filePath string, cause error) *ParseError {
	return &ParseError{CoreError: newErr(KindMalformed, "failed to parse "+filePath, cause), FilePath: filePath}
}

// MissingFileError records a file that vanished between a watcher event
// and the subsequent read. Downgraded to an empty input; not surfaced to
// the user beyond a trace-log entry.
type MissingFileError struct {
	*CoreError
	FilePath string
}

func NewMissingFileError(filePath string, cause error) *MissingFileError {
	return &MissingFileError{CoreError: newErr(KindMissing, "file missing: "+filePath, cause), FilePath: filePath}
}

// ScopeAmbiguousError records a call site that could not be resolved to a
// namespace. Surfaced as a hint-severity diagnostic; the usage is kept
// for completion but excluded from missing-key checks.
type ScopeAmbiguousError struct {
	*CoreError
}

func NewScopeAmbiguousError(reason string) *ScopeAmbiguousError {
	return &ScopeAmbiguousError{CoreError: newErr(KindScopeAmbiguous, reason, nil)}
}

// ConfigError records a configuration load/validation failure. The field
// identifies which part of the config was at fault; path is the file the
// config was loaded from (may be empty for a synthesized default).
type ConfigError struct {
	*CoreError
	Field string
	Path  string
}

func NewConfigError(field, path string, cause error) *ConfigError {
	return &ConfigError{
		CoreError: newErr(KindConfigConflict, fmt.Sprintf("config field %q invalid", field), cause),
		Field:     field,
		Path:      path,
	}
}

// InternalError records an assertion the core believed impossible. Logged
// and returned as a typed error; the process keeps running.
type InternalError struct {
	*CoreError
}

func NewInternalError(where string, cause error) *InternalError {
	return &InternalError{CoreError: newErr(KindInternal, "invariant violated in "+where, cause)}
}
