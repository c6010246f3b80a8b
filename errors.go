package convo

import (
	"errors"
	"fmt"
)

// Sentinel errors. All use prefix "convo:". Callers should use errors.Is/errors.As.
var (
	ErrFormat              = errors.New("convo: invalid message sequence")
	ErrUnsupportedToolSpec = errors.New("convo: unsupported tool spec")
	ErrMalformedArgs       = errors.New("convo: tool call args are not a JSON object")
	ErrInvalidManifest     = errors.New("convo: manifest is malformed")
	ErrNotFound            = errors.New("convo: conversation not found in registry")
	ErrInvalidID           = errors.New("convo: invalid conversation id")
)

// FormatError reports a turn that cannot be placed in the provider's message sequence,
// e.g. a system turn that is not first.
// Use errors.Is(err, ErrFormat) and errors.As(err, &formatErr) to inspect.
type FormatError struct {
	Index  int
	Role   Role
	Reason string
}

// Error implements error.
func (e *FormatError) Error() string {
	return fmt.Sprintf("convo: message %d (%s): %s", e.Index, e.Role, e.Reason)
}

// Unwrap returns ErrFormat.
func (e *FormatError) Unwrap() error { return ErrFormat }

// UnsupportedToolSpecError reports a tool spec that matches none of the supported shapes.
type UnsupportedToolSpecError struct {
	Type   string // Go type of the rejected value
	Reason string
}

// Error implements error.
func (e *UnsupportedToolSpecError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("convo: unsupported tool spec of type %s", e.Type)
	}
	return fmt.Sprintf("convo: unsupported tool spec of type %s: %s", e.Type, e.Reason)
}

// Unwrap returns ErrUnsupportedToolSpec.
func (e *UnsupportedToolSpecError) Unwrap() error { return ErrUnsupportedToolSpec }

// Compile-time checks.
var (
	_ error = (*FormatError)(nil)
	_ error = (*UnsupportedToolSpecError)(nil)
)
