package convo

import (
	"context"
	"fmt"
	"strings"
)

// Registry returns a declared conversation by id. Implementations return a copy the caller
// may modify and wrap ErrNotFound when the id is unknown.
type Registry interface {
	GetConversation(ctx context.Context, id string) (*Conversation, error)
}

// ValidateID reports whether id is usable as a registry key and a file name:
// non-empty, no path separators, no "..", no leading dot and no control characters.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidID)
	case strings.ContainsAny(id, `/\:`):
		return fmt.Errorf("%w: %q contains a separator", ErrInvalidID, id)
	case strings.Contains(id, ".."), strings.HasPrefix(id, "."):
		return fmt.Errorf("%w: %q is not a plain name", ErrInvalidID, id)
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidID, id)
		}
	}
	return nil
}
