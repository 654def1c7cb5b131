package board

import (
	"errors"
	"fmt"
)

// Reason is a machine-readable code for a rejected operation
type Reason string

// Rejection reasons.
const (
	ReasonEmptyKey     Reason = "EMPTY_KEY"
	ReasonDuplicateKey Reason = "DUPLICATE_KEY"
	ReasonLastTier     Reason = "LAST_TIER"
	ReasonUnknownTier  Reason = "UNKNOWN_TIER"
)

// Sentinels for errors.Is.
var (
	ErrEmptyKey     = &Rejected{Reason: ReasonEmptyKey}
	ErrDuplicateKey = &Rejected{Reason: ReasonDuplicateKey}
	ErrLastTier     = &Rejected{Reason: ReasonLastTier}
	ErrUnknownTier  = &Rejected{Reason: ReasonUnknownTier}
)

// ErrCorrupt wraps every invariant violation found by Validate.
var ErrCorrupt = errors.New("board invariant violated")

// Rejected reports an operation that would break a board invariant. The
// board returned alongside it is the unchanged input.
type Rejected struct {
	Reason Reason
	Key    string
}

// Error implements the error interface.
func (r *Rejected) Error() string {
	switch r.Reason {
	case ReasonEmptyKey:
		return "tier name is empty"
	case ReasonDuplicateKey:
		return fmt.Sprintf("tier %q already exists", r.Key)
	case ReasonLastTier:
		return "cannot delete the last tier"
	case ReasonUnknownTier:
		return fmt.Sprintf("tier %q does not exist", r.Key)
	default:
		return string(r.Reason)
	}
}

// Is matches any *Rejected with the same reason.
func (r *Rejected) Is(target error) bool {
	var t *Rejected
	if errors.As(target, &t) {
		return r.Reason == t.Reason
	}
	return false
}

func reject(reason Reason, key string) error {
	return &Rejected{Reason: reason, Key: key}
}
