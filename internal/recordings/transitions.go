package recordings

import (
	"errors"

	"meetscribe/internal/store"
)

// ErrInvalidTransition reports a status change outside the lifecycle table.
var ErrInvalidTransition = errors.New("invalid recording status transition")

// ErrDuplicate reports an upload whose content the owner already stored.
var ErrDuplicate = errors.New("duplicate recording")

var transitions = map[store.Status][]store.Status{
	store.StatusPending:    {store.StatusProcessing},
	store.StatusProcessing: {store.StatusCompleted, store.StatusFailed},
}

// CanTransition reports whether a recording may move from one status to another.
// Staying in the same status is always allowed; reaching "deleted" is not,
// because only Delete writes it.
func CanTransition(from, to store.Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
