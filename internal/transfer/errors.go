package transfer

import (
	"fmt"

	"meetscribe/internal/services"
)

// TransferError reports a chunk that could not be stored. errors.Is matches
// both services.ErrTransfer and the last underlying cause.
type TransferError struct {
	ChunkIndex int
	Attempts   int
	Cause      error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer: chunk %d failed after %d attempt(s): %v", e.ChunkIndex, e.Attempts, e.Cause)
}

func (e *TransferError) Unwrap() []error {
	return []error{services.ErrTransfer, e.Cause}
}
