package models

import "errors"

// Error kinds surfaced by the sync core. StaleState and PartialWrite are
// recoverable by re-reading both records and reconciling; the services retry
// them once before returning them to the caller.
var (
	// ErrStaleState means the operation's precondition no longer holds. The
	// caller must re-read the relationship state and decide again.
	ErrStaleState = errors.New("stale relationship state")

	// ErrPartialWrite means one side of a mirrored write succeeded and the
	// other did not. Repair re-reads both documents and applies only the
	// missing side.
	ErrPartialWrite = errors.New("partial mirrored write")

	// ErrUploadFailed aborts the whole message send; no message record is
	// created for an unresolved attachment.
	ErrUploadFailed = errors.New("attachment upload failed")

	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
)
