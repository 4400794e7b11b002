package candidate

import "errors"

// Sentinel errors for the candidate service layer.
var (
	ErrNotFound              = errors.New("candidate not found")
	ErrContactedIrreversible = errors.New("contacted flag cannot be cleared")
)
