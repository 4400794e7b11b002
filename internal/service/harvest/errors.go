package harvest

import "errors"

// Sentinel errors for the harvest service layer.
var (
	ErrTooManyFailures = errors.New("too many consecutive fetch failures")
	ErrNoGroups        = errors.New("no groups found for niche")
	ErrNoNiches        = errors.New("no niches configured")
	ErrRotationDone    = errors.New("all niches processed")
)
