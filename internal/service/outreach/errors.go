package outreach

import "errors"

// Sentinel errors for the outreach service layer.
var (
	ErrEmptyMessage = errors.New("rendered message is empty")
	ErrNoTemplate   = errors.New("message template is empty")
)
