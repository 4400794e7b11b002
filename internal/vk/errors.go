package vk

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes the pipeline reacts to.
const (
	CodeAuthFailed      = 5
	CodeFloodControl    = 9
	CodeAccessDenied    = 15
	CodeUserDeactivated = 18
	CodeGroupAccess     = 203
	CodePrivacy         = 902
	CodeCannotMessage   = 901
)

// APIError is an application-level error returned in the response body.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
	Method  string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("vk %s: [%d] %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("vk: [%d] %s", e.Code, e.Message)
}

// AsAPIError unwraps err into an *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func messageContains(err error, needle string) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), needle)
}

// IsAccessDenied reports a closed group or hidden member list.
func IsAccessDenied(err error) bool {
	if apiErr, ok := AsAPIError(err); ok {
		if apiErr.Code == CodeAccessDenied || apiErr.Code == CodeGroupAccess {
			return true
		}
	}
	return messageContains(err, "access denied")
}

// IsFloodControl reports that the account hit the platform's global rate limit.
func IsFloodControl(err error) bool {
	if apiErr, ok := AsAPIError(err); ok && apiErr.Code == CodeFloodControl {
		return true
	}
	return messageContains(err, "flood control")
}

// IsSenderBlocked reports that the sending account itself was blocked.
func IsSenderBlocked(err error) bool {
	return messageContains(err, "user is blocked")
}

// IsAuthFailure reports an invalid or revoked token.
func IsAuthFailure(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Code == CodeAuthFailed
}
