package logger

import (
	"regexp"
	"strings"
)

var secretKeys = []string{"token", "password", "secret"}

var tokenParam = regexp.MustCompile(`(access_token=)[^&\s"]+`)

// RedactSecret masks a credential, keeping a short prefix for correlation.
// "vk1.a.abcdef123" → "vk1.***"
func RedactSecret(s string) string {
	if len(s) <= 4 {
		return "***"
	}
	return s[:4] + "***"
}

func redactValue(key, val string) string {
	k := strings.ToLower(key)
	for _, sk := range secretKeys {
		if strings.Contains(k, sk) {
			return RedactSecret(val)
		}
	}
	// Tokens embedded in request URLs or error strings.
	return tokenParam.ReplaceAllString(val, "${1}***")
}
