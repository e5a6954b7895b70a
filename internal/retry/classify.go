package retry

import "strings"

// retryablePatterns are matched case-insensitively against error text
var retryablePatterns = []string{
	"network",
	"timeout",
	"timed out",
	"connection refused",
	"connection reset",
	"rate limit",
	"too many requests",
	"temporary",
	"temporarily unavailable",
	"502",
	"503",
	"504",
}

// IsRetryable classifies an error as transient by matching its message
// against a fixed pattern list. WithRetry does not consult it; callers
// can, and the attempt log records it for each failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
