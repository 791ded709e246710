package telegram

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FloodError is the rate-limit signal from the Bot API. RetryAfter is the
// wait the API suggested, in seconds; zero when the response carried no hint.
type FloodError struct {
	RetryAfter  int
	Description string
}

func (e *FloodError) Error() string {
	return fmt.Sprintf("flood control exceeded: %s (retry after %ds)", e.Description, e.RetryAfter)
}

// APIError is any non-flood rejection from the Bot API.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error %d: %s", e.Code, e.Description)
}

// IsFlood reports whether err is a rate-limit signal.
func IsFlood(err error) bool {
	var fe *FloodError
	return errors.As(err, &fe)
}

var digitsRe = regexp.MustCompile(`\d+`)

func isFloodDescription(code int, description string) bool {
	if code == 429 {
		return true
	}
	return strings.Contains(description, "Too Many Requests") ||
		strings.Contains(description, "Flood control exceeded") ||
		strings.Contains(description, "Retry in")
}

// parseRetryAfter extracts the suggested wait from the error description
// ("Too Many Requests: retry after 12", "Flood control exceeded. Retry in 12
// seconds"). Returns 0 when no number is present.
func parseRetryAfter(description string) int {
	match := digitsRe.FindString(description)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}
