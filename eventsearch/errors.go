package eventsearch

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRateLimited is returned when the search API answers 429.
var ErrRateLimited = errors.New("eventsearch: rate limited")

// RequestError is any other failed request: a non-2xx status, or a transport
// failure when StatusCode is 0.
type RequestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("eventsearch: request failed: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("eventsearch: http %d: %v", e.StatusCode, e.Err)
	case e.Body != "":
		return fmt.Sprintf("eventsearch: http %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("eventsearch: http %d", e.StatusCode)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is a 429 from the search API.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func statusError(code int, body string) error {
	if code == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return &RequestError{StatusCode: code, Body: body}
}
