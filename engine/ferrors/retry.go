package ferrors

import "errors"

// IsRetryable classifies an error per the specification's retry law:
// HTTP 429/5xx, AIError(retryable=true), and TimeoutError are retryable;
// AbortError, HTTP 4xx (except 429), and AIError(retryable=false) are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var abortErr *AbortError
	if errors.As(err, &abortErr) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Status == 429 {
			return true
		}
		if httpErr.Status >= 500 && httpErr.Status < 600 {
			return true
		}
		return false
	}

	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr.Retryable
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}

	var fsErr *Error
	if errors.As(err, &fsErr) && fsErr.Kind == KindTimeout {
		return true
	}

	return false
}
