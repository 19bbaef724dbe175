package pixiv

import "fmt"

// AuthError means the refresh token itself was rejected. There is no
// automatic recovery; the credential has to be replaced.
type AuthError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth failed: %v", e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("auth failed: %v (status %v)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("auth failed: status %v", e.StatusCode)
}

func (e *AuthError) Unwrap() error { return e.Err }

// APIError is a platform request that failed after the single
// invalidate-and-retry pass.
type APIError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %v failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("request %v failed: status %v", e.Endpoint, e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }
