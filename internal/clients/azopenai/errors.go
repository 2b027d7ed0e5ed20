package azopenai

import "fmt"

// AuthError reports a failure to obtain a bearer token from the credential
// provider. It is never retried.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("image api auth: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// EmptyResultError reports a transport-level success whose envelope carries
// no image payload. Treated as a hard failure, not a retry case.
type EmptyResultError struct {
	Detail string
}

func (e *EmptyResultError) Error() string {
	if e.Detail == "" {
		return "image api returned no image payload"
	}
	return fmt.Sprintf("image api returned no image payload: %s", e.Detail)
}

// GenerationError reports that the composition call failed for good, either
// because the retry budget is exhausted or because of a non-retryable
// provider error.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("image generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

type apiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *apiHTTPError) Error() string {
	return fmt.Sprintf("image api http %d: %s", e.StatusCode, e.Body)
}

func (e *apiHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}
