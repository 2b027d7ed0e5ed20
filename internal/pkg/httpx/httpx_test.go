package httpx

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code int
		want bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
		{http.StatusRequestTimeout, false},
		{http.StatusOK, false},
	}
	for _, tc := range cases {
		if got := IsRetryableHTTPStatus(tc.code); got != tc.want {
			t.Fatalf("status %d: got=%v want=%v", tc.code, got, tc.want)
		}
	}
}

type statusErr struct{ code int }

func (e *statusErr) Error() string       { return "status error" }
func (e *statusErr) HTTPStatusCode() int { return e.code }

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	if IsRetryableError(nil) {
		t.Fatalf("nil error must not be retryable")
	}
	if IsRetryableError(errors.New("plain")) {
		t.Fatalf("plain error must not be retryable")
	}
	if !IsRetryableError(&statusErr{code: 503}) {
		t.Fatalf("503 must be retryable")
	}
	if IsRetryableError(&statusErr{code: 400}) {
		t.Fatalf("400 must not be retryable")
	}
}

func TestRetryAfterDuration(t *testing.T) {
	t.Parallel()

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "3")
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 3*time.Second {
		t.Fatalf("retry-after: got=%v want=%v", got, 3*time.Second)
	}
	if got := RetryAfterDuration(nil, 2*time.Second, 10*time.Second); got != 2*time.Second {
		t.Fatalf("fallback: got=%v want=%v", got, 2*time.Second)
	}
	resp.Header.Set("Retry-After", "60")
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("cap: got=%v want=%v", got, 10*time.Second)
	}
}

func TestJitterSleepBounds(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		got := JitterSleep(time.Second)
		if got < 800*time.Millisecond || got > 1200*time.Millisecond {
			t.Fatalf("jitter out of bounds: got=%v", got)
		}
	}
	if got := JitterSleep(0); got != 0 {
		t.Fatalf("zero base: got=%v want=0", got)
	}
}
