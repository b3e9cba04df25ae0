package ai

import (
	"net/http"
	"time"
)

// retryableStatus are the HTTP statuses retried by the transport itself
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// retryTransport retries retryable statuses with exponential backoff. A
// transport-level error is returned as-is; the caller treats it as a model
// failure and moves to the next tier.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func newRetryTransport(base http.RoundTripper, maxRetries int) *retryTransport {
	return &retryTransport{
		base:       base,
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		// Retries send a clone with a fresh body; the caller's request is
		// never modified.
		attemptReq := req
		if attempt > 0 {
			time.Sleep(t.backoff << (attempt - 1))
			attemptReq = req.Clone(req.Context())
			if req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return resp, bodyErr
				}
				attemptReq.Body = body
			}
		}

		resp, err = t.base.RoundTrip(attemptReq)
		if err != nil {
			return nil, err
		}
		if !retryableStatus[resp.StatusCode] {
			return resp, nil
		}
		if attempt < t.maxRetries {
			resp.Body.Close()
		}
	}

	return resp, err
}
