// Package httputil provides helpers for outgoing HTTP calls.
//
// # Retry
//
// [Retry] repeats an operation with exponential backoff, but only for
// errors wrapped in [RetryableError]. [CheckResponse] classifies a response:
// network-level trouble, 5xx and 429 become retryable, other non-2xx
// statuses are returned as a plain [StatusError]:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    defer resp.Body.Close()
//	    return httputil.CheckResponse(resp)
//	})
//
// Defaults: 3 attempts, 1 second initial delay, doubling per retry.
package httputil
