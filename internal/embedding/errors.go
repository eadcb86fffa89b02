package embedding

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Failure classes for embedding requests. All of them are transient from the
// caller's point of view: the retrying wrapper treats any of these (and any
// unclassified error) as retryable.
var (
	ErrRateLimited       = errors.New("rate limited")
	ErrConnection        = errors.New("connection failed")
	ErrAPI               = errors.New("api error")
	ErrMalformedResponse = errors.New("malformed response")
)

// classify wraps an API client error into one of the failure classes so
// callers can branch with errors.Is. Context errors pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return errors.Join(ErrConnection, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return errors.Join(ErrRateLimited, err)
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") || strings.Contains(msg, "timeout"):
		return errors.Join(ErrConnection, err)
	default:
		return errors.Join(ErrAPI, err)
	}
}
