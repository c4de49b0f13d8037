package client

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrTransport covers connection failures, timeouts and non-2xx answers.
	ErrTransport = errors.New("transport error")
	// ErrFormat is returned when the service answers with an unexpected content type.
	ErrFormat = errors.New("unexpected response format")
	// ErrMalformedReport is returned when a response document cannot be read.
	ErrMalformedReport = errors.New("malformed report")
	// ErrPollAttemptsExhausted is returned once MaxPollAttempts status checks
	// went by without a terminal status.
	ErrPollAttemptsExhausted = errors.New("load status attempts exhausted")
)

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
