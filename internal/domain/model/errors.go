package model

import "errors"

var (
	// ErrFeedUnavailable is returned when a synchronous cache fill cannot
	// reach the trade feed. It is the only error that reaches API clients.
	ErrFeedUnavailable = errors.New("trade feed unavailable")

	// ErrNoData is returned when neither cache tier holds a valid snapshot.
	ErrNoData = errors.New("no snapshot available")
)
