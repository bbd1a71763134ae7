package repository

import (
	"context"
	"time"
)

// Timeouts PostgresRepository applies when the caller set no deadline.
const (
	DefaultQueryTimeout = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// boundedContext keeps an existing deadline and otherwise applies d.
func boundedContext(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
