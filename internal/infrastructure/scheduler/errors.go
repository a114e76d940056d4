package scheduler

import "errors"

var (
	// ErrPoolStopped rejects jobs submitted before Start or after Stop
	ErrPoolStopped = errors.New("sync worker pool is not running")

	// ErrQueueFull rejects jobs once every worker is busy and the backlog is full
	ErrQueueFull = errors.New("sync job queue is full")

	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
