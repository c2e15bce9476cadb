package health

import (
	"context"
	"time"
)

// CheckType represents the type of health check
type CheckType string

const (
	CheckTypeProcess CheckType = "process"
	CheckTypeTCP     CheckType = "tcp"
)

// Result represents the outcome of a health check
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result

	// Type returns the type of health check
	Type() CheckType
}

// All runs every checker in order and stops at the first unhealthy result
func All(ctx context.Context, checkers ...Checker) Result {
	start := time.Now()
	result := Result{Healthy: true, CheckedAt: start}
	for _, c := range checkers {
		result = c.Check(ctx)
		if !result.Healthy {
			break
		}
	}
	result.CheckedAt = start
	result.Duration = time.Since(start)
	return result
}
