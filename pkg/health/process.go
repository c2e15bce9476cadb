package health

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/burrow/pkg/process"
)

// ProcessChecker reports healthy when a matching process is in the table
type ProcessChecker struct {
	Table   process.Table
	Name    string
	Pattern string
}

// NewProcessChecker creates a new process-table health checker
func NewProcessChecker(table process.Table, name, pattern string) *ProcessChecker {
	return &ProcessChecker{Table: table, Name: name, Pattern: pattern}
}

// Check performs the process lookup
func (p *ProcessChecker) Check(ctx context.Context) Result {
	start := time.Now()

	state, err := p.Table.Lookup(p.Name, p.Pattern)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("process lookup failed: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	if !state.Alive {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("%s is not running", p.Name),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("%s is running with pid %d", p.Name, state.PID),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the health check type
func (p *ProcessChecker) Type() CheckType {
	return CheckTypeProcess
}
