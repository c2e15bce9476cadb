package health

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// TCPChecker reports healthy when the named process accepts connections on
// its listen port
type TCPChecker struct {
	// Name is the process expected to own the port, used in messages
	Name string

	// Host is the interface to dial (default 127.0.0.1)
	Host string

	// Port is the listen port the process should have bound
	Port int

	// Timeout bounds the connection attempt (default 5 seconds)
	Timeout time.Duration
}

// NewTCPChecker checks that name listens on port on the loopback interface
func NewTCPChecker(name string, port int) *TCPChecker {
	return &TCPChecker{
		Name:    name,
		Host:    "127.0.0.1",
		Port:    port,
		Timeout: 5 * time.Second,
	}
}

// Address is the host:port dialed by Check
func (t *TCPChecker) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Check dials the listen port once
func (t *TCPChecker) Check(ctx context.Context) Result {
	start := time.Now()
	dialer := &net.Dialer{Timeout: t.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", t.Address())
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("%s is not accepting connections on listen port %d: %v", t.Name, t.Port, err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	conn.Close()

	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("%s is accepting connections on listen port %d", t.Name, t.Port),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns CheckTypeTCP
func (t *TCPChecker) Type() CheckType {
	return CheckTypeTCP
}

// WithTimeout sets the connection timeout
func (t *TCPChecker) WithTimeout(timeout time.Duration) *TCPChecker {
	t.Timeout = timeout
	return t
}
