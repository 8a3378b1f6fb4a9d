package scanner

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Dialer opens TCP connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ProbeResult is the outcome of one connection attempt.
type ProbeResult struct {
	Address  string
	Port     uint16
	Accepted bool
	RTT      time.Duration
	// Reason is a short diagnostic for a failed attempt ("refused",
	// "timeout", ...). It never reaches the report.
	Reason string
}

// Probe makes a single bounded connection attempt to address:p. Any accepted
// connection counts as open and is closed right away without exchanging data.
func (e *Engine) Probe(ctx context.Context, address string, p uint16) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	hostport := net.JoinHostPort(address, strconv.Itoa(int(p)))
	start := time.Now()
	conn, err := e.dialer.DialContext(ctx, "tcp", hostport)
	res := ProbeResult{
		Address: address,
		Port:    p,
		RTT:     time.Since(start),
	}
	if err == nil {
		res.Accepted = true
		_ = conn.Close()
		e.log.Debug("port open", zap.String("addr", hostport), zap.Duration("rtt", res.RTT))
		return res
	}

	res.Reason = classifyDialErr(err)
	e.log.Debug("port not open",
		zap.String("addr", hostport),
		zap.String("reason", res.Reason),
		zap.Duration("rtt", res.RTT),
		zap.Error(err))
	return res
}

// classifyDialErr names the failure for logs. Every class is treated the same
// by the engine.
func classifyDialErr(err error) string {
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "refused"
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return "unreachable"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	if strings.Contains(err.Error(), "refused") {
		return "refused"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "resolve"
	}
	return "error"
}
