// Package scanner probes every port of a catalog on each address of a target
// and assembles the findings into a Report.
package scanner

import (
	"context"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"netmap/port"
)

// DefaultTimeout bounds each connection attempt.
const DefaultTimeout = 150 * time.Millisecond

// Options configures an Engine. Zero fields take defaults.
type Options struct {
	Catalog port.Catalog  // defaults to port.Default()
	Timeout time.Duration // defaults to DefaultTimeout
	// Workers > 1 scans that many addresses at once. Ports within an address
	// are always probed in sequence.
	Workers int
	Dialer  Dialer
	// Yield runs after every probe. Defaults to runtime.Gosched.
	Yield  func()
	Logger *zap.Logger
}

// Engine runs scans. It holds no per-scan state and is safe for concurrent use.
type Engine struct {
	catalog port.Catalog
	timeout time.Duration
	workers int
	dialer  Dialer
	yield   func()
	log     *zap.Logger
}

// New creates an Engine from opts.
func New(opts Options) *Engine {
	e := &Engine{
		catalog: opts.Catalog,
		timeout: opts.Timeout,
		workers: opts.Workers,
		dialer:  opts.Dialer,
		yield:   opts.Yield,
		log:     opts.Logger,
	}
	if e.catalog.Len() == 0 {
		e.catalog = port.Default()
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.workers <= 0 {
		e.workers = 1
	}
	if e.dialer == nil {
		e.dialer = &net.Dialer{KeepAlive: -1}
	}
	if e.yield == nil {
		e.yield = runtime.Gosched
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	e.log = e.log.With(zap.String("component", "scanner"))
	return e
}

// Catalog returns the ports this engine probes.
func (e *Engine) Catalog() port.Catalog { return e.catalog }

// ScanAddress probes every catalog port on address, in catalog order, and
// returns the ports that accepted.
func (e *Engine) ScanAddress(ctx context.Context, address string) HostReport {
	h := HostReport{Address: address}
	for _, p := range e.catalog.Ports() {
		if r := e.Probe(ctx, address, p); r.Accepted {
			h.Open = append(h.Open, p)
		}
		e.yield()
	}
	return h
}

// Scan runs ScanAddress for each address and returns the report in the order
// the addresses were given, whatever the worker count.
func (e *Engine) Scan(ctx context.Context, addresses []string) *Report {
	start := time.Now()
	rep := &Report{Hosts: make([]HostReport, len(addresses))}

	if e.workers > 1 && len(addresses) > 1 {
		e.scanPooled(ctx, addresses, rep.Hosts)
	} else {
		for i, a := range addresses {
			rep.Hosts[i] = e.ScanAddress(ctx, a)
		}
	}

	e.log.Info("scan finished",
		zap.Int("hosts", len(addresses)),
		zap.Int("ports", e.catalog.Len()),
		zap.Int("open", rep.OpenCount()),
		zap.Duration("duration", time.Since(start)))
	return rep
}

func (e *Engine) scanPooled(ctx context.Context, addresses []string, out []HostReport) {
	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(e.workers, func(item interface{}) {
		defer wg.Done()
		i := item.(int)
		out[i] = e.ScanAddress(ctx, addresses[i])
	})
	if err != nil {
		e.log.Warn("worker pool unavailable, scanning sequentially", zap.Error(err))
		for i, a := range addresses {
			out[i] = e.ScanAddress(ctx, a)
		}
		return
	}
	defer pool.Release()

	for i := range addresses {
		wg.Add(1)
		if err := pool.Invoke(i); err != nil {
			wg.Done()
			e.log.Warn("worker pool rejected address, scanning inline",
				zap.String("address", addresses[i]), zap.Error(err))
			out[i] = e.ScanAddress(ctx, addresses[i])
		}
	}
	wg.Wait()
}
