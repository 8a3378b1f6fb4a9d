package scanner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"reflect"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"netmap/port"
)

// fakeDialer accepts connections to the host:port keys of open after the
// given delay and refuses everything else.
type fakeDialer struct {
	mu    sync.Mutex
	open  map[string]time.Duration
	calls []string
}

func (f *fakeDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	f.mu.Lock()
	f.calls = append(f.calls, address)
	delay, ok := f.open[address]
	f.mu.Unlock()

	if !ok {
		return nil, &net.OpError{Op: "dial", Net: network, Err: syscall.ECONNREFUSED}
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		return nil, context.DeadlineExceeded
	}
	c1, c2 := net.Pipe()
	_ = c2.Close()
	return c1, nil
}

func (f *fakeDialer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func catalogOf(ports ...uint16) port.Catalog {
	return port.FromPorts(ports)
}

func TestProbeTimeoutBoundary(t *testing.T) {
	d := &fakeDialer{open: map[string]time.Duration{
		"10.0.0.1:80":  100 * time.Millisecond,
		"10.0.0.1:443": 151 * time.Millisecond,
	}}
	e := New(Options{Dialer: d, Timeout: 150 * time.Millisecond, Logger: zaptest.NewLogger(t)})

	if r := e.Probe(context.Background(), "10.0.0.1", 80); !r.Accepted {
		t.Fatalf("accept at 100ms should be open, got %+v", r)
	}
	r := e.Probe(context.Background(), "10.0.0.1", 443)
	if r.Accepted {
		t.Fatalf("accept at 151ms should be closed, got %+v", r)
	}
	if r.Reason != "timeout" {
		t.Fatalf("expected timeout reason, got %q", r.Reason)
	}
}

func TestScanAddressFollowsCatalogOrder(t *testing.T) {
	d := &fakeDialer{open: map[string]time.Duration{
		"10.0.0.1:22":   0,
		"10.0.0.1:8080": 0,
		"10.0.0.1:443":  0,
	}}
	e := New(Options{Dialer: d, Catalog: catalogOf(8080, 21, 443, 22)})

	h := e.ScanAddress(context.Background(), "10.0.0.1")
	if want := []uint16{8080, 443, 22}; !reflect.DeepEqual(h.Open, want) {
		t.Fatalf("open ports %v, want catalog order %v", h.Open, want)
	}
	wantCalls := []string{"10.0.0.1:8080", "10.0.0.1:21", "10.0.0.1:443", "10.0.0.1:22"}
	if got := d.Calls(); !reflect.DeepEqual(got, wantCalls) {
		t.Fatalf("probe order %v, want %v", got, wantCalls)
	}
}

func TestYieldAfterEveryProbe(t *testing.T) {
	var yields int
	d := &fakeDialer{open: map[string]time.Duration{"10.0.0.2:22": 0}}
	e := New(Options{Dialer: d, Catalog: catalogOf(21, 22, 23), Yield: func() { yields++ }})

	e.Scan(context.Background(), []string{"10.0.0.1", "10.0.0.2"})
	if yields != 6 {
		t.Fatalf("expected 6 yields (2 hosts x 3 ports), got %d", yields)
	}
}

func TestScanSingleClosedHost(t *testing.T) {
	e := New(Options{Dialer: &fakeDialer{}})
	rep := e.Scan(context.Background(), []string{"10.0.0.5"})
	if len(rep.Hosts) != 1 || rep.Hosts[0].Address != "10.0.0.5" || len(rep.Hosts[0].Open) != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestScanRangeWithOneOpenPort(t *testing.T) {
	d := &fakeDialer{open: map[string]time.Duration{"10.0.0.2:22": 0}}
	e := New(Options{Dialer: d})
	rep := e.Scan(context.Background(), []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"})

	want := []HostReport{
		{Address: "10.0.0.1"},
		{Address: "10.0.0.2", Open: []uint16{22}},
		{Address: "10.0.0.3"},
	}
	if !reflect.DeepEqual(rep.Hosts, want) {
		t.Fatalf("got %+v want %+v", rep.Hosts, want)
	}
	if rep.OpenCount() != 1 {
		t.Fatalf("OpenCount = %d", rep.OpenCount())
	}
	if got := len(d.Calls()); got != 3*port.Default().Len() {
		t.Fatalf("expected one attempt per address and port, got %d", got)
	}
}

func TestScanEmptyAddressList(t *testing.T) {
	e := New(Options{Dialer: &fakeDialer{}})
	rep := e.Scan(context.Background(), nil)
	if len(rep.Hosts) != 0 {
		t.Fatalf("expected empty report, got %+v", rep)
	}
}

func TestPooledScanKeepsAddressOrder(t *testing.T) {
	open := map[string]time.Duration{}
	var addrs []string
	for i := 1; i <= 20; i++ {
		a := fmt.Sprintf("10.0.0.%d", i)
		addrs = append(addrs, a)
		// later addresses answer faster so completion order is reversed
		open[a+":80"] = time.Duration(21-i) * time.Millisecond
	}
	e := New(Options{
		Dialer:  &fakeDialer{open: open},
		Catalog: catalogOf(80, 81),
		Workers: 8,
		Logger:  zaptest.NewLogger(t),
	})

	rep := e.Scan(context.Background(), addrs)
	if len(rep.Hosts) != len(addrs) {
		t.Fatalf("expected %d hosts, got %d", len(addrs), len(rep.Hosts))
	}
	for i, h := range rep.Hosts {
		if h.Address != addrs[i] {
			t.Fatalf("host %d is %s, want %s", i, h.Address, addrs[i])
		}
		if !reflect.DeepEqual(h.Open, []uint16{80}) {
			t.Fatalf("host %s open %v", h.Address, h.Open)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	e := New(Options{})
	if e.timeout != DefaultTimeout || e.workers != 1 {
		t.Fatalf("defaults not applied: timeout=%v workers=%d", e.timeout, e.workers)
	}
	if !reflect.DeepEqual(e.Catalog().Ports(), port.Default().Ports()) {
		t.Fatal("default catalog not applied")
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyDialErr(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&net.OpError{Err: timeoutError{}}, "timeout"},
		{context.DeadlineExceeded, "timeout"},
		{&net.OpError{Err: syscall.ECONNREFUSED}, "refused"},
		{&net.OpError{Err: syscall.EHOSTUNREACH}, "unreachable"},
		{&net.OpError{Err: &net.DNSError{Err: "no such host", Name: "x"}}, "resolve"},
		{errors.New("boom"), "error"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			if got := classifyDialErr(tc.err); got != tc.want {
				t.Fatalf("classifyDialErr(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestProbeLoopback(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		if shouldSkipListen(err) {
			t.Skipf("skipping loopback test: %v", err)
		}
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	openPort := uint16(l.Addr().(*net.TCPAddr).Port)

	// grab a port that is free right now for the closed case
	l2, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedPort := uint16(l2.Addr().(*net.TCPAddr).Port)
	_ = l2.Close()

	e := New(Options{Catalog: catalogOf(closedPort, openPort), Timeout: time.Second})
	h := e.ScanAddress(context.Background(), "127.0.0.1")
	_ = l.Close()

	if !reflect.DeepEqual(h.Open, []uint16{openPort}) {
		t.Fatalf("expected only %d open, got %v", openPort, h.Open)
	}
}

func shouldSkipListen(err error) bool {
	if errors.Is(err, syscall.EPERM) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") || strings.Contains(msg, "operation not permitted")
}
