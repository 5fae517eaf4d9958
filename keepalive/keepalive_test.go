package keepalive_test

import (
	"net"
	"testing"
	"time"

	"github.com/soheilmv/mvnet/keepalive"
)

func testConfig() keepalive.Config {
	return keepalive.Config{
		MaxKeepAliveRequests: 2,
		IdleTimeout:          30 * time.Second,
		Reconnect:            true,
		ReconnectLimit:       3,
		ReconnectDelay:       time.Millisecond,
	}
}

func pipeConn(t *testing.T) net.Conn {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return a
}

func TestInstallThenReuse(t *testing.T) {
	c := keepalive.NewController(testConfig())
	origin := keepalive.Origin{Scheme: "https", Host: "example.com", Port: 443}
	c.Install(pipeConn(t), "direct", origin)

	slot, ok := c.Reuse("direct", origin, time.Now())
	if !ok || slot == nil {
		t.Fatal("expected slot to be reusable immediately after install")
	}
}

func TestReuseFailsOnOriginChange(t *testing.T) {
	c := keepalive.NewController(testConfig())
	origin := keepalive.Origin{Scheme: "https", Host: "example.com", Port: 443}
	c.Install(pipeConn(t), "direct", origin)

	other := keepalive.Origin{Scheme: "https", Host: "other.com", Port: 443}
	if _, ok := c.Reuse("direct", other, time.Now()); ok {
		t.Error("expected reuse to fail on origin change")
	}
}

func TestReuseFailsAfterConnectionClose(t *testing.T) {
	c := keepalive.NewController(testConfig())
	origin := keepalive.Origin{Scheme: "https", Host: "example.com", Port: 443}
	c.Install(pipeConn(t), "direct", origin)
	c.NoteResponse("", true, false)

	if _, ok := c.Reuse("direct", origin, time.Now()); ok {
		t.Error("expected reuse to fail after Connection: close")
	}
}

func TestReuseFailsAfterRequestCapExceeded(t *testing.T) {
	c := keepalive.NewController(testConfig()) // cap = 2
	origin := keepalive.Origin{Scheme: "https", Host: "example.com", Port: 443}
	c.Install(pipeConn(t), "direct", origin)

	c.NoteResponse("", false, false) // 1 served
	if _, ok := c.Reuse("direct", origin, time.Now()); !ok {
		t.Fatal("expected reuse to still be allowed after 1 request")
	}
	c.NoteResponse("", false, false) // 2 served, at cap
	if _, ok := c.Reuse("direct", origin, time.Now()); ok {
		t.Error("expected reuse to fail once the request cap is reached")
	}
}

func TestReuseFailsAfterIdleTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = time.Millisecond
	c := keepalive.NewController(cfg)
	origin := keepalive.Origin{Scheme: "https", Host: "example.com", Port: 443}
	c.Install(pipeConn(t), "direct", origin)

	future := time.Now().Add(time.Hour)
	if _, ok := c.Reuse("direct", origin, future); ok {
		t.Error("expected reuse to fail once the idle timeout has elapsed")
	}
}

func TestReuseFailsAfterLastError(t *testing.T) {
	c := keepalive.NewController(testConfig())
	origin := keepalive.Origin{Scheme: "https", Host: "example.com", Port: 443}
	c.Install(pipeConn(t), "direct", origin)
	c.NoteResponse("", false, true)

	if _, ok := c.Reuse("direct", origin, time.Now()); ok {
		t.Error("expected reuse to fail after a prior response error")
	}
}

func TestParseKeepAliveHeader(t *testing.T) {
	maxReq, timeout, ok := keepalive.ParseKeepAliveHeader("timeout=30, max=2")
	if !ok {
		t.Fatal("expected ok")
	}
	if maxReq != 2 {
		t.Errorf("maxReq = %d, want 2", maxReq)
	}
	if timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", timeout)
	}
}

func TestNoteResponseAppliesServerAdvertisedCap(t *testing.T) {
	c := keepalive.NewController(testConfig())
	origin := keepalive.Origin{Scheme: "https", Host: "example.com", Port: 443}
	c.Install(pipeConn(t), "direct", origin)

	c.NoteResponse("timeout=30, max=2", false, false)
	slot := c.Current()
	if slot.MaxRequests != 2 {
		t.Errorf("MaxRequests = %d, want 2 (server-advertised)", slot.MaxRequests)
	}
}

func TestReconnectDecisionRespectsLimit(t *testing.T) {
	c := keepalive.NewController(testConfig()) // limit 3
	if _, ok := c.ReconnectDecision(0); !ok {
		t.Error("expected retry at attempt 0")
	}
	if _, ok := c.ReconnectDecision(2); !ok {
		t.Error("expected retry at attempt 2")
	}
	if _, ok := c.ReconnectDecision(3); ok {
		t.Error("expected no retry once the limit is reached")
	}
}

func TestReconnectDecisionDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Reconnect = false
	c := keepalive.NewController(cfg)
	if _, ok := c.ReconnectDecision(0); ok {
		t.Error("expected no retry when Reconnect is disabled")
	}
}
