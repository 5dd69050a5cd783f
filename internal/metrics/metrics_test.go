package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	server := httptest.NewServer(c.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(body)
}

func TestCollectorExposesProbeResults(t *testing.T) {
	c := NewCollector("192.0.2.1")
	c.ObserveProbe(true, 10*time.Millisecond)
	c.ObserveProbe(true, 20*time.Millisecond)
	c.ObserveProbe(false, 0)
	c.ObserveState(true)

	body := scrape(t, c)
	checks := []string{
		`cmon_probes_total{host="192.0.2.1",result="up"} 2`,
		`cmon_probes_total{host="192.0.2.1",result="down"} 1`,
		`cmon_connection_up{host="192.0.2.1"} 1`,
		`cmon_probe_rtt_seconds_count{host="192.0.2.1"} 2`,
	}
	for _, want := range checks {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in scrape:\n%s", want, body)
		}
	}
}

func TestCollectorTracksTransitionsAndState(t *testing.T) {
	c := NewCollector("h")
	c.ObserveTransition(false)
	c.ObserveTransition(true)
	c.ObserveTransition(false)
	c.ObserveState(false)

	body := scrape(t, c)
	checks := []string{
		`cmon_transitions_total{direction="down",host="h"} 2`,
		`cmon_transitions_total{direction="up",host="h"} 1`,
		`cmon_connection_up{host="h"} 0`,
	}
	for _, want := range checks {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in scrape:\n%s", want, body)
		}
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Serve(ctx, "127.0.0.1:0", NewCollector("h"))
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("metrics server did not shut down")
	}
}
