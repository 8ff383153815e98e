package inspect

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/space/pkg/eventloop"
	"github.com/vango-dev/space/pkg/signal"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	srv   *Server
	loop  *eventloop.Loop
	http  *httptest.Server
	count *signal.Signal[int]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspect_test_total",
		Help: "Test counter",
	}))

	srv := New(nil, WithLogger(discard()), WithGatherer(reg))
	loop := eventloop.New(
		eventloop.WithLogger(discard()),
		eventloop.WithRuntimeOptions(signal.WithObserver(srv)),
	)
	srv.SetLoop(loop)

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	f := &fixture{srv: srv, loop: loop, http: httptest.NewServer(srv)}
	t.Cleanup(func() {
		srv.Close()
		f.http.Close()
		cancel()
	})

	err := loop.Do(ctx, func(rt *signal.Runtime) error {
		signal.Root(rt, func(func()) struct{} {
			srv.Track("counter", rt.CurrentNode())
			f.count = signal.NewSignal(rt, 0)
			signal.CreateEffect(rt, func(n int) int {
				f.count.Get()
				return n + 1
			}, 0)
			return struct{}{}
		})
		return nil
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return f
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(f.http.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok\n" {
		t.Errorf("GET /healthz = %d %q", resp.StatusCode, body)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/debug/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var stats StatsResponse
	if err := json.Unmarshal([]byte(body), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Runtime.ID == "" {
		t.Error("runtime id missing")
	}
	if stats.Runtime.RegistryEntries != 1 {
		t.Errorf("registry entries = %d, want 1", stats.Runtime.RegistryEntries)
	}
	if stats.Loop.Dispatched == 0 {
		t.Error("loop dispatch count missing")
	}
}

func TestTree(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/debug/tree")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var entries []TreeEntry
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "counter" {
		t.Fatalf("entries = %+v", entries)
	}
	root := entries[0].Root
	if root.Kind != "scope" || len(root.Children) != 1 || root.Children[0].Sources != 1 {
		t.Errorf("unexpected tree: %+v", root)
	}

	resp, body = f.get(t, "/debug/tree/counter")
	var one TreeEntry
	if resp.StatusCode != http.StatusOK || json.Unmarshal([]byte(body), &one) != nil || one.Name != "counter" {
		t.Errorf("GET /debug/tree/counter = %d %s", resp.StatusCode, body)
	}

	resp, _ = f.get(t, "/debug/tree/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown root status = %d, want 404", resp.StatusCode)
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "inspect_test_total") {
		t.Errorf("metrics output missing registered counter:\n%s", body)
	}
}

func TestNoLoop(t *testing.T) {
	srv := New(nil, WithLogger(discard()))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/stats", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestStoppedLoop(t *testing.T) {
	loop := eventloop.New(eventloop.WithLogger(discard()))
	loop.Close()
	srv := New(loop, WithLogger(discard()))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/tree", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestEventStream(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/debug/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg EventMessage
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != helloType {
		t.Fatalf("first message = %+v, %v; want hello", msg, err)
	}

	err = f.loop.Dispatch(func(*signal.Runtime) { f.count.Set(1) })
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	var got []string
	for len(got) < 3 {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v (got %v)", err, got)
		}
		got = append(got, msg.Type)
	}

	want := []string{"flush.start", "node.run", "flush.end"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("events = %v, want %v", got, want)
			break
		}
	}
}

func TestCloseDisconnectsClients(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/debug/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg EventMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("hello: %v", err)
	}
	if f.srv.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", f.srv.ClientCount())
	}

	f.srv.Close()
	if f.srv.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after Close", f.srv.ClientCount())
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection should be closed")
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	srv := New(nil, WithLogger(discard()), WithShutdownTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("ListenAndServe() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not return")
	}
}
