package ws_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/kalcerwatch/kalcerwatch/internal/telemetry"
	wsHub "github.com/kalcerwatch/kalcerwatch/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

// fakeSource serves a mutable reading, or err when set.
type fakeSource struct {
	mu  sync.Mutex
	r   telemetry.Reading
	err error
}

func (f *fakeSource) Current(context.Context) (telemetry.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.r, f.err
}

func (f *fakeSource) set(r telemetry.Reading, err error) {
	f.mu.Lock()
	f.r, f.err = r, err
	f.mu.Unlock()
}

func newSource(hr float64) *fakeSource {
	r := telemetry.FallbackReading()
	r.HeartRate = hr
	return &fakeSource{r: r}
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
// Returns the ws:// URL, the hub, and a cancel function.
func startHub(t *testing.T, src wsHub.Source) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(src, testInterval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one message from conn with a short deadline and decodes it.
func readMessage(t *testing.T, conn *websocket.Conn) wsHub.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m wsHub.Message
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return m
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateReading(t *testing.T) {
	wsURL, _, _ := startHub(t, newSource(72))

	m := readMessage(t, dial(t, wsURL))
	if m.Event != "reading" {
		t.Errorf("event: got %q, want reading", m.Event)
	}
	if m.Data.HeartRate != 72 {
		t.Errorf("heartRate: got %v, want 72", m.Data.HeartRate)
	}
	if _, err := time.Parse(time.RFC3339, m.SentAt); err != nil {
		t.Errorf("sent_at %q: %v", m.SentAt, err)
	}
}

func TestHub_WireFormat(t *testing.T) {
	wsURL, _, _ := startHub(t, newSource(72))
	conn := dial(t, wsURL)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var m map[string]interface{}
	json.Unmarshal(data, &m) //nolint:errcheck
	d, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	for _, k := range []string{"heartRate", "activity", "anomaly", "magnitude", "hrStable", "isAnomalous", "temperature"} {
		if _, ok := d[k]; !ok {
			t.Errorf("data.%s: missing", k)
		}
	}
}

func TestHub_CountClients_MultipleClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, newSource(72))

	for i := 0; i < 3; i++ {
		conn := dial(t, wsURL)
		readMessage(t, conn) // consume initial message
	}

	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}
}

func TestHub_CountClients_DecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, newSource(72))

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	src := newSource(72)
	wsURL, _, _ := startHub(t, src)

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume immediate reading

	next := telemetry.FallbackReading()
	next.HeartRate = 130
	next.Anomaly = "Jatuh"
	src.set(next, nil)

	// Ticks may deliver the old reading once more before the change lands.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m := readMessage(t, conn); m.Data.HeartRate == 130 {
			if m.Data.Anomaly != "Jatuh" {
				t.Errorf("anomaly: got %q, want Jatuh", m.Data.Anomaly)
			}
			return
		}
	}
	t.Fatal("no broadcast carried the updated reading")
}

func TestHub_SourceError_SkipsMessages(t *testing.T) {
	src := &fakeSource{err: errors.New("store down")}
	wsURL, hub, _ := startHub(t, src)

	conn := dial(t, wsURL)
	conn.SetReadDeadline(time.Now().Add(3 * testInterval)) //nolint:errcheck
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected no message while the source fails")
	}
	if n := hub.Count(); n != 1 {
		t.Errorf("Count: got %d, want 1 (client stays connected)", n)
	}
}

func TestHub_TrackClients(t *testing.T) {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_ws_clients"})
	src := newSource(72)
	hub := wsHub.New(src, testInterval)
	hub.TrackClients(g)

	srv := httptest.NewServer(hub)
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge write: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 1 {
		t.Errorf("gauge: got %v, want 1", got)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newSource(72))

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel() // signal shutdown

	// After cancel, hub should close all clients.
	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_ConnectAfterShutdown_GetsReadingThenClose(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newSource(64))
	cancel()
	time.Sleep(50 * time.Millisecond)

	conn := dial(t, wsURL)
	if m := readMessage(t, conn); m.Data.HeartRate != 64 {
		t.Errorf("heartRate: got %v, want 64", m.Data.HeartRate)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNoStatusReceived) {
		t.Errorf("second read: got %v, want close frame", err)
	}
	if n := hub.Count(); n != 0 {
		t.Errorf("Count: got %d, want 0", n)
	}
}

func TestHub_ConnectDuringShutdown(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newSource(72))

	// Clients arriving while Run is closing the hub must either be closed
	// with the rest or turned away; neither path may touch a closed channel.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		if i == 10 {
			cancel()
		}
	}
	wg.Wait()

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after shutdown: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(newSource(72), testInterval)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	// Plain HTTP GET without WebSocket upgrade headers → 400
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
