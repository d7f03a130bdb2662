package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestEndpoint(t *testing.T) {
	got := Endpoint("game.example.com:8080", "10001")
	want := "ws://game.example.com:8080/MineSweepingWar/socket/pvp/10001"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestHeaders(t *testing.T) {
	h := Headers("10001", "secret", 42, time.UnixMilli(1700000000000))

	want := map[string]string{
		"uid":        "10001",
		"token":      "secret",
		"time-stamp": "1700000000000",
		"api-key":    "3e7b85db7f5ae09f835882d11a0c5d87",
		"version":    "42",
		"channel":    "Android",
		"User-Agent": "okhttp/4.7.2",
	}
	for key, value := range want {
		if got := h.Get(key); got != value {
			t.Fatalf("expected header %s=%q, got %q", key, value, got)
		}
	}
}

type server struct {
	*httptest.Server
	received chan string
	pings    chan struct{}
	headers  chan http.Header
	conns    chan *websocket.Conn
}

func newServer(t *testing.T, greeting string) *server {
	t.Helper()
	s := &server{
		received: make(chan string, 8),
		pings:    make(chan struct{}, 8),
		headers:  make(chan http.Header, 1),
		conns:    make(chan *websocket.Conn, 1),
	}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		s.headers <- r.Header
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.SetPingHandler(func(data string) error {
			select {
			case s.pings <- struct{}{}:
			default:
			}
			return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		})
		s.conns <- ws
		if greeting != "" {
			ws.WriteMessage(websocket.TextMessage, []byte(greeting))
		}
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			s.received <- string(msg)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *server) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func dial(t *testing.T, s *server, heartbeat time.Duration) *Conn {
	t.Helper()
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := Dial(ctx, Options{
		URL:       s.wsURL(),
		Header:    Headers("10001", "secret", 1, time.Now()),
		Heartbeat: heartbeat,
		Log:       logger,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func receive(t *testing.T, ch <-chan string) (string, bool) {
	t.Helper()
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return "", false
	}
}

func TestDial_ExchangesFrames(t *testing.T) {
	s := newServer(t, "hello")
	conn := dial(t, s, time.Second)

	h := <-s.headers
	if h.Get("uid") != "10001" || h.Get("channel") != "Android" {
		t.Fatalf("expected auth headers on the handshake, got %v", h)
	}

	if got, _ := receive(t, conn.Inbound()); got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
	if err := conn.Send("world"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got, _ := receive(t, s.received); got != "world" {
		t.Fatalf("expected world, got %q", got)
	}
}

func TestDial_ServerCloseEndsInbound(t *testing.T) {
	s := newServer(t, "")
	conn := dial(t, s, time.Second)

	ws := <-s.conns
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))

	if _, ok := receive(t, conn.Inbound()); ok {
		t.Fatal("expected inbound to be closed")
	}
	if err := conn.Err(); err != nil {
		t.Fatalf("expected a clean close, got %v", err)
	}
}

func TestDial_AbruptCloseRecordsError(t *testing.T) {
	s := newServer(t, "")
	conn := dial(t, s, time.Second)

	(<-s.conns).Close()

	if _, ok := receive(t, conn.Inbound()); ok {
		t.Fatal("expected inbound to be closed")
	}
	if conn.Err() == nil {
		t.Fatal("expected the broken connection to be reported")
	}
}

func TestDial_SendsHeartbeat(t *testing.T) {
	s := newServer(t, "")
	dial(t, s, 20*time.Millisecond)

	select {
	case <-s.pings:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a ping within the heartbeat interval")
	}
}

func TestDial_RejectedHandshake(t *testing.T) {
	s := newServer(t, "")
	logger, _ := test.NewNullLogger()

	_, err := Dial(context.Background(), Options{URL: s.wsURL(), Log: logger})
	if !errors.Is(err, ErrDial) {
		t.Fatalf("expected ErrDial, got %v", err)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected the status in the error, got %v", err)
	}
}

func TestClose_StopsSending(t *testing.T) {
	s := newServer(t, "")
	conn := dial(t, s, time.Second)

	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	conn.Close()

	if err := conn.Send("late"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, ok := receive(t, conn.Inbound()); ok {
		t.Fatal("expected inbound to be closed")
	}
	if err := conn.Err(); err != nil {
		t.Fatalf("expected no error after a local close, got %v", err)
	}
}
