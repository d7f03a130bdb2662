package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"autopvp/internal/config"
	"autopvp/internal/envelope"
	"autopvp/internal/session"
	"autopvp/internal/transport"
)

var delays = Delays{Restart: 3 * time.Second, Network: 30 * time.Second, Crash: 300 * time.Second}

type stubLink struct {
	inbound chan string
	err     error
	closed  bool
}

func (l *stubLink) Send(string) error { return nil }
func (l *stubLink) Inbound() <-chan string { return l.inbound }
func (l *stubLink) Close() error {
	l.closed = true
	return nil
}

func (l *stubLink) Err() error { return l.err }

type runFunc func(ctx context.Context, conn session.Conn) error

func (f runFunc) Run(ctx context.Context, conn session.Conn) error { return f(ctx, conn) }

func TestSupervisor_DelayFor(t *testing.T) {
	s := &Supervisor{Delays: delays}
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"clean end", nil, delays.Restart},
		{"status code", &session.StatusError{Code: 10100}, delays.Restart},
		{"closed by server", session.ErrConnectionClosed, delays.Restart},
		{"dial failure", fmt.Errorf("%w: refused", transport.ErrDial), delays.Network},
		{"reset", fmt.Errorf("%w: %w", session.ErrConnectionClosed, &net.OpError{Op: "read", Err: errors.New("connection reset")}), delays.Network},
		{"abnormal close", fmt.Errorf("%w: %w", session.ErrConnectionClosed, &websocket.CloseError{Code: websocket.CloseAbnormalClosure}), delays.Network},
		{"decode", fmt.Errorf("%w: bad frame", session.ErrDecode), delays.Crash},
		{"panic", fmt.Errorf("%w: boom", errCrashed), delays.Crash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.delayFor(tt.err); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSupervisor_RestartsUntilCancelled(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var links []*stubLink
	dials := 0
	s := &Supervisor{
		Dial: func(context.Context) (link, error) {
			dials++
			if dials == 2 {
				return nil, fmt.Errorf("%w: refused", transport.ErrDial)
			}
			l := &stubLink{inbound: make(chan string)}
			if dials == 3 {
				l.err = &websocket.CloseError{Code: websocket.CloseAbnormalClosure}
			}
			links = append(links, l)
			return l, nil
		},
		Session: runFunc(func(ctx context.Context, conn session.Conn) error {
			if dials == 4 {
				panic("unexpected state")
			}
			return session.ErrConnectionClosed
		}),
		Delays: delays,
		Log:    logger,
	}

	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) bool {
		slept = append(slept, d)
		if len(slept) == 4 {
			cancel()
			return false
		}
		return true
	}
	s.Run(ctx)

	want := []time.Duration{delays.Restart, delays.Network, delays.Network, delays.Crash}
	if diff := cmp.Diff(want, slept); diff != "" {
		t.Fatalf("delays mismatch (-want +got):\n%s", diff)
	}
	for i, l := range links {
		if !l.closed {
			t.Fatalf("expected connection %d to be closed", i)
		}
	}
}

func TestSupervisor_StopsWhenContextEnds(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())

	runs := 0
	s := &Supervisor{
		Dial: func(context.Context) (link, error) {
			return &stubLink{inbound: make(chan string)}, nil
		},
		Session: runFunc(func(ctx context.Context, conn session.Conn) error {
			runs++
			cancel()
			return ctx.Err()
		}),
		Delays: delays,
		Log:    logger,
		sleep: func(context.Context, time.Duration) bool {
			t.Fatal("expected no retry after cancellation")
			return false
		},
	}
	s.Run(ctx)

	if runs != 1 {
		t.Fatalf("expected 1 run, got %d", runs)
	}
}

func TestUntilNextHour(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	tests := []struct {
		now  time.Time
		want time.Duration
	}{
		{time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC), 45 * time.Minute},
		{time.Date(2024, 5, 1, 23, 59, 30, 0, time.UTC), 30 * time.Second},
		{time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), time.Hour},
		{time.Date(2024, 5, 1, 10, 20, 0, 0, loc), 40 * time.Minute},
	}
	for _, tt := range tests {
		if got := untilNextHour(tt.now); got != tt.want {
			t.Fatalf("%s: expected %s, got %s", tt.now, tt.want, got)
		}
	}
}

func TestRunHourly_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runHourly(ctx, func() { t.Error("unexpected call") })
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runHourly did not stop")
	}
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "autopvp-{time}.log")
	now := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)

	logger, closeLog, err := newLogger("debug", path, now)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}
	logger.Debug("hello file")
	closeLog()

	want := strings.ReplaceAll(path, "{time}", "20240501-101500")
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("expected log file %s: %v", want, err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Fatalf("expected the message in the log file, got %q", data)
	}

	if _, _, err := newLogger("chatty", "", now); err == nil {
		t.Fatal("expected an unknown level to fail")
	}
}

func TestNewCodec(t *testing.T) {
	plain, err := newCodec(&config.Config{})
	if err != nil {
		t.Fatalf("newCodec: %v", err)
	}
	if _, ok := plain.(envelope.Plain); !ok {
		t.Fatalf("expected the plain codec without a key, got %T", plain)
	}

	aes, err := newCodec(&config.Config{Key: "0123456789abcdef", Salt: "pepper", VerifyDigest: true})
	if err != nil {
		t.Fatalf("newCodec: %v", err)
	}
	if _, ok := aes.(*envelope.AES); !ok {
		t.Fatalf("expected the AES codec with a key, got %T", aes)
	}

	if _, err := newCodec(&config.Config{Key: "short"}); err == nil {
		t.Fatal("expected a bad key to fail")
	}
}
