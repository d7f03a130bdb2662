// Package transport connects a bot account to the battle server over websocket.
package transport

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	socketPath = "/MineSweepingWar/socket/pvp/"
	userAgent  = "okhttp/4.7.2"
	channel    = "Android"

	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

var (
	// ErrDial wraps every failure to establish the connection
	ErrDial   = errors.New("transport: dial failed")
	ErrClosed = errors.New("transport: connection closed")
)

// Endpoint returns the battle socket URL of uid on host
func Endpoint(host, uid string) string {
	u := url.URL{Scheme: "ws", Host: host, Path: socketPath + uid}
	return u.String()
}

// APIKey signs a request: hex md5 of uid, token and timestamp followed by "api"
func APIKey(uid, token, timestamp string) string {
	sum := md5.Sum([]byte(uid + token + timestamp + "api"))
	return hex.EncodeToString(sum[:])
}

// Headers builds the handshake headers the server authenticates with
func Headers(uid, token string, version int, now time.Time) http.Header {
	ts := strconv.FormatInt(now.UnixMilli(), 10)

	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("channel", channel)
	h.Set("version", strconv.Itoa(version))
	h.Set("time-stamp", ts)
	h.Set("token", token)
	h.Set("uid", uid)
	h.Set("api-key", APIKey(uid, token, ts))
	return h
}

type Options struct {
	URL    string
	Header http.Header
	// Heartbeat is the ping interval; the read deadline is three heartbeats
	Heartbeat time.Duration
	Dialer    *websocket.Dialer
	Log       logrus.FieldLogger
}

// Conn is one live websocket connection. Frames arrive on Inbound, which is closed when the
// connection ends for any reason.
type Conn struct {
	ws        *websocket.Conn
	log       logrus.FieldLogger
	heartbeat time.Duration

	inbound chan string
	send    chan []byte
	done    chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Dial opens the connection and starts its read and write pumps
func Dial(ctx context.Context, opts Options) (*Conn, error) {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 10 * time.Second
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	ws, resp, err := dialer.DialContext(ctx, opts.URL, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: %s: %s: %v", ErrDial, opts.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrDial, opts.URL, err)
	}

	c := &Conn{
		ws:        ws,
		log:       opts.Log,
		heartbeat: opts.Heartbeat,
		inbound:   make(chan string, sendBuffer),
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
	c.log.WithField("url", opts.URL).Info("Connected")

	go c.readPump()
	go c.writePump()
	return c, nil
}

func (c *Conn) Inbound() <-chan string {
	return c.inbound
}

// Send queues a text frame for the write pump
func (c *Conn) Send(frame string) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- []byte(frame):
		return nil
	case <-c.done:
		return ErrClosed
	case <-time.After(writeWait):
		return fmt.Errorf("transport: send timeout")
	}
}

// Close sends a close frame and tears the connection down. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		err = c.ws.Close()
	})
	return err
}

// Err returns the error that ended the connection. A clean close by either side leaves it nil.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conn) fail(err error) {
	select {
	case <-c.done:
		return
	default:
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.Info("Server closed the connection")
		return
	}

	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
	c.log.WithError(err).Warn("Connection error")
}

func (c *Conn) readPump() {
	defer func() {
		close(c.inbound)
		c.Close()
	}()

	pongWait := 3 * c.heartbeat
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		// any traffic proves the peer is alive
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		if messageType != websocket.TextMessage {
			continue
		}

		select {
		case c.inbound <- string(message):
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.fail(err)
				c.Close()
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.fail(err)
				c.Close()
				return
			}

		case <-c.done:
			return
		}
	}
}
