package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"autopvp/internal/envelope"
	"autopvp/internal/protocol"
)

const (
	botUID = "bot"
	oppUID = "op"
)

type fakeConn struct {
	mu      sync.Mutex
	frames  []string
	inbound chan string
	notify  chan string
	fail    error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan string, 32),
		notify:  make(chan string, 64),
	}
}

func (c *fakeConn) Send(frame string) error {
	if c.fail != nil {
		return c.fail
	}
	c.mu.Lock()
	c.frames = append(c.frames, frame)
	c.mu.Unlock()
	select {
	case c.notify <- frame:
	default:
	}
	return nil
}

func (c *fakeConn) Inbound() <-chan string { return c.inbound }

// take returns the commands sent since the last call
func (c *fakeConn) take(t *testing.T) []envelope.Command {
	t.Helper()
	c.mu.Lock()
	frames := c.frames
	c.frames = nil
	c.mu.Unlock()

	cmds := make([]envelope.Command, 0, len(frames))
	for _, f := range frames {
		cmd, err := envelope.DecodeCommand(envelope.Plain{}, f)
		if err != nil {
			t.Fatalf("decoding sent frame %q: %v", f, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type denySet map[string]bool

func (d denySet) Contains(_ context.Context, uid string) (bool, error) {
	return d[uid], nil
}

type brokenDenyList struct{}

func (brokenDenyList) Contains(context.Context, string) (bool, error) {
	return false, errors.New("database is locked")
}

type harness struct {
	t     *testing.T
	s     *Session
	conn  *fakeConn
	clock *fakeClock
}

func newHarness(t *testing.T, deny DenyList, quotas *QuotaBook) *harness {
	t.Helper()
	logger, _ := test.NewNullLogger()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	if quotas == nil {
		quotas = NewQuotaBook(5, 10)
	}
	s := New(Config{
		UID:     botUID,
		Version: 9,
		Room:    protocol.DefaultRoomConfig(),
		WarmUp:  6 * time.Second,
	}, Deps{
		DenyList: deny,
		Quotas:   quotas,
		Clock:    clock,
		Log:      logger,
	})
	conn := newFakeConn()
	s.attach(conn)
	return &harness{t: t, s: s, conn: conn, clock: clock}
}

func (h *harness) feed(payload string) {
	h.t.Helper()
	if err := h.s.handleFrame(context.Background(), payload); err != nil {
		h.t.Fatalf("handleFrame(%s): %v", payload, err)
	}
}

// advance moves the clock forward and runs whatever came due
func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	h.clock.now = h.clock.now.Add(d)
	if err := h.s.runDue(); err != nil {
		h.t.Fatalf("runDue: %v", err)
	}
}

func (h *harness) sent() []envelope.Command {
	h.t.Helper()
	return h.conn.take(h.t)
}

// joinOpponent seats an opponent whose rating seeds level 3.0 and discards the greeting
func (h *harness) joinOpponent() {
	h.t.Helper()
	h.feed(userEntered(oppUID, 5, false))
	h.feed(roomUpdate(openRoom(false, oppUID, botUID)))
	h.sent()
}

// startBattle brings the room into a battle and discards the board request
func (h *harness) startBattle() {
	h.t.Helper()
	h.joinOpponent()
	h.feed(roomUpdate(openRoom(true, oppUID, botUID)))
	h.sent()
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func pvpUser(uid string) map[string]any {
	return map[string]any{"pvp": map[string]any{"uid": uid}}
}

func userEntered(uid string, rating float64, vip bool) string {
	user := pvpUser(uid)
	user["user"] = map[string]any{"timingLevel": rating, "vip": vip}
	return mustJSON(map[string]any{"url": protocol.EventUserEntered, "user": user})
}

func userLeft(uid string) string {
	return mustJSON(map[string]any{"url": protocol.EventUserLeft, "user": pvpUser(uid)})
}

func readyChanged(uid string, ready bool) string {
	return mustJSON(map[string]any{"url": protocol.EventReady, "uid": uid, "ready": ready})
}

func roomUpdate(room protocol.Room) string {
	return mustJSON(map[string]any{"url": protocol.EventRoomUpdate, "room": room})
}

// openRoom lists uids in order under the rules the bot accepts
func openRoom(gaming bool, uids ...string) protocol.Room {
	room := protocol.Room{
		UserIDList:          uids,
		Gaming:              gaming,
		MinesweeperAutoOpen: true,
		Round:               1,
		MaxNumber:           2,
	}
	for _, uid := range uids {
		room.Users = append(room.Users, protocol.RoomUser{PVP: protocol.PVPUser{UID: uid}})
	}
	return room
}

func chat(uid, text string) string {
	return mustJSON(map[string]any{
		"url": protocol.EventRoomMessage,
		"msg": map[string]any{"user": map[string]any{"uid": uid}, "message": text},
	})
}

func boardInfo(rows ...string) string {
	cells := strings.Join(rows, "-") + "-"
	return mustJSON(map[string]any{"url": protocol.EventBoardInfo, "cells": []string{cells}})
}

func progress(uid string, bv int) string {
	return mustJSON(map[string]any{"url": protocol.EventProgress, "uid": uid, "bv": bv})
}

func win(uid string) string {
	return mustJSON(map[string]any{"url": protocol.EventWin, "users": []any{pvpUser(uid)}})
}

func urls(cmds []envelope.Command) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.URL())
	}
	return out
}

func field(t *testing.T, cmd envelope.Command, key string) any {
	t.Helper()
	v, ok := cmd.Get(key)
	if !ok {
		t.Fatalf("expected %s to carry %q", cmd.URL(), key)
	}
	return v
}

func text(t *testing.T, cmd envelope.Command) string {
	t.Helper()
	if cmd.URL() != protocol.URLRoomMessage {
		t.Fatalf("expected a chat message, got %s", cmd.URL())
	}
	s, _ := field(t, cmd, "msg").(string)
	return s
}
