// Package session drives one bot account through the room and battle protocol.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"autopvp/internal/envelope"
	"autopvp/internal/protocol"
	"autopvp/internal/skill"
)

// State is where the bot is in the room lifecycle
type State int

const (
	Idle State = iota
	Waiting
	Gaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Waiting:
		return "WAITING"
	case Gaming:
		return "GAMING"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrConnectionClosed = errors.New("session: connection closed")
	// ErrDecode marks frames that cannot be decoded or violate the protocol shape
	ErrDecode = errors.New("session: decode error")
)

// StatusError is an out-of-band status code sent instead of an event
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	if e.IncompatibleVersion() {
		return fmt.Sprintf("session: server status %d: incompatible client version", e.Code)
	}
	return fmt.Sprintf("session: server status %d", e.Code)
}

func (e *StatusError) IncompatibleVersion() bool {
	return e.Code == protocol.CodeIncompatibleVersion
}

// Conn is the transport a session runs over
type Conn interface {
	Send(frame string) error
	Inbound() <-chan string
}

// DenyList answers whether an opponent is banned
type DenyList interface {
	Contains(ctx context.Context, uid string) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds the per-account settings of a session
type Config struct {
	UID     string
	Version int
	Bounds  skill.Bounds
	Room    protocol.RoomConfig
	// WarmUp is the pause between seeing the board and the first move
	WarmUp time.Duration
	// LowQuota is the remaining count at which opponents get reminded
	LowQuota int
}

type Deps struct {
	Codec    envelope.Codec
	DenyList DenyList
	Quotas   *QuotaBook
	Clock    Clock
	Log      logrus.FieldLogger
}

// Stats are per-process counters
type Stats struct {
	Connections int
	Battles     int
	Wins        int
	Losses      int
	Kicks       int
}

// Session owns all room, battle and level state of one account. Only the goroutine in Run
// touches it, except Stats and ResetQuotas which are safe to call from anywhere.
type Session struct {
	cfg    Config
	codec  envelope.Codec
	deny   DenyList
	quotas *QuotaBook
	clock  Clock
	base   logrus.FieldLogger
	log    logrus.FieldLogger

	tuner *skill.Tuner

	conn     Conn
	state    State
	opponent string
	roomID   string
	resumed  bool
	battle   *battle

	// announced tracks the level status sent to the current opponent
	announced      bool
	announcedLevel float64

	agenda    []task
	busyUntil time.Time

	statsMu sync.Mutex
	stats   Stats
}

var newRoomID = func() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
}

func New(cfg Config, deps Deps) *Session {
	if deps.Codec == nil {
		deps.Codec = envelope.Plain{}
	}
	if deps.Quotas == nil {
		deps.Quotas = NewQuotaBook(10, 20)
	}
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if cfg.Bounds.MaxLevel == 0 {
		cfg.Bounds = skill.DefaultBounds()
	}
	if cfg.LowQuota == 0 {
		cfg.LowQuota = 3
	}

	base := deps.Log.WithField("uid", cfg.UID)
	return &Session{
		cfg:     cfg,
		codec:   deps.Codec,
		deny:    deps.DenyList,
		quotas:  deps.Quotas,
		clock:   deps.Clock,
		base:    base,
		log:     base,
		tuner:   skill.NewTuner(cfg.Bounds),
		resumed: true,
	}
}

func (s *Session) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

func (s *Session) count(fn func(*Stats)) {
	s.statsMu.Lock()
	fn(&s.stats)
	s.statsMu.Unlock()
}

// ResetQuotas restores every opponent's battle quota. Level and gain factors are untouched.
func (s *Session) ResetQuotas() {
	exhausted := 0
	snap := s.quotas.Snapshot()
	for _, q := range snap {
		if q.Remaining <= 0 {
			exhausted++
		}
	}
	s.quotas.ResetAll()
	s.base.WithFields(logrus.Fields{"opponents": len(snap), "exhausted": exhausted}).Info("Opponent quotas reset")
}

// Level returns the current skill level. Not safe while Run is active.
func (s *Session) Level() float64 {
	return s.tuner.Level()
}

func (s *Session) State() State {
	return s.state
}

// Run enters the lobby and processes frames until the connection closes, ctx ends, or a
// fatal frame arrives. Level, gain factors and quotas survive across runs; room and battle
// state do not.
func (s *Session) Run(ctx context.Context, conn Conn) error {
	s.attach(conn)
	defer s.detach()

	if err := s.send(protocol.Enter(s.cfg.Version)); err != nil {
		return err
	}

	for {
		var due <-chan time.Time
		var timer *time.Timer
		if at, ok := s.nextDue(); ok {
			timer = time.NewTimer(at.Sub(s.clock.Now()))
			due = timer.C
		}

		var err error
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case frame, ok := <-conn.Inbound():
			if !ok {
				err = ErrConnectionClosed
			} else {
				err = s.handleFrame(ctx, frame)
			}
		case <-due:
			err = s.runDue()
		}

		if timer != nil {
			timer.Stop()
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) attach(conn Conn) {
	s.conn = conn
	s.log = s.base.WithField("conn", uuid.NewString()[:8])
	s.state = Idle
	s.opponent = ""
	s.resumed = true
	s.announced = false
	s.battle = nil
	s.cancelAgenda()
	s.count(func(st *Stats) { st.Connections++ })
}

func (s *Session) detach() {
	s.cancelAgenda()
	s.battle = nil
	s.conn = nil
}

func (s *Session) send(cmd envelope.Command) error {
	if s.conn == nil {
		return ErrConnectionClosed
	}
	frame, err := s.codec.Encode(cmd)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", cmd.URL(), err)
	}
	s.log.Debugf("[Send][->] %s", frame)
	if err := s.conn.Send(frame); err != nil {
		return fmt.Errorf("session: send %s: %w", cmd.URL(), err)
	}
	return nil
}

func (s *Session) handleFrame(ctx context.Context, frame string) error {
	payload, err := s.codec.Decode(frame)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	s.log.Debugf("[Recv][<-] %s", payload)

	ev, err := protocol.DecodeEvent(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return s.handle(ctx, ev)
}

func (s *Session) roomTitle() string {
	return fmt.Sprintf(roomTitleFormat, s.roomID)
}

func (s *Session) denied(ctx context.Context, uid string) bool {
	if s.deny == nil || uid == "" {
		return false
	}
	banned, err := s.deny.Contains(ctx, uid)
	if err != nil {
		s.log.WithError(err).WithField("opponent", uid).Warn("Deny-list lookup failed, treating opponent as allowed")
		return false
	}
	return banned
}
