package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"autopvp/internal/session"
	"autopvp/internal/transport"
)

var errCrashed = errors.New("session crashed")

// link is a live connection the supervisor owns
type link interface {
	session.Conn
	Close() error
	Err() error
}

type runner interface {
	Run(ctx context.Context, conn session.Conn) error
}

// Delays is how long to wait before reconnecting, by how the last run ended
type Delays struct {
	Restart time.Duration
	Network time.Duration
	Crash   time.Duration
}

// Supervisor keeps one session connected until ctx ends
type Supervisor struct {
	Dial    func(ctx context.Context) (link, error)
	Session runner
	Delays  Delays
	Log     logrus.FieldLogger

	sleep func(ctx context.Context, d time.Duration) bool
}

func (s *Supervisor) Run(ctx context.Context) {
	sleep := s.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; ; attempt++ {
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			s.Log.Info("Supervisor stopping")
			return
		}

		delay := s.delayFor(err)
		log := s.Log.WithFields(logrus.Fields{"attempt": attempt, "retry_in": delay})
		if err != nil {
			log = log.WithError(err)
		}
		var status *session.StatusError
		switch {
		case errors.As(err, &status) && status.IncompatibleVersion():
			log.Error("Server rejected the client version, restarting")
		case delay == s.Delays.Crash:
			log.Error("Session crashed, restarting")
		default:
			log.Warn("Session ended, restarting")
		}

		if !sleep(ctx, delay) {
			s.Log.Info("Supervisor stopping")
			return
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errCrashed, r)
		}
	}()

	conn, err := s.Dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	err = s.Session.Run(ctx, conn)
	if errors.Is(err, session.ErrConnectionClosed) && conn.Err() != nil {
		return fmt.Errorf("%w: %w", err, conn.Err())
	}
	return err
}

// delayFor classifies how a run ended. Status codes and clean closes restart quickly,
// network trouble waits longer and anything unexpected waits longest.
func (s *Supervisor) delayFor(err error) time.Duration {
	var status *session.StatusError
	switch {
	case err == nil, errors.As(err, &status):
		return s.Delays.Restart
	case isNetwork(err):
		return s.Delays.Network
	case errors.Is(err, session.ErrConnectionClosed):
		return s.Delays.Restart
	default:
		return s.Delays.Crash
	}
}

func isNetwork(err error) bool {
	if errors.Is(err, transport.ErrDial) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
