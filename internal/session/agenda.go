package session

import "time"

// task is a delayed action on the session goroutine
type task struct {
	due time.Time
	run func() error
}

// schedule queues fn behind every earlier task, as if the bot handled one thing at a time:
// fn runs once the previous task's hold has elapsed, then keeps the bot busy for hold.
// With an empty agenda and no pending hold, fn runs immediately.
func (s *Session) schedule(hold time.Duration, fn func() error) error {
	now := s.clock.Now()
	at := now
	if s.busyUntil.After(at) {
		at = s.busyUntil
	}
	s.busyUntil = at.Add(hold)

	if len(s.agenda) == 0 && !at.After(now) {
		return fn()
	}
	s.agenda = append(s.agenda, task{due: at, run: fn})
	return nil
}

func (s *Session) nextDue() (time.Time, bool) {
	if len(s.agenda) == 0 {
		return time.Time{}, false
	}
	return s.agenda[0].due, true
}

// runDue runs every task that has come due, in order
func (s *Session) runDue() error {
	now := s.clock.Now()
	for len(s.agenda) > 0 && !s.agenda[0].due.After(now) {
		t := s.agenda[0]
		s.agenda = s.agenda[1:]
		if err := t.run(); err != nil {
			return err
		}
	}
	return nil
}

// cancelAgenda drops pending tasks, used when the battle they belong to is over
func (s *Session) cancelAgenda() {
	if len(s.agenda) > 0 {
		s.log.Debugf("Cancelled %d pending actions", len(s.agenda))
	}
	s.agenda = nil
	s.busyUntil = time.Time{}
}
