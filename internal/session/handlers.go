package session

import (
	"context"
	"fmt"
	"strings"

	"autopvp/internal/protocol"
)

func (s *Session) handle(ctx context.Context, ev protocol.Event) error {
	switch e := ev.(type) {
	case protocol.Status:
		s.log.WithField("code", e.Code).Warn("Server sent a status code instead of an event")
		if e.Code == protocol.CodeIncompatibleVersion {
			s.log.Error("Incompatible client version, update the configured version number")
		}
		return &StatusError{Code: e.Code}
	case protocol.RoomExited:
		return s.onRoomExited()
	case protocol.Unknown:
		s.log.Debugf("Ignoring %s", e.URL)
		return nil
	}

	if s.state == Gaming {
		switch e := ev.(type) {
		case protocol.BoardRevealed:
			return s.onBoardRevealed(e)
		case protocol.ProgressReported:
			return s.onProgress(e)
		case protocol.BattleWon:
			return s.onBattleWon(e)
		case protocol.UserRanAway:
			if e.UID == s.opponent {
				s.log.Info("The opponent ran away")
			}
			return nil
		}
	} else {
		switch e := ev.(type) {
		case protocol.LobbyEntered:
			return s.createRoom()
		case protocol.UserEntered:
			return s.onUserEntered(ctx, e)
		case protocol.UserLeft:
			return s.onUserLeft(ctx, e)
		case protocol.ReadyChanged:
			if e.UID == s.opponent && e.Ready {
				s.log.Info("The opponent got ready, starting the battle")
				return s.send(protocol.Start())
			}
			return nil
		case protocol.RoomUpdated:
			return s.onRoomUpdated(ctx, e.Room)
		case protocol.ChatMessage:
			return s.onChat(e)
		}
	}

	s.log.Debugf("Ignoring %s while %s", protocol.Name(ev), s.state)
	return nil
}

func (s *Session) createRoom() error {
	s.roomID = newRoomID()
	s.log.WithField("room", s.roomID).Info("Creating a battle room")
	return s.send(protocol.CreateRoom(s.cfg.Room, s.roomTitle()))
}

func (s *Session) onUserEntered(ctx context.Context, e protocol.UserEntered) error {
	if e.UID == s.cfg.UID {
		return nil
	}

	s.opponent = e.UID
	s.resumed = false
	s.announced = false
	s.tuner.SeedFromRating(e.TimingLevel)
	left := s.quotas.Seed(e.UID, e.VIP)

	log := s.log.WithField("opponent", e.UID)
	log.WithField("level", s.tuner.Level()).Info("An opponent entered the room")

	if left <= 0 || s.denied(ctx, e.UID) {
		log.WithField("quota", left).Info("Kicking the opponent out")
		s.count(func(st *Stats) { st.Kicks++ })
		return s.send(protocol.Kick(e.UID))
	}
	return s.send(protocol.Message(msgGreeting))
}

func (s *Session) onUserLeft(ctx context.Context, e protocol.UserLeft) error {
	if e.UID != s.opponent {
		return nil
	}
	if s.denied(ctx, e.UID) {
		s.log.Info("The banned opponent was kicked out of the room")
	} else {
		s.log.Info("The opponent left the room")
	}
	return nil
}

func (s *Session) onRoomUpdated(ctx context.Context, room protocol.Room) error {
	if !room.HasUser(s.cfg.UID) {
		return nil
	}
	if room.Expired {
		s.log.Info("The room has expired")
	}

	if room.Gaming {
		return s.beginBattle()
	}

	if s.state == Idle {
		s.log.WithField("room", s.roomID).Info("Waiting for an opponent")
	}
	s.state = Waiting

	if !s.resumed && (!s.announced || s.announcedLevel != s.tuner.Level()) {
		if err := s.send(s.levelStatus()); err != nil {
			return err
		}
		s.announced = true
		s.announcedLevel = s.tuner.Level()
	}

	if s.opponent != "" {
		left, _ := s.quotas.Remaining(s.opponent)
		if left <= s.cfg.LowQuota {
			if err := s.send(protocol.Message(fmt.Sprintf(msgGamesLeft, left))); err != nil {
				return err
			}
		}
		if left <= 0 {
			s.log.WithField("opponent", s.opponent).Info("Quota used up, leaving the room")
			return s.send(protocol.Exit())
		}
	}

	if s.opponent != "" && room.FirstUser() == s.opponent {
		if room.Acceptable() {
			s.log.Info("Room rules accepted, getting ready")
			if err := s.send(protocol.Ready(true)); err != nil {
				return err
			}
		} else {
			s.log.Warn("Room rules violate the battle policy, refusing to get ready")
			if err := s.send(protocol.Message(msgRoomRules)); err != nil {
				return err
			}
		}
	}

	opponentGone := len(room.UserIDList) != 2 || !room.HasUser(s.opponent)
	if s.opponent != "" && opponentGone && !s.resumed && !s.denied(ctx, s.opponent) {
		s.log.Info("Restoring the room configuration")
		if err := s.send(protocol.EditRoom(s.cfg.Room, s.roomTitle())); err != nil {
			return err
		}
		s.resumed = true
	}
	return nil
}

func (s *Session) onRoomExited() error {
	s.log.Info("The bot left the room, re-creating it")
	s.tuner.Reset()
	s.opponent = ""
	s.battle = nil
	s.cancelAgenda()
	s.state = Idle
	return s.createRoom()
}

func (s *Session) onChat(e protocol.ChatMessage) error {
	if s.opponent == "" || e.UID != s.opponent {
		return nil
	}
	tokens := strings.Fields(e.Text)
	if len(tokens) == 0 {
		return nil
	}
	return s.send(s.parseCommand(tokens))
}
