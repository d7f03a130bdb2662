package session

import (
	"fmt"
	"math"
	"strconv"

	"autopvp/internal/board"
	"autopvp/internal/envelope"
	"autopvp/internal/protocol"
)

func isLevelVerb(s string) bool {
	return s == "level" || s == "lv" || s == "lvl"
}

// parseCommand answers an opponent's chat command. It never fails: anything it does not
// understand is answered with the invalid syntax message.
func (s *Session) parseCommand(tokens []string) (reply envelope.Command) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("Chat command %q panicked: %v", tokens, r)
			reply = protocol.Message(msgInvalidSyntax)
		}
	}()

	if len(tokens) == 0 {
		return protocol.Message(msgInvalidSyntax)
	}

	if isLevelVerb(tokens[0]) {
		if len(tokens) == 1 {
			return s.levelStatus()
		}
		switch tokens[1] {
		case "up", "u":
			s.tuner.Up()
			s.log.Infof("Leveling up to %.3f", s.tuner.Level())
		case "down", "d":
			s.tuner.Down()
			s.log.Infof("Leveling down to %.3f", s.tuner.Level())
		case "status", "s":
		case "holdon", "n":
			s.tuner.SetHold(true)
			s.log.Info("Level will not change automatically")
		case "holdoff", "f":
			s.tuner.SetHold(false)
			s.log.Info("Level will change automatically")
		default:
			level, err := strconv.ParseFloat(tokens[1], 64)
			if err != nil || math.IsNaN(level) || math.IsInf(level, 0) {
				return protocol.Message(msgInvalidSyntax)
			}
			if err := s.tuner.Set(level); err != nil {
				s.log.WithError(err).Warn("Rejected level change")
				b := s.tuner.Bounds()
				return protocol.Message(fmt.Sprintf(msgLevelBounds, b.MinLevel, b.MaxLevel))
			}
			s.log.Infof("Changing level to %.3f", level)
		}
		return s.levelStatus()
	}

	d, err := board.ParseDifficulty(tokens[0])
	if err != nil {
		return protocol.Message(msgInvalidSyntax)
	}
	s.log.WithField("difficulty", d).Info("Setting room mode")
	return protocol.EditRoom(s.cfg.Room.WithDifficulty(d), s.roomTitle())
}

func (s *Session) levelStatus() envelope.Command {
	return protocol.Message(fmt.Sprintf(msgLevelStatus, s.tuner.Level()))
}
