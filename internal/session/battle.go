package session

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"autopvp/internal/board"
	"autopvp/internal/protocol"
	"autopvp/internal/skill"
)

// battle is the state of one game, dropped when it ends
type battle struct {
	opponent   string
	revealed   bool
	result     board.Result
	difficulty board.Difficulty
	level      float64
	rate       float64

	startedAt      time.Time
	finishedAt     time.Time
	opponentSolved int
}

func (b *battle) started() bool {
	return !b.startedAt.IsZero()
}

func (s *Session) beginBattle() error {
	if s.state == Gaming {
		return nil
	}
	s.state = Gaming
	s.battle = &battle{opponent: s.opponent, opponentSolved: 1}
	s.count(func(st *Stats) { st.Battles++ })

	if s.opponent != "" {
		left := s.quotas.Consume(s.opponent)
		s.log.WithFields(logrus.Fields{"opponent": s.opponent, "quota": left}).Info("Battle is on")
	}
	return s.send(protocol.BoardInfo())
}

func (s *Session) onBoardRevealed(e protocol.BoardRevealed) error {
	b, err := board.ParseCells(e.Cells)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	res := board.Analyze(b)
	bt := s.battle
	bt.revealed = true
	bt.result = res
	bt.difficulty = board.Classify(res.Rows, res.Columns, res.Mines)
	bt.level = s.tuner.Level()
	bt.rate = skill.EstimatedSolveRate(bt.level, bt.difficulty, res.BV)

	s.log.WithFields(logrus.Fields{
		"difficulty": bt.difficulty,
		"bv":         res.BV,
		"openings":   res.Openings,
		"isolated":   res.Isolated,
		"islands":    res.IsolatedIslands,
		"level":      bt.level,
		"bvs":        bt.rate,
	}).Infof("Board analyzed, warming up for %s", s.cfg.WarmUp)

	if err := s.schedule(s.cfg.WarmUp, func() error {
		return s.send(protocol.Progress(1))
	}); err != nil {
		return err
	}
	return s.schedule(0, func() error {
		bt.startedAt = s.clock.Now()
		s.log.Info("The battle is started")
		return nil
	})
}

func (s *Session) onProgress(e protocol.ProgressReported) error {
	bt := s.battle
	if bt == nil || !bt.revealed {
		return nil
	}

	switch e.UID {
	case s.cfg.UID:
		if e.BV >= bt.result.BV {
			return s.schedule(0, func() error {
				bt.finishedAt = s.clock.Now()
				elapsed := bt.finishedAt.Sub(bt.startedAt)
				s.log.WithField("elapsed", elapsed).Info("Board solved, finishing the battle")
				return s.send(protocol.Success(elapsed, bt.result.BV))
			})
		}
		next := e.BV + 1
		return s.schedule(s.beaconDelay(bt), func() error {
			s.log.Debugf("Solving %d of %d bv", next, bt.result.BV)
			return s.send(protocol.Progress(next))
		})

	case bt.opponent:
		bt.opponentSolved = e.BV
		s.log.Debugf("The opponent solved %d bv", e.BV)

	default:
		s.log.Debugf("Progress from a game outside the room: %s", e.UID)
	}
	return nil
}

// beaconDelay is the pause after each progress beacon that makes the reported pace match
// the level snapshot taken when the board was revealed
func (s *Session) beaconDelay(bt *battle) time.Duration {
	if bt.rate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / bt.rate)
}

func (s *Session) onBattleWon(e protocol.BattleWon) error {
	bt := s.battle
	s.battle = nil
	s.cancelAgenda()
	s.state = Waiting

	if bt == nil || !bt.revealed {
		return nil
	}

	var lost bool
	switch e.WinnerUID {
	case s.cfg.UID:
		s.log.Info("The bot won the battle")
		s.count(func(st *Stats) { st.Wins++ })
		if bt.finishedAt.IsZero() {
			bt.finishedAt = s.clock.Now()
		}
	case bt.opponent:
		s.log.Info("The opponent won the battle")
		s.count(func(st *Stats) { st.Losses++ })
		bt.finishedAt = s.clock.Now()
		lost = true
	default:
		return nil
	}

	if s.tuner.Hold() {
		s.log.Info("Level is on hold, skipping adjustment")
		return nil
	}
	if !bt.started() || !bt.finishedAt.After(bt.startedAt) {
		s.log.Warn("The battle ended before it started, skipping adjustment")
		return nil
	}

	elapsed := bt.finishedAt.Sub(bt.startedAt)
	implied := skill.EstimatedOpponentLevel(bt.difficulty, elapsed, bt.opponentSolved, bt.result.BV)
	prev := s.tuner.Level()
	if lost {
		s.tuner.Lost(implied)
	} else {
		s.tuner.Won(implied)
	}

	s.log.WithFields(logrus.Fields{
		"implied": fmt.Sprintf("%.3f", implied),
		"inc":     fmt.Sprintf("%.3f", s.tuner.IncFactor()),
		"dec":     fmt.Sprintf("%.3f", s.tuner.DecFactor()),
	}).Infof("Level changes a bit [%.3f -> %.3f]", prev, s.tuner.Level())
	return nil
}
