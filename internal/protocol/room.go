package protocol

import "autopvp/internal/board"

// RoomConfig is the set of rules a room is created or edited with
type RoomConfig struct {
	Rows          int
	Columns       int
	Mines         int
	Anonymous     bool
	Coin          int
	Round         int
	MaxNumber     int
	AutoOpen      bool
	FlagForbidden bool
	LimitRank     int
	Password      string
}

// DefaultRoomConfig is the only configuration the bot plays under, on an intermediate board
func DefaultRoomConfig() RoomConfig {
	g, _ := board.Preset(board.Intermediate)
	return RoomConfig{
		Rows:      g.Rows,
		Columns:   g.Columns,
		Mines:     g.Mines,
		Round:     1,
		MaxNumber: 2,
		AutoOpen:  true,
	}
}

// WithDifficulty returns a copy of c using the preset geometry of d
func (c RoomConfig) WithDifficulty(d board.Difficulty) RoomConfig {
	if g, ok := board.Preset(d); ok {
		c.Rows, c.Columns, c.Mines = g.Rows, g.Columns, g.Mines
	}
	return c
}

// Room mirrors the room object carried by room update events
type Room struct {
	UserIDList               []string   `json:"userIdList"`
	Users                    []RoomUser `json:"users"`
	Gaming                   bool       `json:"gaming"`
	Expired                  bool       `json:"expired"`
	Coin                     int        `json:"coin"`
	Password                 string     `json:"password"`
	MinesweeperAutoOpen      bool       `json:"minesweeperAutoOpen"`
	MinesweeperFlagForbidden bool       `json:"minesweeperFlagForbidden"`
	Round                    int        `json:"round"`
	MaxNumber                int        `json:"maxNumber"`
}

type RoomUser struct {
	PVP PVPUser `json:"pvp"`
}

type PVPUser struct {
	UID string `json:"uid"`
}

// HasUser reports whether uid is listed in the room
func (r Room) HasUser(uid string) bool {
	for _, id := range r.UserIDList {
		if id == uid {
			return true
		}
	}
	return false
}

// FirstUser returns the uid of the first entry in users, or ""
func (r Room) FirstUser() string {
	if len(r.Users) == 0 {
		return ""
	}
	return r.Users[0].PVP.UID
}

// Acceptable reports whether the room rules are the ones the bot agrees to play:
// two players, one round, no stake, no password, auto-open, flags allowed.
func (r Room) Acceptable() bool {
	return r.Coin == 0 &&
		r.Password == "" &&
		r.MinesweeperAutoOpen &&
		!r.MinesweeperFlagForbidden &&
		r.Round == 1 &&
		r.MaxNumber == 2
}
