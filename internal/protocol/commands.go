package protocol

import (
	"math"
	"time"

	"autopvp/internal/envelope"
)

// Outbound operation names
const (
	URLEnter         = "enter"
	URLRoomCreate    = "room/minesweeper/create"
	URLRoomEdit      = "room/minesweeper/edit"
	URLRoomReady     = "room/ready"
	URLRoomStart     = "room/start"
	URLRoomExit      = "room/exit"
	URLRoomKick      = "room/kick"
	URLRoomMessage   = "room/message"
	URLBoardInfo     = "minesweeper/info"
	URLBoardProgress = "minesweeper/progress"
	URLBoardSuccess  = "minesweeper/success"
)

func Enter(version int) envelope.Command {
	return envelope.NewCommand("version", version, "url", URLEnter)
}

// CreateRoom opens a new room with cfg under title
func CreateRoom(cfg RoomConfig, title string) envelope.Command {
	cmd := roomFields(cfg, title)
	cmd.Set("url", URLRoomCreate)
	return cmd
}

// EditRoom pushes cfg onto the current room. Anonymity and rank limits cannot be edited.
func EditRoom(cfg RoomConfig, title string) envelope.Command {
	cmd := roomFields(cfg, title)
	cmd.Delete("anonymous")
	cmd.Delete("limitRank")
	cmd.Set("url", URLRoomEdit)
	return cmd
}

func roomFields(cfg RoomConfig, title string) envelope.Command {
	return envelope.NewCommand(
		"anonymous", cfg.Anonymous,
		"autoOpen", cfg.AutoOpen,
		"coin", cfg.Coin,
		"column", cfg.Columns,
		"row", cfg.Rows,
		"mine", cfg.Mines,
		"flagForbidden", cfg.FlagForbidden,
		"limitRank", cfg.LimitRank,
		"maxNumber", cfg.MaxNumber,
		"round", cfg.Round,
		"title", title,
		"password", cfg.Password,
	)
}

func Ready(ready bool) envelope.Command {
	return envelope.NewCommand("ready", ready, "url", URLRoomReady)
}

func Start() envelope.Command {
	return envelope.NewCommand("url", URLRoomStart)
}

func Exit() envelope.Command {
	return envelope.NewCommand("url", URLRoomExit)
}

func Kick(uid string) envelope.Command {
	return envelope.NewCommand("uid", uid, "url", URLRoomKick)
}

// Message sends text to the room chat
func Message(text string) envelope.Command {
	return envelope.NewCommand("url", URLRoomMessage, "msg", text)
}

// BoardInfo asks the server for the battle board
func BoardInfo() envelope.Command {
	return envelope.NewCommand("url", URLBoardInfo)
}

// Progress reports how much of the board the bot has solved
func Progress(bv int) envelope.Command {
	return envelope.NewCommand("bv", bv, "url", URLBoardProgress)
}

// Success finishes the battle. time is in milliseconds and bvs is rounded to 3 decimals.
func Success(elapsed time.Duration, bv int) envelope.Command {
	secs := elapsed.Seconds()
	bvs := 0.0
	if secs > 0 {
		bvs = math.Round(float64(bv)/secs*1000) / 1000
	}
	return envelope.NewCommand("time", int(elapsed.Milliseconds()), "url", URLBoardSuccess, "bvs", bvs)
}
