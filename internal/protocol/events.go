package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event names
const (
	EventLobbyEntered = "pvp/enter"
	EventUserEntered  = "pvp/room/enter/event"
	EventUserLeft     = "pvp/room/exit/event"
	EventReady        = "pvp/room/ready"
	EventRoomUpdate   = "pvp/room/update"
	EventRoomExit     = "pvp/room/exit"
	EventRoomMessage  = "pvp/room/message"
	EventBoardInfo    = "pvp/minesweeper/info"
	EventProgress     = "pvp/minesweeper/progress"
	EventWin          = "pvp/minesweeper/win"
	EventUserRanAway  = "pvp/room/user/exit"
)

// CodeIncompatibleVersion is sent when the declared client version is rejected
const CodeIncompatibleVersion = 10100

var ErrMissingField = errors.New("protocol: missing field")

// Event is one decoded inbound message
type Event interface {
	eventName() string
}

type (
	// Status is an out-of-band status code; it ends the session
	Status struct{ Code int }

	LobbyEntered struct{}

	// UserEntered is someone joining the bot's room, the bot included
	UserEntered struct {
		UID         string
		TimingLevel float64
		VIP         bool
	}

	// UserLeft is someone leaving or being kicked from the room
	UserLeft struct{ UID string }

	ReadyChanged struct {
		UID   string
		Ready bool
	}

	RoomUpdated struct{ Room Room }

	// RoomExited means the bot itself is no longer in a room
	RoomExited struct{}

	ChatMessage struct {
		UID  string
		Text string
	}

	BoardRevealed struct{ Cells []string }

	ProgressReported struct {
		UID string
		BV  int
	}

	BattleWon struct{ WinnerUID string }

	// UserRanAway is a player abandoning a battle in progress
	UserRanAway struct{ UID string }

	// Unknown carries any discriminator the bot does not act on
	Unknown struct{ URL string }
)

func (Status) eventName() string { return "status" }
func (LobbyEntered) eventName() string { return EventLobbyEntered }
func (UserEntered) eventName() string { return EventUserEntered }
func (UserLeft) eventName() string { return EventUserLeft }
func (ReadyChanged) eventName() string { return EventReady }
func (RoomUpdated) eventName() string { return EventRoomUpdate }
func (RoomExited) eventName() string { return EventRoomExit }
func (ChatMessage) eventName() string { return EventRoomMessage }
func (BoardRevealed) eventName() string { return EventBoardInfo }
func (ProgressReported) eventName() string { return EventProgress }
func (BattleWon) eventName() string { return EventWin }
func (UserRanAway) eventName() string { return EventUserRanAway }
func (u Unknown) eventName() string { return u.URL }

// Name returns the discriminator an event was decoded from
func Name(e Event) string {
	return e.eventName()
}

type wirePVP struct {
	PVP *struct {
		UID *string `json:"uid"`
	} `json:"pvp"`
}

func (u *wirePVP) uid() (string, error) {
	if u == nil || u.PVP == nil || u.PVP.UID == nil {
		return "", missing("pvp.uid")
	}
	return *u.PVP.UID, nil
}

type wireUser struct {
	wirePVP
	User *struct {
		TimingLevel *float64 `json:"timingLevel"`
		VIP         truthy   `json:"vip"`
	} `json:"user"`
}

// truthy accepts the vip flag as a bool, a number or a string
type truthy bool

func (t *truthy) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case bool:
		*t = truthy(x)
	case float64:
		*t = x != 0
	case string:
		*t = x != "" && x != "0" && x != "false"
	default:
		*t = false
	}
	return nil
}

type header struct {
	URL  *string `json:"url"`
	Code *int    `json:"code"`
}

type (
	userPayload struct {
		User *wireUser `json:"user"`
	}

	readyPayload struct {
		UID   *string `json:"uid"`
		Ready *bool   `json:"ready"`
	}

	roomPayload struct {
		Room *Room `json:"room"`
	}

	messagePayload struct {
		Msg *struct {
			User *struct {
				UID *string `json:"uid"`
			} `json:"user"`
			Message *string `json:"message"`
		} `json:"msg"`
	}

	boardPayload struct {
		Cells []string `json:"cells"`
	}

	progressPayload struct {
		UID *string `json:"uid"`
		BV  *int    `json:"bv"`
	}

	winPayload struct {
		Users []wirePVP `json:"users"`
	}
)

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

func decodeAs(url string, payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("protocol: %s: %w", url, err)
	}
	return nil
}

// DecodeEvent reads the discriminator first and validates only the fields of
// the variant it names; payloads of unhandled discriminators are not inspected.
func DecodeEvent(payload []byte) (Event, error) {
	var h header
	if err := json.Unmarshal(payload, &h); err != nil {
		return nil, fmt.Errorf("protocol: %w", err)
	}

	if h.URL == nil {
		if h.Code == nil {
			return nil, missing("url or code")
		}
		return Status{Code: *h.Code}, nil
	}

	switch url := *h.URL; url {
	case EventLobbyEntered:
		return LobbyEntered{}, nil

	case EventUserEntered:
		var p userPayload
		if err := decodeAs(url, payload, &p); err != nil {
			return nil, err
		}
		if p.User == nil {
			return nil, missing("user.pvp.uid")
		}
		uid, err := p.User.uid()
		if err != nil {
			return nil, missing("user.pvp.uid")
		}
		ev := UserEntered{UID: uid, TimingLevel: -1}
		if p.User.User != nil {
			ev.VIP = bool(p.User.User.VIP)
			if p.User.User.TimingLevel != nil {
				ev.TimingLevel = *p.User.User.TimingLevel
			}
		}
		return ev, nil

	case EventUserLeft, EventUserRanAway:
		var p userPayload
		if err := decodeAs(url, payload, &p); err != nil {
			return nil, err
		}
		if p.User == nil {
			return nil, missing("user.pvp.uid")
		}
		uid, err := p.User.uid()
		if err != nil {
			return nil, missing("user.pvp.uid")
		}
		if url == EventUserLeft {
			return UserLeft{UID: uid}, nil
		}
		return UserRanAway{UID: uid}, nil

	case EventReady:
		var p readyPayload
		if err := decodeAs(url, payload, &p); err != nil {
			return nil, err
		}
		if p.UID == nil || p.Ready == nil {
			return nil, missing("uid, ready")
		}
		return ReadyChanged{UID: *p.UID, Ready: *p.Ready}, nil

	case EventRoomUpdate:
		var p roomPayload
		if err := decodeAs(url, payload, &p); err != nil {
			return nil, err
		}
		if p.Room == nil {
			return nil, missing("room")
		}
		return RoomUpdated{Room: *p.Room}, nil

	case EventRoomExit:
		return RoomExited{}, nil

	case EventRoomMessage:
		var p messagePayload
		if err := decodeAs(url, payload, &p); err != nil {
			return nil, err
		}
		if p.Msg == nil || p.Msg.Message == nil {
			return nil, missing("msg.message")
		}
		if p.Msg.User == nil || p.Msg.User.UID == nil {
			return nil, missing("msg.user.uid")
		}
		return ChatMessage{UID: *p.Msg.User.UID, Text: *p.Msg.Message}, nil

	case EventBoardInfo:
		var p boardPayload
		if err := decodeAs(url, payload, &p); err != nil {
			return nil, err
		}
		if len(p.Cells) == 0 {
			return nil, missing("cells")
		}
		return BoardRevealed{Cells: p.Cells}, nil

	case EventProgress:
		var p progressPayload
		if err := decodeAs(url, payload, &p); err != nil {
			return nil, err
		}
		if p.UID == nil || p.BV == nil {
			return nil, missing("uid, bv")
		}
		return ProgressReported{UID: *p.UID, BV: *p.BV}, nil

	case EventWin:
		var p winPayload
		if err := decodeAs(url, payload, &p); err != nil {
			return nil, err
		}
		if len(p.Users) == 0 {
			return nil, missing("users")
		}
		uid, err := p.Users[0].uid()
		if err != nil {
			return nil, missing("users[0].pvp.uid")
		}
		return BattleWon{WinnerUID: uid}, nil

	default:
		return Unknown{URL: url}, nil
	}
}
