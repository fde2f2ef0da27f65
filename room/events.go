package room

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ssau-fiit/codeshare-api/config"
)

// Client events.
const (
	EventJoinRoom       = "join_room"
	EventLeaveRoom      = "leave_room"
	EventCodeUpdate     = "code_update"
	EventLanguageChange = "language_change"
	EventCursorUpdate   = "cursor_update"
)

// Server events.
const (
	EventJoinedRoom      = "joined_room"
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventCodeUpdated     = "code_updated"
	EventLanguageChanged = "language_changed"
	EventCursorUpdated   = "cursor_updated"
	EventError           = "error"
)

type JoinRequest struct {
	RoomID   string `json:"roomId"`
	Nickname string `json:"nickname"`
}

func (r JoinRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RoomID, validation.Required, validation.RuneLength(1, config.MaxRoomIDLength)),
		validation.Field(&r.Nickname, validation.RuneLength(0, config.MaxNicknameLength)),
	)
}

type CodeUpdateRequest struct {
	RoomID   string  `json:"roomId"`
	Code     *string `json:"code"`
	Language string  `json:"language"`
}

func (r CodeUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RoomID, validation.Required, validation.RuneLength(1, config.MaxRoomIDLength)),
		validation.Field(&r.Code, validation.NotNil, validation.RuneLength(0, config.MaxCodeLength)),
		validation.Field(&r.Language, validation.RuneLength(0, config.MaxLanguageLength)),
	)
}

type LanguageChangeRequest struct {
	RoomID   string `json:"roomId"`
	Language string `json:"language"`
}

func (r LanguageChangeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RoomID, validation.Required, validation.RuneLength(1, config.MaxRoomIDLength)),
		validation.Field(&r.Language, validation.Required, validation.RuneLength(1, config.MaxLanguageLength)),
	)
}

type CursorUpdateRequest struct {
	RoomID   string `json:"roomId"`
	Position *int   `json:"position"`
}

func (r CursorUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RoomID, validation.Required, validation.RuneLength(1, config.MaxRoomIDLength)),
		validation.Field(&r.Position, validation.NotNil, validation.Min(0), validation.Max(config.MaxCursorPosition)),
	)
}

// User is one entry of a room roster.
type User struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

type JoinedRoom struct {
	RoomID   string `json:"roomId"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Roster is the payload of user_joined and user_left.
type Roster struct {
	User  User   `json:"user"`
	Users []User `json:"users"`
}

type CursorInfo struct {
	UserID       string `json:"userId"`
	Position     *int   `json:"position"`
	UserNickname string `json:"userNickname"`
}

type CodeUpdated struct {
	Code         string       `json:"code"`
	Language     string       `json:"language"`
	UserID       string       `json:"userId"`
	UserNickname string       `json:"userNickname"`
	OldCode      string       `json:"oldCode"`
	AllCursors   []CursorInfo `json:"allCursors"`
}

type LanguageChanged struct {
	Language     string `json:"language"`
	UserID       string `json:"userId"`
	UserNickname string `json:"userNickname"`
}

type CursorUpdated struct {
	UserID       string `json:"userId"`
	Position     int    `json:"position"`
	UserNickname string `json:"userNickname"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
