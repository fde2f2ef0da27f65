package room

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
)

// Envelope is the wire frame exchanged with clients in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handle decodes and dispatches one client event. Any failure is reported to
// the sender as an error event and also returned.
func (c *Coordinator) Handle(ctx context.Context, connID, event string, data json.RawMessage) error {
	err := c.dispatch(ctx, connID, event, data)
	if err != nil {
		ev := log.Debug()
		if errors.Is(err, ErrStoreUnavailable) {
			ev = log.Error()
		}
		ev.Err(err).Str("conn", connID).Str("event", event).Msg("event rejected")
		c.transport.Send(connID, EventError, ErrorEvent{Message: Message(err)})
	}
	return err
}

func (c *Coordinator) dispatch(ctx context.Context, connID, event string, data json.RawMessage) error {
	switch event {
	case EventJoinRoom:
		var req JoinRequest
		if err := decode(data, &req); err != nil {
			return invalid(msgInvalidRoom, err)
		}
		return c.Join(ctx, connID, req)

	case EventLeaveRoom:
		c.Leave(connID)
		return nil

	case EventCodeUpdate:
		var req CodeUpdateRequest
		if err := decode(data, &req); err != nil {
			return invalid(msgInvalidCode, err)
		}
		return c.SubmitEdit(ctx, connID, req)

	case EventLanguageChange:
		var req LanguageChangeRequest
		if err := decode(data, &req); err != nil {
			return invalid(msgInvalidLanguage, err)
		}
		return c.ChangeLanguage(ctx, connID, req)

	case EventCursorUpdate:
		var req CursorUpdateRequest
		if err := decode(data, &req); err != nil {
			return invalid(msgInvalidCursor, err)
		}
		return c.ReportCursor(ctx, connID, req)

	default:
		return invalid(msgUnknownEvent, nil)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.New("missing data")
	}
	return json.Unmarshal(data, v)
}
