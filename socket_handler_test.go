package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ssau-fiit/codeshare-api/database"
	"github.com/ssau-fiit/codeshare-api/room"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(room.Envelope{Event: event, Data: data}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// expect reads frames until one carries event and decodes its data into v.
func expect(t *testing.T, conn *websocket.Conn, event string, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env room.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		if env.Event != event {
			continue
		}
		if v != nil {
			if err := json.Unmarshal(env.Data, v); err != nil {
				t.Fatalf("decode %s: %v", event, err)
			}
		}
		return
	}
}

func TestSocketEditSession(t *testing.T) {
	s, store := newTestServer(t)
	store.Put(database.Document{
		ID:        "r1",
		Code:      "hello world",
		Language:  "go",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	alice := dial(t, srv)
	emit(t, alice, room.EventJoinRoom, room.JoinRequest{RoomID: "r1", Nickname: "alice"})
	var joined room.JoinedRoom
	expect(t, alice, room.EventJoinedRoom, &joined)
	if joined.Code != "hello world" || joined.Language != "go" {
		t.Fatalf("joined_room = %+v", joined)
	}

	bob := dial(t, srv)
	emit(t, bob, room.EventJoinRoom, room.JoinRequest{RoomID: "r1", Nickname: "bob"})
	expect(t, bob, room.EventJoinedRoom, nil)

	var roster room.Roster
	expect(t, alice, room.EventUserJoined, &roster)
	for roster.User.Nickname != "bob" {
		expect(t, alice, room.EventUserJoined, &roster)
	}
	if len(roster.Users) != 2 {
		t.Fatalf("roster = %+v", roster.Users)
	}

	emit(t, bob, room.EventCursorUpdate, room.CursorUpdateRequest{RoomID: "r1", Position: intPtr(11)})
	var cursor room.CursorUpdated
	expect(t, alice, room.EventCursorUpdated, &cursor)
	if cursor.Position != 11 || cursor.UserNickname != "bob" {
		t.Fatalf("cursor_updated = %+v", cursor)
	}

	code := "hello, world"
	emit(t, alice, room.EventCodeUpdate, room.CodeUpdateRequest{RoomID: "r1", Code: &code})
	var updated room.CodeUpdated
	expect(t, bob, room.EventCodeUpdated, &updated)
	if updated.Code != code || updated.OldCode != "hello world" || updated.UserNickname != "alice" {
		t.Fatalf("code_updated = %+v", updated)
	}
	if len(updated.AllCursors) != 1 || updated.AllCursors[0].Position == nil || *updated.AllCursors[0].Position != 12 {
		t.Fatalf("cursors = %+v", updated.AllCursors)
	}

	doc, err := store.Get(context.Background(), "r1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Code != code {
		t.Errorf("stored code = %q", doc.Code)
	}

	bob.Close()
	expect(t, alice, room.EventUserLeft, &roster)
	if roster.User.Nickname != "bob" || len(roster.Users) != 1 {
		t.Errorf("user_left = %+v", roster)
	}
}

func TestSocketInvalidFrame(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	conn := dial(t, srv)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	var ev room.ErrorEvent
	expect(t, conn, room.EventError, &ev)
	if ev.Message != "Invalid message" {
		t.Errorf("message = %q", ev.Message)
	}

	emit(t, conn, room.EventJoinRoom, room.JoinRequest{RoomID: "missing"})
	expect(t, conn, room.EventError, &ev)
	if ev.Message != "Room not found" {
		t.Errorf("message = %q", ev.Message)
	}
}

func intPtr(n int) *int { return &n }
