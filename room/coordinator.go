// Package room coordinates the live participants of shared documents: who is
// in which room, what each of them is told, and in what order.
package room

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ssau-fiit/codeshare-api/common/util"
	"github.com/ssau-fiit/codeshare-api/database"
	"github.com/ssau-fiit/codeshare-api/operation"
)

// DocumentStore is the persistence the coordinator reads and writes room
// text through. Missing documents are reported as database.ErrNotFound.
type DocumentStore interface {
	Get(ctx context.Context, id string) (*database.Document, error)
	Update(ctx context.Context, id, code, language string) (*database.Document, error)
}

// Transport delivers an event to one connection. Send is called while a room
// is locked and must not block.
type Transport interface {
	Send(connID, event string, payload any)
}

// Participant is the presence record of one live connection.
type Participant struct {
	ID string

	// Guarded by Coordinator.mu.
	roomID string

	// Guarded by the lock of the room the participant is in.
	nickname string
	cursor   *int
}

type room struct {
	id string

	mu      sync.Mutex
	members []*Participant // join order
	closed  bool
}

func (r *room) indexOf(connID string) int {
	for i, p := range r.members {
		if p.ID == connID {
			return i
		}
	}
	return -1
}

func (r *room) member(connID string) *Participant {
	if i := r.indexOf(connID); i >= 0 {
		return r.members[i]
	}
	return nil
}

func (r *room) roster() []User {
	users := make([]User, len(r.members))
	for i, p := range r.members {
		users[i] = User{ID: p.ID, Nickname: p.nickname}
	}
	return users
}

type Options struct {
	// StoreTimeout bounds every store call. Defaults to five seconds.
	StoreTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	// Nickname generates placeholder names. Defaults to util.Nickname.
	Nickname func() string
}

// Coordinator owns all presence state. Each room is a monitor: its lock is
// held for the whole of every event addressed to it, store round-trips
// included, so edits are diffed against exactly the text they replaced.
type Coordinator struct {
	store     DocumentStore
	transport Transport
	timeout   time.Duration
	now       func() time.Time
	nickname  func() string

	mu           sync.Mutex
	participants map[string]*Participant
	rooms        map[string]*room
}

func NewCoordinator(store DocumentStore, transport Transport, opts Options) *Coordinator {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = time.Second * 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Nickname == nil {
		opts.Nickname = util.Nickname
	}
	return &Coordinator{
		store:        store,
		transport:    transport,
		timeout:      opts.StoreTimeout,
		now:          opts.Now,
		nickname:     opts.Nickname,
		participants: make(map[string]*Participant),
		rooms:        make(map[string]*room),
	}
}

// Connect registers a new connection. It is safe to call more than once.
func (c *Coordinator) Connect(connID string) {
	c.participant(connID)
}

func (c *Coordinator) participant(connID string) *Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.participants[connID]
	if !ok {
		p = &Participant{ID: connID}
		c.participants[connID] = p
	}
	return p
}

func (c *Coordinator) roomOf(p *Participant) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return p.roomID
}

func (c *Coordinator) setRoom(p *Participant, roomID string) {
	c.mu.Lock()
	p.roomID = roomID
	c.mu.Unlock()
}

// lockRoom returns the room locked, creating it when create is set. It
// returns nil when the room does not exist and create is false.
func (c *Coordinator) lockRoom(roomID string, create bool) *room {
	for {
		c.mu.Lock()
		r, ok := c.rooms[roomID]
		if !ok {
			if !create {
				c.mu.Unlock()
				return nil
			}
			r = &room{id: roomID}
			c.rooms[roomID] = r
		}
		c.mu.Unlock()

		r.mu.Lock()
		if !r.closed {
			return r
		}
		// Emptied and dropped while we waited; look it up again.
		r.mu.Unlock()
	}
}

// closeIfEmpty drops r from the index once its last member is gone. The
// caller holds r.mu.
func (c *Coordinator) closeIfEmpty(r *room) {
	if len(r.members) > 0 {
		return
	}
	r.closed = true
	c.mu.Lock()
	if c.rooms[r.id] == r {
		delete(c.rooms, r.id)
	}
	c.mu.Unlock()
	log.Debug().Str("room", r.id).Msg("room closed")
}

// lockMember locks the room and checks that connID is in it.
func (c *Coordinator) lockMember(connID, roomID string) (*room, *Participant, error) {
	r := c.lockRoom(roomID, false)
	if r == nil {
		return nil, nil, ErrNotInRoom
	}
	p := r.member(connID)
	if p == nil {
		r.mu.Unlock()
		return nil, nil, ErrNotInRoom
	}
	return r, p, nil
}

func (c *Coordinator) broadcast(r *room, event string, payload any, except string) {
	for _, p := range r.members {
		if p.ID == except {
			continue
		}
		c.transport.Send(p.ID, event, payload)
	}
}

func (c *Coordinator) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// joinable fetches the document behind a room and checks it has not expired.
func (c *Coordinator) joinable(ctx context.Context, roomID string) (*database.Document, error) {
	sctx, cancel := c.storeContext(ctx)
	defer cancel()

	doc, err := c.store.Get(sctx, roomID)
	if err != nil {
		return nil, storeError(err)
	}
	if doc.Expired(c.now()) {
		return nil, ErrExpired
	}
	return doc, nil
}

// Join moves the connection into the room of the given document, leaving its
// current room first.
func (c *Coordinator) Join(ctx context.Context, connID string, req JoinRequest) error {
	req.Nickname = strings.TrimSpace(req.Nickname)
	if err := req.Validate(); err != nil {
		return invalid(msgInvalidRoom, err)
	}
	p := c.participant(connID)

	// A failed join must leave the connection where it was, so the target is
	// checked before the current room is left.
	if prev := c.roomOf(p); prev != "" && prev != req.RoomID {
		if _, err := c.joinable(ctx, req.RoomID); err != nil {
			return err
		}
		c.Leave(connID)
	}

	r := c.lockRoom(req.RoomID, true)
	defer r.mu.Unlock()

	doc, err := c.joinable(ctx, req.RoomID)
	if err != nil {
		c.closeIfEmpty(r)
		return err
	}

	switch {
	case req.Nickname != "":
		p.nickname = req.Nickname
	case p.nickname == "":
		p.nickname = c.nickname()
	}
	if r.indexOf(connID) < 0 {
		r.members = append(r.members, p)
	}
	c.setRoom(p, req.RoomID)

	c.transport.Send(connID, EventJoinedRoom, JoinedRoom{
		RoomID:   req.RoomID,
		Code:     doc.Code,
		Language: doc.Language,
	})
	c.broadcast(r, EventUserJoined, Roster{
		User:  User{ID: p.ID, Nickname: p.nickname},
		Users: r.roster(),
	}, "")

	log.Debug().Str("conn", connID).Str("room", req.RoomID).Int("members", len(r.members)).Msg("joined room")
	return nil
}

// Leave removes the connection from its current room. It is a no-op for a
// connection that is not in a room.
func (c *Coordinator) Leave(connID string) {
	c.mu.Lock()
	p, ok := c.participants[connID]
	c.mu.Unlock()
	if !ok {
		return
	}
	roomID := c.roomOf(p)
	if roomID == "" {
		return
	}

	r := c.lockRoom(roomID, false)
	c.setRoom(p, "")
	if r == nil {
		return
	}
	defer r.mu.Unlock()

	i := r.indexOf(connID)
	if i < 0 {
		return
	}
	r.members = append(r.members[:i], r.members[i+1:]...)
	p.cursor = nil

	c.broadcast(r, EventUserLeft, Roster{
		User:  User{ID: p.ID, Nickname: p.nickname},
		Users: r.roster(),
	}, "")
	log.Debug().Str("conn", connID).Str("room", roomID).Int("members", len(r.members)).Msg("left room")

	c.closeIfEmpty(r)
}

// Disconnect is an implicit Leave that also forgets the connection.
func (c *Coordinator) Disconnect(connID string) {
	c.Leave(connID)
	c.mu.Lock()
	delete(c.participants, connID)
	c.mu.Unlock()
}

// SubmitEdit stores the author's new text and tells every other member, with
// their cursors rebased across the edit. The author's own cursor is left
// alone: the author reports it separately.
func (c *Coordinator) SubmitEdit(ctx context.Context, connID string, req CodeUpdateRequest) error {
	if err := req.Validate(); err != nil {
		return invalid(msgInvalidCode, err)
	}
	r, author, err := c.lockMember(connID, req.RoomID)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()

	sctx, cancel := c.storeContext(ctx)
	defer cancel()

	doc, err := c.store.Get(sctx, req.RoomID)
	if err != nil {
		return storeError(err)
	}
	oldCode, newCode := doc.Code, *req.Code

	updated, err := c.store.Update(sctx, req.RoomID, newCode, req.Language)
	if err != nil {
		log.Error().Err(err).Str("room", req.RoomID).Msg("failed to update document")
		return storeError(err)
	}

	op := operation.Extract(oldCode, newCode)

	others := make([]*Participant, 0, len(r.members))
	cursors := make([]operation.Cursor, 0, len(r.members))
	for _, p := range r.members {
		if p == author {
			continue
		}
		others = append(others, p)
		cursors = append(cursors, operation.Cursor{ID: p.ID, Position: p.cursor})
	}
	rebased := operation.RebaseAll(cursors, op, oldCode, newCode)

	all := make([]CursorInfo, len(others))
	for i, p := range others {
		p.cursor = rebased[i].Position
		all[i] = CursorInfo{UserID: p.ID, Position: p.cursor, UserNickname: p.nickname}
	}

	c.broadcast(r, EventCodeUpdated, CodeUpdated{
		Code:         newCode,
		Language:     updated.Language,
		UserID:       author.ID,
		UserNickname: author.nickname,
		OldCode:      oldCode,
		AllCursors:   all,
	}, author.ID)
	return nil
}

// ReportCursor records the sender's cursor as reported and relays it to the
// rest of the room untransformed.
func (c *Coordinator) ReportCursor(_ context.Context, connID string, req CursorUpdateRequest) error {
	if err := req.Validate(); err != nil {
		return invalid(msgInvalidCursor, err)
	}
	r, p, err := c.lockMember(connID, req.RoomID)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()

	pos := *req.Position
	p.cursor = &pos
	c.broadcast(r, EventCursorUpdated, CursorUpdated{
		UserID:       p.ID,
		Position:     pos,
		UserNickname: p.nickname,
	}, p.ID)
	return nil
}

// ChangeLanguage stores a new language tag next to the unchanged text and
// announces it to the whole room.
func (c *Coordinator) ChangeLanguage(ctx context.Context, connID string, req LanguageChangeRequest) error {
	if err := req.Validate(); err != nil {
		return invalid(msgInvalidLanguage, err)
	}
	r, p, err := c.lockMember(connID, req.RoomID)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()

	sctx, cancel := c.storeContext(ctx)
	defer cancel()

	doc, err := c.store.Get(sctx, req.RoomID)
	if err != nil {
		return storeError(err)
	}
	if _, err := c.store.Update(sctx, req.RoomID, doc.Code, req.Language); err != nil {
		log.Error().Err(err).Str("room", req.RoomID).Msg("failed to update document language")
		return storeError(err)
	}

	c.broadcast(r, EventLanguageChanged, LanguageChanged{
		Language:     req.Language,
		UserID:       p.ID,
		UserNickname: p.nickname,
	}, "")
	return nil
}

// Rooms returns the number of rooms with at least one member.
func (c *Coordinator) Rooms() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rooms)
}

// Members returns the roster of a room, or nil if nobody is in it.
func (c *Coordinator) Members(roomID string) []User {
	r := c.lockRoom(roomID, false)
	if r == nil {
		return nil
	}
	defer r.mu.Unlock()
	return r.roster()
}
