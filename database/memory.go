package database

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process memory. It backs local runs with
// STORE_DRIVER=memory and the tests of packages that need a store.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]Document
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]Document),
		ttl:  ttl,
		now:  time.Now,
	}
}

// SetClock replaces the time source used for new documents.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) Create(_ context.Context, language string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	doc := Document{
		ID:        uuid.NewString(),
		Language:  language,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.docs[doc.ID] = doc
	return &doc, nil
}

// Put stores doc as is, replacing any document with the same ID.
func (s *MemoryStore) Put(doc Document) {
	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *MemoryStore) Update(ctx context.Context, id, code, language string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	doc.Code = code
	if language != "" {
		doc.Language = language
	}
	s.docs[id] = doc
	return &doc, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, doc := range s.docs {
		if doc.Expired(now) {
			delete(s.docs, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
