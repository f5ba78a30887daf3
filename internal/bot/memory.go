package bot

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// memoryTTL bounds how long an idle conversation survives. Quizzes the
// student walks away from don't need to be remembered the next day.
const memoryTTL = time.Hour

// MemoryStore persists conversation history between bot requests.
type MemoryStore interface {
	Load(ctx context.Context, userID, fileID int64) ([]ChatTurn, error)
	Save(ctx context.Context, userID, fileID int64, history []ChatTurn) error
	Clear(ctx context.Context, userID, fileID int64) error
}

type memoryKey struct {
	userID int64
	fileID int64
}

type memoryEntry struct {
	history   []ChatTurn
	expiresAt time.Time
}

// InMemoryStore keeps conversation history in process memory. It is the
// fallback when no Redis URL is configured; history is lost on restart.
type InMemoryStore struct {
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[memoryKey]memoryEntry
}

func NewInMemoryStore(clock clockwork.Clock) *InMemoryStore {
	return &InMemoryStore{clock: clock, entries: make(map[memoryKey]memoryEntry)}
}

func (s *InMemoryStore) Load(_ context.Context, userID, fileID int64) ([]ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey{userID: userID, fileID: fileID}
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if s.clock.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	return entry.history, nil
}

func (s *InMemoryStore) Save(_ context.Context, userID, fileID int64, history []ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[memoryKey{userID: userID, fileID: fileID}] = memoryEntry{
		history:   history,
		expiresAt: s.clock.Now().Add(memoryTTL),
	}
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, userID, fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, memoryKey{userID: userID, fileID: fileID})
	return nil
}
