package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/storyhub/backend/internal/models"
)

// MemoryUserStore keeps users in process memory. It backs
// STORE_BACKEND=memory and the tests.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]models.User)}
}

func (s *MemoryUserStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return ErrDuplicate
		}
	}

	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = cloneUser(*u)
	return nil
}

func (s *MemoryUserStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (s *MemoryUserStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// SetPassword replaces the hash and change time under one lock.
func (s *MemoryUserStore) SetPassword(_ context.Context, id, hash string, changedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	t := changedAt
	u.PasswordHash = hash
	u.PasswordChangedAt = &t
	u.UpdatedAt = changedAt
	s.users[id] = u
	return nil
}

// Count reports the number of stored users.
func (s *MemoryUserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func cloneUser(u models.User) models.User {
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		u.PasswordChangedAt = &t
	}
	return u
}

// MemoryContentStore keeps stories and messages in process memory.
type MemoryContentStore struct {
	mu       sync.RWMutex
	stories  []models.Story
	messages []models.Message
}

func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{}
}

func (s *MemoryContentStore) InsertStory(_ context.Context, story *models.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	story.ID = primitive.NewObjectID()
	story.CreatedAt, story.UpdatedAt = now, now
	s.stories = append(s.stories, *story)
	return nil
}

// ListStories returns stories newest first.
func (s *MemoryContentStore) ListStories(context.Context) ([]models.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Story, len(s.stories))
	for i, st := range s.stories {
		out[len(s.stories)-1-i] = st
	}
	return out, nil
}

func (s *MemoryContentStore) InsertMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	msg.ID = primitive.NewObjectID()
	msg.CreatedAt, msg.UpdatedAt = now, now
	s.messages = append(s.messages, *msg)
	return nil
}

// Conversation returns the messages exchanged between a and b, oldest first.
func (s *MemoryContentStore) Conversation(_ context.Context, a, b string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Message
	for _, m := range s.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}
