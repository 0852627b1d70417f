package memory

import (
	"context"
	"sync"

	"github.com/NastyaGoryachaya/crypto-tracker/internal/domain"
	"github.com/NastyaGoryachaya/crypto-tracker/internal/repository"
)

// UserStore - пользователи в памяти, ключ - email
type UserStore struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{byEmail: make(map[string]domain.User)}
}

func (s *UserStore) Create(ctx context.Context, u domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return repository.ErrAlreadyExists
	}
	s.byEmail[u.Email] = u
	return nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, userID, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, u := range s.byEmail {
		if u.ID == userID {
			u.PasswordHash = hash
			s.byEmail[email] = u
			return nil
		}
	}
	return repository.ErrNotFound
}
