package memory

import (
	"context"
	"strings"
	"time"

	"realtyhub/internal/models"
	"realtyhub/internal/repository"
)

type Users struct{ db *DB }

func (s *Users) activeEmailTaken(email, exceptID string) bool {
	for _, u := range s.db.users {
		if u.Active && u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *Users) Create(_ context.Context, user models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	if user.Active && s.activeEmailTaken(user.Email, "") {
		return repository.ErrDuplicate
	}
	now := s.db.now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.db.users[user.ID] = user
	return nil
}

func (s *Users) GetByID(_ context.Context, id string) (models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	u, ok := s.db.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Users) FindActiveByEmail(_ context.Context, email string) (models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, u := range s.db.users {
		if u.Active && u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

func (s *Users) List(_ context.Context, filter models.UserFilter, page models.Page) ([]models.User, int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var out []models.User
	for _, u := range s.db.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.ActiveOnly && !u.Active {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) && !strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		out = append(out, u)
	}
	newestFirst(out, func(u models.User) time.Time { return u.CreatedAt })
	return paginate(out, page), len(out), nil
}

func (s *Users) Update(_ context.Context, user models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if user.Active && s.activeEmailTaken(user.Email, user.ID) {
		return repository.ErrDuplicate
	}
	existing.Name = user.Name
	existing.Email = user.Email
	existing.PasswordHash = user.PasswordHash
	existing.Role = user.Role
	existing.Active = user.Active
	existing.UpdatedAt = s.db.now()
	s.db.users[user.ID] = existing
	return nil
}

func (s *Users) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLoginAt = &at
	s.db.users[id] = u
	return nil
}

type Grants struct{ db *DB }

func (s *Grants) Grant(_ context.Context, grant models.Grant) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.users[grant.UserID]; !ok {
		return false, repository.ErrNotFound
	}
	byPerm := s.db.grants[grant.UserID]
	if byPerm == nil {
		byPerm = make(map[string]models.Grant)
		s.db.grants[grant.UserID] = byPerm
	}
	if _, ok := byPerm[grant.PermissionID]; ok {
		return false, nil
	}
	grant.GrantedAt = s.db.now()
	byPerm[grant.PermissionID] = grant
	return true, nil
}

func (s *Grants) Revoke(_ context.Context, userID, permissionID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	byPerm := s.db.grants[userID]
	if _, ok := byPerm[permissionID]; !ok {
		return false, nil
	}
	delete(byPerm, permissionID)
	return true, nil
}

func (s *Grants) ListForUser(_ context.Context, userID string) ([]models.Grant, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]models.Grant, 0, len(s.db.grants[userID]))
	for _, g := range s.db.grants[userID] {
		out = append(out, g)
	}
	return out, nil
}
