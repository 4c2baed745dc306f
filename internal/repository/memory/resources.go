package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"realtyhub/internal/models"
	"realtyhub/internal/repository"
)

type Properties struct{ db *DB }

func (s *Properties) Create(_ context.Context, p models.Property) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.properties[p.ID]; ok {
		return repository.ErrDuplicate
	}
	now := s.db.now()
	p.Active = true
	p.CreatedAt, p.UpdatedAt = now, now
	s.db.properties[p.ID] = p
	return nil
}

func (s *Properties) GetByID(_ context.Context, id string) (models.Property, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	p, ok := s.db.properties[id]
	if !ok || !p.Active {
		return models.Property{}, repository.ErrNotFound
	}
	return p, nil
}

func (s *Properties) List(_ context.Context, f models.PropertyFilter, page models.Page) ([]models.Property, int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	city := strings.ToLower(f.City)
	var out []models.Property
	for _, p := range s.db.properties {
		switch {
		case !p.Active:
		case f.Type != "" && p.Type != f.Type:
		case city != "" && !strings.Contains(strings.ToLower(p.City), city):
		case f.MinPrice != nil && p.Price < *f.MinPrice:
		case f.MaxPrice != nil && p.Price > *f.MaxPrice:
		case f.Bedrooms != nil && p.Bedrooms != *f.Bedrooms:
		case f.Featured && !p.Featured:
		default:
			out = append(out, p)
		}
	}
	newestFirst(out, func(p models.Property) time.Time { return p.CreatedAt })
	return paginate(out, page), len(out), nil
}

func (s *Properties) Update(_ context.Context, p models.Property) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.properties[p.ID]
	if !ok || !existing.Active {
		return repository.ErrNotFound
	}
	p.Active = true
	p.CreatedAt = existing.CreatedAt
	p.CreatedBy = existing.CreatedBy
	p.UpdatedAt = s.db.now()
	s.db.properties[p.ID] = p
	return nil
}

func (s *Properties) Deactivate(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.properties[id]
	if !ok || !p.Active {
		return repository.ErrNotFound
	}
	p.Active = false
	p.UpdatedAt = s.db.now()
	s.db.properties[id] = p
	return nil
}

type Agents struct{ db *DB }

func (s *Agents) Create(_ context.Context, a models.Agent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, other := range s.db.agents {
		if other.Active && other.Email == a.Email {
			return repository.ErrDuplicate
		}
	}
	now := s.db.now()
	a.Active = true
	a.CreatedAt, a.UpdatedAt = now, now
	s.db.agents[a.ID] = a
	return nil
}

func (s *Agents) GetByID(_ context.Context, id string) (models.Agent, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	a, ok := s.db.agents[id]
	if !ok || !a.Active {
		return models.Agent{}, repository.ErrNotFound
	}
	return a, nil
}

func (s *Agents) FindActiveByEmail(_ context.Context, email string) (models.Agent, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, a := range s.db.agents {
		if a.Active && a.Email == email {
			return a, nil
		}
	}
	return models.Agent{}, repository.ErrNotFound
}

func (s *Agents) List(_ context.Context) ([]models.Agent, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []models.Agent
	for _, a := range s.db.agents {
		if a.Active {
			out = append(out, a)
		}
	}
	sortBy(out, func(a models.Agent) string { return a.Name })
	return out, nil
}

func (s *Agents) Update(_ context.Context, a models.Agent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.agents[a.ID]
	if !ok || !existing.Active {
		return repository.ErrNotFound
	}
	a.Active = true
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = s.db.now()
	s.db.agents[a.ID] = a
	return nil
}

func (s *Agents) Deactivate(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	a, ok := s.db.agents[id]
	if !ok || !a.Active {
		return repository.ErrNotFound
	}
	a.Active = false
	s.db.agents[id] = a
	return nil
}

type Contacts struct{ db *DB }

func (s *Contacts) Create(_ context.Context, m models.ContactMessage) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.now()
	m.CreatedAt, m.UpdatedAt = now, now
	s.db.contacts[m.ID] = m
	return nil
}

func (s *Contacts) GetByID(_ context.Context, id string) (models.ContactMessage, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	m, ok := s.db.contacts[id]
	if !ok {
		return models.ContactMessage{}, repository.ErrNotFound
	}
	return m, nil
}

func (s *Contacts) List(_ context.Context, f models.ContactFilter, page models.Page) ([]models.ContactMessage, int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []models.ContactMessage
	for _, m := range s.db.contacts {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.PropertyID != "" && (m.PropertyID == nil || *m.PropertyID != f.PropertyID) {
			continue
		}
		if f.AgentID != "" && (m.AgentID == nil || *m.AgentID != f.AgentID) {
			continue
		}
		out = append(out, m)
	}
	newestFirst(out, func(m models.ContactMessage) time.Time { return m.CreatedAt })
	return paginate(out, page), len(out), nil
}

func (s *Contacts) UpdateStatus(_ context.Context, id string, status models.MessageStatus, handledBy string) (models.ContactMessage, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	m, ok := s.db.contacts[id]
	if !ok {
		return models.ContactMessage{}, repository.ErrNotFound
	}
	m.Status = status
	m.HandledBy = &handledBy
	m.UpdatedAt = s.db.now()
	s.db.contacts[id] = m
	return m, nil
}

func (s *Contacts) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.contacts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.contacts, id)
	return nil
}

type Testimonials struct{ db *DB }

func (s *Testimonials) Create(_ context.Context, t models.Testimonial) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.now()
	t.Active = true
	t.CreatedAt, t.UpdatedAt = now, now
	s.db.testimonials[t.ID] = t
	return nil
}

func (s *Testimonials) GetByID(_ context.Context, id string) (models.Testimonial, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	t, ok := s.db.testimonials[id]
	if !ok || !t.Active {
		return models.Testimonial{}, repository.ErrNotFound
	}
	return t, nil
}

func (s *Testimonials) List(_ context.Context, approvedOnly bool, page models.Page) ([]models.Testimonial, int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []models.Testimonial
	for _, t := range s.db.testimonials {
		if !t.Active || (approvedOnly && !t.Approved()) {
			continue
		}
		out = append(out, t)
	}
	newestFirst(out, func(t models.Testimonial) time.Time { return t.CreatedAt })
	return paginate(out, page), len(out), nil
}

func (s *Testimonials) Update(_ context.Context, t models.Testimonial) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.testimonials[t.ID]
	if !ok || !existing.Active {
		return repository.ErrNotFound
	}
	t.Active = true
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.db.now()
	s.db.testimonials[t.ID] = t
	return nil
}

func (s *Testimonials) Deactivate(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t, ok := s.db.testimonials[id]
	if !ok || !t.Active {
		return repository.ErrNotFound
	}
	t.Active = false
	s.db.testimonials[id] = t
	return nil
}

type Views struct{ db *DB }

func (s *Views) Record(_ context.Context, v models.PropertyView) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	s.db.views = append(s.db.views, v)
	return nil
}

func (s *Views) RecentExists(_ context.Context, propertyID, clientIP string, since time.Time) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, v := range s.db.views {
		if v.PropertyID == propertyID && v.ClientIP == clientIP && !v.ViewedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

type Uploads struct{ db *DB }

func (s *Uploads) Create(_ context.Context, u models.Upload) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.db.uploads[u.ID] = u
	return nil
}

func (s *Uploads) GetByID(_ context.Context, id string) (models.Upload, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	u, ok := s.db.uploads[id]
	if !ok {
		return models.Upload{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Uploads) GetByObjectKey(_ context.Context, bucket, key string) (models.Upload, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, u := range s.db.uploads {
		if u.Bucket == bucket && u.ObjectKey == key {
			return u, nil
		}
	}
	return models.Upload{}, repository.ErrNotFound
}

func (s *Uploads) UpdateStatus(_ context.Context, id string, status models.UploadStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.uploads[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = s.db.now()
	s.db.uploads[id] = u
	return nil
}

func (s *Uploads) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.uploads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.uploads, id)
	return nil
}

func (s *Uploads) ListStale(_ context.Context, status models.UploadStatus, before time.Time, limit int) ([]models.Upload, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []models.Upload
	for _, u := range s.db.uploads {
		if u.Status == status && u.UpdatedAt.Before(before) {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
