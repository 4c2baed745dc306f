package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"realtyhub/internal/ids"
	"realtyhub/internal/models"
	"realtyhub/internal/queue"
	"realtyhub/internal/rbac"
)

type ContactService struct {
	contacts   ContactStore
	properties PropertyStore
	agents     AgentStore
	tasks      Enqueuer
	log        zerolog.Logger
}

// NewContactService accepts a nil enqueuer, in which case no notification
// task is produced.
func NewContactService(contacts ContactStore, properties PropertyStore, agents AgentStore, tasks Enqueuer, log zerolog.Logger) *ContactService {
	return &ContactService{contacts: contacts, properties: properties, agents: agents, tasks: tasks, log: log}
}

type ContactInput struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Phone      string `json:"phone" validate:"omitempty,phone"`
	Subject    string `json:"subject" validate:"max=255"`
	Message    string `json:"message" validate:"required,min=10,max=2000"`
	PropertyID string `json:"propertyId"`
	AgentID    string `json:"agentId"`
}

func (s *ContactService) Submit(ctx context.Context, input ContactInput) (models.ContactMessage, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Subject = strings.TrimSpace(input.Subject)
	input.Message = strings.TrimSpace(input.Message)
	if err := validateInput(input); err != nil {
		return models.ContactMessage{}, err
	}

	msg := models.ContactMessage{
		ID:         ids.New(),
		Name:       input.Name,
		Email:      input.Email,
		Phone:      input.Phone,
		Subject:    input.Subject,
		Message:    input.Message,
		PropertyID: optionalID(input.PropertyID),
		AgentID:    optionalID(input.AgentID),
		Status:     models.MessageStatusNew,
	}
	if msg.PropertyID != nil {
		if _, err := s.properties.GetByID(ctx, *msg.PropertyID); err != nil {
			if errors.Is(storeError(err, "property"), ErrNotFound) {
				return models.ContactMessage{}, invalid("propertyId", "property not found")
			}
			return models.ContactMessage{}, storeError(err, "property")
		}
	}
	if msg.AgentID != nil {
		if _, err := s.agents.GetByID(ctx, *msg.AgentID); err != nil {
			if errors.Is(storeError(err, "agent"), ErrNotFound) {
				return models.ContactMessage{}, invalid("agentId", "agent not found")
			}
			return models.ContactMessage{}, storeError(err, "agent")
		}
	}

	if err := s.contacts.Create(ctx, msg); err != nil {
		return models.ContactMessage{}, storeError(err, "message")
	}
	s.notify(ctx, msg)
	return s.Get(ctx, msg.ID)
}

// notify is best effort: the message is already stored.
func (s *ContactService) notify(ctx context.Context, msg models.ContactMessage) {
	if s.tasks == nil {
		return
	}
	data := map[string]string{"name": msg.Name, "email": msg.Email, "subject": msg.Subject}
	if msg.PropertyID != nil {
		data["propertyId"] = *msg.PropertyID
	}
	if msg.AgentID != nil {
		data["agentId"] = *msg.AgentID
	}
	if _, err := s.tasks.Enqueue(ctx, queue.Task{Type: queue.TaskContactNotify, Ref: msg.ID, Data: data}); err != nil {
		s.log.Warn().Err(err).Str("message_id", msg.ID).Msg("enqueue contact notification failed")
	}
}

func (s *ContactService) List(ctx context.Context, filter models.ContactFilter, page models.Page) ([]models.ContactMessage, int, error) {
	if filter.Status != "" && !validMessageStatus(filter.Status) {
		return nil, 0, invalid("status", "must be one of new, read, replied, closed")
	}
	items, total, err := s.contacts.List(ctx, filter, page)
	if err != nil {
		return nil, 0, storeError(err, "messages")
	}
	return items, total, nil
}

func (s *ContactService) Get(ctx context.Context, id string) (models.ContactMessage, error) {
	m, err := s.contacts.GetByID(ctx, id)
	return m, storeError(err, "message")
}

// UpdateStatus records the caller as the handler of the message.
func (s *ContactService) UpdateStatus(ctx context.Context, actor rbac.Principal, id string, status models.MessageStatus) (models.ContactMessage, error) {
	if !validMessageStatus(status) {
		return models.ContactMessage{}, invalid("status", "must be one of new, read, replied, closed")
	}
	m, err := s.contacts.UpdateStatus(ctx, id, status, actor.ID)
	return m, storeError(err, "message")
}

func (s *ContactService) Delete(ctx context.Context, id string) error {
	return storeError(s.contacts.Delete(ctx, id), "message")
}

func validMessageStatus(status models.MessageStatus) bool {
	switch status {
	case models.MessageStatusNew, models.MessageStatusRead, models.MessageStatusReplied, models.MessageStatusClosed:
		return true
	}
	return false
}
