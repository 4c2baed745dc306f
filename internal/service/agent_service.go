package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"realtyhub/internal/ids"
	"realtyhub/internal/models"
)

type AgentService struct {
	agents AgentStore
	log    zerolog.Logger
}

func NewAgentService(agents AgentStore, log zerolog.Logger) *AgentService {
	return &AgentService{agents: agents, log: log}
}

type AgentInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Position string `json:"position" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Bio      string `json:"bio" validate:"max=1000"`
	PhotoURL string `json:"photoUrl" validate:"omitempty,url,max=1000"`
}

type AgentPatch struct {
	Name     *string `json:"name"`
	Position *string `json:"position"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Bio      *string `json:"bio"`
	PhotoURL *string `json:"photoUrl"`
}

func (s *AgentService) List(ctx context.Context) ([]models.Agent, error) {
	agents, err := s.agents.List(ctx)
	return agents, storeError(err, "agents")
}

func (s *AgentService) Get(ctx context.Context, id string) (models.Agent, error) {
	a, err := s.agents.GetByID(ctx, id)
	return a, storeError(err, "agent")
}

func (s *AgentService) Create(ctx context.Context, input AgentInput) (models.Agent, error) {
	input = trimAgent(input)
	if err := validateInput(input); err != nil {
		return models.Agent{}, err
	}
	if err := s.emailAvailable(ctx, input.Email, ""); err != nil {
		return models.Agent{}, err
	}

	agent := models.Agent{
		ID:       ids.New(),
		Name:     input.Name,
		Position: input.Position,
		Email:    input.Email,
		Phone:    input.Phone,
		Bio:      input.Bio,
		PhotoURL: input.PhotoURL,
		Active:   true,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return models.Agent{}, agentConflict(err)
	}
	return s.Get(ctx, agent.ID)
}

func (s *AgentService) Update(ctx context.Context, id string, patch AgentPatch) (models.Agent, error) {
	current, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return models.Agent{}, storeError(err, "agent")
	}

	input := AgentInput{
		Name:     current.Name,
		Position: current.Position,
		Email:    current.Email,
		Phone:    current.Phone,
		Bio:      current.Bio,
		PhotoURL: current.PhotoURL,
	}
	if patch.Name != nil {
		input.Name = *patch.Name
	}
	if patch.Position != nil {
		input.Position = *patch.Position
	}
	if patch.Email != nil {
		input.Email = *patch.Email
	}
	if patch.Phone != nil {
		input.Phone = *patch.Phone
	}
	if patch.Bio != nil {
		input.Bio = *patch.Bio
	}
	if patch.PhotoURL != nil {
		input.PhotoURL = *patch.PhotoURL
	}
	input = trimAgent(input)
	if err := validateInput(input); err != nil {
		return models.Agent{}, err
	}
	if input.Email != current.Email {
		if err := s.emailAvailable(ctx, input.Email, id); err != nil {
			return models.Agent{}, err
		}
	}

	current.Name = input.Name
	current.Position = input.Position
	current.Email = input.Email
	current.Phone = input.Phone
	current.Bio = input.Bio
	current.PhotoURL = input.PhotoURL
	if err := s.agents.Update(ctx, current); err != nil {
		return models.Agent{}, agentConflict(err)
	}
	return s.Get(ctx, id)
}

func (s *AgentService) Delete(ctx context.Context, id string) error {
	return storeError(s.agents.Deactivate(ctx, id), "agent")
}

func (s *AgentService) emailAvailable(ctx context.Context, email, exceptID string) error {
	existing, err := s.agents.FindActiveByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != exceptID:
		return fmt.Errorf("%w: email already in use", ErrConflict)
	case err == nil:
		return nil
	case errors.Is(storeError(err, "agent"), ErrNotFound):
		return nil
	default:
		return storeError(err, "agent")
	}
}

func agentConflict(err error) error {
	err = storeError(err, "agent")
	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("%w: email already in use", ErrConflict)
	}
	return err
}

func trimAgent(in AgentInput) AgentInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Position = strings.TrimSpace(in.Position)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Bio = strings.TrimSpace(in.Bio)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
	return in
}
