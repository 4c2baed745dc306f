package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"realtyhub/internal/ids"
	"realtyhub/internal/models"
	"realtyhub/internal/rbac"
)

type TestimonialService struct {
	testimonials TestimonialStore
	log          zerolog.Logger
}

func NewTestimonialService(testimonials TestimonialStore, log zerolog.Logger) *TestimonialService {
	return &TestimonialService{testimonials: testimonials, log: log}
}

type TestimonialInput struct {
	Name      string `json:"name" validate:"required,min=2,max=100"`
	Role      string `json:"role" validate:"max=100"`
	Content   string `json:"content" validate:"required,min=10,max=1000"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	AvatarURL string `json:"avatarUrl" validate:"omitempty,url,max=1000"`
}

type TestimonialPatch struct {
	Name      *string `json:"name"`
	Role      *string `json:"role"`
	Content   *string `json:"content"`
	Rating    *int    `json:"rating"`
	AvatarURL *string `json:"avatarUrl"`
	Approved  *bool   `json:"approved"`
}

// List returns a page of approved testimonials unless includeUnapproved is set.
func (s *TestimonialService) List(ctx context.Context, includeUnapproved bool, page models.Page) ([]models.Testimonial, int, error) {
	items, total, err := s.testimonials.List(ctx, !includeUnapproved, page)
	if err != nil {
		return nil, 0, storeError(err, "testimonials")
	}
	return items, total, nil
}

// Get returns one testimonial. An unapproved entry is reported missing unless
// includeUnapproved is set.
func (s *TestimonialService) Get(ctx context.Context, id string, includeUnapproved bool) (models.Testimonial, error) {
	t, err := s.testimonials.GetByID(ctx, id)
	if err != nil {
		return models.Testimonial{}, storeError(err, "testimonial")
	}
	if !t.Approved() && !includeUnapproved {
		return models.Testimonial{}, fmt.Errorf("%w: testimonial", ErrNotFound)
	}
	return t, nil
}

// Submit stores a public testimonial awaiting approval.
func (s *TestimonialService) Submit(ctx context.Context, input TestimonialInput) (models.Testimonial, error) {
	input = trimTestimonial(input)
	if err := validateInput(input); err != nil {
		return models.Testimonial{}, err
	}
	t := models.Testimonial{
		ID:        ids.New(),
		Name:      input.Name,
		Role:      input.Role,
		Content:   input.Content,
		Rating:    input.Rating,
		AvatarURL: input.AvatarURL,
		Active:    true,
	}
	if err := s.testimonials.Create(ctx, t); err != nil {
		return models.Testimonial{}, storeError(err, "testimonial")
	}
	created, err := s.testimonials.GetByID(ctx, t.ID)
	return created, storeError(err, "testimonial")
}

func (s *TestimonialService) Update(ctx context.Context, actor rbac.Principal, id string, patch TestimonialPatch) (models.Testimonial, error) {
	current, err := s.testimonials.GetByID(ctx, id)
	if err != nil {
		return models.Testimonial{}, storeError(err, "testimonial")
	}

	input := TestimonialInput{
		Name:      current.Name,
		Role:      current.Role,
		Content:   current.Content,
		Rating:    current.Rating,
		AvatarURL: current.AvatarURL,
	}
	if patch.Name != nil {
		input.Name = *patch.Name
	}
	if patch.Role != nil {
		input.Role = *patch.Role
	}
	if patch.Content != nil {
		input.Content = *patch.Content
	}
	if patch.Rating != nil {
		input.Rating = *patch.Rating
	}
	if patch.AvatarURL != nil {
		input.AvatarURL = *patch.AvatarURL
	}
	input = trimTestimonial(input)
	if err := validateInput(input); err != nil {
		return models.Testimonial{}, err
	}

	current.Name = input.Name
	current.Role = input.Role
	current.Content = input.Content
	current.Rating = input.Rating
	current.AvatarURL = input.AvatarURL
	if patch.Approved != nil {
		switch {
		case *patch.Approved && !current.Approved():
			current.ApprovedBy = optionalID(actor.ID)
		case !*patch.Approved:
			current.ApprovedBy = nil
		}
	}

	if err := s.testimonials.Update(ctx, current); err != nil {
		return models.Testimonial{}, storeError(err, "testimonial")
	}
	updated, err := s.testimonials.GetByID(ctx, id)
	return updated, storeError(err, "testimonial")
}

func (s *TestimonialService) Delete(ctx context.Context, id string) error {
	return storeError(s.testimonials.Deactivate(ctx, id), "testimonial")
}

func trimTestimonial(in TestimonialInput) TestimonialInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.TrimSpace(in.Role)
	in.Content = strings.TrimSpace(in.Content)
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	return in
}
