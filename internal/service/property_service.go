package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"realtyhub/internal/ids"
	"realtyhub/internal/models"
	"realtyhub/internal/rbac"
)

const PropertyPageLimit = 12

type PropertyService struct {
	properties PropertyStore
	agents     AgentStore
	log        zerolog.Logger
}

func NewPropertyService(properties PropertyStore, agents AgentStore, log zerolog.Logger) *PropertyService {
	return &PropertyService{properties: properties, agents: agents, log: log}
}

type PropertyInput struct {
	Title       string   `json:"title" validate:"required,min=3,max=255"`
	Description string   `json:"description" validate:"max=2000"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Address     string   `json:"address" validate:"required,min=5,max=500"`
	City        string   `json:"city" validate:"required,min=2,max=100"`
	Bedrooms    int      `json:"bedrooms" validate:"gte=0,lte=20"`
	Bathrooms   int      `json:"bathrooms" validate:"gte=0,lte=20"`
	Area        float64  `json:"area" validate:"gte=1"`
	Features    []string `json:"features" validate:"max=50,dive,max=100"`
	Images      []string `json:"images" validate:"max=30,dive,max=1000"`
	Type        string   `json:"type" validate:"required,oneof=sale rent"`
	Status      string   `json:"status" validate:"omitempty,oneof=available unavailable"`
	Featured    bool     `json:"featured"`
	AgentID     string   `json:"agentId"`
}

// PropertyPatch is a partial update; nil fields keep their stored value and
// an empty agentId clears the assignment.
type PropertyPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	Address     *string   `json:"address"`
	City        *string   `json:"city"`
	Bedrooms    *int      `json:"bedrooms"`
	Bathrooms   *int      `json:"bathrooms"`
	Area        *float64  `json:"area"`
	Features    *[]string `json:"features"`
	Images      *[]string `json:"images"`
	Type        *string   `json:"type"`
	Status      *string   `json:"status"`
	Featured    *bool     `json:"featured"`
	AgentID     *string   `json:"agentId"`
}

func (s *PropertyService) List(ctx context.Context, filter models.PropertyFilter, page models.Page) ([]models.Property, int, error) {
	if filter.Type != "" && filter.Type != models.PropertyTypeSale && filter.Type != models.PropertyTypeRent {
		return nil, 0, invalid("type", "must be one of sale, rent")
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, 0, invalid("minPrice", "must not exceed maxPrice")
	}
	items, total, err := s.properties.List(ctx, filter, page)
	if err != nil {
		return nil, 0, storeError(err, "properties")
	}
	return items, total, nil
}

func (s *PropertyService) Get(ctx context.Context, id string) (models.Property, error) {
	p, err := s.properties.GetByID(ctx, id)
	return p, storeError(err, "property")
}

func (s *PropertyService) Create(ctx context.Context, actor rbac.Principal, input PropertyInput) (models.Property, error) {
	p, err := s.build(ctx, input)
	if err != nil {
		return models.Property{}, err
	}
	p.ID = ids.New()
	p.Active = true
	p.CreatedBy = optionalID(actor.ID)

	if err := s.properties.Create(ctx, p); err != nil {
		return models.Property{}, storeError(err, "property")
	}
	s.log.Info().Str("property_id", p.ID).Str("actor_id", actor.ID).Msg("property created")
	return s.Get(ctx, p.ID)
}

func (s *PropertyService) Update(ctx context.Context, id string, patch PropertyPatch) (models.Property, error) {
	current, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return models.Property{}, storeError(err, "property")
	}

	input := mergeProperty(current, patch)
	p, err := s.build(ctx, input)
	if err != nil {
		return models.Property{}, err
	}
	p.ID = current.ID
	p.Active = current.Active
	p.CreatedBy = current.CreatedBy
	p.CreatedAt = current.CreatedAt

	if err := s.properties.Update(ctx, p); err != nil {
		return models.Property{}, storeError(err, "property")
	}
	return s.Get(ctx, id)
}

func (s *PropertyService) Delete(ctx context.Context, id string) error {
	return storeError(s.properties.Deactivate(ctx, id), "property")
}

func (s *PropertyService) build(ctx context.Context, input PropertyInput) (models.Property, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Address = strings.TrimSpace(input.Address)
	input.City = strings.TrimSpace(input.City)
	if err := validateInput(input); err != nil {
		return models.Property{}, err
	}

	agentID := optionalID(input.AgentID)
	if agentID != nil {
		if _, err := s.agents.GetByID(ctx, *agentID); err != nil {
			if errors.Is(storeError(err, "agent"), ErrNotFound) {
				return models.Property{}, invalid("agentId", "agent not found")
			}
			return models.Property{}, storeError(err, "agent")
		}
	}

	status := models.PropertyStatus(input.Status)
	if status == "" {
		status = models.PropertyStatusAvailable
	}
	features := input.Features
	if features == nil {
		features = []string{}
	}
	images := input.Images
	if images == nil {
		images = []string{}
	}

	return models.Property{
		Title:       input.Title,
		Description: strings.TrimSpace(input.Description),
		Price:       *input.Price,
		Address:     input.Address,
		City:        input.City,
		Bedrooms:    input.Bedrooms,
		Bathrooms:   input.Bathrooms,
		Area:        input.Area,
		Features:    features,
		Images:      images,
		Type:        models.PropertyType(input.Type),
		Status:      status,
		Featured:    input.Featured,
		AgentID:     agentID,
	}, nil
}

func mergeProperty(p models.Property, patch PropertyPatch) PropertyInput {
	price := p.Price
	in := PropertyInput{
		Title:       p.Title,
		Description: p.Description,
		Price:       &price,
		Address:     p.Address,
		City:        p.City,
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		Area:        p.Area,
		Features:    p.Features,
		Images:      p.Images,
		Type:        string(p.Type),
		Status:      string(p.Status),
		Featured:    p.Featured,
	}
	if p.AgentID != nil {
		in.AgentID = *p.AgentID
	}

	if patch.Title != nil {
		in.Title = *patch.Title
	}
	if patch.Description != nil {
		in.Description = *patch.Description
	}
	if patch.Price != nil {
		in.Price = patch.Price
	}
	if patch.Address != nil {
		in.Address = *patch.Address
	}
	if patch.City != nil {
		in.City = *patch.City
	}
	if patch.Bedrooms != nil {
		in.Bedrooms = *patch.Bedrooms
	}
	if patch.Bathrooms != nil {
		in.Bathrooms = *patch.Bathrooms
	}
	if patch.Area != nil {
		in.Area = *patch.Area
	}
	if patch.Features != nil {
		in.Features = *patch.Features
	}
	if patch.Images != nil {
		in.Images = *patch.Images
	}
	if patch.Type != nil {
		in.Type = *patch.Type
	}
	if patch.Status != nil {
		in.Status = *patch.Status
	}
	if patch.Featured != nil {
		in.Featured = *patch.Featured
	}
	if patch.AgentID != nil {
		in.AgentID = *patch.AgentID
	}
	return in
}
