package handlers

import (
	"time"

	"realtyhub/internal/models"
	"realtyhub/internal/rbac"
	"realtyhub/internal/service"
)

type userDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"isActive"`
	Permissions []string   `json:"permissions,omitempty"`
	LastLogin   *time.Time `json:"lastLogin"`
	CreatedBy   *string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func newUserDTO(u models.User) userDTO {
	return userDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		IsActive:  u.Active,
		LastLogin: u.LastLoginAt,
		CreatedBy: u.CreatedBy,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func sessionUser(u models.User, p rbac.Principal) userDTO {
	dto := newUserDTO(u)
	dto.Permissions = p.Permissions.List()
	return dto
}

type grantDTO struct {
	PermissionID string    `json:"permissionId"`
	GrantedBy    *string   `json:"grantedBy"`
	GrantedAt    time.Time `json:"grantedAt"`
}

type userDetailDTO struct {
	userDTO
	Grants []grantDTO `json:"grants"`
}

func newUserDetailDTO(d service.UserDetail) userDetailDTO {
	out := userDetailDTO{userDTO: newUserDTO(d.User), Grants: make([]grantDTO, 0, len(d.Grants))}
	out.Permissions = d.Permissions.List()
	for _, g := range d.Grants {
		out.Grants = append(out.Grants, grantDTO{PermissionID: g.PermissionID, GrantedBy: g.GrantedBy, GrantedAt: g.GrantedAt})
	}
	return out
}

type propertyDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Bedrooms    int       `json:"bedrooms"`
	Bathrooms   int       `json:"bathrooms"`
	Area        float64   `json:"area"`
	Features    []string  `json:"features"`
	Images      []string  `json:"images"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Featured    bool      `json:"featured"`
	AgentID     *string   `json:"agentId"`
	CreatedBy   *string   `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newPropertyDTO(p models.Property) propertyDTO {
	return propertyDTO{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Address:     p.Address,
		City:        p.City,
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		Area:        p.Area,
		Features:    nonNilStrings(p.Features),
		Images:      nonNilStrings(p.Images),
		Type:        string(p.Type),
		Status:      string(p.Status),
		Featured:    p.Featured,
		AgentID:     p.AgentID,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type agentDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Position  string    `json:"position"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Bio       string    `json:"bio"`
	PhotoURL  string    `json:"photoUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newAgentDTO(a models.Agent) agentDTO {
	return agentDTO{
		ID:        a.ID,
		Name:      a.Name,
		Position:  a.Position,
		Email:     a.Email,
		Phone:     a.Phone,
		Bio:       a.Bio,
		PhotoURL:  a.PhotoURL,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

type messageDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	PropertyID *string   `json:"propertyId"`
	AgentID    *string   `json:"agentId"`
	Status     string    `json:"status"`
	HandledBy  *string   `json:"handledBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newMessageDTO(m models.ContactMessage) messageDTO {
	return messageDTO{
		ID:         m.ID,
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
		Subject:    m.Subject,
		Message:    m.Message,
		PropertyID: m.PropertyID,
		AgentID:    m.AgentID,
		Status:     string(m.Status),
		HandledBy:  m.HandledBy,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

type testimonialDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Rating     int       `json:"rating"`
	AvatarURL  string    `json:"avatarUrl"`
	Approved   bool      `json:"approved"`
	ApprovedBy *string   `json:"approvedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func newTestimonialDTO(t models.Testimonial) testimonialDTO {
	return testimonialDTO{
		ID:         t.ID,
		Name:       t.Name,
		Role:       t.Role,
		Content:    t.Content,
		Rating:     t.Rating,
		AvatarURL:  t.AvatarURL,
		Approved:   t.Approved(),
		ApprovedBy: t.ApprovedBy,
		CreatedAt:  t.CreatedAt,
	}
}

type fileDTO struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

func newFileDTO(f service.StoredFile) fileDTO {
	return fileDTO{
		ID:          f.Upload.ID,
		Path:        f.Upload.ObjectKey,
		URL:         f.URL,
		Size:        f.Upload.SizeBytes,
		ContentType: f.Upload.ContentType,
	}
}

// mapSlice converts a slice and never returns nil, so lists encode as [].
func mapSlice[T, U any](in []T, fn func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
