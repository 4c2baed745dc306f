package models

import "time"

type PropertyType string

const (
	PropertyTypeSale PropertyType = "sale"
	PropertyTypeRent PropertyType = "rent"
)

type PropertyStatus string

const (
	PropertyStatusAvailable   PropertyStatus = "available"
	PropertyStatusUnavailable PropertyStatus = "unavailable"
)

type Property struct {
	ID          string
	Title       string
	Description string
	Price       float64
	Address     string
	City        string
	Bedrooms    int
	Bathrooms   int
	Area        float64
	Features    []string
	Images      []string
	Type        PropertyType
	Status      PropertyStatus
	Featured    bool
	AgentID     *string
	Active      bool
	CreatedBy   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type PropertyFilter struct {
	Type     PropertyType
	City     string
	MinPrice *float64
	MaxPrice *float64
	Bedrooms *int
	Featured bool
}

// PropertyView is one recorded page view, used for analytics.
type PropertyView struct {
	ID         string
	PropertyID string
	ClientIP   string
	UserAgent  string
	ViewedAt   time.Time
}
