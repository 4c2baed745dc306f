package models

import "time"

type Testimonial struct {
	ID         string
	Name       string
	Role       string
	Content    string
	Rating     int
	AvatarURL  string
	ApprovedBy *string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (t Testimonial) Approved() bool {
	return t.ApprovedBy != nil
}
