package models

import "time"

type Agent struct {
	ID        string
	Name      string
	Position  string
	Email     string
	Phone     string
	Bio       string
	PhotoURL  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
