package models

import "time"

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type PropertyViewCount struct {
	PropertyID string `json:"propertyId"`
	Title      string `json:"title"`
	Views      int    `json:"views"`
}

type UserFilter struct {
	Role       UserRole
	ActiveOnly bool
	Search     string
}

// DayKey is the bucket used by per-day analytics series.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
