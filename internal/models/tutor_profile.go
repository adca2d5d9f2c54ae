package models

import (
	"strings"
	"time"
)

type TutorProfile struct {
	ID            int64              `json:"id"`
	UserID        int64              `json:"user_id"`
	FullName      *string            `json:"full_name"`
	Bio           *string            `json:"bio"`
	Subjects      []string           `json:"subjects"`
	PricePerHour  *float64           `json:"price_per_hour"`
	Timezone      string             `json:"timezone"`
	Rating        float64            `json:"rating"`
	TotalReviews  int                `json:"total_reviews"`
	TotalSessions int                `json:"total_sessions"`
	IsVerified    bool               `json:"is_verified"`
	Availability  []AvailabilityRule `json:"availability"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// OffersSubject reports whether subject is one of the tutor's subjects, ignoring case.
func (p *TutorProfile) OffersSubject(subject string) bool {
	for _, offered := range p.Subjects {
		if strings.EqualFold(strings.TrimSpace(offered), strings.TrimSpace(subject)) {
			return true
		}
	}
	return false
}

// AvailabilityRule is one weekly window, in the tutor's reference zone.
type AvailabilityRule struct {
	ID        int64  `json:"id,omitempty"`
	TutorID   int64  `json:"-"`
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type TutorListResponse struct {
	ID            string   `json:"id"`
	FullName      string   `json:"full_name"`
	Subjects      []string `json:"subjects"`
	PricePerHour  float64  `json:"price_per_hour"`
	Rating        float64  `json:"rating"`
	TotalReviews  int      `json:"total_reviews"`
	TotalSessions int      `json:"total_sessions"`
	IsVerified    bool     `json:"is_verified"`
}

type TutorDetailResponse struct {
	TutorListResponse
	Bio          string             `json:"bio"`
	Timezone     string             `json:"timezone"`
	Availability []AvailabilityRule `json:"availability"`
}

type FilterOptions struct {
	Subjects []string `json:"subjects"`
	Days     []string `json:"days"`
}
