package models

import "time"

type Review struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	StudentID int64     `json:"student_id"`
	TutorID   int64     `json:"tutor_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type ReviewListItem struct {
	Review
	Subject     string `json:"subject"`
	StudentName string `json:"student_name"`
	TutorName   string `json:"tutor_name"`
}

type EarningsEntry struct {
	PaymentID          int64     `json:"payment_id"`
	SessionID          int64     `json:"session_id"`
	StudentID          int64     `json:"student_id"`
	StudentName        string    `json:"student_name"`
	Subject            string    `json:"subject"`
	AmountCents        int64     `json:"amount_cents"`
	PlatformFeeCents   int64     `json:"platform_fee_cents"`
	TutorEarningsCents int64     `json:"tutor_earnings_cents"`
	PaidAt             time.Time `json:"paid_at"`
}

type EarningsSummary struct {
	Entries            []EarningsEntry `json:"entries"`
	AmountCents        int64           `json:"amount_cents"`
	PlatformFeeCents   int64           `json:"platform_fee_cents"`
	TutorEarningsCents int64           `json:"tutor_earnings_cents"`
}
