package models

import (
	"strconv"
	"time"
)

const (
	SessionStatusScheduled = "scheduled"
	SessionStatusConfirmed = "confirmed"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

const (
	CallStatusInactive = "inactive"
	CallStatusActive   = "active"
	CallStatusEnded    = "ended"
)

const (
	PaymentStatusUnpaid    = "unpaid"
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

const (
	PartyStudent = "student"
	PartyTutor   = "tutor"
)

type Session struct {
	ID               int64     `json:"id"`
	TutorID          int64     `json:"tutor_id"`
	StudentID        int64     `json:"student_id"`
	Subject          string    `json:"subject"`
	Date             string    `json:"date"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	DurationHours    float64   `json:"duration_hours"`
	PricePerHour     float64   `json:"price_per_hour"`
	Status           string    `json:"status"`
	StudentConfirmed bool      `json:"student_confirmed"`
	TutorConfirmed   bool      `json:"tutor_confirmed"`
	CallStatus       string    `json:"call_status"`
	Rating           *int      `json:"rating,omitempty"`
	Review           *string   `json:"review,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PartyOf returns which side of the session actorID is on.
func (s *Session) PartyOf(actorID int64) (string, bool) {
	switch actorID {
	case s.StudentID:
		return PartyStudent, true
	case s.TutorID:
		return PartyTutor, true
	default:
		return "", false
	}
}

func (s *Session) ConfirmedBy(party string) bool {
	if party == PartyStudent {
		return s.StudentConfirmed
	}
	return s.TutorConfirmed
}

type Payment struct {
	ID                 int64     `json:"id"`
	SessionID          int64     `json:"session_id"`
	TutorID            int64     `json:"tutor_id"`
	StudentID          int64     `json:"student_id"`
	AmountCents        int64     `json:"amount_cents"`
	PlatformFeeCents   int64     `json:"platform_fee_cents"`
	TutorEarningsCents int64     `json:"tutor_earnings_cents"`
	Status             string    `json:"status"`
	PaymentMethod      string    `json:"payment_method"`
	Reference          string    `json:"reference"`
	CreatedAt          time.Time `json:"created_at"`
}

type SessionDetail struct {
	Session
	PaymentStatus string   `json:"payment_status"`
	Payment       *Payment `json:"payment,omitempty"`
}

// NewSessionDetail derives the session's payment status from its latest payment record.
func NewSessionDetail(session Session, payment *Payment) SessionDetail {
	detail := SessionDetail{Session: session, PaymentStatus: PaymentStatusUnpaid}
	if payment != nil {
		detail.Payment = payment
		detail.PaymentStatus = payment.Status
	}
	return detail
}

// CallStatusEvent is pushed to every subscriber of a session's channel.
type CallStatusEvent struct {
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	CallStatus string `json:"call_status"`
	Timestamp  string `json:"timestamp"`
}

func SessionTopic(sessionID int64) string {
	return "session:" + strconv.FormatInt(sessionID, 10)
}
