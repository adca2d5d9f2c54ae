package scheduling

import (
	"time"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start time.Time, length time.Duration) Interval {
	return Interval{Start: start, End: start.Add(length)}
}

// Overlaps reports half-open overlap; touching endpoints do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

func sessionInterval(session models.Session) Interval {
	return Interval{Start: session.StartTime, End: session.EndTime}
}

// FindConflict returns the first non-cancelled session of tutorID that overlaps candidate.
func FindConflict(tutorID int64, candidate Interval, sessions []models.Session) (*models.Session, bool) {
	for i := range sessions {
		session := sessions[i]
		if session.TutorID != tutorID || session.Status == models.SessionStatusCancelled {
			continue
		}
		if sessionInterval(session).Overlaps(candidate) {
			return &sessions[i], true
		}
	}
	return nil, false
}

func HasConflict(tutorID int64, candidate Interval, sessions []models.Session) bool {
	_, found := FindConflict(tutorID, candidate, sessions)
	return found
}

// FilterAvailable keeps the slots whose [Start, Start+window) is free. The
// booked duration is unknown at display time so window is a conservative
// maximum; the booking itself is checked with the real duration.
func FilterAvailable(slots []Slot, tutorID int64, sessions []models.Session, window time.Duration) []Slot {
	if window <= 0 {
		window = DefaultMaxDuration
	}
	available := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		if HasConflict(tutorID, NewInterval(slot.Start, window), sessions) {
			continue
		}
		available = append(available, slot)
	}
	return available
}
