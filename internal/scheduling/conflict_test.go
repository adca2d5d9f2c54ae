package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 16, hour, minute, 0, 0, eat)
}

func TestIntervalOverlapIsSymmetric(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Interval
		overlaps bool
	}{
		{"identical", Interval{at(9, 0), at(10, 0)}, Interval{at(9, 0), at(10, 0)}, true},
		{"partial", Interval{at(9, 0), at(10, 0)}, Interval{at(9, 30), at(10, 30)}, true},
		{"contained", Interval{at(9, 0), at(12, 0)}, Interval{at(10, 0), at(10, 30)}, true},
		{"touching", Interval{at(9, 0), at(10, 0)}, Interval{at(10, 0), at(11, 0)}, false},
		{"disjoint", Interval{at(9, 0), at(10, 0)}, Interval{at(13, 0), at(14, 0)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlaps, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.overlaps, tc.b.Overlaps(tc.a))
			assert.True(t, tc.a.Overlaps(tc.a))
		})
	}
}

func TestFindConflictIgnoresCancelledAndOtherTutors(t *testing.T) {
	sessions := []models.Session{
		{ID: 1, TutorID: 7, Status: models.SessionStatusCancelled, StartTime: at(9, 0), EndTime: at(10, 0)},
		{ID: 2, TutorID: 8, Status: models.SessionStatusScheduled, StartTime: at(9, 0), EndTime: at(10, 0)},
		{ID: 3, TutorID: 7, Status: models.SessionStatusConfirmed, StartTime: at(11, 0), EndTime: at(12, 0)},
	}

	_, found := FindConflict(7, NewInterval(at(9, 30), time.Hour), sessions)
	assert.False(t, found)

	conflict, found := FindConflict(7, NewInterval(at(11, 30), time.Hour), sessions)
	assert.True(t, found)
	assert.Equal(t, int64(3), conflict.ID)
}

func TestSecondBookingOverlappingFirstConflicts(t *testing.T) {
	booked := []models.Session{
		{ID: 1, TutorID: 7, Status: models.SessionStatusScheduled, StartTime: at(9, 0), EndTime: at(10, 0)},
	}

	assert.True(t, HasConflict(7, NewInterval(at(9, 30), time.Hour), booked))
	assert.False(t, HasConflict(7, NewInterval(at(10, 0), time.Hour), booked))
}

func TestFilterAvailableAppliesConservativeWindow(t *testing.T) {
	slots := ResolveSlots(mondayMorning(), SlotQuery{TutorZone: eat, Now: sundayMorning()})
	booked := []models.Session{
		{ID: 1, TutorID: 7, Status: models.SessionStatusScheduled, StartTime: at(9, 0), EndTime: at(10, 0)},
	}

	available := FilterAvailable(slots, 7, booked, 2*time.Hour)
	assert.Equal(t, []string{"2026-03-16 10:00", "2026-03-16 10:30"}, tutorTimes(available))

	later := []models.Session{
		{ID: 2, TutorID: 7, Status: models.SessionStatusConfirmed, StartTime: at(11, 45), EndTime: at(12, 45)},
	}
	available = FilterAvailable(slots, 7, later, 2*time.Hour)
	assert.Equal(t, []string{"2026-03-16 09:00", "2026-03-16 09:30"}, tutorTimes(available))
}
