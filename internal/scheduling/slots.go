package scheduling

import (
	"sort"
	"strings"
	"time"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
)

const (
	dateLayout = "2006-01-02"

	DefaultHorizonDays = 7
	DefaultGranularity = 30 * time.Minute
	DefaultMaxDuration = 2 * time.Hour
)

// Slot is one bookable start, described in both the tutor's and the viewer's zone.
type Slot struct {
	Date       string    `json:"date"`
	Day        string    `json:"day"`
	TutorTime  string    `json:"tutor_time"`
	ViewerDate string    `json:"viewer_date"`
	ViewerDay  string    `json:"viewer_day"`
	ViewerTime string    `json:"viewer_time"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

type SlotQuery struct {
	TutorZone   *time.Location
	ViewerZone  *time.Location
	Now         time.Time
	HorizonDays int
	Granularity time.Duration
}

func (q SlotQuery) withDefaults() SlotQuery {
	if q.TutorZone == nil {
		q.TutorZone = time.UTC
	}
	if q.ViewerZone == nil {
		q.ViewerZone = time.UTC
	}
	if q.HorizonDays <= 0 {
		q.HorizonDays = DefaultHorizonDays
	}
	if q.Granularity < time.Minute {
		q.Granularity = DefaultGranularity
	}
	return q
}

// ResolveSlots expands weekly rules into concrete slots for HorizonDays days
// starting with today in the tutor's zone. Rules that fail to parse are
// skipped. Slots starting before Now are omitted and identical starts from
// overlapping rules are emitted once. Output is ordered by Start.
func ResolveSlots(rules []models.AvailabilityRule, query SlotQuery) []Slot {
	q := query.withDefaults()
	step := int(q.Granularity / time.Minute)

	today := q.Now.In(q.TutorZone)
	year, month, day := today.Date()

	seen := make(map[int64]struct{})
	slots := make([]Slot, 0)
	for i := 0; i < q.HorizonDays; i++ {
		date := time.Date(year, month, day+i, 0, 0, 0, 0, q.TutorZone)
		weekday := date.Weekday().String()

		for _, rule := range rules {
			if !strings.EqualFold(strings.TrimSpace(rule.Day), weekday) {
				continue
			}
			startMinute, endMinute, err := ruleWindow(rule)
			if err != nil {
				continue
			}

			for offset := startMinute; offset < endMinute; offset += step {
				start := time.Date(date.Year(), date.Month(), date.Day(), 0, offset, 0, 0, q.TutorZone)
				if start.Before(q.Now) {
					continue
				}
				key := start.UnixNano()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}

				viewerStart := start.In(q.ViewerZone)
				slots = append(slots, Slot{
					Date:       date.Format(dateLayout),
					Day:        weekday,
					TutorTime:  start.Format(clockLayout),
					ViewerDate: viewerStart.Format(dateLayout),
					ViewerDay:  viewerStart.Weekday().String(),
					ViewerTime: viewerStart.Format(clockLayout),
					Start:      start.UTC(),
					End:        start.Add(q.Granularity).UTC(),
				})
			}
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
	return slots
}

// ComposeStart resolves a tutor-local date (YYYY-MM-DD) and HH:MM time to an instant.
func ComposeStart(date, clock string, zone *time.Location) (time.Time, error) {
	if zone == nil {
		zone = time.UTC
	}
	return time.ParseInLocation(dateLayout+" "+clockLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(clock), zone)
}

// LocalDate formats an instant as the calendar date in zone.
func LocalDate(instant time.Time, zone *time.Location) string {
	if zone == nil {
		zone = time.UTC
	}
	return instant.In(zone).Format(dateLayout)
}
