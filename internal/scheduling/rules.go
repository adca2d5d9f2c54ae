// Package scheduling turns weekly availability into bookable slots and checks
// candidate intervals against booked sessions. Everything here is pure.
package scheduling

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
)

const clockLayout = "15:04"

var ErrInvalidRule = errors.New("invalid availability rule")

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NormalizeDay maps any casing of a weekday name to its canonical form ("Monday").
func NormalizeDay(day string) (string, bool) {
	weekday, ok := weekdays[strings.ToLower(strings.TrimSpace(day))]
	if !ok {
		return "", false
	}
	return weekday.String(), true
}

// ParseClock parses an HH:MM wall-clock string into minutes after midnight.
func ParseClock(value string) (int, error) {
	parsed, err := time.Parse(clockLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// FormatClock is the inverse of ParseClock.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ruleWindow returns the rule's [start, end) in minutes after midnight.
func ruleWindow(rule models.AvailabilityRule) (int, int, error) {
	start, err := ParseClock(rule.StartTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: start_time %q", ErrInvalidRule, rule.StartTime)
	}
	end, err := ParseClock(rule.EndTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: end_time %q", ErrInvalidRule, rule.EndTime)
	}
	if start >= end {
		return 0, 0, fmt.Errorf("%w: start_time must be before end_time", ErrInvalidRule)
	}
	return start, end, nil
}

// NormalizeRules validates a full rule set and returns it with canonical day
// names and HH:MM times, ordered by day then start. Rules for the same day may
// touch but must not overlap.
func NormalizeRules(rules []models.AvailabilityRule) ([]models.AvailabilityRule, error) {
	type window struct {
		rule       models.AvailabilityRule
		start, end int
		weekday    time.Weekday
	}

	windows := make([]window, 0, len(rules))
	for i, rule := range rules {
		day, ok := NormalizeDay(rule.Day)
		if !ok {
			return nil, fmt.Errorf("%w: rule %d has unknown day %q", ErrInvalidRule, i, rule.Day)
		}
		start, end, err := ruleWindow(rule)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rule.Day = day
		rule.StartTime = FormatClock(start)
		rule.EndTime = FormatClock(end)
		windows = append(windows, window{rule: rule, start: start, end: end, weekday: weekdays[strings.ToLower(day)]})
	}

	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].weekday != windows[j].weekday {
			return windows[i].weekday < windows[j].weekday
		}
		return windows[i].start < windows[j].start
	})

	normalized := make([]models.AvailabilityRule, 0, len(windows))
	for i, w := range windows {
		if i > 0 {
			prev := windows[i-1]
			if prev.weekday == w.weekday && prev.end > w.start {
				return nil, fmt.Errorf(
					"%w: %s %s-%s overlaps %s-%s",
					ErrInvalidRule, w.rule.Day,
					prev.rule.StartTime, prev.rule.EndTime,
					w.rule.StartTime, w.rule.EndTime,
				)
			}
		}
		normalized = append(normalized, w.rule)
	}
	return normalized, nil
}
