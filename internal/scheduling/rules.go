package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/healthdesk/healthdesk-platform/internal/accounts"
)

// Business rules shared by booking and rescheduling.
const (
	// BusinessStart / BusinessEnd bound bookable wall-clock times, inclusive.
	BusinessStart = "08:00"
	BusinessEnd   = "20:00"

	// AppointmentDuration is the fixed system-wide consultation length; it also
	// defines the window-conflict radius around a requested start time.
	AppointmentDuration = 60 * time.Minute

	// MinAdvanceBooking is how far ahead of "now" a booking must be placed.
	MinAdvanceBooking = 60 * time.Minute

	// MaxAdvanceBookingDays caps how far ahead a booking may be placed.
	MaxAdvanceBookingDays = 90

	// MaxDailyAppointments caps a patient's non-cancelled appointments per date.
	MaxDailyAppointments = 3
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// parseDate parses a calendar date in "2006-01-02" form.
func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// parseClock parses a wall-clock time and returns it normalized to "15:04".
func parseClock(s string) (string, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t.Format(clockLayout), nil
}

// combine builds the appointment instant from a calendar date and a normalized
// clock string in the business timezone.
func combine(date time.Time, clock string, loc *time.Location) time.Time {
	t, _ := time.Parse(clockLayout, clock)
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// mondayIndex maps a weekday to the Monday=0 .. Sunday=6 convention used by
// doctor schedules.
func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// validateInstant enforces temporal validity: strictly in the future, at least
// MinAdvanceBooking ahead, at most MaxAdvanceBookingDays ahead. Boundary values
// are accepted on both ends.
func validateInstant(instant, now time.Time) *Error {
	if !instant.After(now) {
		return conflictError("appointment time cannot be in the past")
	}
	if instant.Before(now.Add(MinAdvanceBooking)) {
		return conflictError("appointment must be booked at least %d minutes in advance", int(MinAdvanceBooking.Minutes()))
	}
	if instant.After(now.AddDate(0, 0, MaxAdvanceBookingDays)) {
		return conflictError("appointment cannot be booked more than %d days in advance", MaxAdvanceBookingDays)
	}
	return nil
}

// validateBusinessHours enforces the bookable wall-clock window and the Sunday
// closure.
func validateBusinessHours(instant time.Time) *Error {
	clock := instant.Format(clockLayout)
	if clock < BusinessStart || clock > BusinessEnd {
		return conflictError("appointment must be between %s and %s", BusinessStart, BusinessEnd)
	}
	if mondayIndex(instant) == 6 {
		return conflictError("appointments are not available on Sundays")
	}
	return nil
}

// scheduleCovers reports whether any active schedule interval for the given
// Monday-indexed weekday contains the clock time. Interval matching is
// half-open: start <= t < end.
func scheduleCovers(intervals []accounts.ScheduleInterval, dayIdx int, clock string) bool {
	for _, si := range intervals {
		if !si.IsActive || si.DayOfWeek != dayIdx {
			continue
		}
		if si.Start <= clock && clock < si.End {
			return true
		}
	}
	return false
}

// slotStarts enumerates the AppointmentDuration-aligned slot start times of all
// active intervals for the given weekday, in ascending order.
func slotStarts(intervals []accounts.ScheduleInterval, dayIdx int) []string {
	var starts []string
	seen := make(map[string]struct{})
	for _, si := range intervals {
		if !si.IsActive || si.DayOfWeek != dayIdx {
			continue
		}
		start, err := time.Parse(clockLayout, si.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(clockLayout, si.End)
		if err != nil {
			continue
		}
		for t := start; !t.Add(AppointmentDuration).After(end); t = t.Add(AppointmentDuration) {
			s := t.Format(clockLayout)
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				starts = append(starts, s)
			}
		}
	}
	// Lexical order equals chronological order for zero-padded "15:04" strings.
	sort.Strings(starts)
	return starts
}
