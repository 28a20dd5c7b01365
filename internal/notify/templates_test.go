package notify

import (
	"strings"
	"testing"
)

func TestAppointmentReminderEmail(t *testing.T) {
	msg := AppointmentReminderEmail("nusrat@example.com", "Nusrat Jahan", "Karim", "2026-09-02", "10:00")

	if msg.To != "nusrat@example.com" || msg.ToName != "Nusrat Jahan" {
		t.Errorf("unexpected recipient: %q %q", msg.To, msg.ToName)
	}
	if msg.Subject != "Appointment Reminder" {
		t.Errorf("unexpected subject: %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "You have an appointment with Dr. Karim on 2026-09-02 at 10:00") {
		t.Errorf("body missing appointment details:\n%s", msg.Body)
	}
}

func TestMonthlyReportEmail(t *testing.T) {
	msg := MonthlyReportEmail("karim@example.com", "Karim", 2026, 8, 10, 900000)

	if msg.Subject != "Your monthly report for 2026-08 is ready" {
		t.Errorf("unexpected subject: %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Appointments: 10") {
		t.Errorf("body missing appointment count:\n%s", msg.Body)
	}
	if !strings.Contains(msg.Body, "Earnings: 9000.00") {
		t.Errorf("body missing earnings:\n%s", msg.Body)
	}
}
