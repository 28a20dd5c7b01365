package notify

import "fmt"

// AppointmentReminderEmail builds the 24-hour reminder sent to a patient.
func AppointmentReminderEmail(patientEmail, patientName, doctorName, date, timeOfDay string) EmailMessage {
	return EmailMessage{
		To:      patientEmail,
		ToName:  patientName,
		Subject: "Appointment Reminder",
		Body: fmt.Sprintf(
			"Dear %s,\n\nYou have an appointment with Dr. %s on %s at %s.\n\nPlease arrive a few minutes early. If you cannot attend, cancel or reschedule in advance so the slot can be offered to another patient.\n\nHealthDesk",
			patientName, doctorName, date, timeOfDay),
	}
}

// MonthlyReportEmail notifies a doctor that their monthly report is ready.
func MonthlyReportEmail(doctorEmail, doctorName string, year, month int, totalAppointments int, earningsCents int64) EmailMessage {
	return EmailMessage{
		To:      doctorEmail,
		ToName:  doctorName,
		Subject: fmt.Sprintf("Your monthly report for %04d-%02d is ready", year, month),
		Body: fmt.Sprintf(
			"Dear Dr. %s,\n\nYour report for %04d-%02d has been generated.\n\nAppointments: %d\nEarnings: %.2f\n\nSign in to view the full breakdown.\n\nHealthDesk",
			doctorName, year, month, totalAppointments, float64(earningsCents)/100),
	}
}
