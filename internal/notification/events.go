package notification

import (
	"context"
	"fmt"
	"strings"

	"clinic-scheduler/internal/model"
)

func (e *Engine) NotifyAppointmentConfirmed(ctx context.Context, a model.Appointment) error {
	_, err := e.Create(ctx, NewNotification{
		UserID:        a.PatientID,
		Type:          model.NotificationAppointmentConfirmed,
		Title:         "Appointment confirmed",
		Message:       fmt.Sprintf("Your appointment with Dr. %s on %s at %s has been confirmed.", a.DoctorName, a.Date, a.Time),
		AppointmentID: a.ID,
	})
	return err
}

func (e *Engine) NotifyAppointmentCancelled(ctx context.Context, a model.Appointment, reason string) error {
	msg := fmt.Sprintf("Your appointment with Dr. %s on %s at %s has been cancelled.", a.DoctorName, a.Date, a.Time)
	if reason = strings.TrimSpace(reason); reason != "" {
		msg += " Reason: " + reason
	}
	_, err := e.Create(ctx, NewNotification{
		UserID:        a.PatientID,
		Type:          model.NotificationAppointmentCancelled,
		Title:         "Appointment cancelled",
		Message:       msg,
		AppointmentID: a.ID,
	})
	return err
}

// NotifyNewAppointment tells the doctor a patient booked a slot.
func (e *Engine) NotifyNewAppointment(ctx context.Context, a model.Appointment) error {
	_, err := e.Create(ctx, NewNotification{
		UserID:        a.DoctorID,
		Type:          model.NotificationGeneral,
		Title:         "New appointment",
		Message:       fmt.Sprintf("%s booked an appointment on %s at %s (%s).", a.PatientName, a.Date, a.Time, a.Specialty),
		AppointmentID: a.ID,
	})
	return err
}

// NotifyAppointmentReminder is sent to the patient the day before.
func (e *Engine) NotifyAppointmentReminder(ctx context.Context, a model.Appointment) error {
	_, err := e.Create(ctx, NewNotification{
		UserID:        a.PatientID,
		Type:          model.NotificationAppointmentReminder,
		Title:         "Appointment reminder",
		Message:       fmt.Sprintf("Reminder: you have an appointment with Dr. %s tomorrow, %s at %s.", a.DoctorName, a.Date, a.Time),
		AppointmentID: a.ID,
	})
	return err
}
