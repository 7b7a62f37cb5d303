// Package jobs holds background work that runs alongside the service.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"clinic-scheduler/internal/appointment"
	"clinic-scheduler/internal/model"
)

// AppointmentLister is the read side the reminder needs.
type AppointmentLister interface {
	ListAll(ctx context.Context) ([]model.Appointment, error)
}

// ReminderSender records reminders and lets the job skip appointments that
// already have one.
type ReminderSender interface {
	HasNotification(ctx context.Context, appointmentID string, t model.NotificationType) (bool, error)
	NotifyAppointmentReminder(ctx context.Context, a model.Appointment) error
}

// Reminder notifies patients of confirmed appointments dated tomorrow, once
// per appointment.
type Reminder struct {
	appointments AppointmentLister
	sender       ReminderSender
	log          *zap.Logger
	loc          *time.Location
	interval     time.Duration
	now          func() time.Time
}

func NewReminder(appts AppointmentLister, sender ReminderSender, log *zap.Logger, loc *time.Location, interval time.Duration) *Reminder {
	if loc == nil {
		loc = time.UTC
	}
	return &Reminder{
		appointments: appts,
		sender:       sender,
		log:          log,
		loc:          loc,
		interval:     interval,
		now:          time.Now,
	}
}

// Run sweeps immediately and then every interval until ctx is done.
func (r *Reminder) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		if n, err := r.Sweep(ctx); err != nil {
			r.log.Warn("reminder sweep failed", zap.Error(err))
		} else if n > 0 {
			r.log.Info("reminders sent", zap.Int("count", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Sweep sends the reminders due now and returns how many were sent. A failed
// send is logged and retried on the next sweep.
func (r *Reminder) Sweep(ctx context.Context) (int, error) {
	all, err := r.appointments.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	tomorrow := appointment.FormatDate(r.now().In(r.loc).AddDate(0, 0, 1))

	sent := 0
	for _, a := range all {
		if a.Status != model.StatusConfirmed || !appointment.SameDate(a.Date, tomorrow) {
			continue
		}
		done, err := r.sender.HasNotification(ctx, a.ID, model.NotificationAppointmentReminder)
		if err != nil {
			return sent, err
		}
		if done {
			continue
		}
		if err := r.sender.NotifyAppointmentReminder(ctx, a); err != nil {
			r.log.Warn("send reminder", zap.String("appointment_id", a.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}
