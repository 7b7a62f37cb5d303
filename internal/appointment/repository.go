// Package appointment owns the appointment collection: booking, status
// changes and the lookups the rest of the app is allowed to make.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"clinic-scheduler/internal/ids"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/store"
)

// Notifier receives appointment lifecycle events. Implemented by the
// notification engine.
type Notifier interface {
	NotifyNewAppointment(ctx context.Context, a model.Appointment) error
	NotifyAppointmentConfirmed(ctx context.Context, a model.Appointment) error
	NotifyAppointmentCancelled(ctx context.Context, a model.Appointment, reason string) error
}

type Config struct {
	// WindowMonths is how far ahead bookings are accepted. Defaults to 3.
	WindowMonths int
	Location     *time.Location
	Transitions  model.Transitions
	// RejectDoubleBooking refuses a second live appointment for the same
	// doctor, date and slot.
	RejectDoubleBooking bool
	IDs                 ids.Generator
	Now                 func() time.Time
}

type Repository struct {
	appointments *store.Collection[model.Appointment]
	notifier     Notifier
	log          *zap.Logger
	validate     *validator.Validate

	window      Window
	transitions model.Transitions
	rejectDup   bool
	ids         ids.Generator
	now         func() time.Time
}

// NewAppointment is the booking input. Specialty doubles as the free-text
// description of the visit.
type NewAppointment struct {
	PatientID   string `json:"patientId" validate:"required"`
	PatientName string `json:"patientName" validate:"required"`
	DoctorID    string `json:"doctorId" validate:"required"`
	DoctorName  string `json:"doctorName" validate:"required"`
	Date        string `json:"date" validate:"required,booking_date"`
	Time        string `json:"time" validate:"required,slot"`
	Specialty   string `json:"specialty" validate:"required"`
}

func New(st *store.Store, notifier Notifier, log *zap.Logger, cfg Config) *Repository {
	if cfg.WindowMonths <= 0 {
		cfg.WindowMonths = 3
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Transitions == nil {
		cfg.Transitions = model.StrictTransitions
	}
	if cfg.IDs == nil {
		cfg.IDs = ids.NewULID("apt")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	r := &Repository{
		appointments: store.NewCollection[model.Appointment](st, store.Appointments),
		notifier:     notifier,
		log:          log,
		window:       Window{Months: cfg.WindowMonths, Loc: cfg.Location},
		transitions:  cfg.Transitions,
		rejectDup:    cfg.RejectDoubleBooking,
		ids:          cfg.IDs,
		now:          cfg.Now,
	}
	r.validate = newValidator(r.window, r.now)
	return r
}

func newValidator(w Window, now func() time.Time) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterValidation("slot", func(fl validator.FieldLevel) bool {
		return ValidSlot(fl.Field().String())
	})
	v.RegisterValidation("booking_date", func(fl validator.FieldLevel) bool {
		return w.Contains(fl.Field().String(), now())
	})
	return v
}

var tagMessages = map[string]string{
	"required":     "is required",
	"slot":         "must be a half-hour slot between 09:00 and 17:30",
	"booking_date": "must be a DD/MM/YYYY date between today and the end of the booking window",
}

func toValidationError(err error) error {
	var fes validator.ValidationErrors
	if errors.As(err, &fes) && len(fes) > 0 {
		fe := fes[0]
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed on '%s' validation", fe.Tag())
		}
		return &model.ValidationError{Field: fe.Field(), Message: msg}
	}
	return &model.ValidationError{Field: "appointment", Message: err.Error()}
}

func trim(in NewAppointment) NewAppointment {
	in.PatientID = strings.TrimSpace(in.PatientID)
	in.PatientName = strings.TrimSpace(in.PatientName)
	in.DoctorID = strings.TrimSpace(in.DoctorID)
	in.DoctorName = strings.TrimSpace(in.DoctorName)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Specialty = strings.TrimSpace(in.Specialty)
	return in
}

// Create books a pending appointment and tells the doctor about it.
func (r *Repository) Create(ctx context.Context, in NewAppointment) (model.Appointment, error) {
	in = trim(in)
	if err := r.validate.Struct(in); err != nil {
		return model.Appointment{}, toValidationError(err)
	}
	// stored dates are always zero padded
	if d, err := ParseDate(in.Date, r.window.Loc); err == nil {
		in.Date = FormatDate(d)
	}

	now := r.now()
	apt := model.Appointment{
		ID:          r.ids.New(),
		PatientID:   in.PatientID,
		PatientName: in.PatientName,
		DoctorID:    in.DoctorID,
		DoctorName:  in.DoctorName,
		Date:        in.Date,
		Time:        in.Time,
		Specialty:   in.Specialty,
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.appointments.Update(ctx, func(all []model.Appointment) ([]model.Appointment, error) {
		if r.rejectDup && slotTaken(all, apt.DoctorID, apt.Date, apt.Time) {
			return nil, fmt.Errorf("slot %s %s for doctor %s: %w", apt.Date, apt.Time, apt.DoctorID, model.ErrConflict)
		}
		return append(all, apt), nil
	})
	if err != nil {
		return model.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}

	if r.notifier != nil {
		if err := r.notifier.NotifyNewAppointment(ctx, apt); err != nil {
			r.log.Warn("new appointment notification failed",
				zap.String("appointment_id", apt.ID), zap.Error(err))
		}
	}
	return apt, nil
}

func slotTaken(all []model.Appointment, doctorID, date, slot string) bool {
	for _, a := range all {
		if a.DoctorID == doctorID && a.Time == slot && a.Status != model.StatusCancelled && SameDate(a.Date, date) {
			return true
		}
	}
	return false
}

func (r *Repository) ListAll(ctx context.Context) ([]model.Appointment, error) {
	return r.appointments.Load(ctx)
}

func (r *Repository) ListByPatient(ctx context.Context, patientID string) ([]model.Appointment, error) {
	return r.filter(ctx, func(a model.Appointment) bool { return a.PatientID == patientID })
}

func (r *Repository) ListByDoctor(ctx context.Context, doctorID string) ([]model.Appointment, error) {
	return r.filter(ctx, func(a model.Appointment) bool { return a.DoctorID == doctorID })
}

func (r *Repository) filter(ctx context.Context, keep func(model.Appointment) bool) ([]model.Appointment, error) {
	all, err := r.appointments.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Appointment, 0, len(all))
	for _, a := range all {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id string) (model.Appointment, error) {
	all, err := r.appointments.Load(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	for _, a := range all {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, model.ErrNotFound)
}

// AvailableSlots lists the slots on date that doctorID has not already
// given to a live appointment.
func (r *Repository) AvailableSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	if !r.window.Contains(date, r.now()) {
		return nil, &model.ValidationError{Field: "date", Message: tagMessages["booking_date"]}
	}
	all, err := r.appointments.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(slotGrid))
	for _, s := range slotGrid {
		if !slotTaken(all, doctorID, date, s) {
			out = append(out, s)
		}
	}
	return out, nil
}

// SetStatus moves an appointment along the transition table and notifies
// the patient. reason is only used for cancellations.
func (r *Repository) SetStatus(ctx context.Context, id string, to model.Status, reason string) (model.Appointment, error) {
	if !to.Valid() {
		return model.Appointment{}, &model.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", to)}
	}
	reason = strings.TrimSpace(reason)

	var updated model.Appointment
	err := r.appointments.Update(ctx, func(all []model.Appointment) ([]model.Appointment, error) {
		for i := range all {
			if all[i].ID != id {
				continue
			}
			from := all[i].Status
			if !r.transitions.Allows(from, to) {
				return nil, fmt.Errorf("appointment %s %s -> %s: %w", id, from, to, model.ErrInvalidTransition)
			}
			all[i].Status = to
			all[i].UpdatedAt = r.now()
			if to == model.StatusCancelled {
				all[i].CancellationReason = reason
			} else {
				all[i].CancellationReason = ""
			}
			updated = all[i]
			return all, nil
		}
		return nil, fmt.Errorf("appointment %s: %w", id, model.ErrNotFound)
	})
	if err != nil {
		return model.Appointment{}, err
	}

	r.log.Info("appointment status changed",
		zap.String("appointment_id", id),
		zap.String("status", string(to)))

	if r.notifier != nil {
		var nerr error
		switch to {
		case model.StatusConfirmed:
			nerr = r.notifier.NotifyAppointmentConfirmed(ctx, updated)
		case model.StatusCancelled:
			nerr = r.notifier.NotifyAppointmentCancelled(ctx, updated, reason)
		}
		if nerr != nil {
			r.log.Warn("status notification failed",
				zap.String("appointment_id", id), zap.Error(nerr))
		}
	}
	return updated, nil
}

func (r *Repository) Confirm(ctx context.Context, id string) (model.Appointment, error) {
	return r.SetStatus(ctx, id, model.StatusConfirmed, "")
}

func (r *Repository) Cancel(ctx context.Context, id, reason string) (model.Appointment, error) {
	return r.SetStatus(ctx, id, model.StatusCancelled, reason)
}

// Delete removes the record. Notifications pointing at it are left alone.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.appointments.Update(ctx, func(all []model.Appointment) ([]model.Appointment, error) {
		for i := range all {
			if all[i].ID == id {
				return append(all[:i], all[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("appointment %s: %w", id, model.ErrNotFound)
	})
}
