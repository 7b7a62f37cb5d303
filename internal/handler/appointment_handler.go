package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"clinic-scheduler/internal/appointment"
	"clinic-scheduler/internal/middleware"
	"clinic-scheduler/internal/model"
)

type bookingRequest struct {
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Specialty string `json:"specialty"`
}

type slotsRequest struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
}

type statusRequest struct {
	ID     string       `json:"id"`
	Status model.Status `json:"status"`
	Reason string       `json:"reason"`
}

// visible hides appointments the caller has no part in.
func visible(p middleware.Principal, a model.Appointment) bool {
	return p.Role == model.RoleAdmin || a.PatientID == p.UserID || a.DoctorID == p.UserID
}

// mayTransition: admins and the treating doctor move any status, a patient
// may only cancel their own booking.
func mayTransition(p middleware.Principal, a model.Appointment, to model.Status) bool {
	switch {
	case p.Role == model.RoleAdmin:
		return true
	case a.DoctorID == p.UserID:
		return true
	case a.PatientID == p.UserID:
		return to == model.StatusCancelled
	}
	return false
}

// named fills in display names a record lacks. Unknown ids come back as
// user.Unknown.
func (h *Handler) named(ctx context.Context, a model.Appointment) model.Appointment {
	if a.PatientName == "" {
		a.PatientName = h.users.ResolveName(ctx, a.PatientID)
	}
	if a.DoctorName == "" {
		a.DoctorName = h.users.ResolveName(ctx, a.DoctorID)
	}
	return a
}

func (h *Handler) CreateAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	var in bookingRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	patientID := p.UserID
	switch p.Role {
	case model.RoleDoctor:
		return nil, status.Error(codes.PermissionDenied, "doctors cannot book appointments")
	case model.RoleAdmin:
		if in.PatientID == "" {
			return nil, h.fail(&model.ValidationError{Field: "patientId", Message: "required"})
		}
		patientID = in.PatientID
	}

	if in.DoctorID == "" {
		return nil, h.fail(&model.ValidationError{Field: "doctorId", Message: "required"})
	}
	doc, err := h.users.Get(ctx, in.DoctorID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && doc.Role != model.RoleDoctor) {
		return nil, h.fail(&model.ValidationError{Field: "doctorId", Message: "unknown doctor"})
	}
	if err != nil {
		return nil, h.fail(err)
	}
	if in.Specialty == "" {
		in.Specialty = doc.Specialty
	}

	a, err := h.appointments.Create(ctx, appointment.NewAppointment{
		PatientID:   patientID,
		PatientName: h.users.ResolveName(ctx, patientID),
		DoctorID:    doc.ID,
		DoctorName:  doc.Name,
		Date:        in.Date,
		Time:        in.Time,
		Specialty:   in.Specialty,
	})
	if err != nil {
		return nil, h.fail(err)
	}
	return encode(map[string]any{"appointment": a})
}

func (h *Handler) GetAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	var in idRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := in.check(); err != nil {
		return nil, err
	}

	a, err := h.appointments.Get(ctx, in.ID)
	if err != nil {
		return nil, h.fail(err)
	}
	// ownership: return 404 not 403 to hide existence
	if !visible(p, a) {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return encode(map[string]any{"appointment": h.named(ctx, a)})
}

func (h *Handler) ListAppointments(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var list []model.Appointment
	switch p.Role {
	case model.RoleAdmin:
		list, err = h.appointments.ListAll(ctx)
	case model.RoleDoctor:
		list, err = h.appointments.ListByDoctor(ctx, p.UserID)
	default:
		list, err = h.appointments.ListByPatient(ctx, p.UserID)
	}
	if err != nil {
		return nil, h.fail(err)
	}
	for i := range list {
		list[i] = h.named(ctx, list[i])
	}
	return encode(map[string]any{"appointments": list})
}

func (h *Handler) AvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	var in slotsRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if in.DoctorID == "" {
		return nil, h.fail(&model.ValidationError{Field: "doctorId", Message: "required"})
	}

	slots, err := h.appointments.AvailableSlots(ctx, in.DoctorID, in.Date)
	if err != nil {
		return nil, h.fail(err)
	}
	return encode(map[string]any{"doctorId": in.DoctorID, "date": in.Date, "slots": slots})
}

func (h *Handler) SetAppointmentStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	var in statusRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := (idRequest{ID: in.ID}).check(); err != nil {
		return nil, err
	}

	a, err := h.appointments.Get(ctx, in.ID)
	if err != nil {
		return nil, h.fail(err)
	}
	if !visible(p, a) {
		return nil, status.Error(codes.NotFound, "not found")
	}
	if !mayTransition(p, a, in.Status) {
		return nil, status.Error(codes.PermissionDenied, "not allowed to change this appointment")
	}

	updated, err := h.appointments.SetStatus(ctx, in.ID, in.Status, in.Reason)
	if err != nil {
		return nil, h.fail(err)
	}
	return encode(map[string]any{"appointment": h.named(ctx, updated)})
}

func (h *Handler) DeleteAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	var in idRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := in.check(); err != nil {
		return nil, err
	}

	a, err := h.appointments.Get(ctx, in.ID)
	if err != nil {
		return nil, h.fail(err)
	}
	if !visible(p, a) {
		return nil, status.Error(codes.NotFound, "not found")
	}
	if p.Role != model.RoleAdmin && a.PatientID != p.UserID {
		return nil, status.Error(codes.PermissionDenied, "only the patient or an admin can delete")
	}

	if err := h.appointments.Delete(ctx, in.ID); err != nil {
		return nil, h.fail(err)
	}
	return encode(map[string]any{"deleted": true})
}
