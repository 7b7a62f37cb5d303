package handler

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/stats"
)

type statsRequest struct {
	DoctorID  string `json:"doctorId"`
	PatientID string `json:"patientId"`
}

// GetStatistics scopes non-admin callers to their own appointments whatever
// filter they send.
func (h *Handler) GetStatistics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	var in statsRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	f := stats.Filter{DoctorID: in.DoctorID, PatientID: in.PatientID}
	switch p.Role {
	case model.RoleDoctor:
		f = stats.Filter{DoctorID: p.UserID}
	case model.RolePatient:
		f = stats.Filter{PatientID: p.UserID}
	}

	s, err := h.stats.Compute(ctx, f)
	if err != nil {
		return nil, h.fail(err)
	}
	return encode(map[string]any{"stats": s})
}
