package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/user"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in user.NewUser
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = model.RolePatient
	}
	// admins are provisioned out of band
	if in.Role == model.RoleAdmin {
		return nil, status.Error(codes.PermissionDenied, "cannot self-register as admin")
	}

	u, err := h.users.Register(ctx, in)
	if err != nil {
		// don't reveal which emails are taken
		if errors.Is(err, model.ErrConflict) {
			return nil, status.Error(codes.AlreadyExists, "registration failed")
		}
		return nil, h.fail(err)
	}

	tok, err := auth.MakeToken(u.ID, u.Role, h.secret)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return encode(map[string]any{"userId": u.ID, "token": tok, "user": publicUser(u)})
}

func (h *Handler) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in credentials
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if in.Email == "" || in.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password required")
	}

	u, err := h.users.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return nil, h.fail(err)
	}

	tok, err := auth.MakeToken(u.ID, u.Role, h.secret)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return encode(map[string]any{"token": tok, "userId": u.ID, "name": u.Name, "user": publicUser(u)})
}

func (h *Handler) ListDoctors(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	docs, err := h.users.ListByRole(ctx, model.RoleDoctor)
	if err != nil {
		return nil, h.fail(err)
	}
	for i := range docs {
		docs[i] = publicUser(docs[i])
	}
	return encode(map[string]any{"doctors": docs})
}
