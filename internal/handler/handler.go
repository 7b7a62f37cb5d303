package handler

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"clinic-scheduler/internal/appointment"
	"clinic-scheduler/internal/middleware"
	"clinic-scheduler/internal/notification"
	"clinic-scheduler/internal/stats"
	"clinic-scheduler/internal/user"
)

type Handler struct {
	appointments  *appointment.Repository
	notifications *notification.Engine
	stats         *stats.Aggregator
	users         *user.Directory
	secret        string
	log           *zap.Logger
}

var _ ClinicServer = (*Handler)(nil)

func New(appts *appointment.Repository, notes *notification.Engine, agg *stats.Aggregator, users *user.Directory, secret string, log *zap.Logger) *Handler {
	return &Handler{
		appointments:  appts,
		notifications: notes,
		stats:         agg,
		users:         users,
		secret:        secret,
		log:           log,
	}
}

func caller(ctx context.Context) (middleware.Principal, error) {
	p, ok := middleware.PrincipalFrom(ctx)
	if !ok {
		return middleware.Principal{}, status.Error(codes.Unauthenticated, "not signed in")
	}
	return p, nil
}

type idRequest struct {
	ID string `json:"id"`
}

func (r idRequest) check() error {
	if r.ID == "" {
		return status.Error(codes.InvalidArgument, "id required")
	}
	return nil
}
