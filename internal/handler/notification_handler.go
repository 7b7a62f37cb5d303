package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"clinic-scheduler/internal/middleware"
	"clinic-scheduler/internal/model"
)

func (h *Handler) ListNotifications(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := h.notifications.ListForUser(ctx, p.UserID)
	if err != nil {
		return nil, h.fail(err)
	}
	return encode(map[string]any{"notifications": list})
}

func (h *Handler) UnreadCount(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	n, err := h.notifications.UnreadCount(ctx, p.UserID)
	if err != nil {
		return nil, h.fail(err)
	}
	return encode(map[string]any{"count": n})
}

// owned loads a notification addressed to the caller. Anyone else's looks
// missing.
func (h *Handler) owned(ctx context.Context, p middleware.Principal, req *structpb.Struct) (model.Notification, error) {
	var in idRequest
	if err := decode(req, &in); err != nil {
		return model.Notification{}, err
	}
	if err := in.check(); err != nil {
		return model.Notification{}, err
	}
	n, err := h.notifications.Get(ctx, in.ID)
	if err != nil {
		return model.Notification{}, h.fail(err)
	}
	if n.UserID != p.UserID {
		return model.Notification{}, status.Error(codes.NotFound, "not found")
	}
	return n, nil
}

func (h *Handler) MarkNotificationRead(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	n, err := h.owned(ctx, p, req)
	if err != nil {
		return nil, err
	}
	if err := h.notifications.MarkRead(ctx, n.ID); err != nil {
		return nil, h.fail(err)
	}
	return encode(map[string]any{"id": n.ID, "read": true})
}

func (h *Handler) MarkAllNotificationsRead(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := h.notifications.MarkAllRead(ctx, p.UserID)
	if err != nil {
		return nil, h.fail(err)
	}
	return encode(map[string]any{"updated": updated})
}

func (h *Handler) DeleteNotification(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	n, err := h.owned(ctx, p, req)
	if err != nil {
		return nil, err
	}
	if err := h.notifications.Delete(ctx, n.ID); err != nil {
		return nil, h.fail(err)
	}
	return encode(map[string]any{"deleted": true})
}
