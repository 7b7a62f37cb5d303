// Package notification records per-user notifications derived from
// appointment events and answers read/unread queries over them.
package notification

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"clinic-scheduler/internal/ids"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/store"
)

// Publisher is told about every notification after it has been stored.
type Publisher interface {
	Publish(n model.Notification)
}

type Engine struct {
	notifications *store.Collection[model.Notification]
	pub           Publisher
	log           *zap.Logger
	ids           ids.Generator
	now           func() time.Time
}

type Option func(*Engine)

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.pub = p } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithIDs(g ids.Generator) Option { return func(e *Engine) { e.ids = g } }

func New(st *store.Store, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		notifications: store.NewCollection[model.Notification](st, store.Notifications),
		log:           log,
		ids:           ids.NewULID("ntf"),
		now:           time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

type NewNotification struct {
	UserID        string
	Type          model.NotificationType
	Title         string
	Message       string
	AppointmentID string
}

func (e *Engine) Create(ctx context.Context, in NewNotification) (model.Notification, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return model.Notification{}, &model.ValidationError{Field: "userId", Message: "is required"}
	}
	if !in.Type.Valid() {
		return model.Notification{}, &model.ValidationError{Field: "type", Message: fmt.Sprintf("unknown type %q", in.Type)}
	}

	n := model.Notification{
		ID:            e.ids.New(),
		UserID:        in.UserID,
		Title:         in.Title,
		Message:       in.Message,
		Type:          in.Type,
		CreatedAt:     e.now().UTC(),
		AppointmentID: in.AppointmentID,
	}
	err := e.notifications.Update(ctx, func(all []model.Notification) ([]model.Notification, error) {
		return append(all, n), nil
	})
	if err != nil {
		return model.Notification{}, fmt.Errorf("create notification: %w", err)
	}

	if e.pub != nil {
		e.pub.Publish(n)
	}
	return n, nil
}

// ListForUser returns the user's notifications newest first. Records with
// equal timestamps come out in reverse insertion order.
func (e *Engine) ListForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	all, err := e.notifications.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Notification, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].UserID == userID {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (e *Engine) UnreadCount(ctx context.Context, userID string) (int, error) {
	list, err := e.ListForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, x := range list {
		if !x.Read {
			n++
		}
	}
	return n, nil
}

func (e *Engine) Get(ctx context.Context, id string) (model.Notification, error) {
	all, err := e.notifications.Load(ctx)
	if err != nil {
		return model.Notification{}, err
	}
	for _, n := range all {
		if n.ID == id {
			return n, nil
		}
	}
	return model.Notification{}, fmt.Errorf("notification %s: %w", id, model.ErrNotFound)
}

// MarkRead flags one notification as read. Unknown ids and notifications
// already read are left as they are without error.
func (e *Engine) MarkRead(ctx context.Context, id string) error {
	return e.notifications.Update(ctx, func(all []model.Notification) ([]model.Notification, error) {
		for i := range all {
			if all[i].ID == id {
				if all[i].Read {
					return nil, store.ErrUnchanged
				}
				all[i].Read = true
				return all, nil
			}
		}
		return nil, store.ErrUnchanged
	})
}

// MarkAllRead flags every unread notification of userID and returns how
// many changed.
func (e *Engine) MarkAllRead(ctx context.Context, userID string) (int, error) {
	changed := 0
	err := e.notifications.Update(ctx, func(all []model.Notification) ([]model.Notification, error) {
		for i := range all {
			if all[i].UserID == userID && !all[i].Read {
				all[i].Read = true
				changed++
			}
		}
		if changed == 0 {
			return nil, store.ErrUnchanged
		}
		return all, nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.notifications.Update(ctx, func(all []model.Notification) ([]model.Notification, error) {
		for i := range all {
			if all[i].ID == id {
				return append(all[:i], all[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("notification %s: %w", id, model.ErrNotFound)
	})
}

// HasNotification reports whether a notification of type t already points
// at appointmentID.
func (e *Engine) HasNotification(ctx context.Context, appointmentID string, t model.NotificationType) (bool, error) {
	all, err := e.notifications.Load(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range all {
		if n.AppointmentID == appointmentID && n.Type == t {
			return true, nil
		}
	}
	return false, nil
}
