// Package user keeps the users collection. Appointments and notifications
// carry the names copied at booking time; reads that find a name missing
// fill it through Resolve.
package user

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/ids"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/store"
)

// Unknown is the display name for an id with no matching user.
const Unknown = "unknown"

type Directory struct {
	users    *store.Collection[model.User]
	log      *zap.Logger
	validate *validator.Validate
	ids      ids.Generator
	now      func() time.Time
}

func NewDirectory(st *store.Store, log *zap.Logger) *Directory {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return &Directory{
		users:    store.NewCollection[model.User](st, store.Users),
		log:      log,
		validate: v,
		ids:      ids.NewULID("usr"),
		now:      time.Now,
	}
}

type NewUser struct {
	Name      string     `json:"name" validate:"required"`
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password" validate:"required,min=8"`
	Role      model.Role `json:"role" validate:"required,oneof=admin doctor patient"`
	Specialty string     `json:"specialty"`
}

func (d *Directory) Register(ctx context.Context, in NewUser) (model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Specialty = strings.TrimSpace(in.Specialty)
	if err := d.validate.Struct(in); err != nil {
		var fes validator.ValidationErrors
		if errors.As(err, &fes) && len(fes) > 0 {
			return model.User{}, &model.ValidationError{
				Field:   fes[0].Field(),
				Message: fmt.Sprintf("failed on '%s' validation", fes[0].Tag()),
			}
		}
		return model.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		ID:           d.ids.New(),
		Name:         in.Name,
		Email:        in.Email,
		Role:         in.Role,
		Specialty:    in.Specialty,
		PasswordHash: hash,
		CreatedAt:    d.now().UTC(),
	}

	err = d.users.Update(ctx, func(all []model.User) ([]model.User, error) {
		for _, x := range all {
			if strings.EqualFold(x.Email, u.Email) {
				return nil, fmt.Errorf("email %s: %w", u.Email, model.ErrConflict)
			}
		}
		return append(all, u), nil
	})
	if err != nil {
		return model.User{}, err
	}
	d.log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Authenticate checks credentials. Unknown email and wrong password give the
// same error.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	all, err := d.users.Load(ctx)
	if err != nil {
		return model.User{}, err
	}
	email = strings.TrimSpace(email)
	for _, u := range all {
		if strings.EqualFold(u.Email, email) {
			if auth.CheckPassword(u.PasswordHash, password) {
				return u, nil
			}
			break
		}
	}
	return model.User{}, model.ErrInvalidCredentials
}

func (d *Directory) Get(ctx context.Context, id string) (model.User, error) {
	all, err := d.users.Load(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range all {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
}

func (d *Directory) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	all, err := d.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.User, 0)
	for _, u := range all {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

// Resolve never fails: a dangling id or an unreadable store yields a
// placeholder user named Unknown.
func (d *Directory) Resolve(ctx context.Context, id string) model.User {
	u, err := d.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			d.log.Warn("resolve user", zap.String("user_id", id), zap.Error(err))
		}
		return model.User{ID: id, Name: Unknown}
	}
	return u
}

func (d *Directory) ResolveName(ctx context.Context, id string) string {
	return d.Resolve(ctx, id).Name
}
