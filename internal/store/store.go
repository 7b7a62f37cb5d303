// Package store persists whole record collections as single values in a
// blob store and serializes every read-modify-write on a collection.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"clinic-scheduler/internal/blob"
	"clinic-scheduler/internal/model"
)

// Collection names.
const (
	Appointments  = "appointments"
	Notifications = "notifications"
	Users         = "users"
)

const DefaultTimeout = 5 * time.Second

// ErrUnchanged may be returned by an Update callback to finish without
// writing anything back.
var ErrUnchanged = errors.New("store: unchanged")

// Store owns write access to every collection kept in one blob store. Each
// collection name gets its own mutex; holders never take a second one.
type Store struct {
	blob      blob.Store
	namespace string
	timeout   time.Duration
	log       *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Store)

// WithNamespace prefixes every key, e.g. "@clinic" gives "@clinic:users".
func WithNamespace(ns string) Option {
	return func(s *Store) { s.namespace = ns }
}

// WithTimeout bounds each blob call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

func New(b blob.Store, log *zap.Logger, opts ...Option) *Store {
	s := &Store{
		blob:      b,
		namespace: "@clinic",
		timeout:   DefaultTimeout,
		log:       log,
		locks:     make(map[string]*sync.Mutex),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Key(name string) string {
	if s.namespace == "" {
		return name
	}
	return s.namespace + ":" + name
}

func (s *Store) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *Store) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) read(ctx context.Context, name string) (string, bool, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	key := s.Key(name)
	v, found, err := s.blob.Get(ctx, key)
	if err != nil {
		return "", false, &model.StoreError{Op: "get", Key: key, Err: err}
	}
	return v, found, nil
}

func (s *Store) write(ctx context.Context, name, value string) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	key := s.Key(name)
	if err := s.blob.Set(ctx, key, value); err != nil {
		return &model.StoreError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Drop removes a collection entirely.
func (s *Store) Drop(ctx context.Context, name string) error {
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()

	ctx, cancel := s.bounded(ctx)
	defer cancel()
	key := s.Key(name)
	if err := s.blob.Remove(ctx, key); err != nil {
		return &model.StoreError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

// Collection is a typed view over one named collection.
type Collection[T any] struct {
	s    *Store
	name string
}

func NewCollection[T any](s *Store, name string) *Collection[T] {
	return &Collection[T]{s: s, name: name}
}

func (c *Collection[T]) Name() string { return c.name }

// Load returns the stored records in order. A missing key is an empty
// collection. So is a payload that does not decode: it is logged and
// discarded, and the next write replaces it.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	raw, found, err := c.s.read(ctx, c.name)
	if err != nil {
		return nil, err
	}
	return c.decode(raw, found), nil
}

func (c *Collection[T]) decode(raw string, found bool) []T {
	if !found || raw == "" {
		return []T{}
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		c.s.log.Warn("corrupt collection treated as empty",
			zap.String("collection", c.name),
			zap.Int("bytes", len(raw)),
			zap.Error(err))
		return []T{}
	}
	if out == nil {
		out = []T{}
	}
	return out
}

// Save replaces the whole collection with records.
func (c *Collection[T]) Save(ctx context.Context, records []T) error {
	l := c.s.lock(c.name)
	l.Lock()
	defer l.Unlock()
	return c.save(ctx, records)
}

func (c *Collection[T]) save(ctx context.Context, records []T) error {
	if records == nil {
		records = []T{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.s.write(ctx, c.name, string(b))
}

// Update runs fn on the current records while holding the collection lock
// and persists what fn returns. If fn fails nothing is written; ErrUnchanged
// is swallowed.
func (c *Collection[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) error {
	l := c.s.lock(c.name)
	l.Lock()
	defer l.Unlock()

	raw, found, err := c.s.read(ctx, c.name)
	if err != nil {
		return err
	}
	next, err := fn(c.decode(raw, found))
	if errors.Is(err, ErrUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.save(ctx, next)
}
