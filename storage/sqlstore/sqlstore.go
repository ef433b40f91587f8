// Package sqlstore keeps client session entries in a SQL table through bun.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-auth-client/storage"
	"github.com/uptrace/bun"
)

// DefaultNamespace scopes entries when none is configured
const DefaultNamespace = "default"

// EntryModel is the bun model for a stored session entry.
type EntryModel struct {
	bun.BaseModel `bun:"table:session_entries"`

	Namespace string    `bun:"namespace,pk"`
	Key       string    `bun:"entry_key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Store implements the session Storage contract on a bun.IDB. Namespaces
// let several clients share one table.
type Store struct {
	db        bun.IDB
	namespace string
	now       func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithNamespace scopes every key under namespace
func WithNamespace(namespace string) Option {
	return func(s *Store) {
		if namespace != "" {
			s.namespace = namespace
		}
	}
}

// WithClock overrides time.Now for updated_at stamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Store using db
func New(db bun.IDB, opts ...Option) *Store {
	s := &Store{
		db:        db,
		namespace: DefaultNamespace,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateTable creates the entries table when it does not exist yet.
func CreateTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*EntryModel)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return storage.WriteError(err, "create_table")
	}
	return nil
}

// Namespace returns the configured namespace
func (s *Store) Namespace() string {
	return s.namespace
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := storage.ValidateKeys(key); err != nil {
		return "", false, err
	}

	var model EntryModel
	err := s.db.NewSelect().
		Model(&model).
		Where("namespace = ? AND entry_key = ?", s.namespace, key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, storage.ReadError(err, key)
	}

	return model.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := storage.ValidateKeys(key); err != nil {
		return err
	}

	model := &EntryModel{
		Namespace: s.namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: s.now().UTC(),
	}

	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (namespace, entry_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return storage.WriteError(err, "set")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if err := storage.ValidateKeys(keys...); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	_, err := s.db.NewDelete().
		Model((*EntryModel)(nil)).
		Where("namespace = ?", s.namespace).
		Where("entry_key IN (?)", bun.In(keys)).
		Exec(ctx)
	if err != nil {
		return storage.WriteError(err, "delete")
	}
	return nil
}

// Keys lists the keys present in the namespace, sorted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.NewSelect().
		Model((*EntryModel)(nil)).
		Column("entry_key").
		Where("namespace = ?", s.namespace).
		Order("entry_key ASC").
		Scan(ctx, &keys)
	if err != nil {
		return nil, storage.ReadError(err, "*")
	}
	return keys, nil
}
