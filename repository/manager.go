package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// Manager groups the repositories backing a client deployment.
type Manager struct {
	db    *bun.DB
	roles *RoleRecords
}

func NewManager(db *bun.DB, opts ...RoleRecordsOption) *Manager {
	return &Manager{
		db:    db,
		roles: NewRoleRecords(db, opts...),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.roles == nil {
		return errors.New("repository roles should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// Migrate creates the tables the repositories need
func (m *Manager) Migrate(ctx context.Context) error {
	return m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return CreateRoleRecordsTable(ctx, tx)
	})
}

func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *Manager) RoleRecords() *RoleRecords {
	return m.roles
}
