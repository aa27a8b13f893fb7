package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// Manager groups the stores backed by the auth database.
type Manager struct {
	db           *bun.DB
	verification *VerificationStore
	activity     *ActivityStore
}

func NewManager(db *bun.DB) *Manager {
	return &Manager{
		db:           db,
		verification: NewVerificationStore(db),
		activity:     NewActivityStore(db),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.verification == nil {
		return errors.New("repository verification should be initialized")
	}

	if m.activity == nil {
		return errors.New("repository activity should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *Manager) Verification() *VerificationStore {
	return m.verification
}

func (m *Manager) Activity() *ActivityStore {
	return m.activity
}
