package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// AuthUserModel is the read only slice of the provider users table.
type AuthUserModel struct {
	bun.BaseModel `bun:"table:auth.users,alias:u"`

	ID               string     `bun:"id,pk"`
	Email            string     `bun:"email"`
	EmailConfirmedAt *time.Time `bun:"email_confirmed_at"`
}

// VerificationStore answers email verification lookups straight from the
// provider database.
type VerificationStore struct {
	db *bun.DB
}

func NewVerificationStore(db *bun.DB) *VerificationStore {
	return &VerificationStore{db: db}
}

// IsEmailVerified implements authui.VerificationLookup. Unknown addresses
// are not verified.
func (s *VerificationStore) IsEmailVerified(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}

	var user AuthUserModel
	err := s.db.NewSelect().
		Model(&user).
		Column("id", "email_confirmed_at").
		Where("lower(email) = lower(?)", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return user.EmailConfirmedAt != nil && !user.EmailConfirmedAt.IsZero(), nil
}
