package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/fk00750/authguard/internal/core/domain"
	"github.com/fk00750/authguard/internal/repository"
)

// ResetKeyRepository implements port.ResetKeyRepository using PostgreSQL.
type ResetKeyRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewResetKeyRepository wires a PostgreSQL-backed reset key repository.
func NewResetKeyRepository(exec pgExecutor) *ResetKeyRepository {
	return &ResetKeyRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert replaces any existing reset key for the user. A fresh key always
// starts unverified.
func (r *ResetKeyRepository) Upsert(ctx context.Context, key domain.ResetKey) error {
	sql, args, err := r.builder.Insert("auth.reset_keys").
		Columns("user_id", "value", "verified", "expires_at").
		Values(key.UserID, key.Value, key.Verified, key.ExpiresAt).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET value = EXCLUDED.value, verified = EXCLUDED.verified, expires_at = EXCLUDED.expires_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert reset key sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert reset key: %w", err)
	}

	return nil
}

// GetByUser retrieves the user's outstanding reset key.
func (r *ResetKeyRepository) GetByUser(ctx context.Context, userID string) (*domain.ResetKey, error) {
	return r.getOne(ctx, squirrel.Eq{"user_id": userID})
}

// GetByValue retrieves a reset key by its opaque value.
func (r *ResetKeyRepository) GetByValue(ctx context.Context, value string) (*domain.ResetKey, error) {
	return r.getOne(ctx, squirrel.Eq{"value": value})
}

func (r *ResetKeyRepository) getOne(ctx context.Context, pred squirrel.Eq) (*domain.ResetKey, error) {
	stmt, args, err := r.builder.
		Select("user_id", "value", "verified", "expires_at").
		From("auth.reset_keys").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select reset key sql: %w", err)
	}

	var key domain.ResetKey
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&key.UserID,
		&key.Value,
		&key.Verified,
		&key.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan reset key: %w", err)
	}

	return &key, nil
}

// MarkVerified flips the verified flag after the emailed link was confirmed
// and stamps the redemption window.
func (r *ResetKeyRepository) MarkVerified(ctx context.Context, userID string, expiresAt time.Time) error {
	sql, args, err := r.builder.Update("auth.reset_keys").
		Set("verified", true).
		Set("expires_at", expiresAt).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark verified sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("mark reset key verified: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes the user's reset key.
func (r *ResetKeyRepository) Delete(ctx context.Context, userID string) error {
	sql, args, err := r.builder.Delete("auth.reset_keys").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete reset key sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete reset key: %w", err)
	}

	return nil
}
