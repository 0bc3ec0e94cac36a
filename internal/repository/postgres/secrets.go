package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/fk00750/authguard/internal/core/domain"
	"github.com/fk00750/authguard/internal/repository"
)

// SecretRepository implements port.SecretRepository using PostgreSQL.
type SecretRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSecretRepository wires a PostgreSQL-backed link secret repository.
func NewSecretRepository(exec pgExecutor) *SecretRepository {
	return &SecretRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert replaces any existing secret for the user. Links signed with the
// previous value stop verifying immediately.
func (r *SecretRepository) Upsert(ctx context.Context, secret domain.LinkSecret) error {
	sql, args, err := r.builder.Insert("auth.link_secrets").
		Columns("user_id", "secret", "updated_at").
		Values(secret.UserID, secret.Secret, secret.UpdatedAt).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET secret = EXCLUDED.secret, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert secret sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert link secret: %w", err)
	}

	return nil
}

// Get retrieves the user's current link secret.
func (r *SecretRepository) Get(ctx context.Context, userID string) (*domain.LinkSecret, error) {
	stmt, args, err := r.builder.
		Select("user_id", "secret", "updated_at").
		From("auth.link_secrets").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select secret sql: %w", err)
	}

	var secret domain.LinkSecret
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&secret.UserID,
		&secret.Secret,
		&secret.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan link secret: %w", err)
	}

	return &secret, nil
}

// Delete removes the user's link secret.
func (r *SecretRepository) Delete(ctx context.Context, userID string) error {
	sql, args, err := r.builder.Delete("auth.link_secrets").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete secret sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete link secret: %w", err)
	}

	return nil
}
