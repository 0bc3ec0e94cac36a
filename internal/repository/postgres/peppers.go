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

// PepperRepository implements port.PepperRepository using PostgreSQL.
type PepperRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPepperRepository wires a PostgreSQL-backed pepper repository.
func NewPepperRepository(exec pgExecutor) *PepperRepository {
	return &PepperRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get retrieves the identity's pepper.
func (r *PepperRepository) Get(ctx context.Context, userID string) (*domain.Pepper, error) {
	stmt, args, err := r.builder.
		Select("user_id", "value", "created_at").
		From("auth.peppers").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select pepper sql: %w", err)
	}

	var pepper domain.Pepper
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&pepper.UserID,
		&pepper.Value,
		&pepper.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan pepper: %w", err)
	}

	return &pepper, nil
}

// Create inserts the identity's pepper. An identity only ever gets one;
// a duplicate insert surfaces as repository.ErrConflict.
func (r *PepperRepository) Create(ctx context.Context, pepper domain.Pepper) error {
	sql, args, err := r.builder.Insert("auth.peppers").
		Columns("user_id", "value", "created_at").
		Values(pepper.UserID, pepper.Value, pepper.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert pepper sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert pepper: %w", err)
	}

	return nil
}
