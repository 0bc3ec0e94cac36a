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

// TokenRepository implements the refresh token ledger on PostgreSQL.
// Put and Replace run inside a single transaction so the ledger never holds
// more than one record for an owner, whatever interleaving concurrent
// rotations produce.
type TokenRepository struct {
	pool    pgPool
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a new refresh token ledger.
func NewTokenRepository(pool pgPool) *TokenRepository {
	return &TokenRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Put removes any existing records for the token's owner and inserts the
// record, keeping the single-active-token invariant.
func (r *TokenRepository) Put(ctx context.Context, token domain.RefreshToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin put token: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.deleteForOwner(ctx, tx, token.UserID); err != nil {
		return err
	}
	if err := r.insert(ctx, tx, token); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit put token: %w", err)
	}

	return nil
}

// GetByHash retrieves a ledger record by token hash.
func (r *TokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	stmt, args, err := r.builder.
		Select("id", "user_id", "token_hash", "status", "created_at", "expires_at").
		From("auth.refresh_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select token sql: %w", err)
	}

	var token domain.RefreshToken
	if err := r.pool.QueryRow(ctx, stmt, args...).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.Status,
		&token.CreatedAt,
		&token.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &token, nil
}

// Replace deletes the record identified by oldHash together with every other
// record of the same owner, then inserts the replacement. Returns
// repository.ErrNotFound when oldHash no longer identifies a record; that is
// how the loser of a concurrent rotation learns the token was already
// redeemed.
func (r *TokenRepository) Replace(ctx context.Context, oldHash string, token domain.RefreshToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace token: %w", err)
	}
	defer tx.Rollback(ctx)

	sql, args, err := r.builder.Delete("auth.refresh_tokens").
		Where(squirrel.Eq{"token_hash": oldHash}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete token sql: %w", err)
	}

	ct, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete presented token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	if err := r.deleteForOwner(ctx, tx, token.UserID); err != nil {
		return err
	}
	if err := r.insert(ctx, tx, token); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace token: %w", err)
	}

	return nil
}

// DeleteByHash removes a ledger record. Returns repository.ErrNotFound when
// nothing was deleted.
func (r *TokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	sql, args, err := r.builder.Delete("auth.refresh_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete token sql: %w", err)
	}

	ct, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteForUser removes every ledger record owned by the user. Used when a
// password changes; a user with no records is not an error.
func (r *TokenRepository) DeleteForUser(ctx context.Context, userID string) error {
	return r.deleteForOwner(ctx, r.pool, userID)
}

func (r *TokenRepository) deleteForOwner(ctx context.Context, exec pgExecutor, userID string) error {
	sql, args, err := r.builder.Delete("auth.refresh_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete owner tokens sql: %w", err)
	}

	if _, err := exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete owner tokens: %w", err)
	}

	return nil
}

func (r *TokenRepository) insert(ctx context.Context, exec pgExecutor, token domain.RefreshToken) error {
	sql, args, err := r.builder.Insert("auth.refresh_tokens").
		Columns("id", "user_id", "token_hash", "status", "created_at", "expires_at").
		Values(token.ID, token.UserID, token.TokenHash, token.Status, token.CreatedAt, token.ExpiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert token sql: %w", err)
	}

	if _, err := exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}
