package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/fk00750/authguard/internal/core/domain"
	"github.com/fk00750/authguard/internal/repository"
)

func ledgerToken(hash string) domain.RefreshToken {
	now := time.Now().UTC()
	return domain.RefreshToken{
		ID:        "token-1",
		UserID:    "user-1",
		TokenHash: hash,
		Status:    domain.RefreshTokenValid,
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

func TestTokenRepository_Put(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)
	token := ledgerToken("hash-new")

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM auth\.refresh_tokens`).
		WithArgs(token.UserID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`INSERT INTO auth\.refresh_tokens`).
		WithArgs(token.ID, token.UserID, token.TokenHash, token.Status, token.CreatedAt, token.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := repo.Put(context.Background(), token); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_Replace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)
	token := ledgerToken("hash-new")

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM auth\.refresh_tokens`).
		WithArgs("hash-old").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM auth\.refresh_tokens`).
		WithArgs(token.UserID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`INSERT INTO auth\.refresh_tokens`).
		WithArgs(token.ID, token.UserID, token.TokenHash, token.Status, token.CreatedAt, token.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := repo.Replace(context.Background(), "hash-old", token); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_ReplaceLostRace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)
	token := ledgerToken("hash-new")

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM auth\.refresh_tokens`).
		WithArgs("hash-old").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err = repo.Replace(context.Background(), "hash-old", token)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_GetByHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)
	want := ledgerToken("hash-1")

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "token_hash", "status", "created_at", "expires_at",
	}).AddRow(want.ID, want.UserID, want.TokenHash, want.Status, want.CreatedAt, want.ExpiresAt)

	mock.ExpectQuery(`SELECT .*FROM auth\.refresh_tokens`).
		WithArgs("hash-1").
		WillReturnRows(rows)

	token, err := repo.GetByHash(context.Background(), "hash-1")
	if err != nil {
		t.Fatalf("GetByHash returned error: %v", err)
	}
	if token.UserID != want.UserID || token.Status != domain.RefreshTokenValid {
		t.Fatalf("unexpected token: %+v", token)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_DeleteByHashMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	mock.ExpectExec(`DELETE FROM auth\.refresh_tokens`).
		WithArgs("hash-gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.DeleteByHash(context.Background(), "hash-gone"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
