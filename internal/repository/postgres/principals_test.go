package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
	"github.com/ehevelone/vitalink-app/internal/repository"
)

func principalRows(t *testing.T, p domain.Principal) *pgxmock.Rows {
	t.Helper()

	return pgxmock.NewRows(principalColumns).AddRow(
		p.ID,
		p.Kind,
		p.Email,
		p.Name,
		p.Region,
		p.Phone,
		p.Active,
		p.Version,
		p.PasswordHash,
		p.SecondFactorRequired,
		p.TOTPSecret,
		p.PasswordFailCount,
		p.PasswordLockedUntil,
		p.CodeFailCount,
		p.CodeLockedUntil,
		p.PendingCode,
		p.PendingCodeExpiresAt,
		p.LastCodeSentAt,
		p.SessionToken,
		p.SessionExpiresAt,
		p.LastLoginAt,
		p.LastLoginIP,
		p.ResetCode,
		p.ResetExpiresAt,
		p.OnboardToken,
		p.OnboardTokenExpiresAt,
		p.CreatedAt,
	)
}

func TestPrincipalRepository_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPrincipalRepository(mock)

	phone := "+13035550147"
	stored := domain.Principal{
		ID:                   "prin-1",
		Kind:                 domain.KindAdministrator,
		Email:                "erin@myvitalink.app",
		Name:                 "Erin Admin",
		Phone:                &phone,
		Active:               true,
		Version:              4,
		PasswordHash:         "$2a$12$abcdefghijklmnopqrstuv",
		SecondFactorRequired: true,
		CreatedAt:            time.Now().UTC(),
	}

	mock.ExpectQuery(`SELECT .*FROM admin\.principals`).
		WithArgs("erin@myvitalink.app", domain.KindAdministrator).
		WillReturnRows(principalRows(t, stored))

	got, err := repo.GetByEmail(context.Background(), domain.KindAdministrator, "erin@myvitalink.app")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	if got.ID != stored.ID {
		t.Fatalf("expected principal %s, got %s", stored.ID, got.ID)
	}
	if got.Phone == nil || *got.Phone != phone {
		t.Fatal("expected phone pointer populated")
	}
	if got.Version != 4 {
		t.Fatalf("expected version 4, got %d", got.Version)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPrincipalRepository_GetByEmail_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPrincipalRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM admin\.principals`).
		WithArgs("nobody@myvitalink.app", domain.KindManager).
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByEmail(context.Background(), domain.KindManager, "nobody@myvitalink.app"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPrincipalRepository_UpdateAuthState_VersionConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPrincipalRepository(mock)

	mock.ExpectExec(`UPDATE admin\.principals SET`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT 1 FROM admin\.principals`).
		WithArgs("prin-1").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	err = repo.UpdateAuthState(context.Background(), "prin-1", 3, domain.AuthState{PasswordFailCount: 2})
	if !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPrincipalRepository_UpdateAuthState_MissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPrincipalRepository(mock)

	mock.ExpectExec(`UPDATE admin\.principals SET`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT 1 FROM admin\.principals`).
		WithArgs("prin-gone").
		WillReturnError(pgx.ErrNoRows)

	err = repo.UpdateAuthState(context.Background(), "prin-gone", 1, domain.AuthState{})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPrincipalRepository_UpdatePassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPrincipalRepository(mock)

	mock.ExpectExec(`UPDATE admin\.principals SET`).
		WithArgs("$2a$12$newhash", 0, nil, "prin-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdatePassword(context.Background(), "prin-1", "$2a$12$newhash"); err != nil {
		t.Fatalf("UpdatePassword returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPrincipalRepository_ClearSessionByToken_UnknownTokenIsNoop(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPrincipalRepository(mock)

	mock.ExpectExec(`UPDATE admin\.principals SET`).
		WithArgs(nil, nil, "unknown-token").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.ClearSessionByToken(context.Background(), "unknown-token"); err != nil {
		t.Fatalf("ClearSessionByToken returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
