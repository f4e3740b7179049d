package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
	"github.com/ehevelone/vitalink-app/internal/core/port"
	"github.com/ehevelone/vitalink-app/internal/repository"
)

var principalColumns = []string{
	"id",
	"kind",
	"email",
	"name",
	"region",
	"phone",
	"active",
	"version",
	"password_hash",
	"second_factor_required",
	"totp_secret",
	"password_fail_count",
	"password_locked_until",
	"code_fail_count",
	"code_locked_until",
	"pending_code",
	"pending_code_expires_at",
	"last_code_sent_at",
	"session_token",
	"session_expires_at",
	"last_login_at",
	"last_login_ip",
	"reset_code",
	"reset_expires_at",
	"onboard_token",
	"onboard_token_expires_at",
	"created_at",
}

// PrincipalRepository implements port.PrincipalRepository using PostgreSQL.
//
// Auth-state mutations go through an optimistic compare-and-set on the version
// column: UPDATE ... WHERE id = $1 AND version = $2. Zero rows affected on an
// existing row means a concurrent writer won; the distinction from a missing
// row is made with a follow-up existence probe.
type PrincipalRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPrincipalRepository wires a PostgreSQL-backed principal repository.
func NewPrincipalRepository(exec pgExecutor) *PrincipalRepository {
	return &PrincipalRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *PrincipalRepository) WithTx(tx pgx.Tx) *PrincipalRepository {
	if tx == nil {
		return r
	}
	return &PrincipalRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new principal row.
func (r *PrincipalRepository) Create(ctx context.Context, principal domain.Principal) error {
	createdAt := principal.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := r.builder.Insert("admin.principals").
		Columns(
			"id",
			"kind",
			"email",
			"name",
			"region",
			"phone",
			"active",
			"version",
			"password_hash",
			"second_factor_required",
			"totp_secret",
			"onboard_token",
			"onboard_token_expires_at",
			"created_at",
		).
		Values(
			principal.ID,
			principal.Kind,
			principal.Email,
			principal.Name,
			principal.Region,
			principal.Phone,
			principal.Active,
			1,
			principal.PasswordHash,
			principal.SecondFactorRequired,
			principal.TOTPSecret,
			principal.OnboardToken,
			principal.OnboardTokenExpiresAt,
			createdAt,
		)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert principal sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert principal: %w", err)
	}

	return nil
}

// GetByEmail retrieves a principal by account kind and email.
func (r *PrincipalRepository) GetByEmail(ctx context.Context, kind domain.AccountKind, email string) (*domain.Principal, error) {
	stmt, args, err := r.builder.
		Select(principalColumns...).
		From("admin.principals").
		Where(squirrel.Eq{"kind": kind, "email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select principal sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// GetBySessionToken resolves a principal by its live session token.
func (r *PrincipalRepository) GetBySessionToken(ctx context.Context, token string) (*domain.Principal, error) {
	stmt, args, err := r.builder.
		Select(principalColumns...).
		From("admin.principals").
		Where(squirrel.Eq{"session_token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select principal by session sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByOnboardToken resolves a principal by its onboarding token.
func (r *PrincipalRepository) GetByOnboardToken(ctx context.Context, token string) (*domain.Principal, error) {
	stmt, args, err := r.builder.
		Select(principalColumns...).
		From("admin.principals").
		Where(squirrel.Eq{"onboard_token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select principal by onboard token sql: %w", err)
	}

	return r.scanOne(r.exec.QueryRow(ctx, stmt, args...))
}

// UpdateAuthState writes the mutable auth fields iff the stored version still
// matches expectedVersion, bumping the version on success.
func (r *PrincipalRepository) UpdateAuthState(ctx context.Context, id string, expectedVersion int64, state domain.AuthState) error {
	stmt, args, err := r.builder.Update("admin.principals").
		Set("password_fail_count", state.PasswordFailCount).
		Set("password_locked_until", state.PasswordLockedUntil).
		Set("code_fail_count", state.CodeFailCount).
		Set("code_locked_until", state.CodeLockedUntil).
		Set("pending_code", state.PendingCode).
		Set("pending_code_expires_at", state.PendingCodeExpiresAt).
		Set("last_code_sent_at", state.LastCodeSentAt).
		Set("session_token", state.SessionToken).
		Set("session_expires_at", state.SessionExpiresAt).
		Set("last_login_at", state.LastLoginAt).
		Set("last_login_ip", state.LastLoginIP).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": id, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update auth state sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update auth state: %w", err)
	}

	if ct.RowsAffected() == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}

	return nil
}

// ClearSessionByToken removes the session fields for whichever principal holds
// the token. Clearing an unknown token is a no-op.
func (r *PrincipalRepository) ClearSessionByToken(ctx context.Context, token string) error {
	stmt, args, err := r.builder.Update("admin.principals").
		Set("session_token", nil).
		Set("session_expires_at", nil).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"session_token": token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	return nil
}

// UpdatePassword replaces the password hash and resets password lockout state.
func (r *PrincipalRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	stmt, args, err := r.builder.Update("admin.principals").
		Set("password_hash", passwordHash).
		Set("password_fail_count", 0).
		Set("password_locked_until", nil).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateResetCode stores or clears the password reset code.
func (r *PrincipalRepository) UpdateResetCode(ctx context.Context, id string, code *string, expiresAt *time.Time) error {
	stmt, args, err := r.builder.Update("admin.principals").
		Set("reset_code", code).
		Set("reset_expires_at", expiresAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update reset code sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update reset code: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateTOTPSecret stores or clears the authenticator secret.
func (r *PrincipalRepository) UpdateTOTPSecret(ctx context.Context, id string, secret *string) error {
	stmt, args, err := r.builder.Update("admin.principals").
		Set("totp_secret", secret).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update totp secret sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update totp secret: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// CompleteOnboarding sets the first password and profile fields and consumes
// the onboarding token.
func (r *PrincipalRepository) CompleteOnboarding(ctx context.Context, id string, name, region, passwordHash string) error {
	query := r.builder.Update("admin.principals").
		Set("name", name).
		Set("password_hash", passwordHash).
		Set("onboard_token", nil).
		Set("onboard_token_expires_at", nil).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": id})
	if region != "" {
		query = query.Set("region", region)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build complete onboarding sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("complete onboarding: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *PrincipalRepository) exists(ctx context.Context, id string) (bool, error) {
	stmt, args, err := r.builder.Select("1").
		From("admin.principals").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build principal exists sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("probe principal: %w", err)
	}
	return true, nil
}

func (r *PrincipalRepository) scanOne(row pgx.Row) (*domain.Principal, error) {
	var p domain.Principal
	if err := row.Scan(
		&p.ID,
		&p.Kind,
		&p.Email,
		&p.Name,
		&p.Region,
		&p.Phone,
		&p.Active,
		&p.Version,
		&p.PasswordHash,
		&p.SecondFactorRequired,
		&p.TOTPSecret,
		&p.PasswordFailCount,
		&p.PasswordLockedUntil,
		&p.CodeFailCount,
		&p.CodeLockedUntil,
		&p.PendingCode,
		&p.PendingCodeExpiresAt,
		&p.LastCodeSentAt,
		&p.SessionToken,
		&p.SessionExpiresAt,
		&p.LastLoginAt,
		&p.LastLoginIP,
		&p.ResetCode,
		&p.ResetExpiresAt,
		&p.OnboardToken,
		&p.OnboardTokenExpiresAt,
		&p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan principal: %w", err)
	}
	return &p, nil
}

var _ port.PrincipalRepository = (*PrincipalRepository)(nil)
