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

var deviceColumns = []string{
	"id",
	"user_id",
	"agent_id",
	"device_token",
	"platform",
	"created_at",
	"updated_at",
}

// DeviceRepository implements port.DeviceRepository using PostgreSQL.
type DeviceRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewDeviceRepository wires a PostgreSQL-backed device repository.
func NewDeviceRepository(exec pgExecutor) *DeviceRepository {
	return &DeviceRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByToken retrieves a device registration by its push token.
func (r *DeviceRepository) GetByToken(ctx context.Context, deviceToken string) (*domain.Device, error) {
	stmt, args, err := r.builder.
		Select(deviceColumns...).
		From("admin.devices").
		Where(squirrel.Eq{"device_token": deviceToken}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select device sql: %w", err)
	}

	var device domain.Device
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&device.ID,
		&device.UserID,
		&device.AgentID,
		&device.DeviceToken,
		&device.Platform,
		&device.CreatedAt,
		&device.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan device: %w", err)
	}

	return &device, nil
}

// Upsert inserts the registration or, when the token is already known, moves
// it to the submitting user. Tokens are unique across the fleet.
func (r *DeviceRepository) Upsert(ctx context.Context, device domain.Device) (*domain.Device, error) {
	now := device.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("admin.devices").
		Columns(deviceColumns...).
		Values(
			device.ID,
			device.UserID,
			device.AgentID,
			device.DeviceToken,
			device.Platform,
			device.CreatedAt,
			now,
		).
		Suffix(`ON CONFLICT (device_token) DO UPDATE
			SET user_id = EXCLUDED.user_id,
			    agent_id = EXCLUDED.agent_id,
			    platform = EXCLUDED.platform,
			    updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert device sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("upsert device: %w", err)
	}

	return r.GetByToken(ctx, device.DeviceToken)
}

var _ port.DeviceRepository = (*DeviceRepository)(nil)

// ClientUserDirectory implements port.ClientUserDirectory against the client
// application's users table. Admin code only reads it.
type ClientUserDirectory struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewClientUserDirectory wires a read-only directory over client users.
func NewClientUserDirectory(exec pgExecutor) *ClientUserDirectory {
	return &ClientUserDirectory{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ResolveUser looks up a client user by email and returns its servicing agent,
// when one is assigned.
func (d *ClientUserDirectory) ResolveUser(ctx context.Context, email string) (string, *string, error) {
	stmt, args, err := d.builder.
		Select("id", "agent_id").
		From("app.users").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build select client user sql: %w", err)
	}

	var (
		userID  string
		agentID *string
	)
	if err := d.exec.QueryRow(ctx, stmt, args...).Scan(&userID, &agentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, repository.ErrNotFound
		}
		return "", nil, fmt.Errorf("scan client user: %w", err)
	}

	return userID, agentID, nil
}

var _ port.ClientUserDirectory = (*ClientUserDirectory)(nil)
