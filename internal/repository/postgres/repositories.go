package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Principals  *PrincipalRepository
	Devices     *DeviceRepository
	ClientUsers *ClientUserDirectory
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Principals:  NewPrincipalRepository(pool),
		Devices:     NewDeviceRepository(pool),
		ClientUsers: NewClientUserDirectory(pool),
	}
}
