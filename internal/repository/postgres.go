package repository

import (
	"context"
	"errors"
	"fmt"

	"address-risk-api/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the SQLSTATE Postgres raises when a UNIQUE constraint is hit.
const uniqueViolation = "23505"

// ErrDuplicateCoordinates is returned by Create when another address already
// holds the same (latitude, longitude) pair.
var ErrDuplicateCoordinates = errors.New("repository: address with these coordinates already exists")

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Repository implements address storage on PostgreSQL
type Repository struct {
	db DB
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const addressColumns = `id, label, housenumber, street, postcode, citycode, latitude, longitude`

// FindByID returns the address with the given id, or nil if there is none.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Address, error) {
	sql := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1`

	addr, err := scanAddress(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("repository: failed to find address by id: %w", err)
	}

	return addr, nil
}

// FindByCoordinates returns the address stored at exactly (lat, lon), or nil if there is none.
func (r *Repository) FindByCoordinates(ctx context.Context, lat, lon float64) (*models.Address, error) {
	sql := `SELECT ` + addressColumns + ` FROM addresses WHERE latitude = $1 AND longitude = $2`

	addr, err := scanAddress(r.db.QueryRow(ctx, sql, lat, lon))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("repository: failed to find address by coordinates: %w", err)
	}

	return addr, nil
}

// Create inserts a new address and returns it with its assigned id.
// If the coordinates are already taken it returns ErrDuplicateCoordinates.
func (r *Repository) Create(ctx context.Context, addr *models.Address) (*models.Address, error) {
	sql := `
		INSERT INTO addresses (label, housenumber, street, postcode, citycode, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (latitude, longitude) DO NOTHING
		RETURNING ` + addressColumns

	created, err := scanAddress(r.db.QueryRow(ctx, sql,
		addr.Label,
		addr.HouseNumber,
		addr.Street,
		addr.Postcode,
		addr.CityCode,
		addr.Latitude,
		addr.Longitude,
	))
	if err != nil {
		// DO NOTHING returns no row on conflict
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDuplicateCoordinates
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateCoordinates
		}
		return nil, fmt.Errorf("repository: failed to insert address: %w", err)
	}

	return created, nil
}

// Ping checks that the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("repository: ping failed: %w", err)
	}
	return nil
}

func scanAddress(row pgx.Row) (*models.Address, error) {
	var addr models.Address
	err := row.Scan(
		&addr.ID,
		&addr.Label,
		&addr.HouseNumber,
		&addr.Street,
		&addr.Postcode,
		&addr.CityCode,
		&addr.Latitude,
		&addr.Longitude,
	)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}
