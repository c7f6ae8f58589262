package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

// PostgresCache persists registry observations so repeated audits of the
// same operator do not hammer the register.
type PostgresCache struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against the given DSN and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*PostgresCache, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("registry: parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("registry: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("registry: ping: %w", err)
	}
	return &PostgresCache{pool: pool}, nil
}

func (c *PostgresCache) Close() { c.pool.Close() }

func (c *PostgresCache) LookupByINN(ctx context.Context, inn string) (*Record, error) {
	var rec Record
	err := c.pool.QueryRow(ctx, `
		SELECT inn, registered, name, registration_number, registration_date,
		       operator_type, region, address, basis, source_url, last_checked_at
		FROM operators
		WHERE inn = $1
	`, inn).Scan(
		&rec.INN, &rec.Registered, &rec.Name, &rec.RegistrationNumber,
		&rec.RegistrationDate, &rec.OperatorType, &rec.Region, &rec.Address,
		&rec.Basis, &rec.Source, &rec.LastCheckedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sharederrors.ErrRegistryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registry: lookup %s: %w", inn, err)
	}
	return &rec, nil
}

func (c *PostgresCache) Upsert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return nil
	}
	_, err := c.pool.Exec(ctx, `
		INSERT INTO operators (inn, registered, name, registration_number, registration_date,
		                       operator_type, region, address, basis, source_url, last_checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (inn) DO UPDATE SET
			registered = EXCLUDED.registered,
			name = EXCLUDED.name,
			registration_number = EXCLUDED.registration_number,
			registration_date = EXCLUDED.registration_date,
			operator_type = EXCLUDED.operator_type,
			region = EXCLUDED.region,
			address = EXCLUDED.address,
			basis = EXCLUDED.basis,
			source_url = EXCLUDED.source_url,
			last_checked_at = EXCLUDED.last_checked_at
	`, rec.INN, rec.Registered, rec.Name, rec.RegistrationNumber, rec.RegistrationDate,
		rec.OperatorType, rec.Region, rec.Address, rec.Basis, rec.Source, rec.LastCheckedAt)
	if err != nil {
		return fmt.Errorf("registry: upsert %s: %w", rec.INN, err)
	}
	return nil
}
