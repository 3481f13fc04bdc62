package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/cas-server/internal/core/domain"
	"github.com/lorrc/cas-server/internal/core/ports"
)

// PrincipalRepository backs the credential check /login performs.
type PrincipalRepository struct {
	pool *pgxpool.Pool
}

func NewPrincipalRepository(pool *pgxpool.Pool) *PrincipalRepository {
	return &PrincipalRepository{pool: pool}
}

func (r *PrincipalRepository) GetByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	db := GetDBTX(ctx, r.pool)
	row := db.QueryRow(ctx, `
		SELECT username, hashed_password, email FROM principals WHERE username = $1
	`, username)

	var p domain.Principal
	if err := row.Scan(&p.Username, &p.HashedPassword, &p.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("lookup principal: %w", err)
	}
	return &p, nil
}

func (r *PrincipalRepository) Create(ctx context.Context, username, hashedPassword, email string) error {
	db := GetDBTX(ctx, r.pool)
	_, err := db.Exec(ctx, `
		INSERT INTO principals (username, hashed_password, email) VALUES ($1, $2, $3)
	`, username, hashedPassword, email)
	if err != nil {
		return fmt.Errorf("create principal: %w", err)
	}
	return nil
}
