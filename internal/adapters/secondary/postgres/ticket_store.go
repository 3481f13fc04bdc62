package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/cas-server/internal/core/domain"
	"github.com/lorrc/cas-server/internal/core/ports"
)

// TicketStore persists every ticket kind in a single table, discriminated
// by kind. A single table keeps the proxy-chain joins (PT -> PGT -> PT ...)
// to one-row lookups instead of four separate tables.
type TicketStore struct {
	pool *pgxpool.Pool
}

func NewTicketStore(pool *pgxpool.Pool) *TicketStore {
	return &TicketStore{pool: pool}
}

func (s *TicketStore) Save(ctx context.Context, t *domain.Ticket) error {
	db := GetDBTX(ctx, s.pool)
	_, err := db.Exec(ctx, `
		INSERT INTO tickets (
			id, kind, principal, service, created_at, expires_at, consumed,
			granted_by_tgt, granted_by_st, granted_by_pt, granted_by_pgt, pgtiou, proxy_callback_url
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		t.ID, string(t.Kind), t.Principal, t.Service, t.CreatedAt, t.ExpiresAt, t.Consumed,
		nullable(t.GrantedByTGT), nullable(t.GrantedByST), nullable(t.GrantedByPT), nullable(t.GrantedByPGT),
		nullable(t.PGTIOU), nullable(t.ProxyCallbackURL),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ports.ErrDuplicateTicket
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (s *TicketStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	db := GetDBTX(ctx, s.pool)
	row := db.QueryRow(ctx, `
		SELECT id, kind, principal, service, created_at, expires_at, consumed,
		       granted_by_tgt, granted_by_st, granted_by_pt, granted_by_pgt, pgtiou, proxy_callback_url
		FROM tickets WHERE id = $1
	`, id)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// Consume atomically flips consumed=false -> true and returns the ticket as
// it was beforehand, using a single conditional UPDATE so that two callers
// racing on the same single-use ticket can never both win.
func (s *TicketStore) Consume(ctx context.Context, id string) (*domain.Ticket, error) {
	db := GetDBTX(ctx, s.pool)
	row := db.QueryRow(ctx, `
		UPDATE tickets SET consumed = true
		WHERE id = $1 AND consumed = false
		RETURNING id, kind, principal, service, created_at, expires_at, consumed,
		          granted_by_tgt, granted_by_st, granted_by_pt, granted_by_pgt, pgtiou, proxy_callback_url
	`, id)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrTicketNotFound
		}
		return nil, err
	}
	t.Consumed = false // report the pre-update state to the caller
	return t, nil
}

func (s *TicketStore) Invalidate(ctx context.Context, id string) error {
	db := GetDBTX(ctx, s.pool)
	_, err := db.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("invalidate ticket: %w", err)
	}
	return nil
}

// InvalidateByGrantingTGT removes the TGT itself along with every ST, PGT
// and PT chained beneath it, implementing single sign-out.
func (s *TicketStore) InvalidateByGrantingTGT(ctx context.Context, tgtID string) error {
	db := GetDBTX(ctx, s.pool)
	_, err := db.Exec(ctx, `
		DELETE FROM tickets
		WHERE id = $1
		   OR granted_by_tgt = $1
		   OR granted_by_pgt IN (SELECT id FROM tickets WHERE granted_by_tgt = $1)
	`, tgtID)
	if err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

func (s *TicketStore) NextSequence(ctx context.Context) (uint64, error) {
	db := GetDBTX(ctx, s.pool)
	var next int64
	err := db.QueryRow(ctx, `SELECT nextval('ticket_sequence')`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next ticket sequence: %w", err)
	}
	return uint64(next), nil
}

func (s *TicketStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	db := GetDBTX(ctx, s.pool)
	tag, err := db.Exec(ctx, `DELETE FROM tickets WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired tickets: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var t domain.Ticket
	var kind string
	var grantedByTGT, grantedByST, grantedByPT, grantedByPGT, pgtiou, callbackURL *string

	err := row.Scan(
		&t.ID, &kind, &t.Principal, &t.Service, &t.CreatedAt, &t.ExpiresAt, &t.Consumed,
		&grantedByTGT, &grantedByST, &grantedByPT, &grantedByPGT, &pgtiou, &callbackURL,
	)
	if err != nil {
		return nil, err
	}

	t.Kind = domain.TicketKind(kind)
	t.GrantedByTGT = deref(grantedByTGT)
	t.GrantedByST = deref(grantedByST)
	t.GrantedByPT = deref(grantedByPT)
	t.GrantedByPGT = deref(grantedByPGT)
	t.PGTIOU = deref(pgtiou)
	t.ProxyCallbackURL = deref(callbackURL)
	return &t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
