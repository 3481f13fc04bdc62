package ports

import (
	"context"
	"errors"
	"time"

	"github.com/lorrc/cas-server/internal/core/domain"
)

var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrDuplicateTicket   = errors.New("ticket id already exists")
	ErrPrincipalNotFound = errors.New("principal not found")
)

// TicketStore is the persistence port for all four ticket kinds. Every
// implementation must make Consume atomic: when two callers race to
// validate the same single-use ticket, exactly one must observe
// consumed == false.
type TicketStore interface {
	Save(ctx context.Context, t *domain.Ticket) error
	Get(ctx context.Context, id string) (*domain.Ticket, error)

	// Consume atomically marks a single-use ticket (ST or PT) as consumed
	// and returns the ticket as it was immediately before the update. It
	// returns ports.ErrTicketNotFound if the ticket does not exist or was
	// already consumed.
	Consume(ctx context.Context, id string) (*domain.Ticket, error)

	// Invalidate deletes or marks invalid a ticket without requiring it be
	// unconsumed first; used to discard a freshly minted PGT whose proxy
	// callback failed. /logout goes through InvalidateByGrantingTGT instead.
	Invalidate(ctx context.Context, id string) error

	// InvalidateByGrantingTGT invalidates every ticket issued under the
	// given TGT, directly or transitively through a PGT chain, as part of
	// single sign-out.
	InvalidateByGrantingTGT(ctx context.Context, tgtID string) error

	// NextSequence returns a monotonically increasing counter used as the
	// numeric segment of a newly minted ticket identifier.
	NextSequence(ctx context.Context) (uint64, error)

	// DeleteExpired removes tickets whose ExpiresAt has passed, returning
	// the number removed. Intended to be called periodically.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// PrincipalRepository is the credential-lookup port behind the /login
// authentication check.
type PrincipalRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.Principal, error)
}

// ProxyCallbackClient performs the HTTPS handshake a service's pgtUrl
// requires before a PGT is issued to it.
type ProxyCallbackClient interface {
	// Notify appends pgtId/pgtIou to callbackURL's existing query string and
	// issues a GET request. A non-2xx response, TLS failure, or timeout is
	// reported as a non-nil error; callers must treat that as "no PGT
	// issued" rather than propagate it to the CAS client.
	Notify(ctx context.Context, callbackURL, pgtID, pgtIOU string) error
}
