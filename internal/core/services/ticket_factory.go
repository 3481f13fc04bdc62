package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lorrc/cas-server/internal/core/domain"
	"github.com/lorrc/cas-server/internal/core/ports"
	"github.com/lorrc/cas-server/internal/infrastructure/metrics"
)

// TicketLifetimes configures how long each ticket kind remains valid after
// issuance. ST and PT are intentionally short-lived; TGT spans the browser
// session. A PGT expires ProxyGrantingTicket after its own issuance; its
// expiry is not tied to that of the TGT behind it (logout still removes it).
type TicketLifetimes struct {
	ServiceTicket        time.Duration
	ProxyTicket          time.Duration
	ProxyGrantingTicket  time.Duration
	TicketGrantingTicket time.Duration
}

func DefaultTicketLifetimes() TicketLifetimes {
	return TicketLifetimes{
		ServiceTicket:        10 * time.Second,
		ProxyTicket:          10 * time.Second,
		ProxyGrantingTicket:  2 * time.Hour,
		TicketGrantingTicket: 2 * time.Hour,
	}
}

// TicketFactory mints and persists new tickets. It is the only component
// that constructs domain.Ticket values destined for the store, so ID
// generation and expiry stamping stay in one place.
type TicketFactory struct {
	store     ports.TicketStore
	lifetimes TicketLifetimes
	now       func() time.Time
}

func NewTicketFactory(store ports.TicketStore, lifetimes TicketLifetimes) *TicketFactory {
	return &TicketFactory{store: store, lifetimes: lifetimes, now: time.Now}
}

// save persists a freshly minted ticket. The store's primary key enforces
// identifier uniqueness; on the (vanishingly rare) collision the identifier
// is reminted and the insert retried.
func (f *TicketFactory) save(ctx context.Context, t *domain.Ticket) error {
	for attempt := 0; ; attempt++ {
		err := f.store.Save(ctx, t)
		if err == nil || !errors.Is(err, ports.ErrDuplicateTicket) || attempt == 2 {
			return err
		}
		seq, err := f.store.NextSequence(ctx)
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		id, err := domain.NewTicketID(t.Kind, seq)
		if err != nil {
			return err
		}
		t.ID = id
	}
}

func (f *TicketFactory) mint(ctx context.Context, kind domain.TicketKind) (*domain.Ticket, error) {
	seq, err := f.store.NextSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("next sequence: %w", err)
	}
	id, err := domain.NewTicketID(kind, seq)
	if err != nil {
		return nil, err
	}
	now := f.now()
	return &domain.Ticket{
		ID:        id,
		Kind:      kind,
		CreatedAt: now,
	}, nil
}

// IssueTGT creates a ticket-granting ticket for a principal who has just
// authenticated, establishing the single sign-on session.
func (f *TicketFactory) IssueTGT(ctx context.Context, principal string) (*domain.Ticket, error) {
	t, err := f.mint(ctx, domain.KindTicketGrantingTicket)
	if err != nil {
		return nil, err
	}
	t.Principal = principal
	t.ExpiresAt = t.CreatedAt.Add(f.lifetimes.TicketGrantingTicket)
	if err := f.save(ctx, t); err != nil {
		return nil, err
	}
	metrics.TicketsIssued.WithLabelValues(string(domain.KindTicketGrantingTicket)).Inc()
	return t, nil
}

// IssueST creates a service ticket granted by an active TGT.
func (f *TicketFactory) IssueST(ctx context.Context, tgt *domain.Ticket, service string) (*domain.Ticket, error) {
	t, err := f.mint(ctx, domain.KindServiceTicket)
	if err != nil {
		return nil, err
	}
	t.Principal = tgt.Principal
	t.Service = service
	t.GrantedByTGT = tgt.ID
	t.ExpiresAt = t.CreatedAt.Add(f.lifetimes.ServiceTicket)
	if err := f.save(ctx, t); err != nil {
		return nil, err
	}
	metrics.TicketsIssued.WithLabelValues(string(domain.KindServiceTicket)).Inc()
	return t, nil
}

// IssuePGT creates a proxy-granting ticket for a service that supplied a
// valid pgtUrl during /serviceValidate or /proxyValidate. pgtiou is the
// correlator returned to the caller in place of the PGT id itself.
func (f *TicketFactory) IssuePGT(ctx context.Context, grantingTicket *domain.Ticket, callbackURL string) (ticket *domain.Ticket, pgtiou string, err error) {
	if grantingTicket.Kind != domain.KindServiceTicket && grantingTicket.Kind != domain.KindProxyTicket {
		return nil, "", fmt.Errorf("cannot issue PGT from ticket kind %s", grantingTicket.Kind)
	}

	t, err := f.mint(ctx, domain.KindProxyGrantingTicket)
	if err != nil {
		return nil, "", err
	}
	iouSeq, err := f.store.NextSequence(ctx)
	if err != nil {
		return nil, "", err
	}
	iou, err := domain.NewTicketID(domain.TicketKind("PGTIOU"), iouSeq)
	if err != nil {
		return nil, "", err
	}

	t.Principal = grantingTicket.Principal
	t.ProxyCallbackURL = callbackURL
	t.PGTIOU = iou
	t.GrantedByTGT = grantingTicket.GrantedByTGT
	t.ExpiresAt = t.CreatedAt.Add(f.lifetimes.ProxyGrantingTicket)

	// A PGT records exactly one granting ticket: the ST when it was minted
	// directly for a service, the PT when minted further down a proxy chain.
	if grantingTicket.Kind == domain.KindServiceTicket {
		t.GrantedByST = grantingTicket.ID
	} else {
		t.GrantedByPT = grantingTicket.ID
	}

	if err := f.save(ctx, t); err != nil {
		return nil, "", err
	}
	metrics.TicketsIssued.WithLabelValues(string(domain.KindProxyGrantingTicket)).Inc()
	return t, iou, nil
}

// IssuePT creates a proxy ticket granted by an existing PGT, for use against
// a back-end service in a proxy chain.
func (f *TicketFactory) IssuePT(ctx context.Context, pgt *domain.Ticket, service string) (*domain.Ticket, error) {
	t, err := f.mint(ctx, domain.KindProxyTicket)
	if err != nil {
		return nil, err
	}
	t.Principal = pgt.Principal
	t.Service = service
	t.GrantedByTGT = pgt.GrantedByTGT
	t.GrantedByPGT = pgt.ID
	t.ExpiresAt = t.CreatedAt.Add(f.lifetimes.ProxyTicket)
	if err := f.save(ctx, t); err != nil {
		return nil, err
	}
	metrics.TicketsIssued.WithLabelValues(string(domain.KindProxyTicket)).Inc()
	return t, nil
}
