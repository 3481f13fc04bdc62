package services

import (
	"context"
	"errors"
	"time"

	"github.com/lorrc/cas-server/internal/core/domain"
	apperrors "github.com/lorrc/cas-server/internal/core/errors"
	"github.com/lorrc/cas-server/internal/core/ports"
)

// ProxyIssuer implements the /proxy endpoint: exchange a live PGT for a new
// PT targeting a back-end service. Unlike ST/PT validation, the PGT here is
// not consumed: it can mint any number of PTs until it expires.
type ProxyIssuer struct {
	store   ports.TicketStore
	factory *TicketFactory
	now     func() time.Time
}

func NewProxyIssuer(store ports.TicketStore, factory *TicketFactory) *ProxyIssuer {
	return &ProxyIssuer{store: store, factory: factory, now: time.Now}
}

func (p *ProxyIssuer) IssueProxyTicket(ctx context.Context, pgtID, targetService string) (*domain.Ticket, error) {
	if pgtID == "" {
		return nil, apperrors.ErrTicketRequired
	}
	if targetService == "" {
		return nil, apperrors.ErrServiceRequired
	}

	pgt, err := p.store.Get(ctx, pgtID)
	if err != nil {
		if errors.Is(err, ports.ErrTicketNotFound) {
			return nil, apperrors.ErrPGTNotFound
		}
		return nil, err
	}
	if pgt.Kind != domain.KindProxyGrantingTicket {
		return nil, apperrors.ErrPGTNotFound
	}
	if pgt.IsExpired(p.now()) {
		return nil, apperrors.ErrPGTNotFound
	}

	return p.factory.IssuePT(ctx, pgt, targetService)
}
