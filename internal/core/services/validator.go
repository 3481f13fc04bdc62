package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lorrc/cas-server/internal/core/domain"
	apperrors "github.com/lorrc/cas-server/internal/core/errors"
	"github.com/lorrc/cas-server/internal/core/ports"
	"github.com/lorrc/cas-server/internal/infrastructure/metrics"
)

// ProxyChainEntry is one hop of the <cas:proxies> list returned by
// /proxyValidate, ordered most-recent-first.
type ProxyChainEntry struct {
	Service string
}

// ValidationResult is what a successful /validate, /serviceValidate or
// /proxyValidate call needs to render its response.
type ValidationResult struct {
	Principal          string
	ProxyChain         []ProxyChainEntry
	ProxyGrantingTicket string // the PGTIOU to hand back to the service, if one was minted
}

// Validator implements the core ticket-checking logic shared by all three
// validation endpoints: consume the ticket exactly once, confirm it has not
// expired, confirm the service URL matches, and (for PT) rebuild the proxy
// chain.
type Validator struct {
	store   ports.TicketStore
	factory *TicketFactory
	proxy   ProxyCallbackNotifier
	now     func() time.Time
}

// ProxyCallbackNotifier is the subset of ports.ProxyCallbackClient the
// validator needs; kept as its own interface so callers that don't issue
// PGTs (CAS 1.0 /validate) don't have to wire one.
type ProxyCallbackNotifier interface {
	Notify(ctx context.Context, callbackURL, pgtID, pgtIOU string) error
}

func NewValidator(store ports.TicketStore, factory *TicketFactory, proxy ProxyCallbackNotifier) *Validator {
	return &Validator{store: store, factory: factory, proxy: proxy, now: time.Now}
}

// ValidateServiceTicket consumes an ST and, if pgtURL is non-empty and
// https, attempts the proxy callback handshake to mint a PGT. A failed
// handshake is swallowed: the ticket validation itself still succeeds, it
// simply carries no ProxyGrantingTicket.
func (v *Validator) ValidateServiceTicket(ctx context.Context, ticketID, service, pgtURL string) (*ValidationResult, error) {
	return v.validate(ctx, "serviceValidate", ticketID, service, domain.KindServiceTicket, pgtURL)
}

// ValidateProxyTicket consumes a PT, rebuilds its proxy chain, and
// optionally mints a PGT exactly like ValidateServiceTicket.
func (v *Validator) ValidateProxyTicket(ctx context.Context, ticketID, service, pgtURL string) (*ValidationResult, error) {
	return v.validate(ctx, "proxyValidate", ticketID, service, domain.KindProxyTicket, pgtURL)
}

// ValidateServiceOrProxyTicket is what /proxyValidate actually calls: unlike
// /serviceValidate it accepts either an ST or a PT, dispatching on the
// ticket id's wire prefix before the kind is even known to the store.
func (v *Validator) ValidateServiceOrProxyTicket(ctx context.Context, ticketID, service, pgtURL string) (*ValidationResult, error) {
	if strings.HasPrefix(ticketID, "PT-") {
		return v.ValidateProxyTicket(ctx, ticketID, service, pgtURL)
	}
	return v.ValidateServiceTicket(ctx, ticketID, service, pgtURL)
}

func (v *Validator) validate(ctx context.Context, endpoint, ticketID, service string, wantKind domain.TicketKind, pgtURL string) (*ValidationResult, error) {
	result, err := v.validateUnmetered(ctx, ticketID, service, wantKind, pgtURL)
	outcome := "success"
	if err != nil {
		outcome = errorOutcome(err)
	}
	metrics.ValidationsTotal.WithLabelValues(endpoint, outcome).Inc()
	return result, err
}

// errorOutcome returns a short, stable label for a validation failure,
// independent of the wire-protocol error code (which differs between CAS
// 1.0 and 2.0 for the same underlying cause).
func errorOutcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrTicketRequired), errors.Is(err, apperrors.ErrServiceRequired):
		return "invalid_request"
	case errors.Is(err, apperrors.ErrServiceMismatch):
		return "invalid_service"
	default:
		return "invalid_ticket"
	}
}

func (v *Validator) validateUnmetered(ctx context.Context, ticketID, service string, wantKind domain.TicketKind, pgtURL string) (*ValidationResult, error) {
	if ticketID == "" {
		return nil, apperrors.ErrTicketRequired
	}
	if service == "" {
		return nil, apperrors.ErrServiceRequired
	}

	// Look the ticket up without consuming it yet: a wrong-service or
	// wrong-kind ticket must be left untouched so a subsequent correct
	// validation can still succeed (INVALID_SERVICE must not consume).
	ticket, err := v.store.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, ports.ErrTicketNotFound) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, fmt.Errorf("lookup ticket: %w", err)
	}

	if ticket.Kind != wantKind {
		return nil, apperrors.ErrTicketWrongKind
	}
	// Service match is checked before the consumed/expiry check: a wrong
	// service must report INVALID_SERVICE even against an already-consumed
	// or expired ticket.
	if !domain.MatchesService(ticket.Service, service) {
		return nil, apperrors.ErrServiceMismatch
	}
	if ticket.Consumed || ticket.IsExpired(v.now()) {
		return nil, apperrors.ErrTicketExpired
	}

	// Only now attempt the atomic consume: two callers racing on the same
	// ticket will have exactly one see was_unconsumed == true here.
	ticket, err = v.store.Consume(ctx, ticketID)
	if err != nil {
		if errors.Is(err, ports.ErrTicketNotFound) {
			return nil, apperrors.ErrTicketConsumed
		}
		return nil, fmt.Errorf("consume ticket: %w", err)
	}

	metrics.TicketsConsumed.WithLabelValues(string(ticket.Kind)).Inc()

	result := &ValidationResult{Principal: ticket.Principal}

	if wantKind == domain.KindProxyTicket {
		chain, err := v.buildProxyChain(ctx, ticket)
		if err != nil {
			return nil, err
		}
		result.ProxyChain = chain
	}

	if pgtURL != "" {
		// A failed callback omits the PGT element; it does not fail the
		// validation itself.
		_ = v.tryIssuePGT(ctx, ticket, pgtURL, result)
	}

	return result, nil
}

// buildProxyChain walks a validated PT's ancestry most-recent-first: the
// PT's own service first, then each ancestor PT's service reached by
// following granting PGTs, stopping once a PGT's grantor is an ST rather
// than a PT.
func (v *Validator) buildProxyChain(ctx context.Context, pt *domain.Ticket) ([]ProxyChainEntry, error) {
	chain := []ProxyChainEntry{{Service: pt.Service}}

	pgtID := pt.GrantedByPGT
	for pgtID != "" {
		pgt, err := v.store.Get(ctx, pgtID)
		if err != nil {
			if errors.Is(err, ports.ErrTicketNotFound) {
				break
			}
			return nil, fmt.Errorf("load pgt %s: %w", pgtID, err)
		}
		if pgt.GrantedByPT == "" {
			// Grantor was an ST (or nothing); the chain ends here.
			break
		}
		ancestorPT, err := v.store.Get(ctx, pgt.GrantedByPT)
		if err != nil {
			if errors.Is(err, ports.ErrTicketNotFound) {
				break
			}
			return nil, fmt.Errorf("load pt %s: %w", pgt.GrantedByPT, err)
		}
		chain = append(chain, ProxyChainEntry{Service: ancestorPT.Service})
		pgtID = ancestorPT.GrantedByPGT
	}

	return chain, nil
}

func (v *Validator) tryIssuePGT(ctx context.Context, grantingTicket *domain.Ticket, pgtURL string, result *ValidationResult) error {
	if !strings.HasPrefix(strings.ToLower(pgtURL), "https://") {
		return apperrors.ErrPGTURLInvalid
	}

	pgt, iou, err := v.factory.IssuePGT(ctx, grantingTicket, pgtURL)
	if err != nil {
		return err
	}

	if err := v.proxy.Notify(ctx, pgtURL, pgt.ID, iou); err != nil {
		_ = v.store.Invalidate(ctx, pgt.ID)
		return apperrors.ErrProxyCallbackBad
	}

	result.ProxyGrantingTicket = iou
	return nil
}
