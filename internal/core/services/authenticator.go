package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lorrc/cas-server/internal/core/domain"
	apperrors "github.com/lorrc/cas-server/internal/core/errors"
	"github.com/lorrc/cas-server/internal/core/ports"
)

// Authenticator checks credentials against the principal repository and,
// on success, establishes or renews the single sign-on session by issuing
// a TGT.
type Authenticator struct {
	principals ports.PrincipalRepository
	factory    *TicketFactory
}

func NewAuthenticator(principals ports.PrincipalRepository, factory *TicketFactory) *Authenticator {
	return &Authenticator{principals: principals, factory: factory}
}

// Login validates a username/password pair and mints a new TGT for the
// principal. It never reveals whether the username or the password was
// wrong.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*domain.Ticket, error) {
	if username == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	principal, err := a.principals.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ports.ErrPrincipalNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup principal: %w", err)
	}

	if !principal.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return a.factory.IssueTGT(ctx, principal.Username)
}

// SSOSessionService resolves an existing TGT into a fresh service ticket
// and tears down a session on logout.
type SSOSessionService struct {
	store   ports.TicketStore
	factory *TicketFactory
	now     func() time.Time
}

func NewSSOSessionService(store ports.TicketStore, factory *TicketFactory) *SSOSessionService {
	return &SSOSessionService{store: store, factory: factory, now: time.Now}
}

// ResumeSession validates that tgtID still refers to a live TGT, without
// consuming it (a TGT is reusable for the life of the session).
func (s *SSOSessionService) ResumeSession(ctx context.Context, tgtID string) (*domain.Ticket, error) {
	tgt, err := s.store.Get(ctx, tgtID)
	if err != nil {
		if errors.Is(err, ports.ErrTicketNotFound) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	if tgt.Kind != domain.KindTicketGrantingTicket {
		return nil, apperrors.ErrTicketWrongKind
	}
	if tgt.IsExpired(s.now()) {
		return nil, apperrors.ErrTicketExpired
	}
	return tgt, nil
}

// IssueServiceTicket mints a fresh ST for a service, given a live TGT.
func (s *SSOSessionService) IssueServiceTicket(ctx context.Context, tgt *domain.Ticket, service string) (*domain.Ticket, error) {
	return s.factory.IssueST(ctx, tgt, service)
}

// Logout invalidates the TGT and every ticket it transitively granted,
// ending the single sign-on session.
func (s *SSOSessionService) Logout(ctx context.Context, tgtID string) error {
	return s.store.InvalidateByGrantingTGT(ctx, tgtID)
}
