package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/cas-server/internal/core/domain"
	apperrors "github.com/lorrc/cas-server/internal/core/errors"
	"github.com/lorrc/cas-server/internal/core/mocks"
	"github.com/lorrc/cas-server/internal/core/ports"
	"github.com/lorrc/cas-server/internal/core/services"
)

func TestProxyIssuer_IssuesPTForLivePGT(t *testing.T) {
	store := mocks.NewMockTicketStore()
	pgt := &domain.Ticket{
		ID:        "PGT-0000000001-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx",
		Kind:      domain.KindProxyGrantingTicket,
		Principal: "ellen",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	store.On("Get", mock.Anything, pgt.ID).Return(pgt, nil)
	store.On("NextSequence", mock.Anything).Return(uint64(1), nil)
	store.On("Save", mock.Anything, mock.AnythingOfType("*domain.Ticket")).Return(nil)

	factory := services.NewTicketFactory(store, services.DefaultTicketLifetimes())
	issuer := services.NewProxyIssuer(store, factory)

	pt, err := issuer.IssueProxyTicket(context.Background(), pgt.ID, "http://backend.example.com/")
	require.NoError(t, err)
	assert.Equal(t, pgt.ID, pt.GrantedByPGT)
	assert.Equal(t, "http://backend.example.com/", pt.Service)
}

func TestProxyIssuer_MissingParamsAreInvalidRequest(t *testing.T) {
	store := mocks.NewMockTicketStore()
	factory := services.NewTicketFactory(store, services.DefaultTicketLifetimes())
	issuer := services.NewProxyIssuer(store, factory)

	_, err := issuer.IssueProxyTicket(context.Background(), "", "http://backend.example.com/")
	assert.ErrorIs(t, err, apperrors.ErrTicketRequired)

	_, err = issuer.IssueProxyTicket(context.Background(), "PGT-0000000002-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx", "")
	assert.ErrorIs(t, err, apperrors.ErrServiceRequired)
}

func TestProxyIssuer_UnknownPGTIsBadPGT(t *testing.T) {
	store := mocks.NewMockTicketStore()
	store.On("Get", mock.Anything, "PGT-0000000000-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa").
		Return(nil, ports.ErrTicketNotFound)

	factory := services.NewTicketFactory(store, services.DefaultTicketLifetimes())
	issuer := services.NewProxyIssuer(store, factory)

	_, err := issuer.IssueProxyTicket(context.Background(), "PGT-0000000000-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "http://backend.example.com/")
	assert.ErrorIs(t, err, apperrors.ErrPGTNotFound)
}

func TestProxyIssuer_ExpiredPGTIsBadPGT(t *testing.T) {
	store := mocks.NewMockTicketStore()
	pgt := &domain.Ticket{
		ID:        "PGT-0000000003-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx",
		Kind:      domain.KindProxyGrantingTicket,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	store.On("Get", mock.Anything, pgt.ID).Return(pgt, nil)

	factory := services.NewTicketFactory(store, services.DefaultTicketLifetimes())
	issuer := services.NewProxyIssuer(store, factory)

	_, err := issuer.IssueProxyTicket(context.Background(), pgt.ID, "http://backend.example.com/")
	assert.ErrorIs(t, err, apperrors.ErrPGTNotFound)
}
