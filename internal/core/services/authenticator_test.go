package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/cas-server/internal/core/domain"
	apperrors "github.com/lorrc/cas-server/internal/core/errors"
	"github.com/lorrc/cas-server/internal/core/mocks"
	"github.com/lorrc/cas-server/internal/core/ports"
	"github.com/lorrc/cas-server/internal/core/services"
)

func mustHashedPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := domain.HashPassword(password)
	require.NoError(t, err)
	return hashed
}

func TestAuthenticator_Login_IssuesTGTOnValidCredentials(t *testing.T) {
	principals := mocks.NewMockPrincipalRepository()
	store := mocks.NewMockTicketStore()

	principal := &domain.Principal{Username: "ellen", HashedPassword: mustHashedPassword(t, "correct-horse")}
	principals.On("GetByUsername", mock.Anything, "ellen").Return(principal, nil)
	store.On("NextSequence", mock.Anything).Return(uint64(1), nil)
	store.On("Save", mock.Anything, mock.AnythingOfType("*domain.Ticket")).Return(nil)

	factory := services.NewTicketFactory(store, services.DefaultTicketLifetimes())
	auth := services.NewAuthenticator(principals, factory)

	tgt, err := auth.Login(context.Background(), "ellen", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, domain.KindTicketGrantingTicket, tgt.Kind)
	assert.Equal(t, "ellen", tgt.Principal)
}

func TestAuthenticator_Login_RejectsWrongPassword(t *testing.T) {
	principals := mocks.NewMockPrincipalRepository()
	store := mocks.NewMockTicketStore()

	principal := &domain.Principal{Username: "ellen", HashedPassword: mustHashedPassword(t, "correct-horse")}
	principals.On("GetByUsername", mock.Anything, "ellen").Return(principal, nil)

	factory := services.NewTicketFactory(store, services.DefaultTicketLifetimes())
	auth := services.NewAuthenticator(principals, factory)

	_, err := auth.Login(context.Background(), "ellen", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthenticator_Login_DoesNotRevealUnknownUsername(t *testing.T) {
	principals := mocks.NewMockPrincipalRepository()
	store := mocks.NewMockTicketStore()

	principals.On("GetByUsername", mock.Anything, "nobody").Return(nil, ports.ErrPrincipalNotFound)

	factory := services.NewTicketFactory(store, services.DefaultTicketLifetimes())
	auth := services.NewAuthenticator(principals, factory)

	_, err := auth.Login(context.Background(), "nobody", "whatever")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestSSOSessionService_LogoutInvalidatesChain(t *testing.T) {
	store := mocks.NewMockTicketStore()
	store.On("InvalidateByGrantingTGT", mock.Anything, "TGT-0000000001-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx").Return(nil)

	factory := services.NewTicketFactory(store, services.DefaultTicketLifetimes())
	sso := services.NewSSOSessionService(store, factory)

	err := sso.Logout(context.Background(), "TGT-0000000001-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx")
	require.NoError(t, err)
	store.AssertExpectations(t)
}
