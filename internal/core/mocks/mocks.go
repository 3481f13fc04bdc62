// Package mocks holds testify/mock doubles for the core ports, used by the
// service-layer unit tests so they never need a live Postgres instance.
package mocks

import (
	"context"
	"time"

	"github.com/lorrc/cas-server/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockTicketStore is a mock implementation of ports.TicketStore.
type MockTicketStore struct {
	mock.Mock
}

func NewMockTicketStore() *MockTicketStore {
	return &MockTicketStore{}
}

func (m *MockTicketStore) Save(ctx context.Context, t *domain.Ticket) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTicketStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketStore) Consume(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketStore) Invalidate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTicketStore) InvalidateByGrantingTGT(ctx context.Context, tgtID string) error {
	args := m.Called(ctx, tgtID)
	return args.Error(0)
}

func (m *MockTicketStore) NextSequence(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockTicketStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockPrincipalRepository is a mock implementation of ports.PrincipalRepository.
type MockPrincipalRepository struct {
	mock.Mock
}

func NewMockPrincipalRepository() *MockPrincipalRepository {
	return &MockPrincipalRepository{}
}

func (m *MockPrincipalRepository) GetByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Principal), args.Error(1)
}

// MockProxyCallbackClient is a mock implementation of ports.ProxyCallbackClient.
type MockProxyCallbackClient struct {
	mock.Mock
}

func NewMockProxyCallbackClient() *MockProxyCallbackClient {
	return &MockProxyCallbackClient{}
}

func (m *MockProxyCallbackClient) Notify(ctx context.Context, callbackURL, pgtID, pgtIOU string) error {
	args := m.Called(ctx, callbackURL, pgtID, pgtIOU)
	return args.Error(0)
}
