package http

import (
	"context"
	"net/http/httptest"
	stdhttp "net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/cas-server/internal/adapters/primary/http/middleware"
	"github.com/lorrc/cas-server/internal/auth"
	"github.com/lorrc/cas-server/internal/core/domain"
	"github.com/lorrc/cas-server/internal/core/mocks"
	"github.com/lorrc/cas-server/internal/core/services"
)

func newSessionHandlerForTest(store *mocks.MockTicketStore, principals *mocks.MockPrincipalRepository) (*SessionHandler, *auth.TokenManager) {
	factory := services.NewTicketFactory(store, services.DefaultTicketLifetimes())
	authenticator := services.NewAuthenticator(principals, factory)
	sso := services.NewSSOSessionService(store, factory)
	tokens := auth.NewTokenManager("test-signing-secret-needs-32-bytes!!", time.Hour)
	return NewSessionHandler(authenticator, sso, tokens, middleware.SessionCookieName, false, nil), tokens
}

func TestHandleLogin_GET_RendersForm(t *testing.T) {
	store := mocks.NewMockTicketStore()
	principals := mocks.NewMockPrincipalRepository()
	h, _ := newSessionHandlerForTest(store, principals)

	req := httptest.NewRequest(stdhttp.MethodGet, "/login?service=http://www.example.com/", nil)
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<form")
}

func TestHandleLogin_POST_IssuesTicketAndRedirects(t *testing.T) {
	store := mocks.NewMockTicketStore()
	principals := mocks.NewMockPrincipalRepository()
	h, _ := newSessionHandlerForTest(store, principals)

	hashed, err := domain.HashPassword("correct-horse")
	require.NoError(t, err)
	principal := &domain.Principal{Username: "ellen", HashedPassword: hashed}
	principals.On("GetByUsername", testAnyContext, "ellen").Return(principal, nil)
	store.On("NextSequence", testAnyContext).Return(uint64(1), nil).Twice()
	store.On("Save", testAnyContext, mockAnyTicket).Return(nil).Twice()

	form := url.Values{"username": {"ellen"}, "password": {"correct-horse"}, "service": {"http://www.example.com/"}}
	req := httptest.NewRequest(stdhttp.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	require.Equal(t, stdhttp.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "http://www.example.com/?ticket=ST-"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestHandleLogin_POST_WrongPasswordRerendersForm(t *testing.T) {
	store := mocks.NewMockTicketStore()
	principals := mocks.NewMockPrincipalRepository()
	h, _ := newSessionHandlerForTest(store, principals)

	hashed, err := domain.HashPassword("correct-horse")
	require.NoError(t, err)
	principal := &domain.Principal{Username: "ellen", HashedPassword: hashed}
	principals.On("GetByUsername", testAnyContext, "ellen").Return(principal, nil)

	form := url.Values{"username": {"ellen"}, "password": {"wrong"}}
	req := httptest.NewRequest(stdhttp.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")
}

func TestHandleLogin_RejectsUnsupportedMethod(t *testing.T) {
	store := mocks.NewMockTicketStore()
	principals := mocks.NewMockPrincipalRepository()
	h, _ := newSessionHandlerForTest(store, principals)

	req := httptest.NewRequest(stdhttp.MethodPut, "/login", nil)
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	assert.Equal(t, stdhttp.StatusMethodNotAllowed, rec.Code)
}

func TestHandleLogout_InvalidatesSessionAndRedirectsToService(t *testing.T) {
	store := mocks.NewMockTicketStore()
	principals := mocks.NewMockPrincipalRepository()
	h, tokens := newSessionHandlerForTest(store, principals)

	tgtID := "TGT-0000000001-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"
	store.On("InvalidateByGrantingTGT", testAnyContext, tgtID).Return(nil).Once()

	token, err := tokens.GenerateToken(tgtID, "ellen")
	require.NoError(t, err)

	req := httptest.NewRequest(stdhttp.MethodGet, "/logout?service=http://www.example.com/", nil)
	req.AddCookie(&stdhttp.Cookie{Name: middleware.SessionCookieName, Value: token})

	claims, err := tokens.ValidateToken(token)
	require.NoError(t, err)
	req = req.WithContext(context.WithValue(req.Context(), middleware.SessionClaimsKey, claims))

	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	require.Equal(t, stdhttp.StatusFound, rec.Code)
	assert.Equal(t, "http://www.example.com/", rec.Header().Get("Location"))
	store.AssertExpectations(t)
}
