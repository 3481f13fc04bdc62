package http

import (
	"encoding/xml"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/cas-server/internal/core/domain"
	"github.com/lorrc/cas-server/internal/core/mocks"
	"github.com/lorrc/cas-server/internal/core/services"
)

func newValidatorForTest(store *mocks.MockTicketStore) *services.Validator {
	factory := services.NewTicketFactory(store, services.DefaultTicketLifetimes())
	return services.NewValidator(store, factory, mocks.NewMockProxyCallbackClient())
}

func TestHandleValidate_Success(t *testing.T) {
	store := mocks.NewMockTicketStore()
	st := &domain.Ticket{
		ID:        "ST-0000000001-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Kind:      domain.KindServiceTicket,
		Principal: "ellen",
		Service:   "http://www.example.com/",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	store.On("Get", testAnyContext, st.ID).Return(st, nil).Once()
	store.On("Consume", testAnyContext, st.ID).Return(st, nil).Once()

	h := NewValidateHandler(newValidatorForTest(store), nil)

	req := httptest.NewRequest(stdhttp.MethodGet, "/validate?service=http://www.example.com/&ticket="+st.ID, nil)
	rec := httptest.NewRecorder()
	h.HandleValidate(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "yes\nellen\n", rec.Body.String())
}

func TestHandleValidate_MissingParamsIsNo(t *testing.T) {
	store := mocks.NewMockTicketStore()
	h := NewValidateHandler(newValidatorForTest(store), nil)

	req := httptest.NewRequest(stdhttp.MethodGet, "/validate", nil)
	rec := httptest.NewRecorder()
	h.HandleValidate(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "no\n\n", rec.Body.String())
}

func TestHandleValidate_RejectsNonGET(t *testing.T) {
	store := mocks.NewMockTicketStore()
	h := NewValidateHandler(newValidatorForTest(store), nil)

	req := httptest.NewRequest(stdhttp.MethodPost, "/validate", nil)
	rec := httptest.NewRecorder()
	h.HandleValidate(rec, req)

	assert.Equal(t, stdhttp.StatusMethodNotAllowed, rec.Code)
}

func TestHandleServiceValidate_SuccessXML(t *testing.T) {
	store := mocks.NewMockTicketStore()
	st := &domain.Ticket{
		ID:        "ST-0000000002-bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Kind:      domain.KindServiceTicket,
		Principal: "ellen",
		Service:   "http://www.example.com/",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	store.On("Get", testAnyContext, st.ID).Return(st, nil).Once()
	store.On("Consume", testAnyContext, st.ID).Return(st, nil).Once()

	h := NewValidateHandler(newValidatorForTest(store), nil)

	req := httptest.NewRequest(stdhttp.MethodGet, "/serviceValidate?service=http://www.example.com/&ticket="+st.ID, nil)
	rec := httptest.NewRecorder()
	h.HandleServiceValidate(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	var resp decodedServiceResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Success)
	assert.Equal(t, "ellen", resp.Success.User)
	assert.Nil(t, resp.Failure)
}

func TestHandleServiceValidate_FailureXML(t *testing.T) {
	store := mocks.NewMockTicketStore()
	store.On("Get", testAnyContext, "ST-unknown").Return(nil, errTicketStoreNotFound).Once()

	h := NewValidateHandler(newValidatorForTest(store), nil)

	req := httptest.NewRequest(stdhttp.MethodGet, "/serviceValidate?service=http://www.example.com/&ticket=ST-unknown", nil)
	rec := httptest.NewRecorder()
	h.HandleServiceValidate(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	var resp decodedServiceResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Success)
	require.NotNil(t, resp.Failure)
	assert.Equal(t, codeInvalidTicket, resp.Failure.Code)
}

func TestHandleProxyValidate_RejectsNonGET(t *testing.T) {
	store := mocks.NewMockTicketStore()
	h := NewValidateHandler(newValidatorForTest(store), nil)

	req := httptest.NewRequest(stdhttp.MethodPost, "/proxyValidate", nil)
	rec := httptest.NewRecorder()
	h.HandleProxyValidate(rec, req)

	assert.Equal(t, stdhttp.StatusMethodNotAllowed, rec.Code)
}

func TestHandleProxyValidate_AcceptsProxyTicketAndBuildsChain(t *testing.T) {
	store := mocks.NewMockTicketStore()
	pt := &domain.Ticket{
		ID:        "PT-0000000003-cccccccccccccccccccccccccccccccc",
		Kind:      domain.KindProxyTicket,
		Principal: "ellen",
		Service:   "http://ww2.example.com/",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	store.On("Get", testAnyContext, pt.ID).Return(pt, nil).Once()
	store.On("Consume", testAnyContext, pt.ID).Return(pt, nil).Once()

	h := NewValidateHandler(newValidatorForTest(store), nil)

	req := httptest.NewRequest(stdhttp.MethodGet, "/proxyValidate?service=http://ww2.example.com/&ticket="+pt.ID, nil)
	rec := httptest.NewRecorder()
	h.HandleProxyValidate(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	var resp decodedServiceResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Success)
	require.NotNil(t, resp.Success.Proxies)
	assert.Equal(t, []string{"http://ww2.example.com/"}, resp.Success.Proxies.Proxy)
}
