package http

import (
	"encoding/xml"

	"github.com/stretchr/testify/mock"

	"github.com/lorrc/cas-server/internal/core/ports"
)

// testAnyContext matches the context.Context argument testify/mock expects
// on every store call a handler makes; the handlers under test derive their
// context from the incoming *http.Request rather than context.Background(),
// so pinning to a specific value would make every expectation brittle.
var testAnyContext = mock.Anything

var errTicketStoreNotFound = ports.ErrTicketNotFound

var mockAnyTicket = mock.AnythingOfType("*domain.Ticket")

// The response types in cas_xml.go carry literal "cas:"-prefixed tags so the
// encoder emits the cas prefix. When decoding, encoding/xml resolves that
// prefix to the CAS namespace and no longer sees "cas:" in the element name,
// so those types cannot read their own output back. Tests decode responses
// through these mirror types instead, which match the root element by
// namespace and the children by local name.

type decodedServiceResponse struct {
	XMLName xml.Name            `xml:"http://www.yale.edu/tp/cas serviceResponse"`
	Success *decodedAuthSuccess `xml:"authenticationSuccess"`
	Failure *decodedFailure     `xml:"authenticationFailure"`
}

type decodedAuthSuccess struct {
	User                string          `xml:"user"`
	ProxyGrantingTicket string          `xml:"proxyGrantingTicket"`
	Proxies             *decodedProxies `xml:"proxies"`
}

type decodedProxies struct {
	Proxy []string `xml:"proxy"`
}

type decodedFailure struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

type decodedProxyResponse struct {
	XMLName xml.Name             `xml:"http://www.yale.edu/tp/cas serviceResponse"`
	Success *decodedProxySuccess `xml:"proxySuccess"`
	Failure *decodedFailure      `xml:"proxyFailure"`
}

type decodedProxySuccess struct {
	ProxyTicket string `xml:"proxyTicket"`
}
