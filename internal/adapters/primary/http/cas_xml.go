package http

import (
	"encoding/xml"
	"net/http"

	"github.com/lorrc/cas-server/internal/core/services"
)

const casNamespace = "http://www.yale.edu/tp/cas"

// CAS 1.0 responses are plain text, never XML and never a non-2xx status.

func writeCAS1Success(w http.ResponseWriter, principal string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("yes\n" + principal + "\n"))
}

func writeCAS1Failure(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("no\n\n"))
}

// CAS 2.0 responses are XML in the CAS namespace, also always HTTP 200;
// success or failure is signalled by which element is present, not by
// status code.

type casServiceResponse struct {
	XMLName xml.Name              `xml:"cas:serviceResponse"`
	XMLNS   string                `xml:"xmlns:cas,attr"`
	Success *casAuthSuccess       `xml:"cas:authenticationSuccess,omitempty"`
	Failure *casAuthFailure       `xml:"cas:authenticationFailure,omitempty"`
}

type casAuthSuccess struct {
	User                string       `xml:"cas:user"`
	ProxyGrantingTicket string       `xml:"cas:proxyGrantingTicket,omitempty"`
	Proxies             *casProxies  `xml:"cas:proxies,omitempty"`
}

type casProxies struct {
	Proxy []string `xml:"cas:proxy"`
}

type casAuthFailure struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

type casProxySuccessResponse struct {
	XMLName xml.Name          `xml:"cas:serviceResponse"`
	XMLNS   string            `xml:"xmlns:cas,attr"`
	Success *casProxySuccess  `xml:"cas:proxySuccess,omitempty"`
	Failure *casProxyFailure  `xml:"cas:proxyFailure,omitempty"`
}

type casProxySuccess struct {
	ProxyTicket string `xml:"cas:proxyTicket"`
}

type casProxyFailure struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

func writeCAS2Success(w http.ResponseWriter, principal string, result *services.ValidationResult) {
	resp := casServiceResponse{
		XMLNS: casNamespace,
		Success: &casAuthSuccess{
			User:                principal,
			ProxyGrantingTicket: result.ProxyGrantingTicket,
		},
	}
	if len(result.ProxyChain) > 0 {
		proxies := make([]string, len(result.ProxyChain))
		for i, p := range result.ProxyChain {
			proxies[i] = p.Service
		}
		resp.Success.Proxies = &casProxies{Proxy: proxies}
	}
	writeCASXML(w, resp)
}

func writeCAS2Failure(w http.ResponseWriter, code, message string) {
	resp := casServiceResponse{
		XMLNS:   casNamespace,
		Failure: &casAuthFailure{Code: code, Message: message},
	}
	writeCASXML(w, resp)
}

func writeCASProxySuccess(w http.ResponseWriter, proxyTicket string) {
	resp := casProxySuccessResponse{
		XMLNS:   casNamespace,
		Success: &casProxySuccess{ProxyTicket: proxyTicket},
	}
	writeCASXML(w, resp)
}

func writeCASProxyFailure(w http.ResponseWriter, code, message string) {
	resp := casProxySuccessResponse{
		XMLNS:   casNamespace,
		Failure: &casProxyFailure{Code: code, Message: message},
	}
	writeCASXML(w, resp)
}

func writeCASXML(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(v)
}

// CAS wire error codes, per the protocol (not the JSON error codes such as
// RATE_LIMITED that the HTTP middleware writes).
const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeInvalidTicket  = "INVALID_TICKET"
	codeInvalidService = "INVALID_SERVICE"
	codeBadPGT         = "BAD_PGT"
	codeInternalError  = "INTERNAL_ERROR"
)
