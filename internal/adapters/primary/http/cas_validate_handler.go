package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/cas-server/internal/core/services"
)

// ValidateHandler implements the three ticket-validation endpoints. They
// share nothing but the Validator itself: the wire format and failure
// signalling differ enough between CAS 1.0 and 2.0 that keeping them as
// three thin methods is clearer than one parameterised handler.
type ValidateHandler struct {
	validator *services.Validator
	logger    *slog.Logger
}

func NewValidateHandler(validator *services.Validator, logger *slog.Logger) *ValidateHandler {
	return &ValidateHandler{validator: validator, logger: logger}
}

func (h *ValidateHandler) RegisterRoutes(r chi.Router) {
	r.Get("/validate", h.HandleValidate)
	r.Get("/serviceValidate", h.HandleServiceValidate)
	r.Get("/proxyValidate", h.HandleProxyValidate)
}

// HandleValidate implements the CAS 1.0 /validate endpoint: plain text,
// always HTTP 200, no proxy chain and no PGT issuance.
func (h *ValidateHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	service := r.URL.Query().Get("service")
	ticket := r.URL.Query().Get("ticket")
	if service == "" || ticket == "" {
		writeCAS1Failure(w)
		return
	}

	result, err := h.validator.ValidateServiceTicket(r.Context(), ticket, service, "")
	if err != nil {
		writeCAS1Failure(w)
		return
	}
	writeCAS1Success(w, result.Principal)
}

// HandleServiceValidate implements the CAS 2.0 /serviceValidate endpoint:
// an ST only, XML response, optional pgtUrl proxy-granting handshake.
func (h *ValidateHandler) HandleServiceValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	service := r.URL.Query().Get("service")
	ticket := r.URL.Query().Get("ticket")
	pgtURL := r.URL.Query().Get("pgtUrl")
	if service == "" || ticket == "" {
		writeCAS2Failure(w, codeInvalidRequest, "ticket and service parameters are required")
		return
	}

	result, err := h.validator.ValidateServiceTicket(r.Context(), ticket, service, pgtURL)
	if err != nil {
		h.logValidationFailure("serviceValidate", ticket, service, err)
		code, message := casErrorCode(err)
		writeCAS2Failure(w, code, message)
		return
	}
	writeCAS2Success(w, result.Principal, result)
}

// HandleProxyValidate implements the CAS 2.0 /proxyValidate endpoint: like
// /serviceValidate but accepts a PT as well as an ST, and rebuilds the
// proxy chain for a PT.
func (h *ValidateHandler) HandleProxyValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	service := r.URL.Query().Get("service")
	ticket := r.URL.Query().Get("ticket")
	pgtURL := r.URL.Query().Get("pgtUrl")
	if service == "" || ticket == "" {
		writeCAS2Failure(w, codeInvalidRequest, "ticket and service parameters are required")
		return
	}

	result, err := h.validator.ValidateServiceOrProxyTicket(r.Context(), ticket, service, pgtURL)
	if err != nil {
		h.logValidationFailure("proxyValidate", ticket, service, err)
		code, message := casErrorCode(err)
		writeCAS2Failure(w, code, message)
		return
	}
	writeCAS2Success(w, result.Principal, result)
}

func (h *ValidateHandler) logValidationFailure(endpoint, ticket, service string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.Info("ticket validation failed",
		slog.String("endpoint", endpoint),
		slog.String("ticket", ticket),
		slog.String("service", service),
		slog.String("error", err.Error()),
	)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for i, m := range allowed {
		if i == 0 {
			w.Header().Set("Allow", m)
		} else {
			w.Header().Add("Allow", m)
		}
	}
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
