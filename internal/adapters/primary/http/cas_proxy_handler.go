package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/cas-server/internal/core/services"
)

// ProxyHandler implements the CAS 2.0 /proxy endpoint: exchange a live PGT
// for a new PT targeting a back-end service.
type ProxyHandler struct {
	issuer *services.ProxyIssuer
	logger *slog.Logger
}

func NewProxyHandler(issuer *services.ProxyIssuer, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{issuer: issuer, logger: logger}
}

func (h *ProxyHandler) RegisterRoutes(r chi.Router) {
	r.Get("/proxy", h.HandleProxy)
}

func (h *ProxyHandler) HandleProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	pgt := r.URL.Query().Get("pgt")
	targetService := r.URL.Query().Get("targetService")
	if pgt == "" || targetService == "" {
		writeCASProxyFailure(w, codeInvalidRequest, "pgt and targetService parameters are required")
		return
	}

	pt, err := h.issuer.IssueProxyTicket(r.Context(), pgt, targetService)
	if err != nil {
		if h.logger != nil {
			h.logger.Info("proxy ticket issuance failed",
				slog.String("pgt", pgt),
				slog.String("targetService", targetService),
				slog.String("error", err.Error()),
			)
		}
		code, message := casErrorCode(err)
		writeCASProxyFailure(w, code, message)
		return
	}

	writeCASProxySuccess(w, pt.ID)
}
